package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zahidhasann88/workspace-backend/internal/domain"
	"github.com/zahidhasann88/workspace-backend/internal/repository/redis"
	apperrors "github.com/zahidhasann88/workspace-backend/pkg/errors"
	"github.com/zahidhasann88/workspace-backend/pkg/jwt"
	"github.com/zahidhasann88/workspace-backend/pkg/logger"
	"github.com/zahidhasann88/workspace-backend/pkg/password"
)

func TestMain(m *testing.M) {
	logger.InitDefault()
	os.Exit(m.Run())
}

// Mocks
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateStatus(ctx context.Context, userID uuid.UUID, status string) error {
	args := m.Called(ctx, userID, status)
	return args.Error(0)
}

func (m *MockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) CreateSession(ctx context.Context, session *redis.Session, ttl time.Duration) error {
	args := m.Called(ctx, session, ttl)
	return args.Error(0)
}

func (m *MockSessionRepository) GetSession(ctx context.Context, sessionID string) (*redis.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*redis.Session), args.Error(1)
}

func (m *MockSessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionRepository) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	args := m.Called(ctx, jti, ttl)
	return args.Error(0)
}

func (m *MockSessionRepository) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

func newTestService() (*Service, *MockUserRepository, *MockSessionRepository) {
	userRepo := new(MockUserRepository)
	sessionRepo := new(MockSessionRepository)
	jwtManager := jwt.NewJWTManager("test-secret", 15*time.Minute, 30*24*time.Hour)
	return NewService(userRepo, sessionRepo, jwtManager), userRepo, sessionRepo
}

func TestRegisterSuccess(t *testing.T) {
	svc, userRepo, sessionRepo := newTestService()

	userRepo.On("EmailExists", mock.Anything, "alice@example.com").Return(false, nil)
	userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	sessionRepo.On("CreateSession", mock.Anything, mock.AnythingOfType("*redis.Session"), mock.Anything).Return(nil)

	out, err := svc.Register(context.Background(), &RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "Sup3rSecret",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, out.AccessToken)
	assert.NotEmpty(t, out.RefreshToken)
	assert.NotEmpty(t, out.SessionID)
	assert.Equal(t, "alice@example.com", out.User.Email)
	assert.NotEqual(t, "Sup3rSecret", out.User.PasswordHash)
	userRepo.AssertExpectations(t)
	sessionRepo.AssertExpectations(t)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, userRepo, _ := newTestService()

	userRepo.On("EmailExists", mock.Anything, "alice@example.com").Return(true, nil)

	_, err := svc.Register(context.Background(), &RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "Sup3rSecret",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeEmailExists, apperrors.GetAppError(err).Code)
	userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterWeakPassword(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), &RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "short",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetAppError(err).Code)
}

func TestLoginSuccess(t *testing.T) {
	svc, userRepo, sessionRepo := newTestService()

	hash, err := password.Hash("Sup3rSecret")
	require.NoError(t, err)

	user := &domain.User{
		UserID:       uuid.New(),
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Role:         "user",
	}

	userRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(user, nil)
	userRepo.On("UpdateStatus", mock.Anything, user.UserID, "online").Return(nil)
	sessionRepo.On("CreateSession", mock.Anything, mock.AnythingOfType("*redis.Session"), mock.Anything).Return(nil)

	out, err := svc.Login(context.Background(), &LoginInput{
		Email:    "alice@example.com",
		Password: "Sup3rSecret",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, out.AccessToken)
	userRepo.AssertExpectations(t)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, userRepo, _ := newTestService()

	hash, err := password.Hash("Sup3rSecret")
	require.NoError(t, err)

	user := &domain.User{
		UserID:       uuid.New(),
		Email:        "alice@example.com",
		PasswordHash: hash,
	}

	userRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(user, nil)

	_, err = svc.Login(context.Background(), &LoginInput{
		Email:    "alice@example.com",
		Password: "WrongPassw0rd",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidCreds, apperrors.GetAppError(err).Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, userRepo, _ := newTestService()

	userRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, apperrors.UserNotFoundError())

	_, err := svc.Login(context.Background(), &LoginInput{
		Email:    "ghost@example.com",
		Password: "Whatever123",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidCreds, apperrors.GetAppError(err).Code)
}

func TestRefreshToken(t *testing.T) {
	svc, userRepo, sessionRepo := newTestService()

	user := &domain.User{
		UserID: uuid.New(),
		Name:   "Alice",
		Email:  "alice@example.com",
		Role:   "user",
	}

	refreshToken, err := svc.jwtManager.GenerateRefreshToken(user.UserID)
	require.NoError(t, err)

	sessionRepo.On("IsTokenBlacklisted", mock.Anything, mock.Anything).Return(false, nil)
	userRepo.On("GetByID", mock.Anything, user.UserID).Return(user, nil)

	out, err := svc.RefreshToken(context.Background(), &RefreshTokenInput{RefreshToken: refreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, out.AccessToken)
	assert.NotEmpty(t, out.RefreshToken)
}

func TestRefreshTokenRevoked(t *testing.T) {
	svc, _, sessionRepo := newTestService()

	refreshToken, err := svc.jwtManager.GenerateRefreshToken(uuid.New())
	require.NoError(t, err)

	sessionRepo.On("IsTokenBlacklisted", mock.Anything, mock.Anything).Return(true, nil)

	_, err = svc.RefreshToken(context.Background(), &RefreshTokenInput{RefreshToken: refreshToken})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidToken, apperrors.GetAppError(err).Code)
}

func TestLogoutBlacklistsToken(t *testing.T) {
	svc, userRepo, sessionRepo := newTestService()

	userID := uuid.New()
	accessToken, err := svc.jwtManager.GenerateAccessToken(userID, "alice@example.com", "Alice", "user")
	require.NoError(t, err)

	session := &redis.Session{SessionID: "sess-1", UserID: userID}
	sessionRepo.On("GetSession", mock.Anything, "sess-1").Return(session, nil)
	sessionRepo.On("DeleteSession", mock.Anything, "sess-1").Return(nil)
	sessionRepo.On("BlacklistToken", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	userRepo.On("UpdateStatus", mock.Anything, userID, "offline").Return(nil)

	err = svc.Logout(context.Background(), "sess-1", userID, accessToken)
	require.NoError(t, err)
	sessionRepo.AssertExpectations(t)
}

func TestLogoutWrongUser(t *testing.T) {
	svc, _, sessionRepo := newTestService()

	session := &redis.Session{SessionID: "sess-1", UserID: uuid.New()}
	sessionRepo.On("GetSession", mock.Anything, "sess-1").Return(session, nil)

	err := svc.Logout(context.Background(), "sess-1", uuid.New(), "token")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetAppError(err).Code)
	sessionRepo.AssertNotCalled(t, "DeleteSession", mock.Anything, mock.Anything)
}
