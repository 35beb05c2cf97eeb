package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zahidhasann88/workspace-backend/internal/domain"
	"github.com/zahidhasann88/workspace-backend/internal/repository/redis"
	"github.com/zahidhasann88/workspace-backend/pkg/constants"
	apperrors "github.com/zahidhasann88/workspace-backend/pkg/errors"
	"github.com/zahidhasann88/workspace-backend/pkg/jwt"
	"github.com/zahidhasann88/workspace-backend/pkg/logger"
	"github.com/zahidhasann88/workspace-backend/pkg/password"
)

// UserRepository interface
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateStatus(ctx context.Context, userID uuid.UUID, status string) error
	EmailExists(ctx context.Context, email string) (bool, error)
}

// SessionRepository interface
type SessionRepository interface {
	CreateSession(ctx context.Context, session *redis.Session, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID string) (*redis.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Service handles authentication business logic
type Service struct {
	userRepo    UserRepository
	sessionRepo SessionRepository
	jwtManager  *jwt.JWTManager
}

// NewService creates a new auth service
func NewService(userRepo UserRepository, sessionRepo SessionRepository, jwtManager *jwt.JWTManager) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		jwtManager:  jwtManager,
	}
}

// RegisterInput contains user registration data
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// RegisterOutput contains registration result
type RegisterOutput struct {
	User         *domain.User
	SessionID    string
	AccessToken  string
	RefreshToken string
}

// Register creates a new user account
func (s *Service) Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error) {
	if input.Name == "" {
		return nil, apperrors.ValidationError("name is required")
	}
	if input.Email == "" {
		return nil, apperrors.ValidationError("email is required")
	}
	if err := password.Validate(input.Password); err != nil {
		return nil, apperrors.ValidationError(err.Error())
	}

	emailExists, err := s.userRepo.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if emailExists {
		return nil, apperrors.EmailExistsError()
	}

	passwordHash, err := password.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		UserID:       uuid.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         "user",
		Status:       "offline",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	sessionID, accessToken, refreshToken, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	return &RegisterOutput{
		User:         user,
		SessionID:    sessionID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// LoginInput contains login credentials
type LoginInput struct {
	Email    string
	Password string
}

// LoginOutput contains login result
type LoginOutput struct {
	User         *domain.User
	SessionID    string
	AccessToken  string
	RefreshToken string
}

// Login authenticates a user
func (s *Service) Login(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, apperrors.InvalidCredentialsError()
	}

	if !password.Compare(user.PasswordHash, input.Password) {
		return nil, apperrors.InvalidCredentialsError()
	}

	sessionID, accessToken, refreshToken, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateStatus(ctx, user.UserID, "online"); err != nil {
		// Non-critical, tokens are already issued
		logger.Warn("Failed to update user status during login",
			zap.String("user_id", user.UserID.String()),
			zap.Error(err))
	}

	return &LoginOutput{
		User:         user,
		SessionID:    sessionID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// RefreshTokenInput contains refresh token
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenOutput contains new tokens
type RefreshTokenOutput struct {
	AccessToken  string
	RefreshToken string
}

// RefreshToken generates new tokens from a valid refresh token
func (s *Service) RefreshToken(ctx context.Context, input *RefreshTokenInput) (*RefreshTokenOutput, error) {
	claims, err := s.jwtManager.ValidateToken(input.RefreshToken)
	if err != nil {
		return nil, apperrors.InvalidTokenError("invalid refresh token")
	}

	if claims.ID != "" {
		revoked, err := s.sessionRepo.IsTokenBlacklisted(ctx, claims.ID)
		if err == nil && revoked {
			return nil, apperrors.InvalidTokenError("refresh token revoked")
		}
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.UserNotFoundError()
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.UserID, user.Email, user.Name, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	newRefreshToken, err := s.jwtManager.GenerateRefreshToken(user.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &RefreshTokenOutput{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

// Logout invalidates the session and blacklists the presented token
func (s *Service) Logout(ctx context.Context, sessionID string, userID uuid.UUID, tokenString string) error {
	session, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		return apperrors.UnauthorizedError("session not found")
	}
	if session.UserID != userID {
		return apperrors.ForbiddenError("session does not belong to user")
	}

	if err := s.sessionRepo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if err := s.userRepo.UpdateStatus(ctx, userID, "offline"); err != nil {
		logger.Warn("Failed to update user status during logout",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	claims, err := s.jwtManager.ValidateToken(tokenString)
	if err == nil && claims.ID != "" {
		expiresIn := time.Until(claims.ExpiresAt.Time)
		if expiresIn > 0 {
			if err := s.sessionRepo.BlacklistToken(ctx, claims.ID, expiresIn); err != nil {
				logger.Warn("Failed to blacklist token during logout",
					zap.String("user_id", userID.String()),
					zap.String("jti", claims.ID),
					zap.Error(err))
			}
		}
	}

	return nil
}

// IsTokenRevoked checks if a token has been blacklisted
func (s *Service) IsTokenRevoked(ctx context.Context, tokenString string) (bool, error) {
	claims, err := s.jwtManager.ValidateToken(tokenString)
	if err != nil {
		return true, nil
	}

	if claims.ID == "" {
		return false, nil
	}

	return s.sessionRepo.IsTokenBlacklisted(ctx, claims.ID)
}

func (s *Service) issueSession(ctx context.Context, user *domain.User) (sessionID, accessToken, refreshToken string, err error) {
	accessToken, err = s.jwtManager.GenerateAccessToken(user.UserID, user.Email, user.Name, user.Role)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err = s.jwtManager.GenerateRefreshToken(user.UserID)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	session := &redis.Session{
		SessionID:    uuid.New().String(),
		UserID:       user.UserID,
		RefreshToken: refreshToken,
		CreatedAt:    time.Now(),
		ExpiresAt:    time.Now().Add(constants.RefreshTokenExpiry),
	}

	if err := s.sessionRepo.CreateSession(ctx, session, constants.RefreshTokenExpiry); err != nil {
		return "", "", "", fmt.Errorf("failed to create session: %w", err)
	}

	return session.SessionID, accessToken, refreshToken, nil
}
