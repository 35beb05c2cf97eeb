package room

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zahidhasann88/workspace-backend/internal/domain"
	apperrors "github.com/zahidhasann88/workspace-backend/pkg/errors"
)

// Mocks
type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockRoomRepository) FindByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}

func (m *MockRoomRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Room, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Room), args.Error(1)
}

func (m *MockRoomRepository) Update(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockRoomRepository) Delete(ctx context.Context, roomID uuid.UUID) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *MockRoomRepository) AddTag(ctx context.Context, roomID uuid.UUID, tag string) error {
	args := m.Called(ctx, roomID, tag)
	return args.Error(0)
}

func (m *MockRoomRepository) RemoveTag(ctx context.Context, roomID uuid.UUID, tag string) error {
	args := m.Called(ctx, roomID, tag)
	return args.Error(0)
}

type MockWorkspaceRepository struct {
	mock.Mock
}

func (m *MockWorkspaceRepository) GetByID(ctx context.Context, workspaceID uuid.UUID) (*domain.Workspace, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

func newTestService() (*Service, *MockRoomRepository, *MockWorkspaceRepository) {
	roomRepo := new(MockRoomRepository)
	wsRepo := new(MockWorkspaceRepository)
	return NewService(roomRepo, wsRepo), roomRepo, wsRepo
}

func testWorkspace(ownerID uuid.UUID, members ...uuid.UUID) *domain.Workspace {
	return &domain.Workspace{
		WorkspaceID: uuid.New(),
		Name:        "engineering",
		OwnerID:     ownerID,
		Members:     append([]uuid.UUID{ownerID}, members...),
	}
}

func TestCreateRoomMemberAllowed(t *testing.T) {
	svc, roomRepo, wsRepo := newTestService()
	memberID := uuid.New()
	ws := testWorkspace(uuid.New(), memberID)

	wsRepo.On("GetByID", mock.Anything, ws.WorkspaceID).Return(ws, nil)
	roomRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Room")).Return(nil)

	room, err := svc.Create(context.Background(), ws.WorkspaceID, memberID, &CreateInput{
		Name: "standup",
		Type: domain.RoomTypeVideo,
	})
	require.NoError(t, err)
	assert.Equal(t, ws.WorkspaceID, room.WorkspaceID)
	assert.True(t, room.MediaSettings.AudioEnabled)
	assert.True(t, room.MediaSettings.VideoEnabled)
	assert.False(t, room.MediaSettings.ScreenShareEnabled)
}

func TestCreateRoomNonMemberRejected(t *testing.T) {
	svc, roomRepo, wsRepo := newTestService()
	ws := testWorkspace(uuid.New())

	wsRepo.On("GetByID", mock.Anything, ws.WorkspaceID).Return(ws, nil)

	_, err := svc.Create(context.Background(), ws.WorkspaceID, uuid.New(), &CreateInput{Name: "standup"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetAppError(err).Code)
	roomRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateRoomInvalidType(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), uuid.New(), uuid.New(), &CreateInput{
		Name: "standup",
		Type: "voice",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetAppError(err).Code)
}

func TestCreateRoomDefaultsType(t *testing.T) {
	svc, roomRepo, wsRepo := newTestService()
	ws := testWorkspace(uuid.New())

	wsRepo.On("GetByID", mock.Anything, ws.WorkspaceID).Return(ws, nil)
	roomRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Room")).Return(nil)

	room, err := svc.Create(context.Background(), ws.WorkspaceID, ws.OwnerID, &CreateInput{Name: "lounge"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoomTypeGeneral, room.Type)
}

func TestUpdateRoomOwnerOnly(t *testing.T) {
	svc, roomRepo, wsRepo := newTestService()
	memberID := uuid.New()
	ws := testWorkspace(uuid.New(), memberID)
	room := &domain.Room{
		RoomID:      uuid.New(),
		WorkspaceID: ws.WorkspaceID,
		Name:        "standup",
		Type:        domain.RoomTypeVideo,
	}

	roomRepo.On("FindByID", mock.Anything, room.RoomID).Return(room, nil)
	wsRepo.On("GetByID", mock.Anything, ws.WorkspaceID).Return(ws, nil)

	_, err := svc.Update(context.Background(), room.RoomID, memberID, &UpdateInput{Name: "renamed"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetAppError(err).Code)

	roomRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Room")).Return(nil)
	updated, err := svc.Update(context.Background(), room.RoomID, ws.OwnerID, &UpdateInput{Name: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
}

func TestDeleteRoomOwnerOnly(t *testing.T) {
	svc, roomRepo, wsRepo := newTestService()
	memberID := uuid.New()
	ws := testWorkspace(uuid.New(), memberID)
	room := &domain.Room{RoomID: uuid.New(), WorkspaceID: ws.WorkspaceID}

	roomRepo.On("FindByID", mock.Anything, room.RoomID).Return(room, nil)
	wsRepo.On("GetByID", mock.Anything, ws.WorkspaceID).Return(ws, nil)

	err := svc.Delete(context.Background(), room.RoomID, memberID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetAppError(err).Code)

	roomRepo.On("Delete", mock.Anything, room.RoomID).Return(nil)
	require.NoError(t, svc.Delete(context.Background(), room.RoomID, ws.OwnerID))
}

func TestAuthorizeJoin(t *testing.T) {
	svc, roomRepo, wsRepo := newTestService()
	memberID := uuid.New()
	ws := testWorkspace(uuid.New(), memberID)
	room := &domain.Room{RoomID: uuid.New(), WorkspaceID: ws.WorkspaceID}

	roomRepo.On("FindByID", mock.Anything, room.RoomID).Return(room, nil)
	wsRepo.On("GetByID", mock.Anything, ws.WorkspaceID).Return(ws, nil)

	require.NoError(t, svc.AuthorizeJoin(context.Background(), room.RoomID, memberID))

	err := svc.AuthorizeJoin(context.Background(), room.RoomID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetAppError(err).Code)
}

func TestGetRoomUnknown(t *testing.T) {
	svc, roomRepo, _ := newTestService()
	roomID := uuid.New()

	roomRepo.On("FindByID", mock.Anything, roomID).Return(nil, apperrors.RoomNotFoundError())

	_, err := svc.Get(context.Background(), roomID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRoomNotFound, apperrors.GetAppError(err).Code)
}

func TestRoomTags(t *testing.T) {
	svc, roomRepo, wsRepo := newTestService()
	memberID := uuid.New()
	ws := testWorkspace(uuid.New(), memberID)
	room := &domain.Room{RoomID: uuid.New(), WorkspaceID: ws.WorkspaceID}

	roomRepo.On("FindByID", mock.Anything, room.RoomID).Return(room, nil)
	wsRepo.On("GetByID", mock.Anything, ws.WorkspaceID).Return(ws, nil)
	roomRepo.On("AddTag", mock.Anything, room.RoomID, "standup").Return(nil)
	roomRepo.On("RemoveTag", mock.Anything, room.RoomID, "standup").Return(nil)

	require.NoError(t, svc.AddTag(context.Background(), room.RoomID, memberID, "standup"))
	require.NoError(t, svc.RemoveTag(context.Background(), room.RoomID, memberID, "standup"))

	err := svc.AddTag(context.Background(), room.RoomID, memberID, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetAppError(err).Code)

	err = svc.AddTag(context.Background(), room.RoomID, uuid.New(), "standup")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetAppError(err).Code)
	roomRepo.AssertExpectations(t)
}
