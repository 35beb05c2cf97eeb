package room

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zahidhasann88/workspace-backend/internal/domain"
	apperrors "github.com/zahidhasann88/workspace-backend/pkg/errors"
)

// RoomRepository interface
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	FindByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Room, error)
	Update(ctx context.Context, room *domain.Room) error
	Delete(ctx context.Context, roomID uuid.UUID) error
	AddTag(ctx context.Context, roomID uuid.UUID, tag string) error
	RemoveTag(ctx context.Context, roomID uuid.UUID, tag string) error
}

// WorkspaceRepository interface
type WorkspaceRepository interface {
	GetByID(ctx context.Context, workspaceID uuid.UUID) (*domain.Workspace, error)
}

var validRoomTypes = map[string]bool{
	domain.RoomTypeVideo:   true,
	domain.RoomTypeChat:    true,
	domain.RoomTypeGeneral: true,
}

// Service handles room business logic. Rooms live inside a workspace:
// any member can create and read them, only the workspace owner can
// update or delete them.
type Service struct {
	roomRepo      RoomRepository
	workspaceRepo WorkspaceRepository
}

// NewService creates a new room service
func NewService(roomRepo RoomRepository, workspaceRepo WorkspaceRepository) *Service {
	return &Service{
		roomRepo:      roomRepo,
		workspaceRepo: workspaceRepo,
	}
}

// CreateInput contains room creation data
type CreateInput struct {
	Name          string
	Description   string
	Type          string
	IsPrivate     bool
	MediaSettings *domain.MediaSettings
	Tags          []string
	Metadata      map[string]any
}

// Create creates a room in the workspace, members only
func (s *Service) Create(ctx context.Context, workspaceID, callerID uuid.UUID, input *CreateInput) (*domain.Room, error) {
	if input.Name == "" {
		return nil, apperrors.ValidationError("name is required")
	}

	roomType := input.Type
	if roomType == "" {
		roomType = domain.RoomTypeGeneral
	}
	if !validRoomTypes[roomType] {
		return nil, apperrors.ValidationError("type must be video, chat or general")
	}

	ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if !ws.HasMember(callerID) {
		return nil, apperrors.ForbiddenError("not a workspace member")
	}

	settings := domain.DefaultMediaSettings()
	if input.MediaSettings != nil {
		settings = *input.MediaSettings
	}

	room := &domain.Room{
		RoomID:        uuid.New(),
		WorkspaceID:   workspaceID,
		Name:          input.Name,
		Description:   input.Description,
		Type:          roomType,
		IsPrivate:     input.IsPrivate,
		MediaSettings: settings,
		Tags:          input.Tags,
		Metadata:      input.Metadata,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	return room, nil
}

// Get returns a room, workspace members only
func (s *Service) Get(ctx context.Context, roomID, callerID uuid.UUID) (*domain.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	ws, err := s.workspaceRepo.GetByID(ctx, room.WorkspaceID)
	if err != nil {
		return nil, err
	}
	if !ws.HasMember(callerID) {
		return nil, apperrors.ForbiddenError("not a workspace member")
	}

	return room, nil
}

// List returns all rooms of a workspace, members only
func (s *Service) List(ctx context.Context, workspaceID, callerID uuid.UUID) ([]*domain.Room, error) {
	ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if !ws.HasMember(callerID) {
		return nil, apperrors.ForbiddenError("not a workspace member")
	}

	return s.roomRepo.ListByWorkspace(ctx, workspaceID)
}

// UpdateInput contains mutable room fields
type UpdateInput struct {
	Name          string
	Description   string
	Type          string
	IsPrivate     *bool
	MediaSettings *domain.MediaSettings
	Tags          []string
	Metadata      map[string]any
}

// Update updates room information, workspace owner only
func (s *Service) Update(ctx context.Context, roomID, callerID uuid.UUID, input *UpdateInput) (*domain.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	ws, err := s.workspaceRepo.GetByID(ctx, room.WorkspaceID)
	if err != nil {
		return nil, err
	}
	if ws.OwnerID != callerID {
		return nil, apperrors.ForbiddenError("only the workspace owner can update rooms")
	}

	if input.Name != "" {
		room.Name = input.Name
	}
	if input.Description != "" {
		room.Description = input.Description
	}
	if input.Type != "" {
		if !validRoomTypes[input.Type] {
			return nil, apperrors.ValidationError("type must be video, chat or general")
		}
		room.Type = input.Type
	}
	if input.IsPrivate != nil {
		room.IsPrivate = *input.IsPrivate
	}
	if input.MediaSettings != nil {
		room.MediaSettings = *input.MediaSettings
	}
	if input.Tags != nil {
		room.Tags = input.Tags
	}
	if input.Metadata != nil {
		room.Metadata = input.Metadata
	}

	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to update room: %w", err)
	}

	return room, nil
}

// Delete removes a room, workspace owner only
func (s *Service) Delete(ctx context.Context, roomID, callerID uuid.UUID) error {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return err
	}

	ws, err := s.workspaceRepo.GetByID(ctx, room.WorkspaceID)
	if err != nil {
		return err
	}
	if ws.OwnerID != callerID {
		return apperrors.ForbiddenError("only the workspace owner can delete rooms")
	}

	return s.roomRepo.Delete(ctx, roomID)
}

// AddTag attaches a tag to a room, workspace members only
func (s *Service) AddTag(ctx context.Context, roomID, callerID uuid.UUID, tag string) error {
	if tag == "" {
		return apperrors.ValidationError("tag is required")
	}

	if err := s.requireMember(ctx, roomID, callerID); err != nil {
		return err
	}

	return s.roomRepo.AddTag(ctx, roomID, tag)
}

// RemoveTag detaches a tag from a room, workspace members only
func (s *Service) RemoveTag(ctx context.Context, roomID, callerID uuid.UUID, tag string) error {
	if tag == "" {
		return apperrors.ValidationError("tag is required")
	}

	if err := s.requireMember(ctx, roomID, callerID); err != nil {
		return err
	}

	return s.roomRepo.RemoveTag(ctx, roomID, tag)
}

// AuthorizeJoin verifies the caller may join the room's media session
func (s *Service) AuthorizeJoin(ctx context.Context, roomID, callerID uuid.UUID) error {
	return s.requireMember(ctx, roomID, callerID)
}

func (s *Service) requireMember(ctx context.Context, roomID, callerID uuid.UUID) error {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return err
	}

	ws, err := s.workspaceRepo.GetByID(ctx, room.WorkspaceID)
	if err != nil {
		return err
	}
	if !ws.HasMember(callerID) {
		return apperrors.ForbiddenError("not a workspace member")
	}

	return nil
}
