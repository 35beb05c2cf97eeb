package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zahidhasann88/workspace-backend/internal/domain"
	apperrors "github.com/zahidhasann88/workspace-backend/pkg/errors"
)

// WorkspaceRepository interface
type WorkspaceRepository interface {
	Create(ctx context.Context, ws *domain.Workspace) error
	GetByID(ctx context.Context, workspaceID uuid.UUID) (*domain.Workspace, error)
	ListByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Workspace, error)
	Update(ctx context.Context, ws *domain.Workspace) error
	AddMember(ctx context.Context, workspaceID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error
	Delete(ctx context.Context, workspaceID uuid.UUID) error
}

// UserRepository interface
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// Service handles workspace business logic. Mutating operations are owner
// only; reads require membership.
type Service struct {
	workspaceRepo WorkspaceRepository
	userRepo      UserRepository
}

// NewService creates a new workspace service
func NewService(workspaceRepo WorkspaceRepository, userRepo UserRepository) *Service {
	return &Service{
		workspaceRepo: workspaceRepo,
		userRepo:      userRepo,
	}
}

// CreateInput contains workspace creation data
type CreateInput struct {
	Name        string
	Description string
	Settings    map[string]any
}

// Create creates a workspace owned by the caller
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, input *CreateInput) (*domain.Workspace, error) {
	if input.Name == "" {
		return nil, apperrors.ValidationError("name is required")
	}

	ws := &domain.Workspace{
		WorkspaceID: uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		OwnerID:     ownerID,
		Members:     []uuid.UUID{ownerID},
		Settings:    input.Settings,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.workspaceRepo.Create(ctx, ws); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return ws, nil
}

// Get returns a workspace the caller is a member of
func (s *Service) Get(ctx context.Context, workspaceID, callerID uuid.UUID) (*domain.Workspace, error) {
	ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if !ws.HasMember(callerID) {
		return nil, apperrors.ForbiddenError("not a workspace member")
	}
	return ws, nil
}

// List returns all workspaces the caller belongs to
func (s *Service) List(ctx context.Context, callerID uuid.UUID) ([]*domain.Workspace, error) {
	return s.workspaceRepo.ListByMember(ctx, callerID)
}

// UpdateInput contains mutable workspace fields
type UpdateInput struct {
	Name        string
	Description string
	Settings    map[string]any
}

// Update updates workspace information, owner only
func (s *Service) Update(ctx context.Context, workspaceID, callerID uuid.UUID, input *UpdateInput) (*domain.Workspace, error) {
	ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws.OwnerID != callerID {
		return nil, apperrors.ForbiddenError("only the owner can update a workspace")
	}

	if input.Name != "" {
		ws.Name = input.Name
	}
	if input.Description != "" {
		ws.Description = input.Description
	}
	if input.Settings != nil {
		ws.Settings = input.Settings
	}

	if err := s.workspaceRepo.Update(ctx, ws); err != nil {
		return nil, fmt.Errorf("failed to update workspace: %w", err)
	}

	return ws, nil
}

// AddMember adds a user to the workspace, owner only. Adding an existing
// member is a no-op.
func (s *Service) AddMember(ctx context.Context, workspaceID, callerID, userID uuid.UUID) error {
	ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws.OwnerID != callerID {
		return apperrors.ForbiddenError("only the owner can add members")
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}

	return s.workspaceRepo.AddMember(ctx, workspaceID, userID)
}

// RemoveMember removes a user from the workspace. The owner can remove
// anyone; a member can remove themselves. The owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, workspaceID, callerID, userID uuid.UUID) error {
	ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return err
	}
	if userID == ws.OwnerID {
		return apperrors.ValidationError("the owner cannot leave their workspace")
	}
	if callerID != ws.OwnerID && callerID != userID {
		return apperrors.ForbiddenError("only the owner can remove other members")
	}

	return s.workspaceRepo.RemoveMember(ctx, workspaceID, userID)
}

// Delete removes the workspace, owner only
func (s *Service) Delete(ctx context.Context, workspaceID, callerID uuid.UUID) error {
	ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws.OwnerID != callerID {
		return apperrors.ForbiddenError("only the owner can delete a workspace")
	}

	return s.workspaceRepo.Delete(ctx, workspaceID)
}
