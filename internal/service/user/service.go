package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zahidhasann88/workspace-backend/internal/domain"
	apperrors "github.com/zahidhasann88/workspace-backend/pkg/errors"
	"github.com/zahidhasann88/workspace-backend/pkg/pagination"
)

// UserRepository interface
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*domain.User, int64, error)
	Update(ctx context.Context, user *domain.User) error
	UpdateStatus(ctx context.Context, userID uuid.UUID, status string) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// Service handles user profile business logic
type Service struct {
	userRepo UserRepository
}

// NewService creates a new user service
func NewService(userRepo UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// GetProfile returns a user's profile
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// Search finds users by name or email fragment, one page at a time
func (s *Service) Search(ctx context.Context, query string, params *pagination.Params) (*pagination.Response, error) {
	if len(query) < 2 {
		return nil, apperrors.ValidationError("query must be at least 2 characters")
	}

	users, total, err := s.userRepo.Search(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}

	return pagination.NewResponse(params, total, users), nil
}

// UpdateProfileInput contains profile fields a user may change
type UpdateProfileInput struct {
	Name        string
	Status      string
	Preferences map[string]any
}

var validStatuses = map[string]bool{
	"online":  true,
	"away":    true,
	"offline": true,
}

// UpdateProfile updates the user's own profile
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, input *UpdateProfileInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Status != "" {
		if !validStatuses[input.Status] {
			return nil, apperrors.ValidationError("status must be online, away or offline")
		}
		user.Status = input.Status
	}
	if input.Preferences != nil {
		user.Preferences = input.Preferences
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

// SetStatus updates only the user's presence status
func (s *Service) SetStatus(ctx context.Context, userID uuid.UUID, status string) error {
	if !validStatuses[status] {
		return apperrors.ValidationError("status must be online, away or offline")
	}
	return s.userRepo.UpdateStatus(ctx, userID, status)
}

// DeleteAccount removes the user's account
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	return s.userRepo.Delete(ctx, userID)
}
