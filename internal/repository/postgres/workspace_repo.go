package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zahidhasann88/workspace-backend/internal/domain"
	apperrors "github.com/zahidhasann88/workspace-backend/pkg/errors"
)

// WorkspaceRepository handles workspace data operations in PostgreSQL
type WorkspaceRepository struct {
	pool *pgxpool.Pool
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(pool *pgxpool.Pool) *WorkspaceRepository {
	return &WorkspaceRepository{pool: pool}
}

// Create inserts a new workspace with the owner as its first member
func (r *WorkspaceRepository) Create(ctx context.Context, ws *domain.Workspace) error {
	query := `
		INSERT INTO workspaces (workspace_id, name, description, owner_id, members, settings)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		ws.WorkspaceID,
		ws.Name,
		ws.Description,
		ws.OwnerID,
		ws.Members,
		ws.Settings,
	).Scan(&ws.CreatedAt, &ws.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	return nil
}

// GetByID retrieves a workspace by ID
func (r *WorkspaceRepository) GetByID(ctx context.Context, workspaceID uuid.UUID) (*domain.Workspace, error) {
	query := `
		SELECT workspace_id, name, description, owner_id, members, settings, created_at, updated_at
		FROM workspaces
		WHERE workspace_id = $1
	`

	ws := &domain.Workspace{}
	err := r.pool.QueryRow(ctx, query, workspaceID).Scan(
		&ws.WorkspaceID,
		&ws.Name,
		&ws.Description,
		&ws.OwnerID,
		&ws.Members,
		&ws.Settings,
		&ws.CreatedAt,
		&ws.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.WorkspaceNotFoundError()
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	return ws, nil
}

// ListByMember retrieves all workspaces the user belongs to
func (r *WorkspaceRepository) ListByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Workspace, error) {
	query := `
		SELECT workspace_id, name, description, owner_id, members, settings, created_at, updated_at
		FROM workspaces
		WHERE $1 = ANY(members)
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []*domain.Workspace
	for rows.Next() {
		ws := &domain.Workspace{}
		if err := rows.Scan(
			&ws.WorkspaceID,
			&ws.Name,
			&ws.Description,
			&ws.OwnerID,
			&ws.Members,
			&ws.Settings,
			&ws.CreatedAt,
			&ws.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, ws)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workspaces: %w", err)
	}

	return workspaces, nil
}

// Update updates workspace information
func (r *WorkspaceRepository) Update(ctx context.Context, ws *domain.Workspace) error {
	query := `
		UPDATE workspaces
		SET name = $1, description = $2, settings = $3, updated_at = NOW()
		WHERE workspace_id = $4
	`

	cmdTag, err := r.pool.Exec(ctx, query,
		ws.Name,
		ws.Description,
		ws.Settings,
		ws.WorkspaceID,
	)

	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.WorkspaceNotFoundError()
	}

	return nil
}

// AddMember adds a user to a workspace. The membership array never holds
// duplicates regardless of repeated calls.
func (r *WorkspaceRepository) AddMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	query := `
		UPDATE workspaces
		SET members = array_append(members, $2), updated_at = NOW()
		WHERE workspace_id = $1 AND NOT ($2 = ANY(members))
	`

	_, err := r.pool.Exec(ctx, query, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to add workspace member: %w", err)
	}

	return nil
}

// RemoveMember removes a user from a workspace
func (r *WorkspaceRepository) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	query := `
		UPDATE workspaces
		SET members = array_remove(members, $2), updated_at = NOW()
		WHERE workspace_id = $1
	`

	_, err := r.pool.Exec(ctx, query, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove workspace member: %w", err)
	}

	return nil
}

// Delete removes a workspace and its rooms
func (r *WorkspaceRepository) Delete(ctx context.Context, workspaceID uuid.UUID) error {
	query := `DELETE FROM workspaces WHERE workspace_id = $1`

	cmdTag, err := r.pool.Exec(ctx, query, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.WorkspaceNotFoundError()
	}

	return nil
}
