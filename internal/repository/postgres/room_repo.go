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

// RoomRepository handles room data operations in PostgreSQL
type RoomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository creates a new RoomRepository
func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

const roomColumns = `room_id, workspace_id, name, description, type, is_private,
	active_participants, media_settings, tags, metadata, created_at, updated_at`

func scanRoom(row pgx.Row) (*domain.Room, error) {
	room := &domain.Room{}
	err := row.Scan(
		&room.RoomID,
		&room.WorkspaceID,
		&room.Name,
		&room.Description,
		&room.Type,
		&room.IsPrivate,
		&room.ActiveParticipants,
		&room.MediaSettings,
		&room.Tags,
		&room.Metadata,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// Create inserts a new room
func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	query := `
		INSERT INTO rooms (room_id, workspace_id, name, description, type, is_private, media_settings, tags, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		room.RoomID,
		room.WorkspaceID,
		room.Name,
		room.Description,
		room.Type,
		room.IsPrivate,
		room.MediaSettings,
		room.Tags,
		room.Metadata,
	).Scan(&room.CreatedAt, &room.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	return nil
}

// FindByID retrieves a room by ID
func (r *RoomRepository) FindByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms WHERE room_id = $1`, roomColumns)

	room, err := scanRoom(r.pool.QueryRow(ctx, query, roomID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.RoomNotFoundError()
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

// ListByWorkspace retrieves all rooms of a workspace
func (r *RoomRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Room, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM rooms
		WHERE workspace_id = $1
		ORDER BY created_at DESC
	`, roomColumns)

	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}

	return rooms, nil
}

// Update updates room information
func (r *RoomRepository) Update(ctx context.Context, room *domain.Room) error {
	query := `
		UPDATE rooms
		SET name = $1, description = $2, type = $3, is_private = $4,
			media_settings = $5, tags = $6, metadata = $7, updated_at = NOW()
		WHERE room_id = $8
	`

	cmdTag, err := r.pool.Exec(ctx, query,
		room.Name,
		room.Description,
		room.Type,
		room.IsPrivate,
		room.MediaSettings,
		room.Tags,
		room.Metadata,
		room.RoomID,
	)

	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.RoomNotFoundError()
	}

	return nil
}

// Delete removes a room
func (r *RoomRepository) Delete(ctx context.Context, roomID uuid.UUID) error {
	query := `DELETE FROM rooms WHERE room_id = $1`

	cmdTag, err := r.pool.Exec(ctx, query, roomID)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.RoomNotFoundError()
	}

	return nil
}

// AddTag attaches a tag to the room, duplicates ignored
func (r *RoomRepository) AddTag(ctx context.Context, roomID uuid.UUID, tag string) error {
	query := `
		UPDATE rooms
		SET tags = array_append(tags, $2), updated_at = NOW()
		WHERE room_id = $1 AND NOT ($2 = ANY(tags))
	`

	_, err := r.pool.Exec(ctx, query, roomID, tag)
	if err != nil {
		return fmt.Errorf("failed to add tag: %w", err)
	}

	return nil
}

// RemoveTag detaches a tag from the room, absent tags ignored
func (r *RoomRepository) RemoveTag(ctx context.Context, roomID uuid.UUID, tag string) error {
	query := `
		UPDATE rooms
		SET tags = array_remove(tags, $2), updated_at = NOW()
		WHERE room_id = $1
	`

	_, err := r.pool.Exec(ctx, query, roomID, tag)
	if err != nil {
		return fmt.Errorf("failed to remove tag: %w", err)
	}

	return nil
}

// AddActiveParticipant records a live participant. The guard clause makes
// the append a set insert, so concurrent joins of the same user cannot
// produce duplicates.
func (r *RoomRepository) AddActiveParticipant(ctx context.Context, roomID, userID uuid.UUID) error {
	query := `
		UPDATE rooms
		SET active_participants = array_append(active_participants, $2), updated_at = NOW()
		WHERE room_id = $1 AND NOT ($2 = ANY(active_participants))
	`

	_, err := r.pool.Exec(ctx, query, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to add active participant: %w", err)
	}

	return nil
}

// RemoveActiveParticipant removes a live participant. Removing an absent
// user is a no-op.
func (r *RoomRepository) RemoveActiveParticipant(ctx context.Context, roomID, userID uuid.UUID) error {
	query := `
		UPDATE rooms
		SET active_participants = array_remove(active_participants, $2), updated_at = NOW()
		WHERE room_id = $1
	`

	_, err := r.pool.Exec(ctx, query, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove active participant: %w", err)
	}

	return nil
}
