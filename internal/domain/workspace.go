package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workspace groups users and rooms under one owner
type Workspace struct {
	WorkspaceID uuid.UUID      `json:"workspace_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	OwnerID     uuid.UUID      `json:"owner_id"`
	Members     []uuid.UUID    `json:"members"`
	Settings    map[string]any `json:"settings,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// HasMember reports whether the given user belongs to the workspace
func (w *Workspace) HasMember(userID uuid.UUID) bool {
	for _, m := range w.Members {
		if m == userID {
			return true
		}
	}
	return false
}
