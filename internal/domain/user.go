package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user account
type User struct {
	UserID       uuid.UUID      `json:"user_id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	Role         string         `json:"role"`   // user, admin
	Status       string         `json:"status"` // online, away, offline
	Preferences  map[string]any `json:"preferences,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
