package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoomType enumerates persisted room types
const (
	RoomTypeVideo   = "video"
	RoomTypeChat    = "chat"
	RoomTypeGeneral = "general"
)

// MediaSettings holds per-room or per-peer media toggles
type MediaSettings struct {
	AudioEnabled       bool `json:"audio_enabled"`
	VideoEnabled       bool `json:"video_enabled"`
	ScreenShareEnabled bool `json:"screen_share_enabled"`
	RecordingEnabled   bool `json:"recording_enabled,omitempty"`
}

// DefaultMediaSettings are applied when a peer joins without explicit settings
func DefaultMediaSettings() MediaSettings {
	return MediaSettings{
		AudioEnabled:       true,
		VideoEnabled:       true,
		ScreenShareEnabled: false,
	}
}

// Room is the persisted room record. ActiveParticipants is an eventually
// consistent projection of live presence, not a source of truth.
type Room struct {
	RoomID             uuid.UUID      `json:"room_id"`
	WorkspaceID        uuid.UUID      `json:"workspace_id"`
	Name               string         `json:"name"`
	Description        string         `json:"description,omitempty"`
	Type               string         `json:"type"` // video, chat, general
	IsPrivate          bool           `json:"is_private"`
	ActiveParticipants []uuid.UUID    `json:"active_participants"`
	MediaSettings      MediaSettings  `json:"media_settings"`
	Tags               []string       `json:"tags"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}
