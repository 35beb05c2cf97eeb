package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Client-initiated event types
const (
	EventJoinRoom            = "join-room"
	EventLeaveRoom           = "leave-room"
	EventCreateTransport     = "create-transport"
	EventConnectTransport    = "connect-transport"
	EventProduce             = "produce"
	EventConsume             = "consume"
	EventResumeConsumer      = "resume-consumer"
	EventMessage             = "message"
	EventUpdateMediaSettings = "update-media-settings"
)

// Server-initiated event types
const (
	EventResponse             = "response"
	EventUserJoined           = "user-joined"
	EventUserLeft             = "user-left"
	EventNewProducer          = "new-producer"
	EventMediaSettingsUpdated = "media-settings-updated"
	EventSessionFailed        = "session-failed"
)

// Request is the client-to-server envelope. Data is opaque at this layer;
// each event's payload schema is validated during dispatch.
type Request struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ErrorBody carries a failed operation's code and message
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the server-to-client reply correlated to a Request by ID.
// Exactly one of Data and Error is set.
type Response struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Broadcast is a server-initiated event fanned out to a room's peers.
// SenderConn identifies the originating connection and is excluded from
// delivery; the same user's other connections still receive the event.
type Broadcast struct {
	Type       string      `json:"type"`
	RoomID     uuid.UUID   `json:"room_id"`
	SenderID   uuid.UUID   `json:"sender_id,omitempty"`
	SenderConn string      `json:"-"`
	Data       interface{} `json:"data,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

type joinRoomPayload struct {
	RoomID uuid.UUID `json:"room_id"`
}

type createTransportPayload struct {
	Direction string `json:"direction"`
}

type connectTransportPayload struct {
	Direction  string          `json:"direction"`
	Parameters json.RawMessage `json:"parameters"`
}

type producePayload struct {
	Kind          string          `json:"kind"`
	RTPParameters json.RawMessage `json:"rtp_parameters"`
}

type consumePayload struct {
	ProducerID      string          `json:"producer_id"`
	RTPCapabilities json.RawMessage `json:"rtp_capabilities"`
}

type resumeConsumerPayload struct {
	ConsumerID string `json:"consumer_id"`
}

type updateMediaSettingsPayload struct {
	AudioEnabled       bool `json:"audio_enabled"`
	VideoEnabled       bool `json:"video_enabled"`
	ScreenShareEnabled bool `json:"screen_share_enabled"`
}
