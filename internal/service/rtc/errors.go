package rtc

import (
	"net/http"

	apperrors "github.com/zahidhasann88/workspace-backend/pkg/errors"
)

// Signaling error taxonomy. Each failure is reported only to the originating
// connection; it never tears down the connection or affects other peers.
var (
	// ErrRoomNotActive is returned for session operations on a room with no live media session
	ErrRoomNotActive = apperrors.NewWithStatus(apperrors.ErrCodeRoomNotActive, "Room has no active media session", http.StatusConflict)

	// ErrAlreadyInRoom is returned when a connection tries to join a second room
	ErrAlreadyInRoom = apperrors.NewWithStatus(apperrors.ErrCodeAlreadyInRoom, "Connection already joined another room", http.StatusConflict)

	// ErrNotInRoom is returned for in-room operations from a connection that never joined
	ErrNotInRoom = apperrors.NewWithStatus(apperrors.ErrCodeNotInRoom, "Connection has not joined this room", http.StatusConflict)

	// ErrTransportNotFound is returned when no transport exists for the peer and direction
	ErrTransportNotFound = apperrors.NewWithStatus(apperrors.ErrCodeTransportMissing, "Transport not found", http.StatusNotFound)

	// ErrProducerNotFound is returned when the target producer no longer exists
	ErrProducerNotFound = apperrors.NewWithStatus(apperrors.ErrCodeProducerMissing, "Producer not found", http.StatusNotFound)

	// ErrConsumerNotFound is returned when resuming an unknown consumer
	ErrConsumerNotFound = apperrors.NewWithStatus(apperrors.ErrCodeConsumerMissing, "Consumer not found", http.StatusNotFound)

	// ErrInvalidMediaKind is returned for kinds outside {audio, video}
	ErrInvalidMediaKind = apperrors.NewWithStatus(apperrors.ErrCodeInvalidMediaKind, "Media kind must be audio or video", http.StatusBadRequest)

	// ErrIncompatibleCapabilities is returned when a receiver cannot decode the producer's format
	ErrIncompatibleCapabilities = apperrors.NewWithStatus(apperrors.ErrCodeIncompatibleCaps, "Receiver capabilities cannot consume this producer", http.StatusConflict)

	// ErrSessionFailed is sent to peers force-disconnected after a worker failure
	ErrSessionFailed = apperrors.NewWithStatus(apperrors.ErrCodeSessionFailed, "Media session failed", http.StatusBadGateway)
)
