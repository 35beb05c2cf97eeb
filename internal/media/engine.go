// Package media defines the boundary to the media-routing engine. The
// coordination core only orchestrates handles to engine resources (routers,
// transports, producers, consumers); it never touches RTP itself. Negotiation
// payloads exchanged with clients are carried as opaque JSON and validated
// only where the engine needs to understand them.
package media

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/pion/webrtc/v4"
)

// Kind is a media kind accepted by the engine
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// ParseKind validates a wire-level kind string
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindAudio, KindVideo:
		return Kind(s), true
	}
	return "", false
}

var (
	// ErrRouterClosed is returned for operations on a closed router
	ErrRouterClosed = errors.New("media: router closed")
	// ErrIncompatibleCapabilities is returned when a receiver cannot decode a producer's format
	ErrIncompatibleCapabilities = errors.New("media: receiver capabilities cannot consume producer")
	// ErrConsumerClosed is returned when resuming a closed consumer
	ErrConsumerClosed = errors.New("media: consumer closed")
)

// RTPCapabilities is the negotiable codec set of a router. New peers must
// intersect their own capabilities against it before producing or consuming.
type RTPCapabilities struct {
	Codecs []webrtc.RTPCodecCapability `json:"codecs"`
}

// CanDecode reports whether the capability set includes the given mime type
func (c RTPCapabilities) CanDecode(mimeType string) bool {
	for _, codec := range c.Codecs {
		if codec.MimeType == mimeType {
			return true
		}
	}
	return false
}

// ConnectionParameters is the opaque negotiation data (ICE/DTLS-equivalent)
// handed verbatim to the client when a transport is created.
type ConnectionParameters struct {
	ICEParameters  json.RawMessage `json:"iceParameters,omitempty"`
	ICECandidates  json.RawMessage `json:"iceCandidates,omitempty"`
	DTLSParameters json.RawMessage `json:"dtlsParameters,omitempty"`
}

// Engine allocates routing sessions. One router backs one active room.
type Engine interface {
	// NewRouter allocates a routing session on one of the engine's workers
	NewRouter(ctx context.Context) (Router, error)
	// Close releases all workers and their routers
	Close() error
}

// Router is one room's routing session handle
type Router interface {
	ID() string
	Capabilities() RTPCapabilities
	CreateTransport(ctx context.Context) (Transport, error)
	// Close releases the router; transports created from it become unusable
	Close() error
	// Done is closed when the owning worker fails. Sessions built on this
	// router must then be marked failed and their peers disconnected.
	Done() <-chan struct{}
}

// Transport is a negotiated network path for one peer and direction
type Transport interface {
	ID() string
	Parameters() ConnectionParameters
	// Connect finalizes negotiation with peer-supplied remote parameters
	Connect(ctx context.Context, remoteParameters json.RawMessage) error
	Produce(ctx context.Context, kind Kind, rtpParameters json.RawMessage) (Producer, error)
	// Consume attaches a paused consumer to the given producer. Fails with
	// ErrIncompatibleCapabilities when the receiver cannot decode it.
	Consume(ctx context.Context, producer Producer, receiverCaps RTPCapabilities) (Consumer, error)
	Close() error
}

// Producer is an outbound media stream of one kind
type Producer interface {
	ID() string
	Kind() Kind
	Close() error
}

// Consumer is an inbound media stream; created paused, delivers nothing
// until resumed at least once. Resume is idempotent.
type Consumer interface {
	ID() string
	ProducerID() string
	Kind() Kind
	RTPParameters() json.RawMessage
	Paused() bool
	Resume(ctx context.Context) error
	Close() error
}
