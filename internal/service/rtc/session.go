package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zahidhasann88/workspace-backend/internal/media"
	"github.com/zahidhasann88/workspace-backend/pkg/logger"
)

// Direction distinguishes a peer's send and receive transports
type Direction string

const (
	DirectionSend    Direction = "send"
	DirectionReceive Direction = "receive"
)

// ParseDirection validates a wire-level direction string
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirectionSend, DirectionReceive:
		return Direction(s), true
	}
	return "", false
}

// TransportKey addresses a peer's transport slot. At most one transport
// exists per (room, peer, direction); repeated creation reuses the slot.
type TransportKey struct {
	ConnID    string
	Direction Direction
}

// ProducerKey addresses a peer's producer slot. At most one live producer
// exists per (room, peer, kind); producing again supersedes the previous one.
type ProducerKey struct {
	ConnID string
	Kind   media.Kind
}

// TransportDescription is returned to the client for transport negotiation
type TransportDescription struct {
	TransportID string                     `json:"transport_id"`
	Parameters  media.ConnectionParameters `json:"parameters"`
}

// ConsumerDescription describes a freshly created (paused) consumer
type ConsumerDescription struct {
	ConsumerID    string          `json:"consumer_id"`
	ProducerID    string          `json:"producer_id"`
	Kind          media.Kind      `json:"kind"`
	RTPParameters json.RawMessage `json:"rtp_parameters"`
}

type session struct {
	router        media.Router
	transports    map[TransportKey]media.Transport
	producers     map[ProducerKey]media.Producer
	producersByID map[string]ProducerKey
	consumers     map[string]media.Consumer
	done          chan struct{}
}

// SessionManager owns one media session per active room and the maps of
// transports, producers and consumers inside it. Every resource is
// double-keyed by room first so closing a session discards the whole
// subtree in one step.
type SessionManager struct {
	mu       sync.Mutex
	engine   media.Engine
	sessions map[uuid.UUID]*session

	// onWorkerFailure is invoked (on a watcher goroutine) when the engine
	// worker owning a room's router dies
	onWorkerFailure func(roomID uuid.UUID)
}

// NewSessionManager creates a session manager on top of the given engine
func NewSessionManager(engine media.Engine) *SessionManager {
	return &SessionManager{
		engine:   engine,
		sessions: make(map[uuid.UUID]*session),
	}
}

// SetWorkerFailureHandler registers the callback for engine worker failures
func (m *SessionManager) SetWorkerFailureHandler(fn func(roomID uuid.UUID)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onWorkerFailure = fn
}

// OpenSession allocates a routing session for the room. Called once per room
// activation; a second call while the session exists is a no-op.
func (m *SessionManager) OpenSession(ctx context.Context, roomID uuid.UUID) error {
	m.mu.Lock()
	if _, exists := m.sessions[roomID]; exists {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	router, err := m.engine.NewRouter(ctx)
	if err != nil {
		return err
	}

	sess := &session{
		router:        router,
		transports:    make(map[TransportKey]media.Transport),
		producers:     make(map[ProducerKey]media.Producer),
		producersByID: make(map[string]ProducerKey),
		consumers:     make(map[string]media.Consumer),
		done:          make(chan struct{}),
	}

	m.mu.Lock()
	if _, exists := m.sessions[roomID]; exists {
		// Another task activated the room while we awaited the engine
		m.mu.Unlock()
		router.Close()
		return nil
	}
	m.sessions[roomID] = sess
	m.mu.Unlock()

	go m.watch(roomID, sess)

	return nil
}

// watch waits for the owning engine worker to die and reports the failure
func (m *SessionManager) watch(roomID uuid.UUID, sess *session) {
	select {
	case <-sess.done:
		return
	case <-sess.router.Done():
	}

	m.mu.Lock()
	current, exists := m.sessions[roomID]
	fn := m.onWorkerFailure
	m.mu.Unlock()

	if !exists || current != sess {
		return
	}

	logger.Error("media worker failed, failing room session",
		zap.String("room_id", roomID.String()))

	if fn != nil {
		fn(roomID)
	}
}

// CloseSession releases all resources of the room's session. Safe to call
// on an already closed or never opened room.
func (m *SessionManager) CloseSession(roomID uuid.UUID) {
	m.mu.Lock()
	sess, exists := m.sessions[roomID]
	if !exists {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, roomID)
	m.mu.Unlock()

	close(sess.done)

	for _, consumer := range sess.consumers {
		consumer.Close()
	}
	for _, producer := range sess.producers {
		producer.Close()
	}
	for _, transport := range sess.transports {
		transport.Close()
	}
	sess.router.Close()
}

// CloseAll tears down every session, used on shutdown
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	ids := make([]uuid.UUID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.CloseSession(id)
	}
}

// SessionCapabilities returns the negotiable codec set of the room's session
func (m *SessionManager) SessionCapabilities(roomID uuid.UUID) (media.RTPCapabilities, error) {
	m.mu.Lock()
	sess, exists := m.sessions[roomID]
	m.mu.Unlock()

	if !exists {
		return media.RTPCapabilities{}, ErrRoomNotActive
	}
	return sess.router.Capabilities(), nil
}

// CreateTransport allocates (or reuses) the transport for the given slot.
// Calling it twice for the same key returns the same transport id and does
// not leak a second engine resource.
func (m *SessionManager) CreateTransport(ctx context.Context, roomID uuid.UUID, key TransportKey) (*TransportDescription, error) {
	m.mu.Lock()
	sess, exists := m.sessions[roomID]
	if !exists {
		m.mu.Unlock()
		return nil, ErrRoomNotActive
	}
	if existing, ok := sess.transports[key]; ok {
		m.mu.Unlock()
		return &TransportDescription{TransportID: existing.ID(), Parameters: existing.Parameters()}, nil
	}
	router := sess.router
	m.mu.Unlock()

	transport, err := router.CreateTransport(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	current, stillActive := m.sessions[roomID]
	if !stillActive || current != sess {
		m.mu.Unlock()
		transport.Close()
		return nil, ErrRoomNotActive
	}
	if existing, ok := sess.transports[key]; ok {
		// Another task won the slot while we awaited the engine; keep
		// theirs and discard ours so the slot holds exactly one transport
		m.mu.Unlock()
		transport.Close()
		return &TransportDescription{TransportID: existing.ID(), Parameters: existing.Parameters()}, nil
	}
	sess.transports[key] = transport
	m.mu.Unlock()

	return &TransportDescription{TransportID: transport.ID(), Parameters: transport.Parameters()}, nil
}

// ConnectTransport finalizes a transport with peer-supplied negotiation data
func (m *SessionManager) ConnectTransport(ctx context.Context, roomID uuid.UUID, key TransportKey, remoteParameters json.RawMessage) error {
	m.mu.Lock()
	sess, exists := m.sessions[roomID]
	if !exists {
		m.mu.Unlock()
		return ErrRoomNotActive
	}
	transport, ok := sess.transports[key]
	m.mu.Unlock()

	if !ok {
		return ErrTransportNotFound
	}
	return transport.Connect(ctx, remoteParameters)
}

// Produce starts sending a media kind on the peer's send transport. A second
// produce for the same (peer, kind) supersedes the previous producer: the
// mapping entry is replaced and the superseded engine resource is closed, so
// consuming its id afterwards fails with ErrProducerNotFound.
func (m *SessionManager) Produce(ctx context.Context, roomID uuid.UUID, key ProducerKey, rtpParameters json.RawMessage) (string, error) {
	transportKey := TransportKey{ConnID: key.ConnID, Direction: DirectionSend}

	m.mu.Lock()
	sess, exists := m.sessions[roomID]
	if !exists {
		m.mu.Unlock()
		return "", ErrRoomNotActive
	}
	transport, ok := sess.transports[transportKey]
	m.mu.Unlock()

	if !ok {
		return "", ErrTransportNotFound
	}

	producer, err := transport.Produce(ctx, key.Kind, rtpParameters)
	if err != nil {
		return "", err
	}

	var superseded media.Producer

	m.mu.Lock()
	current, stillActive := m.sessions[roomID]
	if !stillActive || current != sess {
		m.mu.Unlock()
		producer.Close()
		return "", ErrRoomNotActive
	}
	if old, ok := sess.producers[key]; ok {
		superseded = old
		delete(sess.producersByID, old.ID())
	}
	sess.producers[key] = producer
	sess.producersByID[producer.ID()] = key
	m.mu.Unlock()

	if superseded != nil {
		superseded.Close()
	}

	return producer.ID(), nil
}

// Consume attaches a paused consumer on the peer's receive transport to the
// given producer.
func (m *SessionManager) Consume(ctx context.Context, roomID uuid.UUID, connID string, producerID string, receiverCaps media.RTPCapabilities) (*ConsumerDescription, error) {
	transportKey := TransportKey{ConnID: connID, Direction: DirectionReceive}

	m.mu.Lock()
	sess, exists := m.sessions[roomID]
	if !exists {
		m.mu.Unlock()
		return nil, ErrRoomNotActive
	}
	transport, ok := sess.transports[transportKey]
	if !ok {
		m.mu.Unlock()
		return nil, ErrTransportNotFound
	}
	key, ok := sess.producersByID[producerID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrProducerNotFound
	}
	producer := sess.producers[key]
	m.mu.Unlock()

	consumer, err := transport.Consume(ctx, producer, receiverCaps)
	if err != nil {
		if errors.Is(err, media.ErrIncompatibleCapabilities) {
			return nil, ErrIncompatibleCapabilities
		}
		return nil, err
	}

	m.mu.Lock()
	current, stillActive := m.sessions[roomID]
	if !stillActive || current != sess {
		m.mu.Unlock()
		consumer.Close()
		return nil, ErrRoomNotActive
	}
	sess.consumers[consumer.ID()] = consumer
	m.mu.Unlock()

	return &ConsumerDescription{
		ConsumerID:    consumer.ID(),
		ProducerID:    consumer.ProducerID(),
		Kind:          consumer.Kind(),
		RTPParameters: consumer.RTPParameters(),
	}, nil
}

// ResumeConsumer transitions a consumer to active. Idempotent.
func (m *SessionManager) ResumeConsumer(ctx context.Context, roomID uuid.UUID, consumerID string) error {
	m.mu.Lock()
	sess, exists := m.sessions[roomID]
	if !exists {
		m.mu.Unlock()
		return ErrRoomNotActive
	}
	consumer, ok := sess.consumers[consumerID]
	m.mu.Unlock()

	if !ok {
		return ErrConsumerNotFound
	}
	return consumer.Resume(ctx)
}

// ActiveSessions returns the number of live media sessions
func (m *SessionManager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
