package rtc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zahidhasann88/workspace-backend/internal/media"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *media.InprocEngine) {
	t.Helper()
	engine := media.NewInprocEngine(2)
	t.Cleanup(func() { engine.Close() })
	return NewSessionManager(engine), engine
}

func openTestSession(t *testing.T, m *SessionManager) uuid.UUID {
	t.Helper()
	roomID := uuid.New()
	require.NoError(t, m.OpenSession(context.Background(), roomID))
	return roomID
}

func TestSessionManagerOpenCloseIdempotent(t *testing.T) {
	m, _ := newTestSessionManager(t)
	roomID := openTestSession(t, m)

	require.NoError(t, m.OpenSession(context.Background(), roomID))
	assert.Equal(t, 1, m.ActiveSessions())

	m.CloseSession(roomID)
	m.CloseSession(roomID)
	assert.Zero(t, m.ActiveSessions())

	_, err := m.SessionCapabilities(roomID)
	assert.ErrorIs(t, err, ErrRoomNotActive)
}

func TestSessionManagerCreateTransportReusesSlot(t *testing.T) {
	m, _ := newTestSessionManager(t)
	roomID := openTestSession(t, m)
	ctx := context.Background()
	key := TransportKey{ConnID: "conn-1", Direction: DirectionSend}

	first, err := m.CreateTransport(ctx, roomID, key)
	require.NoError(t, err)
	second, err := m.CreateTransport(ctx, roomID, key)
	require.NoError(t, err)
	assert.Equal(t, first.TransportID, second.TransportID)

	recv, err := m.CreateTransport(ctx, roomID, TransportKey{ConnID: "conn-1", Direction: DirectionReceive})
	require.NoError(t, err)
	assert.NotEqual(t, first.TransportID, recv.TransportID)
}

func TestSessionManagerProduceRequiresSendTransport(t *testing.T) {
	m, _ := newTestSessionManager(t)
	roomID := openTestSession(t, m)
	ctx := context.Background()

	_, err := m.Produce(ctx, roomID, ProducerKey{ConnID: "conn-1", Kind: media.KindAudio}, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrTransportNotFound)
}

func TestSessionManagerProduceSupersedes(t *testing.T) {
	m, _ := newTestSessionManager(t)
	roomID := openTestSession(t, m)
	ctx := context.Background()

	_, err := m.CreateTransport(ctx, roomID, TransportKey{ConnID: "conn-1", Direction: DirectionSend})
	require.NoError(t, err)
	_, err = m.CreateTransport(ctx, roomID, TransportKey{ConnID: "conn-2", Direction: DirectionReceive})
	require.NoError(t, err)

	key := ProducerKey{ConnID: "conn-1", Kind: media.KindVideo}
	oldID, err := m.Produce(ctx, roomID, key, json.RawMessage(`{}`))
	require.NoError(t, err)
	newID, err := m.Produce(ctx, roomID, key, json.RawMessage(`{}`))
	require.NoError(t, err)
	require.NotEqual(t, oldID, newID)

	// The superseded producer id is no longer consumable
	_, err = m.Consume(ctx, roomID, "conn-2", oldID, media.DefaultCapabilities())
	assert.ErrorIs(t, err, ErrProducerNotFound)

	desc, err := m.Consume(ctx, roomID, "conn-2", newID, media.DefaultCapabilities())
	require.NoError(t, err)
	assert.Equal(t, newID, desc.ProducerID)
	assert.Equal(t, media.KindVideo, desc.Kind)
}

func TestSessionManagerConsumeIncompatibleCapabilities(t *testing.T) {
	m, _ := newTestSessionManager(t)
	roomID := openTestSession(t, m)
	ctx := context.Background()

	_, err := m.CreateTransport(ctx, roomID, TransportKey{ConnID: "conn-1", Direction: DirectionSend})
	require.NoError(t, err)
	_, err = m.CreateTransport(ctx, roomID, TransportKey{ConnID: "conn-2", Direction: DirectionReceive})
	require.NoError(t, err)

	producerID, err := m.Produce(ctx, roomID, ProducerKey{ConnID: "conn-1", Kind: media.KindVideo}, json.RawMessage(`{}`))
	require.NoError(t, err)

	audioOnly := media.RTPCapabilities{Codecs: media.DefaultCapabilities().Codecs[:1]}
	_, err = m.Consume(ctx, roomID, "conn-2", producerID, audioOnly)
	assert.ErrorIs(t, err, ErrIncompatibleCapabilities)
}

func TestSessionManagerResumeConsumer(t *testing.T) {
	m, _ := newTestSessionManager(t)
	roomID := openTestSession(t, m)
	ctx := context.Background()

	_, err := m.CreateTransport(ctx, roomID, TransportKey{ConnID: "conn-1", Direction: DirectionSend})
	require.NoError(t, err)
	_, err = m.CreateTransport(ctx, roomID, TransportKey{ConnID: "conn-2", Direction: DirectionReceive})
	require.NoError(t, err)

	producerID, err := m.Produce(ctx, roomID, ProducerKey{ConnID: "conn-1", Kind: media.KindAudio}, json.RawMessage(`{}`))
	require.NoError(t, err)
	desc, err := m.Consume(ctx, roomID, "conn-2", producerID, media.DefaultCapabilities())
	require.NoError(t, err)

	require.NoError(t, m.ResumeConsumer(ctx, roomID, desc.ConsumerID))
	require.NoError(t, m.ResumeConsumer(ctx, roomID, desc.ConsumerID))

	err = m.ResumeConsumer(ctx, roomID, "no-such-consumer")
	assert.ErrorIs(t, err, ErrConsumerNotFound)
}

func TestSessionManagerWorkerFailureNotifies(t *testing.T) {
	engine := media.NewInprocEngine(1)
	t.Cleanup(func() { engine.Close() })
	m := NewSessionManager(engine)

	failed := make(chan uuid.UUID, 1)
	m.SetWorkerFailureHandler(func(roomID uuid.UUID) { failed <- roomID })

	roomID := openTestSession(t, m)

	engine.FailWorker(0)

	select {
	case got := <-failed:
		assert.Equal(t, roomID, got)
	case <-time.After(2 * time.Second):
		t.Fatal("worker failure was not reported")
	}
}

func TestSessionManagerCloseSessionSilencesWatcher(t *testing.T) {
	engine := media.NewInprocEngine(1)
	t.Cleanup(func() { engine.Close() })
	m := NewSessionManager(engine)

	failed := make(chan uuid.UUID, 1)
	m.SetWorkerFailureHandler(func(roomID uuid.UUID) { failed <- roomID })

	roomID := openTestSession(t, m)
	m.CloseSession(roomID)

	engine.FailWorker(0)

	select {
	case <-failed:
		t.Fatal("closed session must not report a worker failure")
	case <-time.After(100 * time.Millisecond):
	}
}
