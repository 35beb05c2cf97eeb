package media

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
)

func TestNewRouter(t *testing.T) {
	engine := NewInprocEngine(2)
	defer engine.Close()

	router, err := engine.NewRouter(context.Background())

	assert.NoError(t, err)
	assert.NotEmpty(t, router.ID())
	assert.NotEmpty(t, router.Capabilities().Codecs)
}

func TestCreateTransport_ReturnsNegotiationParameters(t *testing.T) {
	engine := NewInprocEngine(1)
	defer engine.Close()

	router, err := engine.NewRouter(context.Background())
	assert.NoError(t, err)

	transport, err := router.CreateTransport(context.Background())

	assert.NoError(t, err)
	assert.NotEmpty(t, transport.ID())
	assert.NotEmpty(t, transport.Parameters().ICEParameters)
	assert.NotEmpty(t, transport.Parameters().DTLSParameters)
}

func TestConnect_RejectsMalformedParameters(t *testing.T) {
	engine := NewInprocEngine(1)
	defer engine.Close()

	router, _ := engine.NewRouter(context.Background())
	transport, _ := router.CreateTransport(context.Background())

	err := transport.Connect(context.Background(), json.RawMessage(`{not json`))
	assert.Error(t, err)

	err = transport.Connect(context.Background(), json.RawMessage(`{"dtlsParameters":{}}`))
	assert.NoError(t, err)
}

func TestConsume_CreatedPausedAndResumeIdempotent(t *testing.T) {
	engine := NewInprocEngine(1)
	defer engine.Close()

	router, _ := engine.NewRouter(context.Background())
	sendTransport, _ := router.CreateTransport(context.Background())
	recvTransport, _ := router.CreateTransport(context.Background())

	producer, err := sendTransport.Produce(context.Background(), KindAudio, json.RawMessage(`{}`))
	assert.NoError(t, err)

	consumer, err := recvTransport.Consume(context.Background(), producer, DefaultCapabilities())
	assert.NoError(t, err)
	assert.True(t, consumer.Paused())
	assert.Equal(t, producer.ID(), consumer.ProducerID())
	assert.Equal(t, KindAudio, consumer.Kind())

	assert.NoError(t, consumer.Resume(context.Background()))
	assert.False(t, consumer.Paused())

	// Second resume is a no-op
	assert.NoError(t, consumer.Resume(context.Background()))
	assert.False(t, consumer.Paused())
}

func TestConsume_IncompatibleCapabilities(t *testing.T) {
	engine := NewInprocEngine(1)
	defer engine.Close()

	router, _ := engine.NewRouter(context.Background())
	sendTransport, _ := router.CreateTransport(context.Background())
	recvTransport, _ := router.CreateTransport(context.Background())

	producer, err := sendTransport.Produce(context.Background(), KindVideo, json.RawMessage(`{}`))
	assert.NoError(t, err)

	// Receiver only decodes opus, producer is video
	audioOnly := RTPCapabilities{
		Codecs: []webrtc.RTPCodecCapability{
			{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		},
	}

	consumer, err := recvTransport.Consume(context.Background(), producer, audioOnly)

	assert.ErrorIs(t, err, ErrIncompatibleCapabilities)
	assert.Nil(t, consumer)
}

func TestFailWorker_ClosesRouterDone(t *testing.T) {
	engine := NewInprocEngine(1)
	defer engine.Close()

	router, _ := engine.NewRouter(context.Background())

	select {
	case <-router.Done():
		t.Fatal("router reported failure before worker died")
	default:
	}

	engine.FailWorker(0)

	select {
	case <-router.Done():
	default:
		t.Fatal("router did not report worker failure")
	}
}

func TestParseKind(t *testing.T) {
	kind, ok := ParseKind("audio")
	assert.True(t, ok)
	assert.Equal(t, KindAudio, kind)

	kind, ok = ParseKind("video")
	assert.True(t, ok)
	assert.Equal(t, KindVideo, kind)

	_, ok = ParseKind("screen")
	assert.False(t, ok)
}
