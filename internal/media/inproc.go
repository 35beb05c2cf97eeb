package media

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// DefaultCapabilities returns the codec set offered by the in-process engine:
// opus for audio, VP8 and H264 for video.
func DefaultCapabilities() RTPCapabilities {
	return RTPCapabilities{
		Codecs: []webrtc.RTPCodecCapability{
			{
				MimeType:  webrtc.MimeTypeOpus,
				ClockRate: 48000,
				Channels:  2,
			},
			{
				MimeType:  webrtc.MimeTypeVP8,
				ClockRate: 90000,
			},
			{
				MimeType:    webrtc.MimeTypeH264,
				ClockRate:   90000,
				SDPFmtpLine: "packetization-mode=1;profile-level-id=42e01f;level-asymmetry-allowed=1",
			},
		},
	}
}

// InprocEngine is an in-process Engine used for local development and tests.
// It performs no RTP routing; it allocates handles, tracks negotiation state,
// and enforces the capability and pause semantics of a real routing engine.
type InprocEngine struct {
	mu      sync.Mutex
	workers []*worker
	next    int
	caps    RTPCapabilities
	closed  bool
}

type worker struct {
	index int
	done  chan struct{}
	once  sync.Once
}

func (w *worker) fail() {
	w.once.Do(func() { close(w.done) })
}

// NewInprocEngine creates an engine with the given number of workers
func NewInprocEngine(numWorkers int) *InprocEngine {
	if numWorkers < 1 {
		numWorkers = 1
	}
	e := &InprocEngine{caps: DefaultCapabilities()}
	for i := 0; i < numWorkers; i++ {
		e.workers = append(e.workers, &worker{index: i, done: make(chan struct{})})
	}
	return e
}

// NewRouter allocates a routing session, assigned to workers round-robin
func (e *InprocEngine) NewRouter(ctx context.Context) (Router, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrRouterClosed
	}

	w := e.workers[e.next%len(e.workers)]
	e.next++

	return &inprocRouter{
		id:     uuid.New().String(),
		caps:   e.caps,
		worker: w,
	}, nil
}

// Close releases all workers
func (e *InprocEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	for _, w := range e.workers {
		w.fail()
	}
	return nil
}

// FailWorker marks one worker as dead, failing every router it owns.
// Used by supervision tests and operational tooling.
func (e *InprocEngine) FailWorker(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index >= 0 && index < len(e.workers) {
		e.workers[index].fail()
	}
}

type inprocRouter struct {
	mu     sync.Mutex
	id     string
	caps   RTPCapabilities
	worker *worker
	closed bool
}

func (r *inprocRouter) ID() string                    { return r.id }
func (r *inprocRouter) Capabilities() RTPCapabilities { return r.caps }
func (r *inprocRouter) Done() <-chan struct{}         { return r.worker.done }

func (r *inprocRouter) CreateTransport(ctx context.Context) (Transport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRouterClosed
	}

	id := uuid.New().String()
	ice, _ := json.Marshal(map[string]string{
		"usernameFragment": uuid.New().String()[:8],
		"password":         uuid.New().String(),
	})
	candidates, _ := json.Marshal([]map[string]any{})
	dtls, _ := json.Marshal(map[string]string{"role": "auto"})

	return &inprocTransport{
		id:     id,
		router: r,
		params: ConnectionParameters{
			ICEParameters:  ice,
			ICECandidates:  candidates,
			DTLSParameters: dtls,
		},
	}, nil
}

func (r *inprocRouter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	return nil
}

type inprocTransport struct {
	mu        sync.Mutex
	id        string
	router    *inprocRouter
	params    ConnectionParameters
	connected bool
	closed    bool
}

func (t *inprocTransport) ID() string                       { return t.id }
func (t *inprocTransport) Parameters() ConnectionParameters { return t.params }

func (t *inprocTransport) Connect(ctx context.Context, remoteParameters json.RawMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrRouterClosed
	}
	if !json.Valid(remoteParameters) {
		return fmt.Errorf("media: malformed remote parameters")
	}
	t.connected = true
	return nil
}

func (t *inprocTransport) Produce(ctx context.Context, kind Kind, rtpParameters json.RawMessage) (Producer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrRouterClosed
	}
	if len(rtpParameters) > 0 && !json.Valid(rtpParameters) {
		return nil, fmt.Errorf("media: malformed rtp parameters")
	}

	return &inprocProducer{
		id:   uuid.New().String(),
		kind: kind,
	}, nil
}

func (t *inprocTransport) Consume(ctx context.Context, producer Producer, receiverCaps RTPCapabilities) (Consumer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrRouterClosed
	}

	// The receiver must share at least one codec of the producer's kind
	// with the router, mirroring the canConsume check of a real engine.
	if !canConsume(t.router.caps, receiverCaps, producer.Kind()) {
		return nil, ErrIncompatibleCapabilities
	}

	params, _ := json.Marshal(map[string]any{
		"kind": string(producer.Kind()),
	})

	return &inprocConsumer{
		id:         uuid.New().String(),
		producerID: producer.ID(),
		kind:       producer.Kind(),
		rtpParams:  params,
		paused:     true,
	}, nil
}

func (t *inprocTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	return nil
}

func canConsume(routerCaps, receiverCaps RTPCapabilities, kind Kind) bool {
	prefix := "audio/"
	if kind == KindVideo {
		prefix = "video/"
	}
	for _, codec := range receiverCaps.Codecs {
		if len(codec.MimeType) > len(prefix) && codec.MimeType[:len(prefix)] == prefix &&
			routerCaps.CanDecode(codec.MimeType) {
			return true
		}
	}
	return false
}

type inprocProducer struct {
	mu     sync.Mutex
	id     string
	kind   Kind
	closed bool
}

func (p *inprocProducer) ID() string { return p.id }
func (p *inprocProducer) Kind() Kind { return p.kind }

func (p *inprocProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type inprocConsumer struct {
	mu         sync.Mutex
	id         string
	producerID string
	kind       Kind
	rtpParams  json.RawMessage
	paused     bool
	closed     bool
}

func (c *inprocConsumer) ID() string                     { return c.id }
func (c *inprocConsumer) ProducerID() string             { return c.producerID }
func (c *inprocConsumer) Kind() Kind                     { return c.kind }
func (c *inprocConsumer) RTPParameters() json.RawMessage { return c.rtpParams }

func (c *inprocConsumer) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *inprocConsumer) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConsumerClosed
	}
	c.paused = false
	return nil
}

func (c *inprocConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
