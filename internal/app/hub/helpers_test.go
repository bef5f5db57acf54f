package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/callhub/internal/app"
	"github.com/dkeye/callhub/internal/core"
	"github.com/dkeye/callhub/internal/domain"
	"github.com/dkeye/callhub/internal/protocol"
)

// fakeConn records every frame queued to it.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, append(core.Frame(nil), f...))
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) setFull(v bool) {
	c.mu.Lock()
	c.full = v
	c.mu.Unlock()
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

func (c *fakeConn) envelopes(t *testing.T) []protocol.Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.Envelope, 0, len(c.frames))
	for _, f := range c.frames {
		env, err := protocol.Decode(f)
		if err != nil {
			t.Fatalf("hub sent undecodable frame %q: %v", f, err)
		}
		out = append(out, env)
	}
	return out
}

func (c *fakeConn) count(t *testing.T, event string) int {
	t.Helper()
	n := 0
	for _, env := range c.envelopes(t) {
		if env.Type == event {
			n++
		}
	}
	return n
}

// last returns the most recent frame of the given type, failing if none.
func (c *fakeConn) last(t *testing.T, event string) protocol.Envelope {
	t.Helper()
	envs := c.envelopes(t)
	for i := len(envs) - 1; i >= 0; i-- {
		if envs[i].Type == event {
			return envs[i]
		}
	}
	t.Fatalf("no %q frame among %d", event, len(envs))
	return protocol.Envelope{}
}

func payloadOf[T any](t *testing.T, env protocol.Envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode %s data %s: %v", env.Type, env.Data, err)
	}
	return v
}

func startHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := New(app.NewMemoryStore(), opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = h.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h
}

type client struct {
	t    *testing.T
	h    *Hub
	id   domain.ConnectionID
	conn *fakeConn
}

func connect(t *testing.T, h *Hub) *client {
	t.Helper()
	fc := &fakeConn{}
	id, err := h.Attach(context.Background(), fc)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	return &client{t: t, h: h, id: id, conn: fc}
}

// login attaches and registers user, then clears the frames that produced.
func login(t *testing.T, h *Hub, user string) *client {
	t.Helper()
	c := connect(t, h)
	if err := c.send(protocol.EventRegister, map[string]string{"userId": user}); err != nil {
		t.Fatalf("register %s: %v", user, err)
	}
	c.conn.reset()
	return c
}

func (c *client) send(event string, data any) error {
	c.t.Helper()
	frame := map[string]any{"type": event}
	if data != nil {
		frame["data"] = data
	}
	b, err := json.Marshal(frame)
	if err != nil {
		c.t.Fatalf("marshal %s: %v", event, err)
	}
	return c.h.Dispatch(context.Background(), c.id, b)
}

func (c *client) detach() {
	c.t.Helper()
	if err := c.h.Detach(context.Background(), c.id); err != nil {
		c.t.Fatalf("Detach: %v", err)
	}
}

// call places a call from c to target and returns the room id it got.
func (c *client) call(target string) domain.RoomID {
	c.t.Helper()
	if err := c.send(protocol.EventCallRequest, map[string]any{"targetUserId": target}); err != nil {
		c.t.Fatalf("callRequest %s: %v", target, err)
	}
	return payloadOf[protocol.CallInitiatedPayload](c.t, c.conn.last(c.t, protocol.EventCallInitiated)).RoomID
}

// blockLoop parks the hub goroutine inside a job until the returned func
// is called. Cleanup releases it too, so a failing test cannot hang Run.
func blockLoop(t *testing.T, h *Hub) func() {
	t.Helper()
	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = h.do(context.Background(), func() {
			close(started)
			<-release
		})
	}()
	<-started
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	t.Cleanup(unblock)
	return unblock
}
