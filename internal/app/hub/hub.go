// Package hub is the composition root of the call coordination service.
//
// One goroutine (Run) owns the store and the connection table. Connection
// handlers never touch shared state; they submit jobs and wait for them, so
// every inbound event is applied atomically and in arrival order.
package hub

import (
	"context"
	"encoding/json"

	"github.com/dkeye/callhub/internal/app"
	"github.com/dkeye/callhub/internal/core"
	"github.com/dkeye/callhub/internal/domain"
	"github.com/rs/zerolog/log"
)

const defaultQueueSize = 256

type Hub struct {
	store core.Store
	out   *outbox

	presence *app.PresenceBroadcaster
	registry *app.ConnectionRegistry
	calls    *app.CallSessionManager
	relay    *app.SignalRelay
	reaper   *app.DisconnectReaper

	queueSize int
	policy    app.Policy
	jobs      chan func()
	done      chan struct{}
}

type Option func(*Hub)

// WithQueueSize sets how many submitted events may wait for the loop.
func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

func WithPolicy(p app.Policy) Option {
	return func(h *Hub) { h.policy = p }
}

// New wires all components over store. Nothing is shared between hubs.
func New(store core.Store, opts ...Option) *Hub {
	h := &Hub{
		store:     store,
		queueSize: defaultQueueSize,
		policy:    app.SimplePolicy{},
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.jobs = make(chan func(), h.queueSize)
	h.out = newOutbox(h.policy)
	h.presence = app.NewPresenceBroadcaster(store, h.out)
	h.registry = app.NewConnectionRegistry(store, h.presence)
	h.calls = app.NewCallSessionManager(store, h.registry, h.out)
	h.relay = app.NewSignalRelay(store, h.registry, h.out)
	h.reaper = app.NewDisconnectReaper(h.registry, h.calls)
	return h
}

// Run processes jobs until ctx is cancelled, then closes every transport.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	log.Info().Str("module", "hub").Msg("hub started")
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return nil
		case job := <-h.jobs:
			h.exec(job)
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) exec(job func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "hub").Interface("panic", r).Msg("event handler panicked")
		}
	}()
	job()
}

// do runs fn on the hub goroutine and waits for it to finish. ctx only
// bounds the wait for a queue slot: once queued, fn runs and do waits for
// it, so callers may read what fn wrote whenever do returns nil and must
// not when it returns an error.
func (h *Hub) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	job := func() {
		defer close(finished)
		fn()
	}
	select {
	case h.jobs <- job:
	case <-h.done:
		return core.ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-h.done:
		select {
		case <-finished:
			return nil
		default:
			return core.ErrHubClosed
		}
	}
}

func (h *Hub) shutdown() {
	log.Info().Str("module", "hub").Int("connections", len(h.out.links)).Msg("closing connections")
	for id, sc := range h.out.links {
		sc.Close()
		delete(h.out.links, id)
	}
}

// Attach adds a live transport and returns its connection id. The
// connection receives presence broadcasts but owns no user until Register.
func (h *Hub) Attach(ctx context.Context, sc core.SignalConnection) (domain.ConnectionID, error) {
	id := domain.NewConnectionID()
	err := h.do(ctx, func() {
		h.out.links[id] = sc
		log.Info().Str("module", "hub").Str("conn", string(id)).Int("connections", len(h.out.links)).Msg("connection attached")
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Register binds user to an attached connection (handshake registration).
func (h *Hub) Register(ctx context.Context, id domain.ConnectionID, user domain.UserID) error {
	var err error
	if doErr := h.do(ctx, func() { err = h.register(id, user) }); doErr != nil {
		return doErr
	}
	return err
}

// Dispatch applies one inbound frame. The returned error is informational:
// the connection stays usable whatever the frame contained.
func (h *Hub) Dispatch(ctx context.Context, id domain.ConnectionID, frame []byte) error {
	var err error
	if doErr := h.do(ctx, func() { err = h.dispatch(id, frame) }); doErr != nil {
		return doErr
	}
	return err
}

// Detach handles the loss of a connection. Calling it again for the same
// id is a no-op, so the reaper runs once per connection.
func (h *Hub) Detach(ctx context.Context, id domain.ConnectionID) error {
	return h.do(ctx, func() {
		if _, ok := h.out.links[id]; !ok {
			return
		}
		delete(h.out.links, id)
		log.Info().Str("module", "hub").Str("conn", string(id)).Int("connections", len(h.out.links)).Msg("connection detached")
		h.reaper.Reap(id)
	})
}

// Presence returns the current online set without publishing it.
func (h *Hub) Presence(ctx context.Context) ([]domain.UserID, error) {
	var snap []domain.UserID
	if err := h.do(ctx, func() { snap = h.presence.Snapshot() }); err != nil {
		return nil, err
	}
	return snap, nil
}

// ResolveConnection is part of the interface offered to the persistence
// layer: it finds the live connection of a user, if any.
func (h *Hub) ResolveConnection(ctx context.Context, user domain.UserID) (domain.ConnectionID, bool, error) {
	var (
		conn domain.ConnectionID
		ok   bool
	)
	if err := h.do(ctx, func() { conn, ok = h.registry.Lookup(user) }); err != nil {
		return "", false, err
	}
	return conn, ok, nil
}

// Deliver pushes an arbitrary event (e.g. "new message") to a connection.
// The hub does not look at event or payload.
func (h *Hub) Deliver(ctx context.Context, conn domain.ConnectionID, event string, payload json.RawMessage) error {
	var err error
	if doErr := h.do(ctx, func() { err = h.out.Deliver(conn, event, rawOrNil(payload)) }); doErr != nil {
		return doErr
	}
	return err
}

// Notify resolves and delivers in one step, so the target cannot change
// connection in between.
func (h *Hub) Notify(ctx context.Context, user domain.UserID, event string, payload json.RawMessage) error {
	var err error
	doErr := h.do(ctx, func() {
		conn, ok := h.registry.Lookup(user)
		if !ok {
			err = core.ErrTargetOffline
			return
		}
		err = h.out.Deliver(conn, event, rawOrNil(payload))
	})
	if doErr != nil {
		return doErr
	}
	return err
}

type Stats struct {
	Connections int `json:"connections"`
	Online      int `json:"online"`
}

func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := h.do(ctx, func() {
		st = Stats{Connections: len(h.out.links), Online: len(h.presence.Snapshot())}
	})
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

func rawOrNil(m json.RawMessage) any {
	if len(m) == 0 {
		return nil
	}
	return m
}
