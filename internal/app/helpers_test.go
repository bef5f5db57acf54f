package app

import (
	"testing"

	"github.com/dkeye/callhub/internal/domain"
)

type delivery struct {
	conn    domain.ConnectionID
	event   string
	payload any
}

// recordingOutbox stands in for the hub's connection table.
type recordingOutbox struct {
	conns []domain.ConnectionID
	fail  map[domain.ConnectionID]error
	sent  []delivery
}

func (o *recordingOutbox) Deliver(conn domain.ConnectionID, event string, payload any) error {
	if err := o.fail[conn]; err != nil {
		return err
	}
	o.sent = append(o.sent, delivery{conn: conn, event: event, payload: payload})
	return nil
}

func (o *recordingOutbox) Broadcast(event string, payload any) {
	for _, c := range o.conns {
		_ = o.Deliver(c, event, payload)
	}
}

func (o *recordingOutbox) to(conn domain.ConnectionID, event string) []delivery {
	var out []delivery
	for _, d := range o.sent {
		if d.conn == conn && d.event == event {
			out = append(out, d)
		}
	}
	return out
}

func (o *recordingOutbox) reset() { o.sent = nil }

type fixture struct {
	store    *MemoryStore
	out      *recordingOutbox
	presence *PresenceBroadcaster
	registry *ConnectionRegistry
	calls    *CallSessionManager
	relay    *SignalRelay
	reaper   *DisconnectReaper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: NewMemoryStore(), out: &recordingOutbox{}}
	f.presence = NewPresenceBroadcaster(f.store, f.out)
	f.registry = NewConnectionRegistry(f.store, f.presence)
	f.calls = NewCallSessionManager(f.store, f.registry, f.out)
	f.relay = NewSignalRelay(f.store, f.registry, f.out)
	f.reaper = NewDisconnectReaper(f.registry, f.calls)
	return f
}

// online attaches a connection named after the user and registers it.
func (f *fixture) online(users ...domain.UserID) {
	for _, u := range users {
		conn := domain.ConnectionID("conn-" + string(u))
		f.out.conns = append(f.out.conns, conn)
		f.registry.Register(u, conn)
	}
	f.out.reset()
}

func connOf(u domain.UserID) domain.ConnectionID {
	return domain.ConnectionID("conn-" + string(u))
}

func roomID(s string) domain.RoomID { return domain.RoomID(s) }

func userID(s string) domain.UserID { return domain.UserID(s) }
