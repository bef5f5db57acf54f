package hub

import (
	"errors"

	"github.com/dkeye/callhub/internal/app"
	"github.com/dkeye/callhub/internal/core"
	"github.com/dkeye/callhub/internal/domain"
	"github.com/dkeye/callhub/internal/protocol"
	"github.com/rs/zerolog/log"
)

// outbox is the table of live connections. Sending only queues the frame on
// the connection; the adapter's write pump does the network I/O.
type outbox struct {
	links  map[domain.ConnectionID]core.SignalConnection
	policy app.Policy
}

var _ core.Outbox = (*outbox)(nil)

func newOutbox(policy app.Policy) *outbox {
	return &outbox{
		links:  make(map[domain.ConnectionID]core.SignalConnection),
		policy: policy,
	}
}

func (o *outbox) Deliver(id domain.ConnectionID, event string, payload any) error {
	sc, ok := o.links[id]
	if !ok {
		return core.ErrConnectionNotFound
	}
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}
	return o.send(id, sc, event, frame)
}

func (o *outbox) Broadcast(event string, payload any) {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Str("event", event).Msg("broadcast encode")
		return
	}
	for id, sc := range o.links {
		_ = o.send(id, sc, event, frame)
	}
}

func (o *outbox) send(id domain.ConnectionID, sc core.SignalConnection, event string, frame core.Frame) error {
	err := sc.TrySend(frame)
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrBackpressure) || o.policy == nil {
		return err
	}
	switch o.policy.OnBackPressure(id, event) {
	case app.KickConnection:
		log.Warn().Str("module", "hub").Str("conn", string(id)).Str("event", event).Msg("send queue full, kicking connection")
		// The adapter's read pump notices the close and detaches.
		sc.Close()
	case app.DropEvent, app.NoAction:
		log.Debug().Str("module", "hub").Str("conn", string(id)).Str("event", event).Msg("send queue full, event dropped")
	}
	return err
}
