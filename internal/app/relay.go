package app

import (
	"encoding/json"

	"github.com/dkeye/callhub/internal/core"
	"github.com/dkeye/callhub/internal/domain"
	"github.com/dkeye/callhub/internal/protocol"
	"github.com/rs/zerolog/log"
)

// SignalRelay forwards peer-connection setup payloads between the two
// parties of a room. Payloads are never inspected. Undeliverable signals are
// dropped without telling the sender: a peer vanishing mid-handshake is
// routine, and the reaper reports it separately.
type SignalRelay struct {
	store    core.Store
	registry *ConnectionRegistry
	out      core.Outbox
}

func NewSignalRelay(store core.Store, registry *ConnectionRegistry, out core.Outbox) *SignalRelay {
	return &SignalRelay{store: store, registry: registry, out: out}
}

// Forward reports whether the signal was handed to the target's connection.
func (r *SignalRelay) Forward(room domain.RoomID, payload json.RawMessage, target, from domain.UserID) bool {
	logger := log.With().
		Str("module", "app.relay").
		Str("room", string(room)).
		Str("from", string(from)).
		Str("target", string(target)).
		Logger()

	s, ok := r.store.Session(room)
	if !ok {
		logger.Debug().Msg("signal dropped: unknown room")
		return false
	}
	if from == target || !s.HasParty(from) || !s.HasParty(target) {
		logger.Warn().Msg("signal dropped: not between the room's parties")
		return false
	}
	conn, ok := r.registry.Lookup(target)
	if !ok {
		logger.Debug().Msg("signal dropped: target offline")
		return false
	}
	if err := r.out.Deliver(conn, protocol.EventCallSignal, protocol.CallSignalRelayPayload{
		RoomID:     room,
		Payload:    payload,
		FromUserID: from,
	}); err != nil {
		logger.Warn().Err(err).Msg("signal dropped: deliver failed")
		return false
	}
	return true
}
