package app

import (
	"github.com/dkeye/callhub/internal/core"
	"github.com/dkeye/callhub/internal/domain"
	"github.com/dkeye/callhub/internal/protocol"
	"github.com/rs/zerolog/log"
)

// PresenceBroadcaster publishes the full online set, never a diff, so a
// client that missed one snapshot is corrected by the next.
type PresenceBroadcaster struct {
	store core.Store
	out   core.Outbox
}

func NewPresenceBroadcaster(store core.Store, out core.Outbox) *PresenceBroadcaster {
	return &PresenceBroadcaster{store: store, out: out}
}

func (p *PresenceBroadcaster) Snapshot() []domain.UserID {
	return p.store.Users()
}

// Publish sends the snapshot to every live connection.
func (p *PresenceBroadcaster) Publish() {
	snap := p.Snapshot()
	p.out.Broadcast(protocol.EventPresenceSnapshot, protocol.PresenceSnapshotPayload{OnlineUserIDs: snap})
	log.Debug().Str("module", "app.presence").Int("online", len(snap)).Msg("presence published")
}

// SendTo answers an explicit presence request from a single connection.
func (p *PresenceBroadcaster) SendTo(conn domain.ConnectionID) error {
	return p.out.Deliver(conn, protocol.EventPresenceSnapshot, protocol.PresenceSnapshotPayload{OnlineUserIDs: p.Snapshot()})
}
