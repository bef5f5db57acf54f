package app

import (
	"github.com/dkeye/callhub/internal/domain"
	"github.com/rs/zerolog/log"
)

// DisconnectReaper unwinds everything a lost connection owned.
//
// Only the lost user's registry entry is removed before the purge, so the
// counterparts are still resolvable when their callEnded is delivered.
type DisconnectReaper struct {
	registry *ConnectionRegistry
	calls    *CallSessionManager
}

func NewDisconnectReaper(registry *ConnectionRegistry, calls *CallSessionManager) *DisconnectReaper {
	return &DisconnectReaper{registry: registry, calls: calls}
}

// Reap returns the user that owned conn and how many rooms were closed.
// Connections that never registered, or were superseded, own nothing.
func (r *DisconnectReaper) Reap(conn domain.ConnectionID) (domain.UserID, int) {
	user, ok := r.registry.Unregister(conn)
	if !ok {
		log.Debug().Str("module", "app.reaper").Str("conn", string(conn)).Msg("nothing to reap")
		return "", 0
	}
	n := r.calls.PurgeForUser(user)
	log.Info().Str("module", "app.reaper").Str("conn", string(conn)).Str("user", string(user)).Int("rooms", n).Msg("reaped")
	return user, n
}
