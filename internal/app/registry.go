package app

import (
	"github.com/dkeye/callhub/internal/core"
	"github.com/dkeye/callhub/internal/domain"
	"github.com/rs/zerolog/log"
)

// ConnectionRegistry maps a user to the single connection that currently
// represents it. Every mutation republishes presence before returning.
type ConnectionRegistry struct {
	store    core.Store
	presence *PresenceBroadcaster
}

func NewConnectionRegistry(store core.Store, presence *PresenceBroadcaster) *ConnectionRegistry {
	return &ConnectionRegistry{store: store, presence: presence}
}

// Register binds user to conn. A previous connection of the same user stays
// open but is no longer reachable through the registry.
func (r *ConnectionRegistry) Register(user domain.UserID, conn domain.ConnectionID) {
	prev, replaced := r.store.BindUser(user, conn)
	ev := log.Info().Str("module", "app.registry").Str("user", string(user)).Str("conn", string(conn))
	if replaced && prev != conn {
		ev = ev.Str("replaced_conn", string(prev))
	}
	ev.Msg("registered")
	r.presence.Publish()
}

// Unregister drops the entry pointing at conn, if any.
func (r *ConnectionRegistry) Unregister(conn domain.ConnectionID) (domain.UserID, bool) {
	user, ok := r.store.UnbindConnection(conn)
	if !ok {
		return "", false
	}
	log.Info().Str("module", "app.registry").Str("user", string(user)).Str("conn", string(conn)).Msg("unregistered")
	r.presence.Publish()
	return user, true
}

func (r *ConnectionRegistry) Lookup(user domain.UserID) (domain.ConnectionID, bool) {
	return r.store.ConnectionOf(user)
}

func (r *ConnectionRegistry) UserOf(conn domain.ConnectionID) (domain.UserID, bool) {
	return r.store.UserOf(conn)
}
