package app

import (
	"github.com/dkeye/callhub/internal/domain"
	"github.com/dkeye/callhub/internal/protocol"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropEvent
	KickConnection
)

// Policy decides what happens when a connection's send queue is full.
type Policy interface {
	OnBackPressure(conn domain.ConnectionID, event string) BackpressureAction
}

// SimplePolicy drops presence snapshots, which the next snapshot supersedes,
// and kicks the connection for anything else.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(_ domain.ConnectionID, event string) BackpressureAction {
	if event == protocol.EventPresenceSnapshot {
		return DropEvent
	}
	return KickConnection
}
