package app

import (
	"testing"

	"github.com/dkeye/callhub/internal/protocol"
)

func TestSimplePolicy(t *testing.T) {
	var p SimplePolicy
	if got := p.OnBackPressure("c", protocol.EventPresenceSnapshot); got != DropEvent {
		t.Errorf("presence: %v, want DropEvent", got)
	}
	for _, ev := range []string{protocol.EventCallIncoming, protocol.EventCallSignal, protocol.EventCallEnded} {
		if got := p.OnBackPressure("c", ev); got != KickConnection {
			t.Errorf("%s: %v, want KickConnection", ev, got)
		}
	}
}
