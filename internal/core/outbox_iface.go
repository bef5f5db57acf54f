package core

import "github.com/dkeye/callhub/internal/domain"

// Outbox delivers events to live connections. Delivery is fire-and-forget:
// implementations queue the encoded event and return without waiting for
// the network write.
type Outbox interface {
	Deliver(conn domain.ConnectionID, event string, payload any) error
	// Broadcast delivers to every live connection, registered or not.
	Broadcast(event string, payload any)
}
