package core

// Frame is one encoded outbound event.
type Frame []byte

// SignalConnection is the hub's handle on a client transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues f without blocking. ErrBackpressure means the queue is full.
	TrySend(Frame) error
	Close()
}
