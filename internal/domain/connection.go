package domain

import "github.com/google/uuid"

// ConnectionID identifies one physical transport session. Never reused.
type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}
