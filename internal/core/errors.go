package core

import "errors"

var (
	ErrTargetOffline      = errors.New("target offline")
	ErrRoomNotFound       = errors.New("room not found")
	ErrMalformedEvent     = errors.New("malformed event")
	ErrNotParty           = errors.New("user is not a party of the room")
	ErrInvalidTransition  = errors.New("invalid call state transition")
	ErrSelfCall           = errors.New("caller and receiver are the same user")
	ErrNotRegistered      = errors.New("connection is not registered")
	ErrAlreadyRegistered  = errors.New("connection already registered as another user")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrBackpressure       = errors.New("backpressure")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrHubClosed          = errors.New("hub closed")
)
