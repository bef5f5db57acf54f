package domain

import (
	"time"

	"github.com/google/uuid"
)

type RoomID string

// NewRoomID returns a random v4 id; room ids are handed to clients, so they
// must not be derivable from the parties or the clock.
func NewRoomID() RoomID {
	return RoomID(uuid.NewString())
}

type CallStatus string

const (
	CallRequested CallStatus = "REQUESTED"
	CallAccepted  CallStatus = "ACCEPTED"
	CallRejected  CallStatus = "REJECTED"
	CallEnded     CallStatus = "ENDED"
)

// Terminal statuses are never stored: reaching one removes the session.
func (s CallStatus) Terminal() bool {
	return s == CallRejected || s == CallEnded
}

// CallSession is the hub's record of one call between exactly two users.
type CallSession struct {
	RoomID     RoomID     `json:"roomId"`
	CallerID   UserID     `json:"callerId"`
	ReceiverID UserID     `json:"receiverId"`
	Status     CallStatus `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (s CallSession) HasParty(u UserID) bool {
	return s.CallerID == u || s.ReceiverID == u
}

// Peer returns the other party of the session.
func (s CallSession) Peer(u UserID) (UserID, bool) {
	switch u {
	case s.CallerID:
		return s.ReceiverID, true
	case s.ReceiverID:
		return s.CallerID, true
	}
	return "", false
}
