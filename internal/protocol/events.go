// Package protocol defines the hub's event vocabulary and its JSON envelope.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/dkeye/callhub/internal/domain"
)

// Inbound events.
const (
	EventRegister        = "register"
	EventRequestPresence = "requestPresence"
	EventCallRequest     = "callRequest"
	EventCallAccept      = "callAccept"
	EventCallReject      = "callReject"
	EventCallSignal      = "callSignal"
	EventCallEnd         = "callEnd"
	EventPing            = "ping"
	EventWhoAmI          = "whoami"
)

// Outbound events. callSignal and whoami are used in both directions.
const (
	EventRegistered        = "registered"
	EventPresenceSnapshot  = "presenceSnapshot"
	EventCallIncoming      = "callIncoming"
	EventCallInitiated     = "callInitiated"
	EventCallRequestFailed = "callRequestFailed"
	EventCallAccepted      = "callAccepted"
	EventCallRejected      = "callRejected"
	EventCallEnded         = "callEnded"
	EventPong              = "pong"
)

const (
	ReasonTargetOffline    = "target offline"
	ReasonPeerDisconnected = "peer disconnected"
	ReasonCallEnded        = "call ended"
	DefaultRejectReason    = "User declined"
)

type RegisterPayload struct {
	UserID string `json:"userId" validate:"required,max=128"`
}

type CallRequestPayload struct {
	TargetUserID string `json:"targetUserId" validate:"required,max=128"`
	// CallerInfo is display metadata (name, avatar) relayed as-is.
	CallerInfo json.RawMessage `json:"callerInfo,omitempty"`
}

type CallAcceptPayload struct {
	RoomID string `json:"roomId" validate:"required,max=128"`
}

type CallRejectPayload struct {
	RoomID string `json:"roomId" validate:"required,max=128"`
	Reason string `json:"reason,omitempty" validate:"max=256"`
}

type CallSignalPayload struct {
	RoomID       string          `json:"roomId" validate:"required,max=128"`
	Payload      json.RawMessage `json:"payload" validate:"required"`
	TargetUserID string          `json:"targetUserId" validate:"required,max=128"`
}

type CallEndPayload struct {
	RoomID string `json:"roomId" validate:"required,max=128"`
}

type RegisteredPayload struct {
	UserID       domain.UserID       `json:"userId"`
	ConnectionID domain.ConnectionID `json:"connectionId"`
}

type WhoAmIPayload struct {
	UserID       domain.UserID       `json:"userId,omitempty"`
	ConnectionID domain.ConnectionID `json:"connectionId"`
}

type PresenceSnapshotPayload struct {
	OnlineUserIDs []domain.UserID `json:"onlineUserIds"`
}

type CallIncomingPayload struct {
	RoomID    domain.RoomID   `json:"roomId"`
	Caller    json.RawMessage `json:"caller"`
	Timestamp time.Time       `json:"timestamp"`
}

type CallInitiatedPayload struct {
	RoomID       domain.RoomID `json:"roomId"`
	TargetUserID domain.UserID `json:"targetUserId"`
}

type CallRequestFailedPayload struct {
	Reason       string        `json:"reason"`
	TargetUserID domain.UserID `json:"targetUserId"`
}

type CallAcceptedPayload struct {
	RoomID domain.RoomID `json:"roomId"`
}

type CallRejectedPayload struct {
	RoomID domain.RoomID `json:"roomId"`
	Reason string        `json:"reason"`
}

type CallSignalRelayPayload struct {
	RoomID     domain.RoomID   `json:"roomId"`
	Payload    json.RawMessage `json:"payload"`
	FromUserID domain.UserID   `json:"fromUserId"`
}

type CallEndedPayload struct {
	RoomID domain.RoomID `json:"roomId"`
	Reason string        `json:"reason"`
}

var reserved = map[string]struct{}{
	EventRegistered:        {},
	EventPresenceSnapshot:  {},
	EventCallIncoming:      {},
	EventCallInitiated:     {},
	EventCallRequestFailed: {},
	EventCallAccepted:      {},
	EventCallRejected:      {},
	EventCallSignal:        {},
	EventCallEnded:         {},
	EventPong:              {},
	EventWhoAmI:            {},
}

// Reserved reports whether event belongs to the hub's own vocabulary and
// so cannot be pushed by an outside collaborator.
func Reserved(event string) bool {
	_, ok := reserved[event]
	return ok
}
