package app

import (
	"encoding/json"
	"time"

	"github.com/dkeye/callhub/internal/core"
	"github.com/dkeye/callhub/internal/domain"
	"github.com/dkeye/callhub/internal/protocol"
	"github.com/rs/zerolog/log"
)

// CallSessionManager runs the per-room state machine:
//
//	REQUESTED --accept(receiver)--> ACCEPTED
//	REQUESTED --reject(receiver)--> REJECTED
//	REQUESTED|ACCEPTED --end(party) or disconnect(party)--> ENDED
//
// Terminal states are never stored; reaching one deletes the room.
// A user may be party to any number of rooms at once.
type CallSessionManager struct {
	store    core.Store
	registry *ConnectionRegistry
	out      core.Outbox

	newRoomID func() domain.RoomID
	now       func() time.Time
}

func NewCallSessionManager(store core.Store, registry *ConnectionRegistry, out core.Outbox) *CallSessionManager {
	return &CallSessionManager{
		store:     store,
		registry:  registry,
		out:       out,
		newRoomID: domain.NewRoomID,
		now:       time.Now,
	}
}

// RequestCall opens a REQUESTED room if the receiver is online. The caller
// gets callInitiated or callRequestFailed, the receiver callIncoming.
func (m *CallSessionManager) RequestCall(caller, receiver domain.UserID, callerInfo json.RawMessage) (domain.RoomID, error) {
	if caller == receiver {
		m.notify(caller, protocol.EventCallRequestFailed, protocol.CallRequestFailedPayload{
			Reason:       core.ErrSelfCall.Error(),
			TargetUserID: receiver,
		})
		return "", core.ErrSelfCall
	}
	if _, ok := m.registry.Lookup(receiver); !ok {
		m.notify(caller, protocol.EventCallRequestFailed, protocol.CallRequestFailedPayload{
			Reason:       protocol.ReasonTargetOffline,
			TargetUserID: receiver,
		})
		return "", core.ErrTargetOffline
	}

	s := domain.CallSession{
		RoomID:     m.newRoomID(),
		CallerID:   caller,
		ReceiverID: receiver,
		Status:     domain.CallRequested,
		CreatedAt:  m.now(),
	}
	m.store.PutSession(s)
	log.Info().Str("module", "app.calls").Str("room", string(s.RoomID)).Str("caller", string(caller)).Str("receiver", string(receiver)).Msg("call requested")

	m.notify(caller, protocol.EventCallInitiated, protocol.CallInitiatedPayload{RoomID: s.RoomID, TargetUserID: receiver})
	m.notify(receiver, protocol.EventCallIncoming, protocol.CallIncomingPayload{
		RoomID:    s.RoomID,
		Caller:    callerInfo,
		Timestamp: s.CreatedAt,
	})
	return s.RoomID, nil
}

// AcceptCall moves a REQUESTED room to ACCEPTED and tells both parties, so
// either client can converge without knowing who sent the accept.
func (m *CallSessionManager) AcceptCall(room domain.RoomID, actor domain.UserID) error {
	s, ok := m.store.Session(room)
	if !ok {
		return core.ErrRoomNotFound
	}
	if actor != s.ReceiverID {
		return core.ErrNotParty
	}
	if s.Status != domain.CallRequested {
		return core.ErrInvalidTransition
	}
	s.Status = domain.CallAccepted
	m.store.PutSession(s)
	log.Info().Str("module", "app.calls").Str("room", string(room)).Msg("call accepted")

	payload := protocol.CallAcceptedPayload{RoomID: room}
	m.notify(s.CallerID, protocol.EventCallAccepted, payload)
	m.notify(s.ReceiverID, protocol.EventCallAccepted, payload)
	return nil
}

// RejectCall closes a REQUESTED room and tells the caller why.
func (m *CallSessionManager) RejectCall(room domain.RoomID, actor domain.UserID, reason string) error {
	s, ok := m.store.Session(room)
	if !ok {
		return core.ErrRoomNotFound
	}
	if actor != s.ReceiverID {
		return core.ErrNotParty
	}
	if s.Status != domain.CallRequested {
		return core.ErrInvalidTransition
	}
	if reason == "" {
		reason = protocol.DefaultRejectReason
	}
	m.store.DeleteSession(room)
	log.Info().Str("module", "app.calls").Str("room", string(room)).Str("reason", reason).Msg("call rejected")

	m.notify(s.CallerID, protocol.EventCallRejected, protocol.CallRejectedPayload{RoomID: room, Reason: reason})
	return nil
}

// EndCall closes the room and tells the other party only. A second end for
// the same room finds nothing and reports ErrRoomNotFound without notifying.
func (m *CallSessionManager) EndCall(room domain.RoomID, actor domain.UserID) error {
	s, ok := m.store.Session(room)
	if !ok {
		return core.ErrRoomNotFound
	}
	peer, ok := s.Peer(actor)
	if !ok {
		return core.ErrNotParty
	}
	m.store.DeleteSession(room)
	log.Info().Str("module", "app.calls").Str("room", string(room)).Str("by", string(actor)).Msg("call ended")

	m.notify(peer, protocol.EventCallEnded, protocol.CallEndedPayload{RoomID: room, Reason: protocol.ReasonCallEnded})
	return nil
}

// PurgeForUser ends every room the user is party to and tells each
// counterpart. It returns the number of rooms removed.
func (m *CallSessionManager) PurgeForUser(user domain.UserID) int {
	sessions := m.store.SessionsOf(user)
	for _, s := range sessions {
		m.store.DeleteSession(s.RoomID)
		peer, _ := s.Peer(user)
		m.notify(peer, protocol.EventCallEnded, protocol.CallEndedPayload{
			RoomID: s.RoomID,
			Reason: protocol.ReasonPeerDisconnected,
		})
		log.Info().Str("module", "app.calls").Str("room", string(s.RoomID)).Str("user", string(user)).Msg("call purged")
	}
	return len(sessions)
}

// Session exposes a read-only copy for the relay and diagnostics.
func (m *CallSessionManager) Session(room domain.RoomID) (domain.CallSession, bool) {
	return m.store.Session(room)
}

func (m *CallSessionManager) notify(user domain.UserID, event string, payload any) bool {
	conn, ok := m.registry.Lookup(user)
	if !ok {
		log.Debug().Str("module", "app.calls").Str("user", string(user)).Str("event", event).Msg("recipient offline, skipped")
		return false
	}
	if err := m.out.Deliver(conn, event, payload); err != nil {
		log.Warn().Err(err).Str("module", "app.calls").Str("user", string(user)).Str("event", event).Msg("deliver failed")
		return false
	}
	return true
}
