package hub

import (
	"errors"
	"fmt"

	"github.com/dkeye/callhub/internal/core"
	"github.com/dkeye/callhub/internal/domain"
	"github.com/dkeye/callhub/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func (h *Hub) register(id domain.ConnectionID, user domain.UserID) error {
	if _, ok := h.out.links[id]; !ok {
		return core.ErrConnectionNotFound
	}
	if cur, ok := h.registry.UserOf(id); ok && cur != user {
		return core.ErrAlreadyRegistered
	}
	h.registry.Register(user, id)
	return h.out.Deliver(id, protocol.EventRegistered, protocol.RegisteredPayload{UserID: user, ConnectionID: id})
}

func (h *Hub) dispatch(id domain.ConnectionID, frame []byte) error {
	if _, ok := h.out.links[id]; !ok {
		return core.ErrConnectionNotFound
	}
	env, err := protocol.Decode(frame)
	if err != nil {
		h.logOutcome(id, "", err)
		return err
	}

	switch env.Type {
	case protocol.EventPing:
		err = h.out.Deliver(id, protocol.EventPong, nil)
	case protocol.EventWhoAmI:
		user, _ := h.registry.UserOf(id)
		err = h.out.Deliver(id, protocol.EventWhoAmI, protocol.WhoAmIPayload{UserID: user, ConnectionID: id})
	case protocol.EventRequestPresence:
		err = h.presence.SendTo(id)
	case protocol.EventRegister:
		err = h.handleRegister(id, env)
	case protocol.EventCallRequest, protocol.EventCallAccept, protocol.EventCallReject,
		protocol.EventCallSignal, protocol.EventCallEnd:
		user, ok := h.registry.UserOf(id)
		if !ok {
			err = core.ErrNotRegistered
			break
		}
		err = h.handleCall(user, env)
	default:
		err = fmt.Errorf("%w: unknown event %q", core.ErrMalformedEvent, env.Type)
	}

	h.logOutcome(id, env.Type, err)
	return err
}

func (h *Hub) handleRegister(id domain.ConnectionID, env protocol.Envelope) error {
	var p protocol.RegisterPayload
	if err := env.Bind(&p); err != nil {
		return err
	}
	user, err := domain.ParseUserID(p.UserID)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrMalformedEvent, err)
	}
	return h.register(id, user)
}

func (h *Hub) handleCall(user domain.UserID, env protocol.Envelope) error {
	switch env.Type {
	case protocol.EventCallRequest:
		var p protocol.CallRequestPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		target, err := domain.ParseUserID(p.TargetUserID)
		if err != nil {
			return fmt.Errorf("%w: %w", core.ErrMalformedEvent, err)
		}
		_, err = h.calls.RequestCall(user, target, p.CallerInfo)
		return err

	case protocol.EventCallAccept:
		var p protocol.CallAcceptPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		return h.calls.AcceptCall(domain.RoomID(p.RoomID), user)

	case protocol.EventCallReject:
		var p protocol.CallRejectPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		return h.calls.RejectCall(domain.RoomID(p.RoomID), user, p.Reason)

	case protocol.EventCallSignal:
		var p protocol.CallSignalPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		target, err := domain.ParseUserID(p.TargetUserID)
		if err != nil {
			return fmt.Errorf("%w: %w", core.ErrMalformedEvent, err)
		}
		h.relay.Forward(domain.RoomID(p.RoomID), p.Payload, target, user)
		return nil

	case protocol.EventCallEnd:
		var p protocol.CallEndPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		return h.calls.EndCall(domain.RoomID(p.RoomID), user)
	}
	return fmt.Errorf("%w: unknown event %q", core.ErrMalformedEvent, env.Type)
}

// logOutcome picks a level by how interesting the failure is. Stale room
// ids and offline targets are routine; protocol abuse is not.
func (h *Hub) logOutcome(id domain.ConnectionID, event string, err error) {
	if err == nil {
		return
	}
	var ev *zerolog.Event
	switch {
	case errors.Is(err, core.ErrRoomNotFound), errors.Is(err, core.ErrBackpressure),
		errors.Is(err, core.ErrConnectionClosed):
		ev = log.Debug()
	case errors.Is(err, core.ErrTargetOffline), errors.Is(err, core.ErrSelfCall):
		ev = log.Info()
	default:
		ev = log.Warn()
	}
	ev.Str("module", "hub").Str("conn", string(id)).Str("event", event).Err(err).Msg("event rejected")
}
