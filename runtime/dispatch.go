package runtime

import (
	"chat-session/domain"
	"chat-session/domain/event"
	"chat-session/errors"
	"chat-session/invitation"
	stdErrors "errors"
	"fmt"
)

func (s *Session) applyState(state domain.ConnectionState) {
	s.emit(event.ConnectionChanged{State: state, At: s.now()})
	if _, err := s.rooms.OnConnectionState(state); err != nil {
		s.log.Warn("Unable to rejoin room", "room", s.rooms.ActiveRoom(), "error", err)
	}
}

// route applies one inbound frame. Unknown and malformed frames are counted and
// dropped, the loop keeps going.
func (s *Session) route(frame event.Frame) {
	if err := s.apply(frame); err != nil {
		switch {
		case stdErrors.Is(err, errors.ErrMalformedEvent):
			s.monitoring.IncrMalformed()
			s.log.Warn("Dropping malformed event", "event", frame.Event, "error", err)
		case stdErrors.Is(err, errors.ErrUnknownEvent):
			s.monitoring.IncrUnknown()
			s.log.Debug("Dropping unknown event", "event", frame.Event)
		default:
			s.log.Warn("Unable to apply event", "event", frame.Event, "error", err)
		}
		return
	}
	s.monitoring.IncrInbound(frame.Event)
}

func (s *Session) apply(frame event.Frame) error {
	switch frame.Event {
	case event.Connect, event.Disconnect:
		// state changes arrive through the state listener
		return nil
	case event.Message:
		msg, err := event.DecodeMessage(frame)
		if err != nil {
			return err
		}
		if appended, ok := s.rooms.OnMessage(msg); ok {
			s.emit(event.MessageAppended{Message: appended})
		}
	case event.Notification:
		raw, err := event.DecodeNotification(frame)
		if err != nil {
			return err
		}
		n, added := s.ledger.OnNotification(raw)
		if !added {
			return nil
		}
		s.emit(event.NotificationAdded{Notification: n})
		s.offer(s.handshake.OnNotification(n))
	case event.ActiveUsers:
		users, err := event.DecodeActiveUsers(frame)
		if err != nil {
			return err
		}
		members := s.rooms.OnActiveUsers(users)
		s.emit(event.MembersUpdated{Room: s.rooms.ActiveRoom(), Members: members})
	case event.PrivateChatRequest:
		req, err := event.DecodePrivateChatRequest(frame)
		if err != nil {
			return err
		}
		s.offer(s.handshake.OnPrivateChatRequest(req))
	default:
		return fmt.Errorf("%w: %s", errors.ErrUnknownEvent, frame.Event)
	}
	return nil
}

func (s *Session) offer(inv domain.Invitation, outcome invitation.Outcome) {
	if outcome == invitation.ConsentRequested {
		s.emit(event.ConsentRequested{Invitation: inv})
	}
}
