package runtime

import (
	"chat-session/auth"
	"chat-session/contract"
	"chat-session/domain/event"
)

var _ contract.Emitter = (*transportEmitter)(nil)

// transportEmitter validates outbound payloads then writes them on the transport.
type transportEmitter struct {
	transport contract.Transport
}

func (e transportEmitter) Emit(name string, payload any) error {
	switch p := payload.(type) {
	case event.SetNotificationPayload:
		if err := auth.ValidateSetNotification(p); err != nil {
			return err
		}
	case event.SendMessagePayload, event.PrivateChatInvitePayload:
		if err := auth.ValidateOutbound(p); err != nil {
			return err
		}
	}
	return e.transport.Send(name, payload)
}
