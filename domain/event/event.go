package event

import (
	"encoding/json"
	"fmt"
)

// Wire event names.
const (
	Connect            = "connect"
	Disconnect         = "disconnect"
	Notification       = "notification"
	Message            = "message"
	ActiveUsers        = "active_users"
	PrivateChatRequest = "private_chat_request"
	Join               = "join"
	Leave              = "leave"
	SetNotification    = "set:notification"

	// Wildcard subscribes a handler to every inbound event.
	Wildcard = "*"
)

// Frame is one event on the duplex channel: a name plus its JSON payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewFrame(name string, payload any) (Frame, error) {
	if payload == nil {
		return Frame{Event: name}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return Frame{Event: name, Data: data}, nil
}
