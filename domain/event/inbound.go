package event

import (
	"chat-session/errors"
	"encoding/json"
	"fmt"
)

// MessageReceived may carry the room it was fanned out to; without it the
// message belongs to whichever room is active on receipt.
type MessageReceived struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Message string `json:"message"`
	Room    string `json:"room,omitempty"`
}

// NotificationReceived accepts both {event_type, message, additional_data}
// and the flat {notification_id, message, room_id|post_id} shape.
type NotificationReceived struct {
	NotificationID string         `json:"notification_id,omitempty"`
	EventType      *int           `json:"event_type,omitempty"`
	Message        string         `json:"message"`
	UserID         string         `json:"user_id,omitempty"`
	RoomID         string         `json:"room_id,omitempty"`
	PostID         string         `json:"post_id,omitempty"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`
}

type ActiveUser struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type PrivateChatRequested struct {
	InvitedUserID string `json:"invited_user_id"`
	Name          string `json:"name"`
	UserID        string `json:"user_id,omitempty"`
	PrivateRoomID string `json:"private_room_id"`
}

func DecodeMessage(f Frame) (MessageReceived, error) {
	return decode[MessageReceived](f)
}

func DecodeNotification(f Frame) (NotificationReceived, error) {
	n, err := decode[NotificationReceived](f)
	if err != nil {
		return n, err
	}
	if n.Message == "" && n.EventType == nil {
		return n, fmt.Errorf("%w: notification without message or event_type", errors.ErrMalformedEvent)
	}
	return n, nil
}

func DecodePrivateChatRequest(f Frame) (PrivateChatRequested, error) {
	r, err := decode[PrivateChatRequested](f)
	if err != nil {
		return r, err
	}
	if r.InvitedUserID == "" || r.PrivateRoomID == "" {
		return r, fmt.Errorf("%w: private_chat_request without invited_user_id or private_room_id", errors.ErrMalformedEvent)
	}
	return r, nil
}

// DecodeActiveUsers reads either a bare list or the {"users": [...]} reply.
func DecodeActiveUsers(f Frame) ([]ActiveUser, error) {
	var users []ActiveUser
	if err := json.Unmarshal(f.Data, &users); err == nil {
		return users, nil
	}
	wrapped, err := decode[struct {
		Users []ActiveUser `json:"users"`
	}](f)
	if err != nil {
		return nil, err
	}
	return wrapped.Users, nil
}

func decode[T any](f Frame) (T, error) {
	var v T
	if len(f.Data) == 0 {
		return v, fmt.Errorf("%w: %s without payload", errors.ErrMalformedEvent, f.Event)
	}
	if err := json.Unmarshal(f.Data, &v); err != nil {
		return v, fmt.Errorf("%w: %s: %v", errors.ErrMalformedEvent, f.Event, err)
	}
	return v, nil
}
