package main

import (
	"bytes"
	"chat-session/domain"
	"chat-session/domain/event"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseNotify(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		eventType domain.EventType
		userID    string
		data      map[string]any
		wantErr   bool
	}{
		{"numeric type", []string{"0", "u2"}, domain.Follow, "u2", map[string]any{}, false},
		{"named type with data", []string{"private_chat_request", "u2", "room_id=room-42"},
			domain.PrivateChatRequest, "u2", map[string]any{"room_id": "room-42"}, false},
		{"missing user", []string{"follow"}, 0, "", nil, true},
		{"unknown name", []string{"poke", "u2"}, 0, "", nil, true},
		{"bad pair", []string{"follow", "u2", "room_id"}, 0, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			eventType, userID, data, err := parseNotify(tt.args)
			if tt.wantErr {
				req.Error(err)
				return
			}
			req.NoError(err)
			req.Equal(tt.eventType, eventType)
			req.Equal(tt.userID, userID)
			req.Equal(tt.data, data)
		})
	}
}

func TestTerminal_Renders_Consent_Request(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	term := newTerminal(&out)

	err := term.Consume(context.Background(), event.ConsentRequested{Invitation: domain.Invitation{
		InviterName: "Bob", TargetRoomID: "room-42",
	}})

	req.NoError(err)
	req.Contains(out.String(), "Bob invites you to room-42")
}

func TestTerminal_Location_Drives_Prompt(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	term := newTerminal(&out)

	term.Prompt(domain.PublicRoomID)
	term.SetLocation("room-42")
	term.Prompt(domain.PublicRoomID)

	req.Contains(out.String(), "[public-room]>")
	req.Contains(out.String(), "[room-42]>")
}

func TestRenderNotifications(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer

	renderNotifications(&out, []domain.Notification{{
		EventType:    domain.Follow,
		SourceUserID: "u2",
		Message:      "Bob has followed you.",
		ReceivedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}})

	req.Contains(out.String(), "Bob has followed you.")
	req.Contains(out.String(), "follow")
}
