package internal

import (
	"chat-session/domain"
	"chat-session/errors"
	"chat-session/runtime"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDebugHandler_Serves_Snapshot(t *testing.T) {
	req := require.New(t)
	snap := runtime.Snapshot{
		State: domain.Connected,
		Room:  "room-42",
		Notifications: []domain.Notification{{
			DerivedKind:  domain.KindFollow,
			SourceUserID: "u2",
			Message:      "Bob has followed you.",
			ReceivedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		}},
		Handshake: domain.HandshakeState{
			Status:  domain.PendingConsent,
			Current: &domain.Invitation{TargetRoomID: "room-7"},
		},
		PersistErr: fmt.Errorf("%w: disk full", errors.ErrPersist),
	}
	server := httptest.NewServer(DebugHandler(func() runtime.Snapshot { return snap }))
	defer server.Close()

	resp, err := http.Get(server.URL + "/debug/session")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var view DebugView
	req.NoError(json.NewDecoder(resp.Body).Decode(&view))
	req.Equal("connected", view.State)
	req.Equal(domain.RoomID("room-42"), view.Room)
	req.Equal("pending_consent", view.Handshake)
	req.Equal(domain.RoomID("room-7"), view.PendingRoom)
	req.Contains(view.PersistErr, "disk full")
	req.Len(view.Notifications, 1)
	req.Equal(domain.KindFollow, view.Notifications[0].Kind)
}
