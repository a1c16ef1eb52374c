package internal

import (
	"chat-session/domain"
	"chat-session/observability"
	"chat-session/runtime"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DebugView is the JSON shape of a session snapshot.
type DebugView struct {
	State         string                     `json:"state"`
	Room          domain.RoomID              `json:"room"`
	Members       []domain.UserRef           `json:"members"`
	Messages      int                        `json:"messages"`
	Notifications []DebugNotification        `json:"notifications"`
	Handshake     string                     `json:"handshake"`
	PendingRoom   domain.RoomID              `json:"pending_room,omitempty"`
	Queued        int                        `json:"queued_invitations"`
	PersistErr    string                     `json:"persist_error,omitempty"`
	Stats         observability.SessionStats `json:"stats"`
}

type DebugNotification struct {
	ReceivedAt time.Time          `json:"received_at"`
	Kind       domain.DerivedKind `json:"kind"`
	From       string             `json:"from"`
	Message    string             `json:"message"`
}

func NewDebugView(snap runtime.Snapshot) DebugView {
	view := DebugView{
		State:     snap.State.String(),
		Room:      snap.Room,
		Members:   snap.Members,
		Messages:  len(snap.Messages),
		Handshake: snap.Handshake.Status.String(),
		Queued:    len(snap.Handshake.Queued),
		Stats:     snap.Stats,
	}
	if snap.Handshake.Current != nil {
		view.PendingRoom = snap.Handshake.Current.TargetRoomID
	}
	if snap.PersistErr != nil {
		view.PersistErr = snap.PersistErr.Error()
	}
	for _, n := range snap.Notifications {
		view.Notifications = append(view.Notifications, DebugNotification{
			ReceivedAt: n.ReceivedAt,
			Kind:       n.DerivedKind,
			From:       n.SourceUserID,
			Message:    n.Message,
		})
	}
	return view
}

// DebugHandler serves the current snapshot as JSON on every GET.
func DebugHandler(snapshot func() runtime.Snapshot) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /debug/session", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(NewDebugView(snapshot()))
	})
	return mux
}

// StartDebugServer listens on localhost:port until ctx is done.
func StartDebugServer(ctx context.Context, log *slog.Logger, port int, handler http.Handler) {
	server := &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	go func() {
		log.Info("Debug server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("Debug server stopped", "error", err)
		}
	}()
}
