// Package projection builds the local view of the session from inbound events.
// Handles ordering, deduplication, and the bounded notification snapshot.
// Does not read the network or talk to the UI directly.
package projection

import (
	"chat-session/contract"
	"chat-session/domain"
	"chat-session/domain/event"
	"chat-session/observability"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// RoomState tracks the single active room. It is driven only from the dispatch path.
type RoomState struct {
	log             *slog.Logger
	emitter         contract.Emitter
	monitoring      *observability.MonitoringManager
	publicRoom      domain.RoomID
	room            *domain.Room
	connectedBefore bool
	now             func() time.Time
}

func NewRoomState(log *slog.Logger, emitter contract.Emitter,
	monitoring *observability.MonitoringManager, publicRoom domain.RoomID) *RoomState {
	if publicRoom == "" {
		publicRoom = domain.PublicRoomID
	}
	return &RoomState{
		log:        log,
		emitter:    emitter,
		monitoring: monitoring,
		publicRoom: publicRoom,
		room:       domain.NewRoom(publicRoom),
		now:        time.Now,
	}
}

func (r *RoomState) ActiveRoom() domain.RoomID { return r.room.ID }

func (r *RoomState) PublicRoom() domain.RoomID { return r.publicRoom }

func (r *RoomState) Messages() []domain.Message { return r.room.Messages() }

func (r *RoomState) Members() []domain.UserRef { return r.room.Members() }

// Join sends join and makes roomID the active room with an empty history.
// The local switch happens even when the send fails; a reconnect rejoins it.
func (r *RoomState) Join(roomID domain.RoomID) error {
	err := r.emitter.Emit(event.Join, event.RoomPayload{Room: string(roomID)})
	r.room = domain.NewRoom(roomID)
	if err != nil {
		return fmt.Errorf("join %s: %w", roomID, err)
	}
	r.log.Debug("Joined room", "room", roomID)
	return nil
}

// Leave sends leave for the active room and falls back to the public room.
func (r *RoomState) Leave() error {
	current := r.room.ID
	err := r.emitter.Emit(event.Leave, event.RoomPayload{Room: string(current)})
	r.room = domain.NewRoom(r.publicRoom)
	if err != nil {
		return fmt.Errorf("leave %s: %w", current, err)
	}
	r.log.Debug("Left room", "room", current)
	return nil
}

// OnMessage appends a message addressed to the active room. Messages for any
// other room are stale and discarded.
func (r *RoomState) OnMessage(msg event.MessageReceived) (domain.Message, bool) {
	if msg.Room != "" && domain.RoomID(msg.Room) != r.room.ID {
		r.monitoring.IncrStaleMessage()
		r.log.Debug("Discarding message for stale room", "room", msg.Room, "active", r.room.ID)
		return domain.Message{}, false
	}
	message := domain.Message{
		ID:          uuid.New(),
		Room:        r.room.ID,
		UserID:      msg.UserID,
		DisplayName: msg.Name,
		Body:        msg.Message,
		ReceivedAt:  r.now(),
	}
	r.room.PostMessage(message)
	return message, true
}

// OnActiveUsers replaces the membership list, no diffing.
func (r *RoomState) OnActiveUsers(users []event.ActiveUser) []domain.UserRef {
	r.room.SetMembers(lo.Map(users, func(u event.ActiveUser, _ int) domain.UserRef {
		return domain.UserRef{UserID: u.UserID, DisplayName: u.Name}
	}))
	return r.room.Members()
}

// OnConnectionState joins the active room whenever the transport reaches Connected.
// The first connection enters the initial room, later ones rejoin the active room
// after a loss and report true.
func (r *RoomState) OnConnectionState(state domain.ConnectionState) (bool, error) {
	if state != domain.Connected {
		return false, nil
	}
	rejoin := r.connectedBefore
	r.connectedBefore = true
	if err := r.emitter.Emit(event.Join, event.RoomPayload{Room: string(r.room.ID)}); err != nil {
		return false, fmt.Errorf("join %s on connect: %w", r.room.ID, err)
	}
	if rejoin {
		r.log.Info("Rejoined room after reconnect", "room", r.room.ID)
	} else {
		r.log.Debug("Entered initial room", "room", r.room.ID)
	}
	return rejoin, nil
}
