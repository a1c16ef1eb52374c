package domain

import "github.com/samber/lo"

type RoomID string

// PublicRoomID is the shared room every client falls back to after leaving.
const PublicRoomID RoomID = "public-room"

// Room is the active room as seen by this client.
// It is replaced, never merged, when the client switches rooms.
type Room struct {
	ID       RoomID
	members  []UserRef
	messages []Message
}

func NewRoom(id RoomID) *Room {
	return &Room{
		ID:       id,
		members:  nil,
		messages: nil,
	}
}

// PostMessage appends in arrival order.
func (r *Room) PostMessage(message Message) {
	r.messages = append(r.messages, message)
}

// SetMembers replaces the membership list wholesale, last write wins.
func (r *Room) SetMembers(members []UserRef) {
	r.members = lo.UniqBy(members, func(u UserRef) string { return u.UserID })
}

func (r *Room) Messages() []Message {
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

func (r *Room) Members() []UserRef {
	out := make([]UserRef, len(r.members))
	copy(out, r.members)
	return out
}
