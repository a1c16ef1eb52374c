package event

import (
	"chat-session/domain"
	"time"
)

// SessionEvent is published to observers after the session state changed.
type SessionEvent interface {
	Name() string
}

type ConnectionChanged struct {
	State domain.ConnectionState
	At    time.Time
}

func (ConnectionChanged) Name() string { return "connection_changed" }

type MessageAppended struct {
	Message domain.Message
}

func (MessageAppended) Name() string { return "message_appended" }

type MembersUpdated struct {
	Room    domain.RoomID
	Members []domain.UserRef
}

func (MembersUpdated) Name() string { return "members_updated" }

type NotificationAdded struct {
	Notification domain.Notification
}

func (NotificationAdded) Name() string { return "notification_added" }

// ConsentRequested asks the UI to call Accept or Decline later.
type ConsentRequested struct {
	Invitation domain.Invitation
}

func (ConsentRequested) Name() string { return "consent_requested" }

type InvitationAccepted struct {
	Invitation domain.Invitation
}

func (InvitationAccepted) Name() string { return "invitation_accepted" }

type InvitationDeclined struct {
	Invitation domain.Invitation
}

func (InvitationDeclined) Name() string { return "invitation_declined" }

type RoomChanged struct {
	From domain.RoomID
	To   domain.RoomID
}

func (RoomChanged) Name() string { return "room_changed" }
