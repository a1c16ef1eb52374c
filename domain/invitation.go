package domain

import "time"

type InvitationStatus int

const (
	Idle InvitationStatus = iota
	PendingConsent
	Accepted
	Declined
)

func (s InvitationStatus) String() string {
	switch s {
	case PendingConsent:
		return "pending_consent"
	case Accepted:
		return "accepted"
	case Declined:
		return "declined"
	default:
		return "idle"
	}
}

// Invitation is a request to move the local user into a private room.
type Invitation struct {
	InviterUserID string
	InviterName   string
	InvitedUserID string
	TargetRoomID  RoomID
	ReceivedAt    time.Time
}

// HandshakeState is a read-only view of the invitation handshake.
type HandshakeState struct {
	Status  InvitationStatus
	Current *Invitation
	Queued  []Invitation
}
