// Package invitation runs the consent-gated move from the public room into a
// private room. Consent is asynchronous: an offer only requests it, and the
// decision arrives later through Accept or Decline.
package invitation

import (
	"chat-session/contract"
	"chat-session/domain"
	"chat-session/domain/event"
	"chat-session/errors"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/lo"
)

const DefaultQueueSize = 4

// Rooms is the part of the room state the handshake drives on acceptance.
type Rooms interface {
	ActiveRoom() domain.RoomID
	Leave() error
	Join(roomID domain.RoomID) error
}

// ViewClearer hides the live notification view once the user moved rooms.
type ViewClearer interface {
	ClearView()
}

type Outcome int

const (
	// Ignored covers invitations addressed to someone else, duplicates and overflow.
	Ignored Outcome = iota
	ConsentRequested
	Queued
)

// Resolution describes what a decision did.
type Resolution struct {
	Invitation domain.Invitation
	From       domain.RoomID
	// Next is the queued invitation now waiting for consent, if any.
	Next *domain.Invitation
}

type Handshake struct {
	log       *slog.Logger
	sessions  contract.SessionStore
	rooms     Rooms
	view      ViewClearer
	locator   contract.Locator
	queueSize int
	now       func() time.Time
	status    domain.InvitationStatus
	current   *domain.Invitation
	queue     []domain.Invitation
}

func NewHandshake(log *slog.Logger, sessions contract.SessionStore, rooms Rooms, view ViewClearer,
	locator contract.Locator, queueSize int) *Handshake {
	return &Handshake{
		log:       log,
		sessions:  sessions,
		rooms:     rooms,
		view:      view,
		locator:   locator,
		queueSize: lo.Ternary(queueSize >= 0, queueSize, DefaultQueueSize),
		now:       time.Now,
	}
}

// OnPrivateChatRequest handles the room-wide private_chat_request event.
// Only the invitee reacts to it.
func (h *Handshake) OnPrivateChatRequest(req event.PrivateChatRequested) (domain.Invitation, Outcome) {
	user, ok := h.sessions.CurrentUser()
	if !ok || req.InvitedUserID != user.UserID {
		h.log.Debug("Ignoring private chat request for another user", "invited", req.InvitedUserID)
		return domain.Invitation{}, Ignored
	}
	inv := domain.Invitation{
		InviterUserID: req.UserID,
		InviterName:   req.Name,
		InvitedUserID: req.InvitedUserID,
		TargetRoomID:  domain.RoomID(req.PrivateRoomID),
		ReceivedAt:    h.now(),
	}
	return inv, h.offer(inv)
}

// OnNotification offers a private chat request notification. The backend only
// sends it to the invitee, so it is addressed to the local user by delivery.
func (h *Handshake) OnNotification(n domain.Notification) (domain.Invitation, Outcome) {
	if n.DerivedKind != domain.KindPrivateChatRequest {
		return domain.Invitation{}, Ignored
	}
	roomID, ok := n.PayloadString(domain.PayloadRoomID)
	if !ok {
		h.log.Debug("Private chat request notification without room", "notification_id", n.ID)
		return domain.Invitation{}, Ignored
	}
	user, ok := h.sessions.CurrentUser()
	if !ok {
		return domain.Invitation{}, Ignored
	}
	actor, _ := n.PayloadString(domain.PayloadActor)
	inv := domain.Invitation{
		InviterUserID: n.SourceUserID,
		InviterName:   actor,
		InvitedUserID: user.UserID,
		TargetRoomID:  domain.RoomID(roomID),
		ReceivedAt:    n.ReceivedAt,
	}
	return inv, h.offer(inv)
}

// Accept leaves the active room then joins the invitation's room. Send failures
// are returned but the local switch still happens; the transport rejoins the
// active room on reconnect.
func (h *Handshake) Accept() (Resolution, error) {
	if h.status != domain.PendingConsent {
		return Resolution{}, errors.ErrNoPendingInvitation
	}
	inv := *h.current
	from := h.rooms.ActiveRoom()
	h.status = domain.Accepted

	var errs []error
	if err := h.rooms.Leave(); err != nil {
		errs = append(errs, err)
	}
	if err := h.rooms.Join(inv.TargetRoomID); err != nil {
		errs = append(errs, err)
	}
	h.view.ClearView()
	h.locator.SetLocation(inv.TargetRoomID)
	h.log.Info("Accepted private chat", "inviter", inv.InviterName, "room", inv.TargetRoomID)

	res := Resolution{Invitation: inv, From: from, Next: h.promote()}
	if len(errs) > 0 {
		return res, fmt.Errorf("accept invitation to %s: %w", inv.TargetRoomID, stdErrors.Join(errs...))
	}
	return res, nil
}

// Decline drops the pending invitation without any room change.
func (h *Handshake) Decline() (Resolution, error) {
	if h.status != domain.PendingConsent {
		return Resolution{}, errors.ErrNoPendingInvitation
	}
	inv := *h.current
	h.log.Info("Declined private chat", "inviter", inv.InviterName, "room", inv.TargetRoomID)
	h.status = domain.Idle
	h.current = nil
	return Resolution{Invitation: inv, From: h.rooms.ActiveRoom(), Next: h.promote()}, nil
}

func (h *Handshake) State() domain.HandshakeState {
	var current *domain.Invitation
	if h.current != nil {
		c := *h.current
		current = &c
	}
	return domain.HandshakeState{
		Status:  h.status,
		Current: current,
		Queued:  slices.Clone(h.queue),
	}
}

func (h *Handshake) offer(inv domain.Invitation) Outcome {
	if inv.TargetRoomID == "" || inv.TargetRoomID == h.rooms.ActiveRoom() {
		return Ignored
	}
	if h.status == domain.PendingConsent && h.current.TargetRoomID == inv.TargetRoomID {
		return Ignored
	}
	if lo.ContainsBy(h.queue, func(q domain.Invitation) bool { return q.TargetRoomID == inv.TargetRoomID }) {
		return Ignored
	}
	if h.status != domain.PendingConsent {
		h.current = &inv
		h.status = domain.PendingConsent
		h.log.Info("Private chat consent requested", "inviter", inv.InviterName, "room", inv.TargetRoomID)
		return ConsentRequested
	}
	if len(h.queue) >= h.queueSize {
		h.log.Warn("Invitation queue full, dropping invitation", "inviter", inv.InviterName, "room", inv.TargetRoomID)
		return Ignored
	}
	h.queue = append(h.queue, inv)
	h.log.Debug("Queued invitation", "room", inv.TargetRoomID, "queued", len(h.queue))
	return Queued
}

// promote moves the oldest queued invitation to PendingConsent.
func (h *Handshake) promote() *domain.Invitation {
	if len(h.queue) == 0 {
		return nil
	}
	next := h.queue[0]
	h.queue = h.queue[1:]
	h.current = &next
	h.status = domain.PendingConsent
	h.log.Info("Private chat consent requested", "inviter", next.InviterName, "room", next.TargetRoomID)
	return &next
}
