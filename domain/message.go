// Package domain contains core concepts of the chat session.
// This file defines Message values received from the active room.
// Messages are immutable once received.
package domain

import (
	"github.com/google/uuid"
	"time"
)

// Message represents an immutable chat line, ordered by arrival.
type Message struct {
	ID          uuid.UUID // local identifier, assigned on receipt
	Room        RoomID
	UserID      string
	DisplayName string
	Body        string
	ReceivedAt  time.Time
}
