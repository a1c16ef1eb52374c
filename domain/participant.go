// Package domain contains core concepts of the chat session.
// This file defines participant identities.
// No runtime, network, or UI logic should be added here.
package domain

// UserRef is identity only: it owns neither rooms nor messages.
type UserRef struct {
	UserID      string
	DisplayName string
}
