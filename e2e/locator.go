package e2e

import "chat-session/domain"

type noopLocator struct{}

func (noopLocator) SetLocation(domain.RoomID) {}
