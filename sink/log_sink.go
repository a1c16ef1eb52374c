package sink

import (
	"chat-session/domain/event"
	"context"
	"fmt"
	"log/slog"
)

// LogSink writes session events to the structured log.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) LogSink {
	return LogSink{log: log}
}

func (s LogSink) Consume(ctx context.Context, e event.SessionEvent) error {
	switch evt := e.(type) {
	case event.ConnectionChanged:
		s.log.InfoContext(ctx, "Connection changed", "state", evt.State)
	case event.RoomChanged:
		s.log.InfoContext(ctx, "Room changed", "from", evt.From, "to", evt.To)
	case event.ConsentRequested:
		s.log.InfoContext(ctx, "Invitation received", "inviter", evt.Invitation.InviterUserID, "room", evt.Invitation.TargetRoomID)
	case event.InvitationAccepted:
		s.log.InfoContext(ctx, "Invitation accepted", "room", evt.Invitation.TargetRoomID)
	case event.InvitationDeclined:
		s.log.InfoContext(ctx, "Invitation declined", "room", evt.Invitation.TargetRoomID)
	case event.NotificationAdded:
		s.log.DebugContext(ctx, "Notification added", "kind", evt.Notification.DerivedKind, "from", evt.Notification.SourceUserID)
	case event.MessageAppended:
		s.log.DebugContext(ctx, "Message appended", "room", evt.Message.Room, "from", evt.Message.UserID)
	case event.MembersUpdated:
		s.log.DebugContext(ctx, "Members updated", "room", evt.Room, "count", len(evt.Members))
	default:
		s.log.Debug(fmt.Sprintf("Not implemented event : %v", evt))
	}
	return nil
}
