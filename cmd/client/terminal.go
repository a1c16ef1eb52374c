package main

import (
	"chat-session/contract"
	"chat-session/domain"
	"chat-session/domain/event"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

var (
	_ contract.EventSink = (*terminal)(nil)
	_ contract.Locator   = (*terminal)(nil)
)

var (
	styleInfo    = color.New(color.FgCyan)
	styleAuthor  = color.New(color.FgGreen, color.OpBold)
	styleAlert   = color.New(color.FgYellow, color.OpBold)
	styleError   = color.New(color.FgRed)
	stylePrompt  = color.New(color.BgBlack, color.FgGreen)
	styleSubdued = color.New(color.FgDarkGray)
)

// terminal renders session events and keeps the prompt on the active room.
type terminal struct {
	mu   sync.Mutex
	out  io.Writer
	room domain.RoomID
}

func newTerminal(out io.Writer) *terminal {
	return &terminal{out: out}
}

func (t *terminal) SetLocation(roomID domain.RoomID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.room = roomID
}

func (t *terminal) Prompt(roomID domain.RoomID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.room == "" {
		t.room = roomID
	}
	fmt.Fprint(t.out, stylePrompt.Render(fmt.Sprintf("[%s]>", t.room))+" ")
}

func (t *terminal) Consume(ctx context.Context, evt event.SessionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line := render(evt)
	if line == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.out, line)
	return err
}

func (t *terminal) Println(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, line)
}

func (t *terminal) Error(err error) {
	t.Println(styleError.Sprintf("error: %v", err))
}

func render(evt event.SessionEvent) string {
	switch e := evt.(type) {
	case event.ConnectionChanged:
		return styleInfo.Sprintf("* %s", e.State)
	case event.MessageAppended:
		return fmt.Sprintf("%s %s: %s",
			styleSubdued.Sprint(e.Message.ReceivedAt.Format(time.TimeOnly)),
			styleAuthor.Sprint(displayName(e.Message.DisplayName, e.Message.UserID)),
			e.Message.Body)
	case event.MembersUpdated:
		names := make([]string, 0, len(e.Members))
		for _, m := range e.Members {
			names = append(names, displayName(m.DisplayName, m.UserID))
		}
		return styleInfo.Sprintf("* in %s: %s", e.Room, strings.Join(names, ", "))
	case event.NotificationAdded:
		return styleAlert.Sprintf("! %s", e.Notification.Message)
	case event.ConsentRequested:
		return styleAlert.Sprintf("? %s invites you to %s, /accept or /decline",
			displayName(e.Invitation.InviterName, e.Invitation.InviterUserID), e.Invitation.TargetRoomID)
	case event.InvitationAccepted:
		return styleInfo.Sprintf("* now chatting privately in %s", e.Invitation.TargetRoomID)
	case event.InvitationDeclined:
		return styleSubdued.Sprintf("* declined invitation to %s", e.Invitation.TargetRoomID)
	case event.RoomChanged:
		return styleInfo.Sprintf("* %s -> %s", e.From, e.To)
	default:
		return ""
	}
}

func displayName(name, userID string) string {
	if name != "" {
		return name
	}
	return userID
}

func renderNotifications(out io.Writer, notifications []domain.Notification) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Received", "Type", "From", "Message"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, n := range notifications {
		table.Append([]string{
			n.ReceivedAt.Format(time.DateTime),
			n.EventType.String(),
			n.SourceUserID,
			n.Message,
		})
	}
	table.Render()
}
