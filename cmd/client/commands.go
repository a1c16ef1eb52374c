package main

import (
	"bytes"
	"chat-session/domain"
	"chat-session/runtime"
	"context"
	"fmt"
	"strconv"
	"strings"
)

const usage = `/join <room>               join a room
/leave                     back to the public room
/accept | /decline         answer the pending invitation
/invite <user_id> <room>   invite a user into a private room
/notify <type> <user_id> [key=value...]
/users                     list the members of the active room
/notifications             show the notification ledger
/stats                     session counters
/connect | /disconnect
/quit`

type commandLine struct {
	session *runtime.Session
	term    *terminal
}

func newCommandLine(session *runtime.Session, term *terminal) *commandLine {
	return &commandLine{session: session, term: term}
}

// Execute runs one input line and reports whether the user asked to quit.
// Anything that is not a command is sent as a message to the active room.
func (c *commandLine) Execute(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		c.term.Prompt("")
		return false
	}
	if !strings.HasPrefix(line, "/") {
		c.report(c.session.SendMessage(ctx, line))
		return false
	}

	fields := strings.Fields(line)
	args := fields[1:]
	switch fields[0] {
	case "/quit":
		return true
	case "/join":
		if len(args) != 1 {
			c.term.Println(usage)
			break
		}
		c.report(c.session.Join(ctx, domain.RoomID(args[0])))
	case "/leave":
		c.report(c.session.Leave(ctx))
	case "/accept":
		c.report(c.session.Accept(ctx))
	case "/decline":
		c.report(c.session.Decline(ctx))
	case "/invite":
		if len(args) != 2 {
			c.term.Println(usage)
			break
		}
		c.report(c.session.InvitePrivate(ctx, args[0], domain.RoomID(args[1])))
	case "/notify":
		eventType, userID, data, err := parseNotify(args)
		if err != nil {
			c.term.Error(err)
			break
		}
		c.report(c.session.SendNotification(ctx, eventType, userID, data))
	case "/users":
		c.report(c.session.RequestActiveUsers(ctx))
	case "/notifications":
		snap := c.session.Snapshot()
		var buf bytes.Buffer
		renderNotifications(&buf, snap.Notifications)
		c.term.Println(strings.TrimRight(buf.String(), "\n"))
		if snap.PersistErr != nil {
			c.term.Error(snap.PersistErr)
		}
	case "/stats":
		stats := c.session.Snapshot().Stats
		c.term.Println(fmt.Sprintf("inbound=%v outbound=%d malformed=%d unknown=%d stale=%d reconnects=%d persist_failures=%d",
			stats.InboundByKind, stats.Outbound, stats.MalformedDropped, stats.UnknownDropped,
			stats.StaleMessages, stats.Reconnects, stats.PersistFailures))
	case "/connect":
		_, err := c.session.Connect(ctx)
		c.report(err)
	case "/disconnect":
		c.session.Disconnect()
	default:
		c.term.Println(usage)
	}
	c.term.Prompt("")
	return false
}

func (c *commandLine) report(err error) {
	if err != nil {
		c.term.Error(err)
	}
}

// parseNotify reads "<type> <user_id> [key=value...]", type being a number or a name.
func parseNotify(args []string) (domain.EventType, string, map[string]any, error) {
	if len(args) < 2 {
		return 0, "", nil, fmt.Errorf("usage: /notify <type> <user_id> [key=value...]")
	}
	eventType, err := parseEventType(args[0])
	if err != nil {
		return 0, "", nil, err
	}
	data := make(map[string]any, len(args)-2)
	for _, kv := range args[2:] {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return 0, "", nil, fmt.Errorf("expected key=value, got %q", kv)
		}
		data[key] = value
	}
	return eventType, args[1], data, nil
}

func parseEventType(s string) (domain.EventType, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return domain.EventType(n), nil
	}
	for t := domain.Follow; t <= domain.CommentedPost; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown notification type %q", s)
}
