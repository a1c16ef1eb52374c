package runtime

import (
	"chat-session/auth"
	"chat-session/contract"
	"chat-session/domain"
	"chat-session/domain/event"
	"chat-session/errors"
	"chat-session/invitation"
	"chat-session/mocks"
	"chat-session/observability"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type outboundFrame struct {
	name    string
	payload any
}

type harness struct {
	t        *testing.T
	session  *Session
	locator  *mocks.MockLocator
	onFrame  contract.Handler
	onState  contract.StateListener
	state    atomic.Int32
	mu       sync.Mutex
	outbound []outboundFrame
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	h := &harness{t: t}

	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Subscribe(event.Wildcard, gomock.Any()).Do(func(_ string, handler contract.Handler) {
		h.onFrame = handler
	})
	transport.EXPECT().OnStateChange(gomock.Any()).Do(func(listener contract.StateListener) {
		h.onState = listener
	})
	transport.EXPECT().State().DoAndReturn(func() domain.ConnectionState {
		return domain.ConnectionState(h.state.Load())
	}).AnyTimes()
	transport.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(name string, payload any) error {
		if domain.ConnectionState(h.state.Load()) != domain.Connected {
			return errors.ErrNotConnected
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		h.outbound = append(h.outbound, outboundFrame{name: name, payload: payload})
		return nil
	}).AnyTimes()
	transport.EXPECT().Disconnect().AnyTimes()

	repository := mocks.NewMockNotificationRepository(ctrl)
	repository.EXPECT().Load().Return(nil, nil).AnyTimes()
	repository.EXPECT().Save(gomock.Any()).Return(nil).AnyTimes()
	h.locator = mocks.NewMockLocator(ctrl)

	h.session = NewSession(slog.Default(), Config{Endpoint: "ws://backend", QueueSize: invitation.DefaultQueueSize},
		transport, auth.NewMemoryTokenProvider("token"),
		auth.StaticSession{User: domain.UserRef{UserID: "u1", DisplayName: "Alice"}},
		repository, h.locator, observability.NewMonitoringManager(slog.Default()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.session.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func (h *harness) setState(state domain.ConnectionState) {
	h.state.Store(int32(state))
	h.onState(state)
}

// connect reaches Connected and waits for the initial join of the public room.
func (h *harness) connect() {
	h.setState(domain.Connected)
	require.Eventually(h.t, func() bool {
		sent := h.sent()
		return len(sent) > 0 && sent[0] == outboundFrame{name: event.Join, payload: event.RoomPayload{Room: "public-room"}}
	}, time.Second, 5*time.Millisecond)
}

func (h *harness) push(name string, payload any) {
	frame, err := event.NewFrame(name, payload)
	require.NoError(h.t, err)
	h.onFrame(frame)
}

func (h *harness) sent() []outboundFrame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]outboundFrame(nil), h.outbound...)
}

func (h *harness) eventually(cond func(Snapshot) bool) {
	require.Eventually(h.t, func() bool { return cond(h.session.Snapshot()) }, time.Second, 5*time.Millisecond)
}

func Test_Commands_Require_Connection(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()

	req.ErrorIs(h.session.Join(ctx, "room-42"), errors.ErrNotConnected)
	req.ErrorIs(h.session.SendMessage(ctx, "hi"), errors.ErrNotConnected)
	req.ErrorIs(h.session.RequestActiveUsers(ctx), errors.ErrNotConnected)
	req.Equal(domain.PublicRoomID, h.session.Snapshot().Room)
	req.Empty(h.sent())
}

func Test_Invitation_Accept_Leaves_Then_Joins(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()
	h.connect()

	// Given a message in the public room and an invitation for the local user
	h.push(event.Message, event.MessageReceived{UserID: "u3", Name: "Clara", Message: "hello"})
	h.push(event.PrivateChatRequest, event.PrivateChatRequested{
		InvitedUserID: "u1", Name: "Bob", UserID: "u2", PrivateRoomID: "room-42",
	})
	h.eventually(func(s Snapshot) bool { return s.Handshake.Status == domain.PendingConsent })
	req.Len(h.session.Snapshot().Messages, 1)

	// When the user accepts
	h.locator.EXPECT().SetLocation(domain.RoomID("room-42"))
	req.NoError(h.session.Accept(ctx))

	// Then leave then join were sent after entering the public room, and the history is empty
	req.Equal([]outboundFrame{
		{name: event.Join, payload: event.RoomPayload{Room: "public-room"}},
		{name: event.Leave, payload: event.RoomPayload{Room: "public-room"}},
		{name: event.Join, payload: event.RoomPayload{Room: "room-42"}},
	}, h.sent())
	snap := h.session.Snapshot()
	req.Equal(domain.RoomID("room-42"), snap.Room)
	req.Empty(snap.Messages)
	req.Equal(domain.Accepted, snap.Handshake.Status)
}

func Test_Invitation_For_Other_User_Is_Ignored(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	h.connect()

	h.push(event.PrivateChatRequest, event.PrivateChatRequested{
		InvitedUserID: "u9", Name: "Bob", PrivateRoomID: "room-42",
	})
	h.push(event.Message, event.MessageReceived{UserID: "u3", Message: "after"})

	h.eventually(func(s Snapshot) bool { return len(s.Messages) == 1 })
	req.Equal(domain.Idle, h.session.Snapshot().Handshake.Status)
}

func Test_Pending_Invitation_Survives_Disconnect(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()
	h.connect()

	h.push(event.PrivateChatRequest, event.PrivateChatRequested{
		InvitedUserID: "u1", Name: "Bob", PrivateRoomID: "room-42",
	})
	h.eventually(func(s Snapshot) bool { return s.Handshake.Status == domain.PendingConsent })

	// When the transport drops, accepting is refused and the invitation stays pending
	h.setState(domain.Disconnected)
	h.eventually(func(s Snapshot) bool { return s.State == domain.Disconnected })
	req.ErrorIs(h.session.Accept(ctx), errors.ErrNotConnected)
	req.Equal(domain.PendingConsent, h.session.Snapshot().Handshake.Status)

	// And after reconnecting the room is rejoined and the invitation can resume
	h.setState(domain.Connected)
	h.eventually(func(s Snapshot) bool { return s.State == domain.Connected })
	h.locator.EXPECT().SetLocation(domain.RoomID("room-42"))
	req.NoError(h.session.Accept(ctx))
	req.Equal([]string{event.Join, event.Join, event.Leave, event.Join}, names(h.sent()))
}

func Test_Decline_Promotes_Queued_Invitation(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	h.connect()

	h.push(event.PrivateChatRequest, event.PrivateChatRequested{InvitedUserID: "u1", Name: "Bob", PrivateRoomID: "room-1"})
	h.push(event.PrivateChatRequest, event.PrivateChatRequested{InvitedUserID: "u1", Name: "Dan", PrivateRoomID: "room-2"})
	h.eventually(func(s Snapshot) bool { return len(s.Handshake.Queued) == 1 })

	req.NoError(h.session.Decline(context.Background()))

	snap := h.session.Snapshot()
	req.Equal(domain.PendingConsent, snap.Handshake.Status)
	req.Equal("Dan", snap.Handshake.Current.InviterName)
	req.Equal(domain.PublicRoomID, snap.Room)
	req.Equal([]string{event.Join}, names(h.sent()))
}

func Test_Notifications_Reach_The_View(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	h.connect()

	h.push(event.Notification, event.NotificationReceived{Message: "Bob has followed you.", UserID: "u2"})
	h.eventually(func(s Snapshot) bool { return len(s.Notifications) == 1 })

	n := h.session.Snapshot().Notifications[0]
	req.Equal(domain.KindFollow, n.DerivedKind)
	req.Equal(domain.Follow, n.EventType)
}

func Test_Malformed_And_Unknown_Events_Are_Dropped(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	h.connect()

	h.onFrame(event.Frame{Event: event.Message, Data: []byte(`"not an object"`)})
	h.onFrame(event.Frame{Event: "typing"})
	h.push(event.Message, event.MessageReceived{UserID: "u3", Message: "still alive"})

	h.eventually(func(s Snapshot) bool { return len(s.Messages) == 1 })
	stats := h.session.Snapshot().Stats
	req.Equal(uint64(1), stats.MalformedDropped)
	req.Equal(uint64(1), stats.UnknownDropped)
}

func Test_Active_Users_Replace_Members(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	h.connect()

	req.NoError(h.session.RequestActiveUsers(context.Background()))
	h.push(event.ActiveUsers, []event.ActiveUser{{UserID: "u1", Name: "Alice"}, {UserID: "u2", Name: "Bob"}})

	h.eventually(func(s Snapshot) bool { return len(s.Members) == 2 })
	req.Equal([]string{event.Join, event.ActiveUsers}, names(h.sent()))
}

func Test_Send_Notification_Is_Validated(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()
	h.connect()

	err := h.session.SendNotification(ctx, domain.PrivateChatRequest, "u2", nil)
	req.ErrorIs(err, errors.ErrInvalidNotification)
	req.Equal([]string{event.Join}, names(h.sent()))

	req.NoError(h.session.SendNotification(ctx, domain.Follow, "u2", nil))
	req.Equal([]string{event.Join, event.SetNotification}, names(h.sent()))
}

func Test_Closed_Session_Rejects_Commands(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	h.session.Close()

	req.ErrorIs(h.session.Decline(context.Background()), errors.ErrDispatcherStopped)
}

func names(frames []outboundFrame) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.name)
	}
	return out
}
