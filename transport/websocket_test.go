package transport

import (
	"chat-session/domain"
	"chat-session/domain/event"
	"chat-session/errors"
	"chat-session/internal/fakebackend"
	"chat-session/observability"
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		ConnectTimeout:  time.Second,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
		MaxElapsed:      5 * time.Second,
		Origin:          "http://localhost/",
	}
}

func newTestConnection(cfg Config) *Connection {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return NewConnection(log, cfg, observability.NewMonitoringManager(log))
}

type recorder struct {
	mu     sync.Mutex
	states []domain.ConnectionState
	frames []event.Frame
}

func (r *recorder) state(s domain.ConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) frame(f event.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *recorder) snapshot() ([]domain.ConnectionState, []event.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ConnectionState(nil), r.states...), append([]event.Frame(nil), r.frames...)
}

func TestConnect_EmptyCredential(t *testing.T) {
	req := require.New(t)
	backend := fakebackend.New(nil)
	defer backend.Close()
	conn := newTestConnection(testConfig())
	rec := &recorder{}
	conn.OnStateChange(rec.state)

	// When connecting without a token
	state, err := conn.Connect(context.Background(), backend.URL(), "")

	// Then the attempt fails with an auth error and nothing was dialed
	req.ErrorIs(err, errors.ErrAuth)
	req.Equal(domain.Disconnected, state)
	req.Equal(domain.Disconnected, conn.State())
	time.Sleep(50 * time.Millisecond)
	req.Zero(backend.Attempts())
	states, _ := rec.snapshot()
	req.Empty(states)
}

func TestConnect_RejectedCredential(t *testing.T) {
	req := require.New(t)
	backend := fakebackend.New(fakebackend.BearerOnly("good"))
	defer backend.Close()
	conn := newTestConnection(testConfig())

	state, err := conn.Connect(context.Background(), backend.URL(), "bad")

	req.ErrorIs(err, errors.ErrAuth)
	req.Equal(domain.Disconnected, state)
	// No reconnect loop: a single handshake only
	time.Sleep(100 * time.Millisecond)
	req.Equal(1, backend.Attempts())
	req.Equal(domain.Disconnected, conn.State())
}

func TestConnect_UnavailableBackendIsRetried(t *testing.T) {
	req := require.New(t)
	// Given a proxy answering every handshake with 503
	var attempts atomic.Int32
	unavailable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		http.Error(w, "backend restarting", http.StatusServiceUnavailable)
	}))
	defer unavailable.Close()
	conn := newTestConnection(testConfig())
	defer conn.Disconnect()

	// When connecting
	state, err := conn.Connect(context.Background(), "ws"+strings.TrimPrefix(unavailable.URL, "http"), "tok")

	// Then the failure is not a credential problem and the client keeps retrying
	req.Error(err)
	req.NotErrorIs(err, errors.ErrAuth)
	req.NotErrorIs(err, errors.ErrConnectionTimeout)
	req.Equal(domain.Disconnected, state)
	req.Eventually(func() bool { return attempts.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	// And a second Connect during the retries reports it is not connected
	_, err = conn.Connect(context.Background(), "ws"+strings.TrimPrefix(unavailable.URL, "http"), "tok")
	req.ErrorIs(err, errors.ErrNotConnected)
}

func TestConnect_SendsBearerAndDeliversInOrder(t *testing.T) {
	req := require.New(t)
	backend := fakebackend.New(fakebackend.BearerOnly("tok"))
	defer backend.Close()
	conn := newTestConnection(testConfig())
	rec := &recorder{}
	named := &recorder{}
	conn.OnStateChange(rec.state)
	conn.Subscribe(event.Wildcard, rec.frame)
	conn.Subscribe(event.Message, named.frame)

	state, err := conn.Connect(context.Background(), backend.URL(), "tok")
	req.NoError(err)
	req.Equal(domain.Connected, state)
	defer conn.Disconnect()
	req.Equal("Bearer tok", backend.LastAuthorization())
	req.Eventually(func() bool { return backend.OpenConnections() == 1 }, time.Second, 5*time.Millisecond)

	// Given the backend pushes three events, one of them malformed
	req.NoError(backend.Push(event.Message, event.MessageReceived{UserID: "u2", Name: "Bob", Message: "one"}))
	req.NoError(backend.PushRaw("{not json"))
	req.NoError(backend.Push(event.ActiveUsers, []event.ActiveUser{{UserID: "u2", Name: "Bob"}}))
	req.NoError(backend.Push(event.Message, event.MessageReceived{UserID: "u2", Name: "Bob", Message: "two"}))

	// Then the wildcard handler sees connect then the valid frames in order
	req.Eventually(func() bool {
		_, frames := rec.snapshot()
		return len(frames) == 4
	}, time.Second, 5*time.Millisecond)
	states, frames := rec.snapshot()
	req.Equal([]domain.ConnectionState{domain.Connecting, domain.Connected}, states)
	req.Equal([]string{event.Connect, event.Message, event.ActiveUsers, event.Message},
		[]string{frames[0].Event, frames[1].Event, frames[2].Event, frames[3].Event})

	_, messages := named.snapshot()
	req.Len(messages, 2)

	// And outbound frames reach the backend
	req.NoError(conn.Send(event.Join, event.RoomPayload{Room: "public-room"}))
	req.Eventually(func() bool { return len(backend.Received()) == 1 }, time.Second, 5*time.Millisecond)
	req.Equal(event.Join, backend.Received()[0].Event)
	req.JSONEq(`{"room":"public-room"}`, string(backend.Received()[0].Data))
}

func TestConnection_ReconnectsAfterLoss(t *testing.T) {
	req := require.New(t)
	backend := fakebackend.New(fakebackend.BearerOnly("tok"))
	defer backend.Close()
	conn := newTestConnection(testConfig())
	rec := &recorder{}
	conn.OnStateChange(rec.state)
	conn.Subscribe(event.Wildcard, rec.frame)

	_, err := conn.Connect(context.Background(), backend.URL(), "tok")
	req.NoError(err)
	defer conn.Disconnect()
	req.Eventually(func() bool { return backend.OpenConnections() == 1 }, time.Second, 5*time.Millisecond)

	// When the backend drops the socket
	backend.DropAll()

	// Then the client reconnects with the same credential
	req.Eventually(func() bool {
		return backend.Connections() == 2 && conn.State() == domain.Connected
	}, 2*time.Second, 5*time.Millisecond)
	req.Equal("Bearer tok", backend.LastAuthorization())

	// And subscriptions are preserved
	req.Eventually(func() bool { return backend.OpenConnections() == 1 }, time.Second, 5*time.Millisecond)
	req.NoError(backend.Push(event.Notification, event.NotificationReceived{Message: "Bob has followed you."}))
	req.Eventually(func() bool {
		_, frames := rec.snapshot()
		return len(frames) > 0 && frames[len(frames)-1].Event == event.Notification
	}, time.Second, 5*time.Millisecond)

	states, frames := rec.snapshot()
	req.Equal([]domain.ConnectionState{
		domain.Connecting, domain.Connected, domain.Disconnected, domain.Connecting, domain.Connected,
	}, states)
	req.Equal([]string{event.Connect, event.Disconnect, event.Connect, event.Notification},
		[]string{frames[0].Event, frames[1].Event, frames[2].Event, frames[3].Event})
}

func TestConnect_Timeout(t *testing.T) {
	req := require.New(t)
	// Given a peer that accepts TCP but never answers the handshake
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	defer listener.Close()
	go func() {
		for {
			c, err := listener.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	cfg := testConfig()
	cfg.ConnectTimeout = 50 * time.Millisecond
	conn := newTestConnection(cfg)
	defer conn.Disconnect()

	start := time.Now()
	state, err := conn.Connect(context.Background(), "ws://"+listener.Addr().String()+"/", "tok")

	req.ErrorIs(err, errors.ErrConnectionTimeout)
	req.Equal(domain.Disconnected, state)
	req.Less(time.Since(start), time.Second)
}

func TestDisconnect_StopsEverything(t *testing.T) {
	req := require.New(t)
	backend := fakebackend.New(nil)
	defer backend.Close()
	conn := newTestConnection(testConfig())
	rec := &recorder{}
	conn.Subscribe(event.Wildcard, rec.frame)

	_, err := conn.Connect(context.Background(), backend.URL(), "tok")
	req.NoError(err)

	conn.Disconnect()
	req.Equal(domain.Disconnected, conn.State())
	req.ErrorIs(conn.Send(event.Leave, event.RoomPayload{Room: "public-room"}), errors.ErrNotConnected)

	// No reconnect after a local disconnect
	time.Sleep(100 * time.Millisecond)
	req.Equal(1, backend.Attempts())
	_, frames := rec.snapshot()
	req.Equal(event.Disconnect, frames[len(frames)-1].Event)

	// And connecting again works with the kept subscriptions
	_, err = conn.Connect(context.Background(), backend.URL(), "tok")
	req.NoError(err)
	defer conn.Disconnect()
	req.Equal(domain.Connected, conn.State())
	req.Equal(2, backend.Attempts())
}

func TestSend_ReportsFailureOnceBackendIsGone(t *testing.T) {
	req := require.New(t)
	backend := fakebackend.New(nil)
	conn := newTestConnection(testConfig())
	defer conn.Disconnect()

	_, err := conn.Connect(context.Background(), backend.URL(), "tok")
	req.NoError(err)
	req.NoError(conn.Send(event.Join, event.RoomPayload{Room: "public-room"}))

	// When the backend goes away for good
	backend.Close()

	// Then sending fails instead of being swallowed
	req.Eventually(func() bool {
		return conn.Send(event.Message, event.SendMessagePayload{Room: "public-room", Message: "hi"}) != nil
	}, 2*time.Second, 5*time.Millisecond)
}
