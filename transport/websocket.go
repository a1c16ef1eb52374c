// Package transport owns the duplex websocket channel to the chat backend.
// It connects with a bearer credential, delivers inbound frames in read order,
// and reconnects with capped exponential backoff after a network loss.
package transport

import (
	"chat-session/auth"
	"chat-session/contract"
	"chat-session/domain"
	"chat-session/domain/event"
	"chat-session/errors"
	"chat-session/observability"
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

var _ contract.Transport = (*Connection)(nil)

type Config struct {
	ConnectTimeout  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
	Origin          string // websocket origin, we are not a browser
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:  10 * time.Second,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		MaxElapsed:      15 * time.Minute,
		Origin:          "http://localhost/",
	}
}

type Connection struct {
	log        *slog.Logger
	cfg        Config
	monitoring *observability.MonitoringManager

	mu         sync.Mutex
	state      domain.ConnectionState
	conn       *websocket.Conn
	endpoint   string
	credential string
	handlers   map[string][]contract.Handler
	listeners  []contract.StateListener
	cancel     context.CancelFunc
	generation uint64

	// deliverMu keeps state notifications and inbound frames in one order
	deliverMu sync.Mutex
	writeMu   sync.Mutex
}

func NewConnection(log *slog.Logger, cfg Config, monitoring *observability.MonitoringManager) *Connection {
	return &Connection{
		log:        log,
		cfg:        cfg,
		monitoring: monitoring,
		state:      domain.Disconnected,
		handlers:   make(map[string][]contract.Handler),
	}
}

// Subscribe registers a handler for one event name, or event.Wildcard for all of them.
// Subscriptions survive reconnects.
func (c *Connection) Subscribe(name string, handler contract.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = append(c.handlers[name], handler)
}

func (c *Connection) OnStateChange(listener contract.StateListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener)
}

func (c *Connection) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the endpoint once. An empty credential, or a handshake answered
// with 401 or 403, fails with errors.ErrAuth and nothing is retried. Any other
// failure leaves the connection Disconnected, returns the error and keeps
// retrying in the background until Disconnect is called.
func (c *Connection) Connect(ctx context.Context, endpoint, credential string) (domain.ConnectionState, error) {
	if credential == "" {
		return domain.Disconnected, fmt.Errorf("%w: empty bearer token", errors.ErrAuth)
	}

	c.mu.Lock()
	if c.state == domain.Connected {
		c.mu.Unlock()
		return domain.Connected, nil
	}
	if c.state != domain.Disconnected || c.cancel != nil {
		state := c.state
		c.mu.Unlock()
		return state, fmt.Errorf("%w: reconnect in progress", errors.ErrNotConnected)
	}
	life, cancel := context.WithCancel(context.Background())
	c.endpoint, c.credential = endpoint, credential
	c.cancel = cancel
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	c.transition(gen, domain.Connecting)
	conn, err := c.dial(ctx)
	if err != nil {
		c.transition(gen, domain.Disconnected)
		if stdErrors.Is(err, errors.ErrAuth) {
			c.stopLifecycle(gen)
			return domain.Disconnected, err
		}
		c.log.Warn("Connect failed, retrying in background", "endpoint", endpoint, "error", err)
		go c.reconnect(life, gen)
		return domain.Disconnected, err
	}
	if !c.attach(gen, conn) {
		return c.State(), errors.ErrTransportClosed
	}
	return domain.Connected, nil
}

// Disconnect marks the connection Disconnected, stops any reconnect loop and
// closes the socket. Subscriptions are kept for a later Connect.
func (c *Connection) Disconnect() {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	conn := c.conn
	c.conn = nil
	previous := c.state
	c.state = domain.Disconnected
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if previous != domain.Disconnected {
		c.notify(previous, domain.Disconnected)
	}
}

// Send writes one frame. It fails with errors.ErrNotConnected instead of buffering.
func (c *Connection) Send(name string, payload any) error {
	frame, err := event.NewFrame(name, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()
	if conn == nil || state != domain.Connected {
		return fmt.Errorf("%w: cannot send %s", errors.ErrNotConnected, name)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err = conn.SetWriteDeadline(time.Now().Add(c.cfg.ConnectTimeout)); err != nil {
		c.log.Warn("Cannot set write deadline", "event", name, "error", err)
		return fmt.Errorf("send %s: %w", name, err)
	}
	if err = conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	c.monitoring.IncrOutbound()
	return nil
}

func (c *Connection) dial(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	endpoint, credential := c.endpoint, c.credential
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", auth.AuthorizationHeader(credential))
	header.Set("Origin", c.cfg.Origin)
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.ConnectTimeout}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	ws, resp, err := dialer.DialContext(dialCtx, endpoint, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err == nil {
		return ws, nil
	}

	if resp != nil {
		if rejectsCredential(resp.StatusCode) {
			return nil, fmt.Errorf("%w: handshake rejected by %s with status %d", errors.ErrAuth, endpoint, resp.StatusCode)
		}
		return nil, fmt.Errorf("handshake with %s failed with status %d: %w", endpoint, resp.StatusCode, err)
	}
	if isTimeout(dialCtx, err) {
		return nil, fmt.Errorf("%w: %s after %s", errors.ErrConnectionTimeout, endpoint, c.cfg.ConnectTimeout)
	}
	return nil, fmt.Errorf("error dialing ws: %w", err)
}

func rejectsCredential(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func isTimeout(ctx context.Context, err error) bool {
	if stdErrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stdErrors.As(err, &netErr) && netErr.Timeout()
}

// attach installs a dialed socket unless Disconnect happened meanwhile.
func (c *Connection) attach(gen uint64, conn *websocket.Conn) bool {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		_ = conn.Close()
		return false
	}
	c.conn = conn
	c.mu.Unlock()

	c.transition(gen, domain.Connected)
	go c.readLoop(gen, conn)
	return true
}

func (c *Connection) readLoop(gen uint64, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.lost(gen, err)
			return
		}
		frame, err := decodeFrame(data)
		if err != nil {
			c.monitoring.IncrMalformed()
			c.log.Warn("Dropping malformed frame", "error", err)
			continue
		}
		c.deliver(gen, frame)
	}
}

func decodeFrame(data []byte) (event.Frame, error) {
	var frame event.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return frame, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}
	if frame.Event == "" {
		return frame, fmt.Errorf("%w: frame without event name", errors.ErrMalformedEvent)
	}
	return frame, nil
}

// lost handles a read failure on the current socket: Disconnected, then reconnect
// with the same credential and subscriptions.
func (c *Connection) lost(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()

	c.log.Warn("Connection lost", "error", err)
	c.transition(gen, domain.Disconnected)

	c.mu.Lock()
	if gen != c.generation || c.cancel == nil {
		c.mu.Unlock()
		return
	}
	life, cancel := context.WithCancel(context.Background())
	c.cancel()
	c.cancel = cancel
	c.mu.Unlock()
	go c.reconnect(life, gen)
}

func (c *Connection) reconnect(life context.Context, gen uint64) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialInterval
	b.MaxInterval = c.cfg.MaxInterval

	operation := func() (*websocket.Conn, error) {
		if life.Err() != nil {
			return nil, backoff.Permanent(life.Err())
		}
		c.monitoring.IncrReconnect()
		c.transition(gen, domain.Connecting)
		conn, err := c.dial(life)
		if err != nil {
			c.transition(gen, domain.Disconnected)
			if stdErrors.Is(err, errors.ErrAuth) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return conn, nil
	}

	conn, err := backoff.Retry(life, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(c.cfg.MaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Warn("Reconnect attempt failed", "error", err, "next_attempt_in", next)
		}))
	if err != nil {
		if life.Err() == nil {
			c.log.Error("Giving up reconnecting", "error", err)
			c.stopLifecycle(gen)
		}
		return
	}
	c.attach(gen, conn)
}

func (c *Connection) stopLifecycle(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// transition applies a state change for the given session generation and notifies in order.
func (c *Connection) transition(gen uint64, next domain.ConnectionState) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	if gen != c.generation || c.state == next {
		c.mu.Unlock()
		return
	}
	previous := c.state
	c.state = next
	c.mu.Unlock()

	c.notify(previous, next)
}

// notify must run under deliverMu.
func (c *Connection) notify(previous, next domain.ConnectionState) {
	c.mu.Lock()
	listeners := append([]contract.StateListener(nil), c.listeners...)
	c.mu.Unlock()

	c.log.Debug("Connection state changed", "from", previous, "to", next)
	for _, listener := range listeners {
		listener(next)
	}
	switch {
	case next == domain.Connected:
		c.dispatch(event.Frame{Event: event.Connect})
	case next == domain.Disconnected && previous == domain.Connected:
		c.dispatch(event.Frame{Event: event.Disconnect})
	}
}

func (c *Connection) deliver(gen uint64, frame event.Frame) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	current := gen == c.generation
	c.mu.Unlock()
	if !current {
		return
	}
	c.dispatch(frame)
}

// dispatch must run under deliverMu.
func (c *Connection) dispatch(frame event.Frame) {
	c.mu.Lock()
	handlers := append([]contract.Handler(nil), c.handlers[frame.Event]...)
	handlers = append(handlers, c.handlers[event.Wildcard]...)
	c.mu.Unlock()

	for _, handler := range handlers {
		handler(frame)
	}
}
