// Package runtime serializes everything the session does through one dispatch loop.
// Inbound frames, connection changes and user commands are applied in arrival order
// by a single goroutine, so the projections need no locks.
package runtime

import (
	"chat-session/contract"
	"chat-session/domain"
	"chat-session/domain/event"
	"chat-session/errors"
	"chat-session/invitation"
	"chat-session/observability"
	"chat-session/projection"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	Endpoint     string
	PublicRoom   domain.RoomID
	BufferSize   int
	QueueSize    int
	LedgerConfig projection.LedgerConfig
}

// Snapshot is an immutable copy of the session state, safe to read from any goroutine.
type Snapshot struct {
	State         domain.ConnectionState
	Room          domain.RoomID
	Members       []domain.UserRef
	Messages      []domain.Message
	Notifications []domain.Notification
	Handshake     domain.HandshakeState
	PersistErr    error
	Stats         observability.SessionStats
}

// inbound is either a frame or a connection state change, in transport order.
type inbound struct {
	frame *event.Frame
	state *domain.ConnectionState
}

type command struct {
	apply func() error
	reply chan error
}

type Session struct {
	log        *slog.Logger
	cfg        Config
	transport  contract.Transport
	tokens     contract.TokenProvider
	emitter    contract.Emitter
	monitoring *observability.MonitoringManager
	rooms      *projection.RoomState
	ledger     *projection.Ledger
	handshake  *invitation.Handshake
	inbound    chan inbound
	commands   chan command
	events     chan event.SessionEvent
	snapshot   atomic.Pointer[Snapshot]
	restore    sync.Once
	done       chan struct{}
	closeOnce  sync.Once
	now        func() time.Time
}

func NewSession(log *slog.Logger, cfg Config, transport contract.Transport, tokens contract.TokenProvider,
	sessions contract.SessionStore, repository contract.NotificationRepository, locator contract.Locator,
	monitoring *observability.MonitoringManager) *Session {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	emitter := transportEmitter{transport: transport}
	rooms := projection.NewRoomState(log, emitter, monitoring, cfg.PublicRoom)
	ledger := projection.NewLedger(log, repository, monitoring, cfg.LedgerConfig)
	s := &Session{
		log:        log,
		cfg:        cfg,
		transport:  transport,
		tokens:     tokens,
		emitter:    emitter,
		monitoring: monitoring,
		rooms:      rooms,
		ledger:     ledger,
		handshake:  invitation.NewHandshake(log, sessions, rooms, ledger, locator, cfg.QueueSize),
		inbound:    make(chan inbound, cfg.BufferSize),
		commands:   make(chan command, cfg.BufferSize),
		events:     make(chan event.SessionEvent, cfg.BufferSize),
		done:       make(chan struct{}),
		now:        time.Now,
	}
	transport.Subscribe(event.Wildcard, s.onFrame)
	transport.OnStateChange(s.onState)
	s.publish()
	return s
}

// Events is consumed by the EventFanout worker.
func (s *Session) Events() <-chan event.SessionEvent { return s.events }

func (s *Session) Snapshot() Snapshot {
	snap := *s.snapshot.Load()
	snap.Stats = s.monitoring.GetLatest()
	return snap
}

// Connect opens the transport with the stored bearer token. It runs outside the
// dispatch loop: the resulting state changes reach the loop like any inbound event.
func (s *Session) Connect(ctx context.Context) (domain.ConnectionState, error) {
	token, err := s.tokens.GetToken()
	if err != nil {
		return s.transport.State(), fmt.Errorf("%w: %v", errors.ErrAuth, err)
	}
	return s.transport.Connect(ctx, s.cfg.Endpoint, token)
}

// Disconnect leaves the room state and any pending invitation untouched,
// so a later Connect resumes them.
func (s *Session) Disconnect() {
	s.transport.Disconnect()
}

// Close stops accepting work and tears the transport down.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.transport.Disconnect()
	})
}

func (s *Session) Join(ctx context.Context, roomID domain.RoomID) error {
	return s.submit(ctx, func() error {
		if err := s.requireConnected(); err != nil {
			return err
		}
		from := s.rooms.ActiveRoom()
		if err := s.rooms.Join(roomID); err != nil {
			return err
		}
		s.emit(event.RoomChanged{From: from, To: roomID})
		return nil
	})
}

func (s *Session) Leave(ctx context.Context) error {
	return s.submit(ctx, func() error {
		if err := s.requireConnected(); err != nil {
			return err
		}
		from := s.rooms.ActiveRoom()
		if err := s.rooms.Leave(); err != nil {
			return err
		}
		s.emit(event.RoomChanged{From: from, To: s.rooms.ActiveRoom()})
		return nil
	})
}

// Accept resolves the pending invitation. It needs a live connection; offline the
// invitation stays pending.
func (s *Session) Accept(ctx context.Context) error {
	return s.submit(ctx, func() error {
		if err := s.requireConnected(); err != nil {
			return err
		}
		res, err := s.handshake.Accept()
		if res.Invitation.TargetRoomID == "" {
			return err
		}
		s.emit(event.RoomChanged{From: res.From, To: res.Invitation.TargetRoomID})
		s.emit(event.InvitationAccepted{Invitation: res.Invitation})
		s.emitNext(res.Next)
		return err
	})
}

func (s *Session) Decline(ctx context.Context) error {
	return s.submit(ctx, func() error {
		res, err := s.handshake.Decline()
		if err != nil {
			return err
		}
		s.emit(event.InvitationDeclined{Invitation: res.Invitation})
		s.emitNext(res.Next)
		return nil
	})
}

func (s *Session) SendMessage(ctx context.Context, body string) error {
	return s.submit(ctx, func() error {
		if err := s.requireConnected(); err != nil {
			return err
		}
		return s.emitter.Emit(event.Message, event.SendMessagePayload{
			Room:    string(s.rooms.ActiveRoom()),
			Message: body,
		})
	})
}

func (s *Session) SendNotification(ctx context.Context, eventType domain.EventType, userID string, data map[string]any) error {
	return s.submit(ctx, func() error {
		if err := s.requireConnected(); err != nil {
			return err
		}
		return s.emitter.Emit(event.SetNotification, event.SetNotificationPayload{
			EventType:      int(eventType),
			UserID:         userID,
			AdditionalData: data,
		})
	})
}

func (s *Session) RequestActiveUsers(ctx context.Context) error {
	return s.submit(ctx, func() error {
		if err := s.requireConnected(); err != nil {
			return err
		}
		return s.emitter.Emit(event.ActiveUsers,
			event.RoomPayload{Room: string(s.rooms.ActiveRoom())})
	})
}

// InvitePrivate asks userID to move into roomID with us.
func (s *Session) InvitePrivate(ctx context.Context, userID string, roomID domain.RoomID) error {
	return s.submit(ctx, func() error {
		if err := s.requireConnected(); err != nil {
			return err
		}
		return s.emitter.Emit(event.PrivateChatRequest, event.PrivateChatInvitePayload{
			Room:          string(s.rooms.ActiveRoom()),
			InvitedUserID: userID,
			PrivateRoomID: string(roomID),
		})
	})
}

// Run is the dispatch loop. The persisted notifications are restored once,
// before the first event is applied.
func (s *Session) Run(ctx context.Context) error {
	s.restore.Do(func() {
		if err := s.ledger.Restore(); err == nil {
			s.publish()
		}
	})
	for {
		select {
		case <-ctx.Done():
			s.log.Debug("Context done, stopping session dispatcher")
			return nil
		case <-s.done:
			return nil
		case in := <-s.inbound:
			switch {
			case in.state != nil:
				s.applyState(*in.state)
			case in.frame != nil:
				s.route(*in.frame)
			}
			s.publish()
		case cmd := <-s.commands:
			cmd.reply <- cmd.apply()
			s.publish()
		}
	}
}

func (s *Session) submit(ctx context.Context, apply func() error) error {
	select {
	case <-s.done:
		return errors.ErrDispatcherStopped
	default:
	}
	cmd := command{apply: apply, reply: make(chan error, 1)}
	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return errors.ErrDispatcherStopped
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return errors.ErrDispatcherStopped
	}
}

func (s *Session) requireConnected() error {
	if s.transport.State() != domain.Connected {
		return errors.ErrNotConnected
	}
	return nil
}

// onFrame and onState run on the transport goroutine.
func (s *Session) onFrame(frame event.Frame) {
	s.enqueue(inbound{frame: &frame})
}

func (s *Session) onState(state domain.ConnectionState) {
	s.enqueue(inbound{state: &state})
}

func (s *Session) enqueue(in inbound) {
	select {
	case s.inbound <- in:
	case <-s.done:
	}
}

func (s *Session) emit(evt event.SessionEvent) {
	select {
	case s.events <- evt:
	default:
		s.monitoring.IncrObserverDropped()
		s.log.Debug("Session event dropped, observers too slow", "event", evt.Name())
	}
}

func (s *Session) emitNext(next *domain.Invitation) {
	if next != nil {
		s.emit(event.ConsentRequested{Invitation: *next})
	}
}

func (s *Session) publish() {
	s.snapshot.Store(&Snapshot{
		State:         s.transport.State(),
		Room:          s.rooms.ActiveRoom(),
		Members:       s.rooms.Members(),
		Messages:      s.rooms.Messages(),
		Notifications: s.ledger.View(),
		Handshake:     s.handshake.State(),
		PersistErr:    s.ledger.PersistErr(),
	})
}
