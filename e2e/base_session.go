package e2e

import (
	"chat-session/auth"
	"chat-session/domain/event"
	"chat-session/observability"
	"chat-session/repositories"
	"chat-session/runtime"
	"chat-session/runtime/workers"
	"chat-session/sink"
	"chat-session/storage"
	"chat-session/transport"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseSessionSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration and skips when no backend is configured.
func (s *BaseSessionSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerURL == "" || s.Config.Token == "" {
		s.T().Skip("CHAT_E2E_URL and CHAT_E2E_TOKEN are required")
	}
}

func (s *BaseSessionSuite) header(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// WithSession runs fn against a connected session backed by a temporary badger directory.
func (s *BaseSessionSuite) WithSession(name string, fn func(ctx context.Context, session *runtime.Session, recorder *sink.Recorder)) {
	s.header(name)
	log := slog.Default()

	db, err := storage.Open(s.T().TempDir())
	s.Require().NoError(err)
	defer db.Close()

	monitoring := observability.NewMonitoringManager(log)
	connection := transport.NewConnection(log, transport.DefaultConfig(), monitoring)
	if s.Config.DebugJSON {
		connection.Subscribe(event.Wildcard, func(frame event.Frame) {
			s.T().Logf("<- %s %s", frame.Event, frame.Data)
		})
	}

	tokens := auth.NewMemoryTokenProvider(s.Config.Token)
	repository := repositories.NewNotificationRepository(storage.NewBadgerStore(db, log), log, repositories.DefaultPersistLimit)
	session := runtime.NewSession(log, runtime.Config{Endpoint: s.Config.ServerURL}, connection, tokens,
		auth.NewTokenSession(log, tokens), repository, noopLocator{}, monitoring)
	defer session.Close()

	recorder := sink.NewRecorder()
	fanout := workers.NewEventFanout(log, session.Events(), monitoring, time.Second).Add(recorder)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	sup := workers.NewSupervisor(log, 0)
	sup.Add(session, fanout)
	go sup.Run(ctx)
	defer sup.Stop()

	_, err = session.Connect(ctx)
	s.Require().NoError(err, "Failed to connect to "+s.Config.ServerURL)

	fn(ctx, session, recorder)
}
