package main

import (
	"bufio"
	"chat-session/auth"
	"chat-session/contract"
	"chat-session/errors"
	"chat-session/internal"
	"chat-session/observability"
	"chat-session/repositories"
	"chat-session/runtime"
	"chat-session/runtime/workers"
	"chat-session/sink"
	"chat-session/storage"
	"chat-session/transport"
	"context"
	stdErrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
	exitAuth    = 3
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Notification snapshot storage
	db, err := storage.Open(config.BadgerFilepath)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	repository := repositories.NewNotificationRepository(
		storage.NewBadgerStore(db, log), log, config.NotificationPersistLimit)

	// 3. Credentials
	tokens, err := tokenProvider(config)
	if err != nil {
		return exitConfig, err
	}

	// 4. Session wiring
	monitoring := observability.NewMonitoringManager(log)
	connection := transport.NewConnection(log, config.Transport(), monitoring)
	term := newTerminal(os.Stdout)
	session := runtime.NewSession(log, config.Session(), connection, tokens,
		auth.NewTokenSession(log, tokens), repository, term, monitoring)
	defer session.Close()

	fanout := workers.NewEventFanout(log, session.Events(), monitoring, config.SinkTimeout).Add(term, sink.NewLogSink(log))
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(session, fanout)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.DebugPort > 0 {
		internal.StartDebugServer(ctx, log, config.DebugPort, internal.DebugHandler(session.Snapshot))
	}

	supervised := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supervised)
	}()
	defer func() {
		sup.Stop()
		<-supervised
		monitoring.LogSummary()
	}()

	// 6. Connect, an invalid credential means the user has to log in again
	if _, err := session.Connect(ctx); err != nil {
		if stdErrors.Is(err, errors.ErrAuth) {
			_ = tokens.RemoveToken()
			return exitAuth, fmt.Errorf("login required: %w", err)
		}
		log.Warn("Backend unreachable, reconnecting in background", "error", err)
	}

	// 7. Read user commands until EOF or a signal
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	cli := newCommandLine(session, term)
	term.Prompt(config.Session().PublicRoom)
	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping client...")
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if quit := cli.Execute(ctx, line); quit {
				return exitOK, nil
			}
		}
	}
}

func tokenProvider(config internal.Config) (contract.TokenProvider, error) {
	if config.TokenFile == "" {
		return auth.NewMemoryTokenProvider(config.Token), nil
	}
	provider := auth.NewFileTokenProvider(config.TokenFile)
	if config.Token != "" {
		if err := provider.SaveToken(config.Token); err != nil {
			return nil, fmt.Errorf("unable to store CHAT_TOKEN: %w", err)
		}
	}
	return provider, nil
}
