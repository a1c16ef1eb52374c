package internal

import (
	"chat-session/domain"
	"chat-session/projection"
	"chat-session/runtime"
	"chat-session/transport"
	"fmt"
	"net/url"
	"time"
)

type Config struct {
	ServerURL                string        `env:"CHAT_SERVER_URL,required=true"`
	Origin                   string        `env:"CHAT_ORIGIN,default=http://localhost/"`
	TokenFile                string        `env:"CHAT_TOKEN_FILE"`
	Token                    string        `env:"CHAT_TOKEN"`
	BadgerFilepath           string        `env:"BADGER_FILEPATH,default=./data/notifications"`
	LogLevel                 string        `env:"LOG_LEVEL,default=INFO"`
	PublicRoom               string        `env:"PUBLIC_ROOM,default=public-room"`
	ConnectTimeout           time.Duration `env:"CONNECT_TIMEOUT,default=10s"`
	ReconnectInitialInterval time.Duration `env:"RECONNECT_INITIAL_INTERVAL,default=500ms"`
	ReconnectMaxInterval     time.Duration `env:"RECONNECT_MAX_INTERVAL,default=30s"`
	ReconnectMaxElapsed      time.Duration `env:"RECONNECT_MAX_ELAPSED,default=15m"`
	BufferSize               int           `env:"BUFFER_SIZE,default=256"`
	SinkTimeout              time.Duration `env:"SINK_TIMEOUT,default=1s"`
	NotificationPersistLimit int           `env:"NOTIFICATION_PERSIST_LIMIT,default=25"`
	NotificationMemoryLimit  int           `env:"NOTIFICATION_MEMORY_LIMIT,default=200"`
	NotificationViewLimit    int           `env:"NOTIFICATION_VIEW_LIMIT,default=50"`
	InvitationQueueSize      int           `env:"INVITATION_QUEUE_SIZE,default=4"`
	RestartInterval          time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	DebugPort                int           `env:"DEBUG_PORT,default=0"`
}

// Validate rejects values go-env cannot check on its own.
func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("CHAT_SERVER_URL is not a valid url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("CHAT_SERVER_URL must use ws or wss, got %q", u.Scheme)
	}
	if c.NotificationPersistLimit <= 0 {
		return fmt.Errorf("NOTIFICATION_PERSIST_LIMIT must be positive, got %d", c.NotificationPersistLimit)
	}
	if c.NotificationMemoryLimit < c.NotificationPersistLimit {
		return fmt.Errorf("NOTIFICATION_MEMORY_LIMIT (%d) must be at least NOTIFICATION_PERSIST_LIMIT (%d)",
			c.NotificationMemoryLimit, c.NotificationPersistLimit)
	}
	if c.InvitationQueueSize < 0 {
		return fmt.Errorf("INVITATION_QUEUE_SIZE must not be negative, got %d", c.InvitationQueueSize)
	}
	return nil
}

func (c Config) Transport() transport.Config {
	return transport.Config{
		ConnectTimeout:  c.ConnectTimeout,
		InitialInterval: c.ReconnectInitialInterval,
		MaxInterval:     c.ReconnectMaxInterval,
		MaxElapsed:      c.ReconnectMaxElapsed,
		Origin:          c.Origin,
	}
}

func (c Config) Session() runtime.Config {
	return runtime.Config{
		Endpoint:   c.ServerURL,
		PublicRoom: domain.RoomID(c.PublicRoom),
		BufferSize: c.BufferSize,
		QueueSize:  c.InvitationQueueSize,
		LedgerConfig: projection.LedgerConfig{
			MemoryLimit:  c.NotificationMemoryLimit,
			ViewLimit:    c.NotificationViewLimit,
			PersistLimit: c.NotificationPersistLimit,
		},
	}
}
