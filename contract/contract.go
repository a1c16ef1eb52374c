//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-session/domain"
	"chat-session/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Handler receives inbound frames in the order the transport read them.
type Handler func(frame event.Frame)

// StateListener observes every ConnectionState transition.
type StateListener func(state domain.ConnectionState)

// Transport owns the duplex channel lifecycle to one backend endpoint.
type Transport interface {
	Connect(ctx context.Context, endpoint, credential string) (domain.ConnectionState, error)
	Disconnect()
	Send(name string, payload any) error
	Subscribe(name string, handler Handler)
	OnStateChange(listener StateListener)
	State() domain.ConnectionState
}

// Emitter serializes one outbound event.
type Emitter interface {
	Emit(name string, payload any) error
}

// TokenProvider holds the bearer credential. GetToken returns "" when none is stored.
type TokenProvider interface {
	GetToken() (string, error)
	SaveToken(token string) error
	RemoveToken() error
}

// SessionStore exposes the authenticated user, used to match invitations.
type SessionStore interface {
	IsAuthenticated() bool
	CurrentUser() (domain.UserRef, bool)
}

// KeyValueStore is the durable store backing the notification snapshot.
type KeyValueStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

type NotificationRepository interface {
	Save(notifications []domain.Notification) error
	Load() ([]domain.Notification, error)
}

// Locator records the client's current address, e.g. the room shown in the URL or prompt.
type Locator interface {
	SetLocation(room domain.RoomID)
}

type EventSink interface {
	Consume(ctx context.Context, e event.SessionEvent) error
}
