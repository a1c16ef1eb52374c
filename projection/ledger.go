package projection

import (
	"chat-session/classifier"
	"chat-session/contract"
	"chat-session/domain"
	"chat-session/domain/event"
	"chat-session/observability"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	DefaultMemoryLimit = 200
	DefaultViewLimit   = 50
)

type LedgerConfig struct {
	MemoryLimit  int
	ViewLimit    int
	PersistLimit int
}

// Ledger keeps received notifications newest first and writes the bounded
// snapshot through the repository after every insertion.
type Ledger struct {
	log           *slog.Logger
	repository    contract.NotificationRepository
	monitoring    *observability.MonitoringManager
	classify      func(string) (domain.DerivedKind, string)
	now           func() time.Time
	entries       []domain.Notification
	keys          map[domain.NotificationKey]struct{}
	memoryLimit   int
	viewLimit     int
	viewClearedAt time.Time
	persistErr    error
}

func NewLedger(log *slog.Logger, repository contract.NotificationRepository,
	monitoring *observability.MonitoringManager, cfg LedgerConfig) *Ledger {
	memoryLimit := lo.Ternary(cfg.MemoryLimit > 0, cfg.MemoryLimit, DefaultMemoryLimit)
	// memory never holds less than what gets persisted
	memoryLimit = max(memoryLimit, cfg.PersistLimit)
	return &Ledger{
		log:         log,
		repository:  repository,
		monitoring:  monitoring,
		classify:    classifier.Classify,
		now:         time.Now,
		keys:        make(map[domain.NotificationKey]struct{}),
		memoryLimit: memoryLimit,
		viewLimit:   lo.Ternary(cfg.ViewLimit > 0, cfg.ViewLimit, DefaultViewLimit),
	}
}

// WithClock replaces the receipt clock, used by tests and replays.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// OnNotification stamps, classifies and inserts an inbound notification.
// The second result is false when the notification was already known.
func (l *Ledger) OnNotification(raw event.NotificationReceived) (domain.Notification, bool) {
	n := l.build(raw)
	if !l.insert(n) {
		return n, false
	}
	l.persist()
	return n, true
}

// Restore merges the persisted snapshot into memory, skipping duplicates.
func (l *Ledger) Restore() error {
	restored, err := l.repository.Load()
	if err != nil {
		l.log.Warn("Unable to restore notifications", "error", err)
		return fmt.Errorf("restore notifications: %w", err)
	}
	merged := lo.CountBy(restored, l.insert)
	l.log.Info("Restored notifications", "restored", len(restored), "merged", merged)
	if merged > 0 && len(l.entries) > merged {
		l.persist()
	}
	return nil
}

// Entries returns every notification in memory, newest first.
func (l *Ledger) Entries() []domain.Notification {
	return slices.Clone(l.entries)
}

// View returns the visible notifications: received after the last ClearView,
// newest first, capped at the view limit.
func (l *Ledger) View() []domain.Notification {
	visible := lo.Filter(l.entries, func(n domain.Notification, _ int) bool {
		return n.ReceivedAt.After(l.viewClearedAt)
	})
	return lo.Slice(visible, 0, l.viewLimit)
}

// ClearView hides everything received so far from View without dropping it.
func (l *Ledger) ClearView() {
	l.viewClearedAt = l.now()
}

// PersistErr is the error of the last snapshot write, nil once a write succeeds.
func (l *Ledger) PersistErr() error { return l.persistErr }

func (l *Ledger) Len() int { return len(l.entries) }

func (l *Ledger) insert(n domain.Notification) bool {
	key := n.Key()
	if _, ok := l.keys[key]; ok {
		return false
	}
	l.keys[key] = struct{}{}

	idx, _ := slices.BinarySearchFunc(l.entries, n, func(existing, target domain.Notification) int {
		// newest first; equal timestamps keep arrival order
		if existing.ReceivedAt.Before(target.ReceivedAt) {
			return 1
		}
		return -1
	})
	l.entries = slices.Insert(l.entries, idx, n)

	if len(l.entries) > l.memoryLimit {
		for _, dropped := range l.entries[l.memoryLimit:] {
			delete(l.keys, dropped.Key())
		}
		l.entries = l.entries[:l.memoryLimit]
	}
	return true
}

func (l *Ledger) persist() {
	if err := l.repository.Save(l.entries); err != nil {
		l.persistErr = err
		l.monitoring.IncrPersistFailure()
		l.log.Warn("Unable to persist notifications", "error", err)
		return
	}
	l.persistErr = nil
}

func (l *Ledger) build(raw event.NotificationReceived) domain.Notification {
	kind, actor := l.classify(raw.Message)

	eventType := domain.UnknownEventType
	switch {
	case raw.EventType != nil && domain.EventType(*raw.EventType).Valid():
		eventType = domain.EventType(*raw.EventType)
	default:
		if t, ok := kind.EventType(); ok {
			eventType = t
		}
	}

	payload := make(map[string]any, len(raw.AdditionalData)+3)
	for k, v := range raw.AdditionalData {
		payload[k] = v
	}
	if raw.RoomID != "" {
		payload[domain.PayloadRoomID] = raw.RoomID
	}
	if raw.PostID != "" {
		payload[domain.PayloadPostID] = raw.PostID
	}
	if actor != "" {
		payload[domain.PayloadActor] = actor
	}

	source := raw.UserID
	if source == "" {
		if s, ok := payload[domain.PayloadUserID].(string); ok {
			source = s
		}
	}

	return domain.Notification{
		ID:           lo.Ternary(raw.NotificationID != "", raw.NotificationID, uuid.NewString()),
		EventType:    eventType,
		SourceUserID: source,
		ReceivedAt:   l.now(),
		DerivedKind:  kind,
		Message:      raw.Message,
		Payload:      payload,
	}
}
