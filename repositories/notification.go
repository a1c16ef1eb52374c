package repositories

import (
	"chat-session/contract"
	"chat-session/domain"
	"chat-session/errors"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/lo"
)

const (
	// NotificationsKey is the fixed storage key of the persisted snapshot.
	NotificationsKey = "notifications"
	// DefaultPersistLimit bounds the persisted snapshot.
	DefaultPersistLimit = 25
)

var _ contract.NotificationRepository = (*NotificationRepository)(nil)

type NotificationRepository struct {
	store contract.KeyValueStore
	log   *slog.Logger
	limit int
}

func NewNotificationRepository(store contract.KeyValueStore, log *slog.Logger, limit int) *NotificationRepository {
	if limit <= 0 {
		limit = DefaultPersistLimit
	}
	return &NotificationRepository{store: store, log: log, limit: limit}
}

// DiskNotification is the JSON form of one persisted notification.
type DiskNotification struct {
	ID           string         `json:"notification_id"`
	EventType    int            `json:"event_type"`
	SourceUserID string         `json:"user_id,omitempty"`
	ReceivedAt   time.Time      `json:"time"`
	DerivedKind  string         `json:"type,omitempty"`
	Message      string         `json:"message"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// Save overwrites the snapshot with the most recent entries, newest first.
func (r *NotificationRepository) Save(notifications []domain.Notification) error {
	sorted := slices.Clone(notifications)
	slices.SortStableFunc(sorted, func(a, b domain.Notification) int {
		return b.ReceivedAt.Compare(a.ReceivedAt)
	})
	kept := lo.Slice(sorted, 0, r.limit)

	bytes, err := json.Marshal(lo.Map(kept, func(n domain.Notification, _ int) DiskNotification {
		return fromNotification(n)
	}))
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersist, err)
	}
	if err = r.store.Set(NotificationsKey, bytes); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersist, err)
	}
	return nil
}

// Load returns the persisted snapshot as stored. A missing key is an empty ledger.
func (r *NotificationRepository) Load() ([]domain.Notification, error) {
	bytes, err := r.store.Get(NotificationsKey)
	if stdErrors.Is(err, errors.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var disk []DiskNotification
	if err = json.Unmarshal(bytes, &disk); err != nil {
		return nil, fmt.Errorf("decode %s: %w", NotificationsKey, err)
	}
	if len(disk) > r.limit {
		r.log.Warn("Persisted snapshot exceeds limit, keeping the first entries",
			"stored", len(disk), "limit", r.limit)
		disk = disk[:r.limit]
	}
	return lo.Map(disk, func(d DiskNotification, _ int) domain.Notification {
		return toNotification(d)
	}), nil
}

func fromNotification(n domain.Notification) DiskNotification {
	return DiskNotification{
		ID:           n.ID,
		EventType:    int(n.EventType),
		SourceUserID: n.SourceUserID,
		ReceivedAt:   n.ReceivedAt,
		DerivedKind:  string(n.DerivedKind),
		Message:      n.Message,
		Payload:      n.Payload,
	}
}

func toNotification(d DiskNotification) domain.Notification {
	return domain.Notification{
		ID:           d.ID,
		EventType:    domain.EventType(d.EventType),
		SourceUserID: d.SourceUserID,
		ReceivedAt:   d.ReceivedAt,
		DerivedKind:  domain.DerivedKind(d.DerivedKind),
		Message:      d.Message,
		Payload:      d.Payload,
	}
}
