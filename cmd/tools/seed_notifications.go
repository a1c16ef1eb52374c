package main

import (
	"chat-session/classifier"
	"chat-session/domain"
	"chat-session/repositories"
	"chat-session/storage"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

func main() {
	dbPath := flag.String("db", "./data/notifications", "Path to the notification badger directory")
	count := flag.Int("n", 40, "Number of notifications to generate")
	flag.Parse()

	db, err := storage.Open(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	kinds := []domain.DerivedKind{
		domain.KindFollow, domain.KindUnfollow, domain.KindPrivateChatRequest,
		domain.KindVotedPost, domain.KindRemovedFollower, domain.KindCommentedPost,
	}
	start := time.Now().Add(-time.Duration(*count) * time.Minute)
	notifications := make([]domain.Notification, 0, *count)
	for i := 0; i < *count; i++ {
		kind := kinds[i%len(kinds)]
		eventType, _ := kind.EventType()
		actor := fmt.Sprintf("User%d", i)
		payload := map[string]any{domain.PayloadActor: actor}
		switch kind {
		case domain.KindPrivateChatRequest:
			payload[domain.PayloadRoomID] = fmt.Sprintf("room-%d", i)
		case domain.KindCommentedPost, domain.KindVotedPost:
			payload[domain.PayloadPostID] = fmt.Sprintf("post-%d", i)
		}
		notifications = append(notifications, domain.Notification{
			ID:           uuid.NewString(),
			EventType:    eventType,
			SourceUserID: fmt.Sprintf("u%d", i),
			ReceivedAt:   start.Add(time.Duration(i) * time.Minute),
			DerivedKind:  kind,
			Message:      actor + " " + classifier.DefaultSuffixes[kind],
			Payload:      payload,
		})
	}

	repository := repositories.NewNotificationRepository(storage.NewBadgerStore(db, slog.Default()), slog.Default(), repositories.DefaultPersistLimit)
	if err := repository.Save(notifications); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Seeded %d notification(s), %d kept\n", *count, min(*count, repositories.DefaultPersistLimit))
}
