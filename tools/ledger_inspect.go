package main

import (
	"chat-session/repositories"
	"chat-session/storage"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/notifications", "Path to the notification badger directory")
	limit := flag.Int("limit", repositories.DefaultPersistLimit, "Maximum notifications to read")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	repository := repositories.NewNotificationRepository(storage.NewBadgerStore(db, slog.Default()), slog.Default(), *limit)
	notifications, err := repository.Load()
	if err != nil {
		log.Fatal(err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Received", "ID", "Type", "Kind", "From", "Message", "Payload"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, n := range notifications {
		displayID := n.ID
		if len(displayID) > 8 {
			displayID = displayID[:8]
		}
		payload := make([]string, 0, len(n.Payload))
		for k, v := range n.Payload {
			payload = append(payload, fmt.Sprintf("%s=%v", k, v))
		}
		table.Append([]string{
			n.ReceivedAt.Format(time.DateTime),
			displayID,
			n.EventType.String(),
			string(n.DerivedKind),
			n.SourceUserID,
			n.Message,
			strings.Join(payload, " "),
		})
	}
	table.Render()
	fmt.Printf("%d notification(s)\n", len(notifications))
}

// openDB opens the directory read-only so it can be inspected while a client runs.
func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
