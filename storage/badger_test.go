package storage

import (
	"chat-session/errors"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBadgerStore_SetThenGet(t *testing.T) {
	req := require.New(t)
	store := NewBadgerStore(openTestDB(t), slog.Default())

	req.NoError(store.Set("notifications", []byte(`[]`)))
	value, err := store.Get("notifications")
	req.NoError(err)
	req.Equal([]byte(`[]`), value)

	// Overwrite replaces the previous snapshot
	req.NoError(store.Set("notifications", []byte(`[{"id":"n1"}]`)))
	value, err = store.Get("notifications")
	req.NoError(err)
	req.Equal([]byte(`[{"id":"n1"}]`), value)
}

func TestBadgerStore_MissingKey(t *testing.T) {
	req := require.New(t)
	store := NewBadgerStore(openTestDB(t), slog.Default())

	_, err := store.Get("missing")
	req.ErrorIs(err, errors.ErrKeyNotFound)
}
