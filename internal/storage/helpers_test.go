package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fixedNow is the clock used for sample rows in tests.
var fixedNow = time.Date(2025, time.August, 15, 12, 30, 0, 0, time.UTC)

// newTestDatabase opens an in-memory database with the schema created and,
// when seed is set, the sample data inserted.
func newTestDatabase(t *testing.T, seed bool) *Database {
	t.Helper()

	db, err := New(Options{Path: MemoryPath})
	require.NoError(t, err)

	setup := BootstrapWithOptions(BootstrapOptions{
		SeedSampleData: seed,
		Now:            func() time.Time { return fixedNow },
	})
	require.NoError(t, db.Initialize(context.Background(), setup))

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// openTestDatabase opens an in-memory database with no schema.
func openTestDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := New(Options{Path: MemoryPath})
	require.NoError(t, err)
	require.NoError(t, db.Initialize(context.Background(), nil))

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ptr[T any](v T) *T {
	return &v
}

// eventRecorder counts the events delivered by a Database.
type eventRecorder struct {
	counts map[Event]int
}

func recordEvents(db *Database, events ...Event) *eventRecorder {
	r := &eventRecorder{counts: make(map[Event]int)}
	for _, e := range events {
		e := e
		db.On(e, func() { r.counts[e]++ })
	}
	return r
}
