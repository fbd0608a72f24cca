package registry

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/matchgrid/tourney/internal/events"
	"github.com/matchgrid/tourney/internal/store"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, store.Migrate(context.Background(), db))
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, nil))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestRegistries(t *testing.T) (*TournamentRegistry, *ParticipantRegistry) {
	db := openTestDB(t)
	bus := events.NewBus()
	log := discardLogger()
	ts := store.NewTournamentStore()
	ps := store.NewParticipantStore()
	return NewTournamentRegistry(db, ts, bus, log), NewParticipantRegistry(db, ts, ps, bus, log)
}
