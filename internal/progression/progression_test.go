package progression

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/matchgrid/tourney/internal/events"
	"github.com/matchgrid/tourney/internal/models"
	"github.com/matchgrid/tourney/internal/store"
	"github.com/matchgrid/tourney/internal/tenant"
	"github.com/stretchr/testify/require"
)

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, nil))
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, store.Migrate(context.Background(), db))
	return db
}

// testHarness bundles a wired Service with direct store access, so tests can
// set up preconditions (e.g. tournament state) the Service API itself has no
// reason to expose.
type testHarness struct {
	svc         *Service
	db          *sql.DB
	tournaments store.TournamentStore
}

func (h *testHarness) setState(t *testing.T, tournamentID int64, state models.TournamentState) {
	t.Helper()
	require.NoError(t, h.tournaments.UpdateState(context.Background(), h.db, tournamentID, state, nil, nil))
}

// newTestHarness wires a full Service plus a seeded, active tournament with
// the given number of participants (seeded 1..n in order).
func newTestHarness(t *testing.T, format models.TournamentFormat, n int) (*Service, tenant.Scope, *models.Tournament, []*models.Participant) {
	svc, scope, tourn, roster, _ := newTestHarnessFull(t, format, n, models.DefaultOptions())
	return svc, scope, tourn, roster
}

func newTestHarnessWithOptions(t *testing.T, format models.TournamentFormat, n int, opts models.TournamentOptions) (*Service, tenant.Scope, *models.Tournament, []*models.Participant) {
	svc, scope, tourn, roster, _ := newTestHarnessFull(t, format, n, opts)
	return svc, scope, tourn, roster
}

func newTestHarnessFull(t *testing.T, format models.TournamentFormat, n int, opts models.TournamentOptions) (*Service, tenant.Scope, *models.Tournament, []*models.Participant, *testHarness) {
	t.Helper()
	db := openTestDB(t)
	ctx := context.Background()

	tournaments := store.NewTournamentStore()
	participants := store.NewParticipantStore()
	matches := store.NewMatchStore()
	stations := store.NewStationStore()
	history := store.NewHistoryStore()
	bus := events.NewBus()

	svc := NewService(db, store.NewLockRegistry(), tournaments, participants, matches, stations, history, bus, discardLogger(), 50)

	scope := tenant.Scope{TenantID: 1}
	tourn := &models.Tournament{
		TenantID: 1, Name: "t", Slug: "t", Format: format, State: models.StatePending,
		Options: opts,
	}
	require.NoError(t, tournaments.Create(ctx, db, tourn))

	var roster []*models.Participant
	for i := 0; i < n; i++ {
		p := &models.Participant{TournamentID: tourn.ID, DisplayName: string(rune('A' + i)), Seed: i + 1, Active: true}
		require.NoError(t, participants.Create(ctx, db, p))
		roster = append(roster, p)
	}
	return svc, scope, tourn, roster, &testHarness{svc: svc, db: db, tournaments: tournaments}
}
