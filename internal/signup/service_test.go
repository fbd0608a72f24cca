package signup

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/matchgrid/tourney/internal/events"
	"github.com/matchgrid/tourney/internal/models"
	"github.com/matchgrid/tourney/internal/store"
	"github.com/stretchr/testify/assert"
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

func newTestService(t *testing.T) (*Service, *models.Tournament) {
	t.Helper()
	db := openTestDB(t)
	ctx := context.Background()

	tournaments := store.NewTournamentStore()
	participants := store.NewParticipantStore()
	waitlist := store.NewWaitlistStore()
	bus := events.NewBus()

	tourn := &models.Tournament{
		TenantID: 1, Name: "Open", Slug: "open", Format: models.FormatSingleElim,
		State: models.StatePending, Options: models.DefaultOptions(),
	}
	require.NoError(t, tournaments.Create(ctx, db, tourn))

	svc := NewService(db, tournaments, participants, waitlist, bus, discardLogger())
	return svc, tourn
}

func TestLookupParticipant_ExactMatchBeforeSubstring(t *testing.T) {
	svc, tourn := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, tourn.ID, "Ann", "")
	require.NoError(t, err)
	_, err = svc.Signup(ctx, tourn.ID, "Annabelle", "")
	require.NoError(t, err)

	found, err := svc.LookupParticipant(ctx, tourn.ID, "ann")
	require.NoError(t, err)
	assert.Equal(t, "Ann", found.DisplayName, "exact case-insensitive match wins over a substring match")
}

func TestLookupParticipant_FallsBackToSubstring(t *testing.T) {
	svc, tourn := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, tourn.ID, "Annabelle", "")
	require.NoError(t, err)

	found, err := svc.LookupParticipant(ctx, tourn.ID, "nab")
	require.NoError(t, err)
	assert.Equal(t, "Annabelle", found.DisplayName)
}

func TestLookupParticipant_NotFoundOnEmptyNeedle(t *testing.T) {
	svc, tourn := newTestService(t)
	ctx := context.Background()

	_, err := svc.LookupParticipant(ctx, tourn.ID, "   ")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSignup_AssignsSequentialSeeds(t *testing.T) {
	svc, tourn := newTestService(t)
	ctx := context.Background()

	a, err := svc.Signup(ctx, tourn.ID, "Ann", "")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Seed)

	b, err := svc.Signup(ctx, tourn.ID, "Bo", "")
	require.NoError(t, err)
	assert.Equal(t, 2, b.Seed)
}

func TestSignup_RejectsDuplicateNameCaseInsensitive(t *testing.T) {
	svc, tourn := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, tourn.ID, "Ann", "")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, tourn.ID, "ANN", "")
	assert.Equal(t, models.KindConflict, models.KindOf(err))
}

func TestSignup_RejectsOnceCapReached(t *testing.T) {
	svc, tourn := newTestService(t)
	ctx := context.Background()
	tourn.Options.SignupCap = 1
	require.NoError(t, signupStoreTournaments(t, svc, tourn))

	_, err := svc.Signup(ctx, tourn.ID, "Ann", "")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, tourn.ID, "Bo", "")
	assert.Equal(t, models.KindConflict, models.KindOf(err))
}

// signupStoreTournaments persists a tournament's options directly, since
// Service has no update-options method and tests need to set the signup cap
// after creation.
func signupStoreTournaments(t *testing.T, svc *Service, tourn *models.Tournament) error {
	t.Helper()
	_, err := svc.db.ExecContext(context.Background(),
		`UPDATE tcc_tournaments SET options_json = ? WHERE id = ?`,
		`{"hold_third_place_match":false,"grand_finals_modifier":"none","swiss_rounds":0,"ranked_by":"match_wins","sequential_pairings":false,"bye_strategy":"traditional","compact_bracket":false,"signup_cap":1}`,
		tourn.ID)
	return err
}

func TestSignup_RejectsOnceTournamentLeavesPending(t *testing.T) {
	svc, tourn := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.tournaments.UpdateState(ctx, svc.db, tourn.ID, models.StateUnderway, nil, nil))

	_, err := svc.Signup(ctx, tourn.ID, "Ann", "")
	assert.Equal(t, models.KindConflict, models.KindOf(err))
}

func TestWaitlistJoin_AssignsSequentialPosition(t *testing.T) {
	svc, tourn := newTestService(t)
	ctx := context.Background()

	a, err := svc.WaitlistJoin(ctx, tourn.ID, "Ann", "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Position)
	assert.Equal(t, models.WaitlistWaiting, a.Status)

	b, err := svc.WaitlistJoin(ctx, tourn.ID, "Bo", "bo@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, b.Position)
}

func TestWaitlistLeave_CompactsRemainingPositions(t *testing.T) {
	svc, tourn := newTestService(t)
	ctx := context.Background()

	a, err := svc.WaitlistJoin(ctx, tourn.ID, "Ann", "")
	require.NoError(t, err)
	b, err := svc.WaitlistJoin(ctx, tourn.ID, "Bo", "")
	require.NoError(t, err)
	c, err := svc.WaitlistJoin(ctx, tourn.ID, "Cy", "")
	require.NoError(t, err)

	require.NoError(t, svc.WaitlistLeave(ctx, tourn.ID, a.ID))

	bAfter, err := svc.WaitlistStatus(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, bAfter.Position)

	cAfter, err := svc.WaitlistStatus(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cAfter.Position)

	aAfter, err := svc.WaitlistStatus(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WaitlistRemoved, aAfter.Status)
}

func TestWaitlistStatus_ReturnsNotFoundForUnknownEntry(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.WaitlistStatus(context.Background(), 999999)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}
