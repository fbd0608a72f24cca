package store

import (
	"context"
	"testing"

	"github.com/matchgrid/tourney/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationStore_CreateListAvailableAssign(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tournamentID := seedTournament(t, db)
	s := NewStationStore()

	court1 := &models.Station{TournamentID: tournamentID, Name: "Court 1"}
	court2 := &models.Station{TournamentID: tournamentID, Name: "Court 2"}
	require.NoError(t, s.Create(ctx, db, court1))
	require.NoError(t, s.Create(ctx, db, court2))

	available, err := s.ListAvailable(ctx, db, tournamentID)
	require.NoError(t, err)
	assert.Len(t, available, 2)

	matchID := int64(42)
	require.NoError(t, s.AssignMatch(ctx, db, court1.ID, &matchID))

	available, err = s.ListAvailable(ctx, db, tournamentID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Court 2", available[0].Name)

	got, err := s.Get(ctx, db, court1.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentMatchID)
	assert.Equal(t, matchID, *got.CurrentMatchID)

	require.NoError(t, s.AssignMatch(ctx, db, court1.ID, nil))
	got, err = s.Get(ctx, db, court1.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CurrentMatchID)
}

func TestStationStore_Delete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tournamentID := seedTournament(t, db)
	s := NewStationStore()

	st := &models.Station{TournamentID: tournamentID, Name: "Court 1"}
	require.NoError(t, s.Create(ctx, db, st))
	require.NoError(t, s.Delete(ctx, db, st.ID))
	assert.Equal(t, models.KindNotFound, models.KindOf(s.Delete(ctx, db, st.ID)))
}
