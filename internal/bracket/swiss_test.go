package bracket

import (
	"testing"

	"github.com/matchgrid/tourney/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwiss_OpeningRound_TopHalfVsBottomHalf(t *testing.T) {
	roster := rosterOf(1, 2, 3, 4)
	out, stats, err := Swiss{}.Generate(roster, models.DefaultOptions())
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, int64(1), *out[0].Player1ID)
	assert.Equal(t, int64(3), *out[0].Player2ID)
	assert.Equal(t, int64(2), *out[1].Player1ID)
	assert.Equal(t, int64(4), *out[1].Player2ID)
	assert.Equal(t, 2, stats.FormatSpecificRounds) // ceil(log2(4))
}

func TestSwiss_OddCount_OneOpeningBye(t *testing.T) {
	roster := rosterOf(1, 2, 3, 4, 5)
	out, stats, err := Swiss{}.Generate(roster, models.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ByeMatches)

	var byes int
	for _, d := range out {
		if d.IsBye {
			byes++
		}
	}
	assert.Equal(t, 1, byes)
}

func TestRecommendedRounds(t *testing.T) {
	assert.Equal(t, 2, RecommendedRounds(4))
	assert.Equal(t, 3, RecommendedRounds(5))
	assert.Equal(t, 3, RecommendedRounds(8))
	assert.Equal(t, 4, RecommendedRounds(9))
}

func TestSwissNextRound_AvoidsRematches(t *testing.T) {
	standings := []StandingEntry{
		{ParticipantID: 1, Score: 1},
		{ParticipantID: 2, Score: 1},
		{ParticipantID: 3, Score: 0},
		{ParticipantID: 4, Score: 0},
	}
	played := map[[2]int64]bool{pairKey(1, 3): true, pairKey(2, 4): true}

	out, _, err := SwissNextRound(standings, played, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)

	for _, d := range out {
		key := pairKey(*d.Player1ID, *d.Player2ID)
		assert.False(t, played[key], "round should not replay pair %v", key)
	}
}

func TestSwissNextRound_FloatsByeToLowestUnbyedScorer(t *testing.T) {
	standings := []StandingEntry{
		{ParticipantID: 1, Score: 2, HasHadBye: true},
		{ParticipantID: 2, Score: 1},
		{ParticipantID: 3, Score: 0},
	}
	out, _, err := SwissNextRound(standings, map[[2]int64]bool{}, 2)
	require.NoError(t, err)

	var byeRecipient *int64
	for _, d := range out {
		if d.IsBye {
			byeRecipient = d.ByeWinnerID
		}
	}
	require.NotNil(t, byeRecipient)
	assert.Equal(t, int64(3), *byeRecipient)
}
