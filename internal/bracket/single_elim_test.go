package bracket

import (
	"testing"

	"github.com/matchgrid/tourney/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterOf(ids ...int64) []Seed {
	out := make([]Seed, len(ids))
	for i, id := range ids {
		out[i] = Seed{ParticipantID: id, Seed: i + 1}
	}
	return out
}

// Scenario A (spec.md §8): four seeded participants produce 1v4, 2v3, and a
// final referencing both winners.
func TestSingleElimination_FourSeeds(t *testing.T) {
	roster := rosterOf(1, 2, 3, 4) // participant ids equal their seed for readability
	out, stats, err := SingleElimination{}.Generate(roster, models.DefaultOptions())
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, int64(1), *out[0].Player1ID)
	assert.Equal(t, int64(4), *out[0].Player2ID)
	assert.Equal(t, int64(2), *out[1].Player1ID)
	assert.Equal(t, int64(3), *out[1].Player2ID)

	final := out[2]
	require.NotNil(t, final.Player1PrereqIndex)
	require.NotNil(t, final.Player2PrereqIndex)
	assert.Equal(t, 0, *final.Player1PrereqIndex)
	assert.Equal(t, 1, *final.Player2PrereqIndex)
	assert.False(t, final.Player1IsPrereqLoser)

	assert.Equal(t, 3, stats.TotalMatches)
	assert.Equal(t, 0, stats.ByeMatches)
	assert.Equal(t, 2, stats.RoundCount)
}

// Scenario B (spec.md §8): three participants under the default (traditional)
// bye strategy produce exactly one bye, and the bye winner (the top seed)
// advances directly into the final against the winner of the only real
// round-1 match.
func TestSingleElimination_ThreeSeeds_TraditionalBye(t *testing.T) {
	alice, bob, cara := int64(201), int64(202), int64(203)
	roster := []Seed{{ParticipantID: alice, Seed: 1}, {ParticipantID: bob, Seed: 2}, {ParticipantID: cara, Seed: 3}}

	out, stats, err := SingleElimination{}.Generate(roster, models.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, 1, stats.ByeMatches)

	bye := out[0]
	assert.True(t, bye.IsBye)
	require.NotNil(t, bye.ByeWinnerID)
	assert.Equal(t, alice, *bye.ByeWinnerID)

	realMatch := out[1]
	assert.False(t, realMatch.IsBye)
	assert.Equal(t, bob, *realMatch.Player1ID)
	assert.Equal(t, cara, *realMatch.Player2ID)

	final := out[2]
	require.NotNil(t, final.Player1PrereqIndex)
	require.NotNil(t, final.Player2PrereqIndex)
	assert.Equal(t, 0, *final.Player1PrereqIndex)
	assert.Equal(t, 1, *final.Player2PrereqIndex)
}

// Boundary behavior (spec.md §8): N = 2^k + 1 produces exactly 2^k - 1 byes,
// all in round 1, under the compact_bracket strategy none are persisted as
// matches at all.
func TestSingleElimination_CompactBracket_SuppressesByeMatches(t *testing.T) {
	roster := rosterOf(1, 2, 3, 4, 5) // 5 participants, B=8, 3 byes
	opts := models.DefaultOptions()
	opts.ByeStrategy = models.ByeCompact
	opts.CompactBracket = true

	out, stats, err := SingleElimination{}.Generate(roster, opts)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.ByeMatches)
	for _, d := range out {
		assert.False(t, d.IsBye)
	}
	// 5 participants -> 4 match wins needed to crown a champion regardless of
	// how many byes the compact bracket suppressed.
	assert.Equal(t, 4, stats.TotalMatches)
}

func TestSingleElimination_ThirdPlaceMatch(t *testing.T) {
	roster := rosterOf(1, 2, 3, 4, 5, 6, 7, 8)
	opts := models.DefaultOptions()
	opts.HoldThirdPlaceMatch = true

	out, stats, err := SingleElimination{}.Generate(roster, opts)
	require.NoError(t, err)

	// 4 (round1) + 2 (semis) + 1 (final) + 1 (third place) = 8
	require.Len(t, out, 8)
	assert.Equal(t, 3, stats.RoundCount)

	thirdPlace := out[len(out)-1]
	assert.True(t, thirdPlace.Player1IsPrereqLoser)
	assert.True(t, thirdPlace.Player2IsPrereqLoser)
}

func TestSingleElimination_RejectsTooFewParticipants(t *testing.T) {
	_, _, err := SingleElimination{}.Generate(rosterOf(1), models.DefaultOptions())
	assert.Error(t, err)
}
