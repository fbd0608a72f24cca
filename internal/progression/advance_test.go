package progression

import (
	"context"
	"testing"

	"github.com/matchgrid/tourney/internal/models"
	"github.com/matchgrid/tourney/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetWinner_RecordsResultAndPropagatesToNextMatch(t *testing.T) {
	svc, scope, tourn, _ := newTestHarness(t, models.FormatSingleElim, 4)
	ctx := context.Background()

	matches, err := svc.GenerateBracket(ctx, scope, tourn.ID)
	require.NoError(t, err)

	var first *models.Match
	for _, m := range matches {
		if m.Round == 1 && m.BothSlotsFilled() {
			first = m
			break
		}
	}
	require.NotNil(t, first, "expected at least one round-1 match with both slots filled")

	p1Score, p2Score := 11, 5
	updated, err := svc.SetWinner(ctx, scope, first.ID, *first.Player1ID, &p1Score, &p2Score)
	require.NoError(t, err)
	assert.Equal(t, models.MatchComplete, updated.State)
	assert.Equal(t, *first.Player1ID, *updated.WinnerID)
	assert.Equal(t, *first.Player2ID, *updated.LoserID)

	dependents, err := svc.ListMatches(ctx, scope, tourn.ID)
	require.NoError(t, err)
	found := false
	for _, m := range dependents {
		if (m.Player1PrereqMatchID != nil && *m.Player1PrereqMatchID == first.ID) ||
			(m.Player2PrereqMatchID != nil && *m.Player2PrereqMatchID == first.ID) {
			found = true
			if m.Player1PrereqMatchID != nil && *m.Player1PrereqMatchID == first.ID {
				require.NotNil(t, m.Player1ID)
				assert.Equal(t, *first.Player1ID, *m.Player1ID)
			} else {
				require.NotNil(t, m.Player2ID)
				assert.Equal(t, *first.Player1ID, *m.Player2ID)
			}
		}
	}
	assert.True(t, found, "winner should have propagated into a dependent match slot")
}

func TestSetWinner_RejectsAmbiguousWinnerID(t *testing.T) {
	svc, scope, tourn, _ := newTestHarness(t, models.FormatSingleElim, 4)
	ctx := context.Background()

	matches, err := svc.GenerateBracket(ctx, scope, tourn.ID)
	require.NoError(t, err)
	var first *models.Match
	for _, m := range matches {
		if m.Round == 1 && m.BothSlotsFilled() {
			first = m
			break
		}
	}
	require.NotNil(t, first)

	_, err = svc.SetWinner(ctx, scope, first.ID, 999999, nil, nil)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestSetWinner_RejectsByeMatch(t *testing.T) {
	svc, scope, tourn, _ := newTestHarness(t, models.FormatSingleElim, 3)
	ctx := context.Background()

	matches, err := svc.GenerateBracket(ctx, scope, tourn.ID)
	require.NoError(t, err)
	var bye *models.Match
	for _, m := range matches {
		if m.IsBye {
			bye = m
			break
		}
	}
	require.NotNil(t, bye, "3 participants in single elim should produce a bye")

	_, err = svc.SetWinner(ctx, scope, bye.ID, *bye.WinnerID, nil, nil)
	assert.Equal(t, models.KindConflict, models.KindOf(err))
}

func TestSetForfeit_AwardsWinToOpponentAndFlagsForfeit(t *testing.T) {
	svc, scope, tourn, _ := newTestHarness(t, models.FormatSingleElim, 4)
	ctx := context.Background()

	matches, err := svc.GenerateBracket(ctx, scope, tourn.ID)
	require.NoError(t, err)
	var first *models.Match
	for _, m := range matches {
		if m.Round == 1 && m.BothSlotsFilled() {
			first = m
			break
		}
	}
	require.NotNil(t, first)

	loser := *first.Player1ID
	updated, err := svc.SetForfeit(ctx, scope, first.ID, loser)
	require.NoError(t, err)
	assert.True(t, updated.Forfeited)
	assert.Equal(t, loser, *updated.ForfeitedParticipant)
	assert.Equal(t, *first.Player2ID, *updated.WinnerID)
}

func TestSetForfeit_RejectsUnknownParticipant(t *testing.T) {
	svc, scope, tourn, _ := newTestHarness(t, models.FormatSingleElim, 4)
	ctx := context.Background()

	matches, err := svc.GenerateBracket(ctx, scope, tourn.ID)
	require.NoError(t, err)
	var first *models.Match
	for _, m := range matches {
		if m.Round == 1 {
			first = m
			break
		}
	}
	require.NotNil(t, first)

	_, err = svc.SetForfeit(ctx, scope, first.ID, 999999)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestDoubleElim_GrandFinalsReset_GeneratedAsPendingAndUnresolved(t *testing.T) {
	svc, scope, tourn, _ := newTestHarness(t, models.FormatDoubleElim, 4)
	ctx := context.Background()

	matches, err := svc.GenerateBracket(ctx, scope, tourn.ID)
	require.NoError(t, err)

	var reset *models.Match
	for _, m := range matches {
		if m.GrandFinalsReset {
			reset = m
		}
	}
	require.NotNil(t, reset, "double elim with the default grand finals modifier should generate a reset match")
	assert.Equal(t, models.MatchPending, reset.State)
	assert.Nil(t, reset.WinnerID)
}

// playOpenMatch finds an open match and calls SetWinner on it, picking
// whichever slot is requested ("player1" or "player2") as the winner.
func playOpenMatch(t *testing.T, svc *Service, scope tenant.Scope, tournamentID int64, pick string) *models.Match {
	t.Helper()
	ctx := context.Background()
	matches, err := svc.ListMatches(ctx, scope, tournamentID)
	require.NoError(t, err)
	for _, m := range matches {
		if m.State != models.MatchOpen {
			continue
		}
		winner := *m.Player1ID
		if pick == "player2" {
			winner = *m.Player2ID
		}
		updated, err := svc.SetWinner(ctx, scope, m.ID, winner, nil, nil)
		require.NoError(t, err)
		return updated
	}
	t.Fatal("no open match found")
	return nil
}

// TestDoubleElim_GrandFinalsReset_PropagatesAndResolvesOnReplay plays a full
// 4-player double-elimination bracket through to completion, exercising the
// gf1 -> gf2 prereq wiring fixed in double_elim.go: gf2 must surface as a
// dependent of gf1 (not of gf1's own inputs) for the tournament to ever
// reach VerifyAndRank successfully when the losers finalist forces a reset.
func TestDoubleElim_GrandFinalsReset_PropagatesAndResolvesOnReplay(t *testing.T) {
	svc, scope, tourn, _ := newTestHarness(t, models.FormatDoubleElim, 4)
	ctx := context.Background()

	_, err := svc.GenerateBracket(ctx, scope, tourn.ID)
	require.NoError(t, err)

	// A 4-player double-elimination bracket needs exactly 5 results (2
	// winners-round-1, the winners final, and the 2 losers-bracket rounds
	// they feed) before both of gf1's slots are filled.
	for i := 0; i < 5; i++ {
		playOpenMatch(t, svc, scope, tourn.ID, "player1")
	}

	matches, err := svc.ListMatches(ctx, scope, tourn.ID)
	require.NoError(t, err)
	var gf1, gf2 *models.Match
	for _, m := range matches {
		if m.GrandFinalsReset {
			gf2 = m
		}
	}
	require.NotNil(t, gf2, "expected a generated grand finals reset match")
	for _, m := range matches {
		if !m.GrandFinalsReset && m.Round == gf2.Round-1 {
			gf1 = m
		}
	}
	require.NotNil(t, gf1, "expected a generated grand finals match")
	assert.Equal(t, models.MatchPending, gf2.State, "reset match stays pending before gf1 is played")

	// The losers-bracket finalist (player2 of gf1, by generation convention)
	// wins the first grand final, forcing a reset game.
	require.NotNil(t, gf1.Player2ID)
	updatedGF1, err := svc.SetWinner(ctx, scope, gf1.ID, *gf1.Player2ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchComplete, updatedGF1.State)

	matches, err = svc.ListMatches(ctx, scope, tourn.ID)
	require.NoError(t, err)
	for _, m := range matches {
		if m.ID == gf2.ID {
			gf2 = m
		}
	}
	require.Equal(t, models.MatchOpen, gf2.State, "gf1 completing should have propagated into gf2 and opened it for a replay")
	require.NotNil(t, gf2.Player1ID)
	require.NotNil(t, gf2.Player2ID)

	_, err = svc.SetWinner(ctx, scope, gf2.ID, *gf2.Player1ID, nil, nil)
	require.NoError(t, err)

	ranks, err := svc.VerifyAndRank(ctx, scope, tourn.ID)
	require.NoError(t, err, "tournament should be completable once the reset game is played")
	assert.NotEmpty(t, ranks)
}

func TestResolveGrandFinalsReset_StaysPendingUntilBothSlotsFilled(t *testing.T) {
	reset := &models.Match{Round: 5, GrandFinalsReset: true, State: models.MatchPending}
	completed := &models.Match{Round: 4, State: models.MatchComplete}
	winner := int64(1)
	completed.WinnerID = &winner

	resolveGrandFinalsReset(reset, completed)
	assert.Equal(t, models.MatchPending, reset.State, "reset can't resolve before it has both players")
}

func TestResolveGrandFinalsReset_OpensWhenLosersFinalistWinsGrandFinal(t *testing.T) {
	wbFinalist, lbFinalist := int64(1), int64(2)
	reset := &models.Match{
		Round: 5, GrandFinalsReset: true, State: models.MatchPending,
		Player1ID: &wbFinalist, Player2ID: &lbFinalist,
	}
	completed := &models.Match{
		Round: 4, State: models.MatchComplete,
		Player1ID: &wbFinalist, Player2ID: &lbFinalist,
		WinnerID: &lbFinalist, LoserID: &wbFinalist,
	}

	resolveGrandFinalsReset(reset, completed)
	assert.Equal(t, models.MatchOpen, reset.State, "losers finalist winning the first grand final forces a reset game")
}

func TestResolveGrandFinalsReset_AutoCompletesWhenWinnersFinalistWinsGrandFinal(t *testing.T) {
	wbFinalist, lbFinalist := int64(1), int64(2)
	reset := &models.Match{
		Round: 5, GrandFinalsReset: true, State: models.MatchPending,
		Player1ID: &wbFinalist, Player2ID: &lbFinalist,
	}
	completed := &models.Match{
		Round: 4, State: models.MatchComplete,
		Player1ID: &wbFinalist, Player2ID: &lbFinalist,
		WinnerID: &wbFinalist, LoserID: &lbFinalist,
	}

	resolveGrandFinalsReset(reset, completed)
	assert.Equal(t, models.MatchComplete, reset.State)
	require.NotNil(t, reset.WinnerID)
	assert.Equal(t, wbFinalist, *reset.WinnerID, "winners finalist already holds the title outright, no replay needed")
}

func TestResolveGrandFinalsReset_IgnoresUnrelatedRounds(t *testing.T) {
	reset := &models.Match{
		Round: 5, GrandFinalsReset: true, State: models.MatchPending,
		Player1ID: int64Ptr(1), Player2ID: int64Ptr(2),
	}
	completed := &models.Match{Round: 2, State: models.MatchComplete, WinnerID: int64Ptr(1)}

	resolveGrandFinalsReset(reset, completed)
	assert.Equal(t, models.MatchPending, reset.State, "only the immediately preceding grand final round may activate the reset")
}

func int64Ptr(v int64) *int64 { return &v }
