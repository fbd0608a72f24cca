package progression

import (
	"context"
	"database/sql"
	"sort"

	"github.com/matchgrid/tourney/internal/bracket"
	"github.com/matchgrid/tourney/internal/models"
	"github.com/matchgrid/tourney/internal/tenant"
)

// ListMatches returns every match for a tournament in play order, used by
// the bracket visualization endpoint (spec.md §6).
func (s *Service) ListMatches(ctx context.Context, scope tenant.Scope, tournamentID int64) ([]*models.Match, error) {
	if _, err := s.ownedTournament(ctx, s.db, scope, tournamentID); err != nil {
		return nil, err
	}
	return s.matches.ListByTournament(ctx, s.db, tournamentID)
}

// GetMatch fetches one match, ownership-checked via its tournament.
func (s *Service) GetMatch(ctx context.Context, scope tenant.Scope, matchID int64) (*models.Match, error) {
	m, _, err := s.ownedMatch(ctx, s.db, scope, matchID)
	return m, err
}

// ResetBracket deletes every generated match (and its history) for a
// tournament, reverting stations to free, so the tournament can be
// re-generated from scratch (spec.md §6 `/reset`).
func (s *Service) ResetBracket(ctx context.Context, scope tenant.Scope, tournamentID int64) error {
	if err := scope.RequireWritable(); err != nil {
		return err
	}
	return s.acquireAndRun(ctx, tournamentID, func(tx *sql.Tx) error {
		if _, err := s.ownedTournament(ctx, tx, scope, tournamentID); err != nil {
			return err
		}
		stations, err := s.stations.ListByTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		for _, st := range stations {
			if st.CurrentMatchID != nil {
				if err := s.stations.AssignMatch(ctx, tx, st.ID, nil); err != nil {
					return err
				}
			}
		}
		return s.matches.DeleteByTournament(ctx, tx, tournamentID)
	})
}

// StandingEntry is one participant's computed record (spec.md §4.2's
// standings endpoint).
type StandingEntry struct {
	ParticipantID int64
	Wins          int
	Losses        int
	PointsFor     int
	PointsAgainst int
	Rank          int
}

// Standings ranks every participant on the roster by the tournament's configured
// RankedBy metric, computed from completed non-bye matches.
func (s *Service) Standings(ctx context.Context, scope tenant.Scope, tournamentID int64) ([]StandingEntry, error) {
	t, err := s.ownedTournament(ctx, s.db, scope, tournamentID)
	if err != nil {
		return nil, err
	}
	roster, err := s.participants.ListByTournament(ctx, s.db, tournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matches.ListByTournament(ctx, s.db, tournamentID)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*StandingEntry, len(roster))
	for _, p := range roster {
		byID[p.ID] = &StandingEntry{ParticipantID: p.ID}
	}
	for _, m := range matches {
		if m.IsBye || m.State != models.MatchComplete || m.WinnerID == nil {
			continue
		}
		if w, ok := byID[*m.WinnerID]; ok {
			w.Wins++
		}
		if m.LoserID != nil {
			if l, ok := byID[*m.LoserID]; ok {
				l.Losses++
			}
		}
		if m.Player1ID != nil && m.Player1Score != nil {
			if e, ok := byID[*m.Player1ID]; ok {
				e.PointsFor += *m.Player1Score
				if m.Player2Score != nil {
					e.PointsAgainst += *m.Player2Score
				}
			}
		}
		if m.Player2ID != nil && m.Player2Score != nil {
			if e, ok := byID[*m.Player2ID]; ok {
				e.PointsFor += *m.Player2Score
				if m.Player1Score != nil {
					e.PointsAgainst += *m.Player1Score
				}
			}
		}
	}

	out := make([]StandingEntry, 0, len(byID))
	for _, e := range byID {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		switch t.Options.RankedBy {
		case models.RankedByPoints:
			if out[i].PointsFor != out[j].PointsFor {
				return out[i].PointsFor > out[j].PointsFor
			}
		case models.RankedByPointsDiff:
			di, dj := out[i].PointsFor-out[i].PointsAgainst, out[j].PointsFor-out[j].PointsAgainst
			if di != dj {
				return di > dj
			}
		case models.RankedByGameWins:
			// approximated by total points scored, since the system doesn't
			// track per-game (as opposed to per-match) results separately.
			if out[i].PointsFor != out[j].PointsFor {
				return out[i].PointsFor > out[j].PointsFor
			}
		}
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].ParticipantID < out[j].ParticipantID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// VerifyAndRank confirms every non-bye match is complete, then computes
// final rank assignments: elimination formats rank by the round a
// participant was last eliminated (champion first), round-robin/Swiss rank
// by Standings order (spec.md §4.2, "complete" transition).
func (s *Service) VerifyAndRank(ctx context.Context, scope tenant.Scope, tournamentID int64) (map[int64]int, error) {
	t, err := s.ownedTournament(ctx, s.db, scope, tournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matches.ListByTournament(ctx, s.db, tournamentID)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if m.IsBye {
			continue
		}
		if m.GrandFinalsReset && m.State == models.MatchPending && !m.BothSlotsFilled() {
			continue // never activated: winners finalist already won outright
		}
		if m.State != models.MatchComplete {
			return nil, models.Wrap(models.KindConflict, "not every match has been completed", nil)
		}
	}

	switch t.Format {
	case models.FormatRoundRobin, models.FormatSwiss:
		standings, err := s.Standings(ctx, scope, tournamentID)
		if err != nil {
			return nil, err
		}
		ranks := make(map[int64]int, len(standings))
		for _, e := range standings {
			ranks[e.ParticipantID] = e.Rank
		}
		return ranks, nil
	default:
		return rankByElimination(matches), nil
	}
}

// rankByElimination assigns 1 to the champion, 2 to the runner-up (the
// grand finals / final loser), and groups everyone else by the round they
// were eliminated in, tied participants sharing a rank (spec.md §4.2).
func rankByElimination(matches []*models.Match) map[int64]int {
	var final *models.Match
	finalRound := -1 << 62
	for _, m := range matches {
		if m.IsBye {
			continue
		}
		round := m.Round
		if m.GrandFinalsReset {
			round++ // reset match, when played, is the true final
		}
		if round > finalRound {
			finalRound = round
			final = m
		}
	}

	ranks := map[int64]int{}
	if final == nil || final.WinnerID == nil {
		return ranks
	}
	ranks[*final.WinnerID] = 1
	if final.LoserID != nil {
		ranks[*final.LoserID] = 2
	}

	eliminatedAt := map[int64]int{}
	lastLoss := map[int64]int{}
	for _, m := range matches {
		if m.IsBye || m.LoserID == nil {
			continue
		}
		if _, already := ranks[*m.LoserID]; already {
			continue
		}
		// a participant is eliminated by their latest loss in play order;
		// losers-bracket rounds count down (-1, -2, ...), so -Round is depth.
		if prev, ok := lastLoss[*m.LoserID]; ok && m.SuggestedPlayOrder <= prev {
			continue
		}
		lastLoss[*m.LoserID] = m.SuggestedPlayOrder
		round := m.Round
		if round < 0 {
			round = -round
		}
		eliminatedAt[*m.LoserID] = round
	}

	type group struct {
		round        int
		participants []int64
	}
	byRound := map[int][]int64{}
	for pid, round := range eliminatedAt {
		byRound[round] = append(byRound[round], pid)
	}
	var groups []group
	for round, pids := range byRound {
		groups = append(groups, group{round: round, participants: pids})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].round > groups[j].round })

	next := 3
	for _, g := range groups {
		for _, pid := range g.participants {
			ranks[pid] = next
		}
		next += len(g.participants)
	}
	return ranks
}

// GenerateSwissRound pairs the next Swiss round from current standings and
// persists it (spec.md §6 `/swiss/next-round`).
func (s *Service) GenerateSwissRound(ctx context.Context, scope tenant.Scope, tournamentID int64) ([]*models.Match, error) {
	if err := scope.RequireWritable(); err != nil {
		return nil, err
	}

	var created []*models.Match
	err := s.acquireAndRun(ctx, tournamentID, func(tx *sql.Tx) error {
		t, err := s.ownedTournament(ctx, tx, scope, tournamentID)
		if err != nil {
			return err
		}
		if t.Format != models.FormatSwiss {
			return models.Wrap(models.KindValidation, "swiss rounds only apply to swiss-format tournaments", nil)
		}

		all, err := s.matches.ListByTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		maxRound := 0
		played := map[[2]int64]bool{}
		wins := map[int64]float64{}
		hadBye := map[int64]bool{}
		for _, m := range all {
			if m.Round > maxRound {
				maxRound = m.Round
			}
			if m.IsBye {
				if m.Player1ID != nil {
					hadBye[*m.Player1ID] = true
					wins[*m.Player1ID] += 1
				}
				continue
			}
			if m.State != models.MatchComplete {
				return models.Wrap(models.KindConflict, "the current round is not finished", nil)
			}
			if m.Player1ID != nil && m.Player2ID != nil {
				played[pairKey(*m.Player1ID, *m.Player2ID)] = true
			}
			if m.WinnerID != nil {
				wins[*m.WinnerID] += 1
			}
		}

		roster, err := s.participants.ListByTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		standings := make([]bracket.StandingEntry, 0, len(roster))
		for _, p := range roster {
			if !p.Active {
				continue
			}
			standings = append(standings, bracket.StandingEntry{
				ParticipantID: p.ID,
				Score:         wins[p.ID],
				HasHadBye:     hadBye[p.ID],
			})
		}

		descriptors, _, err := bracket.SwissNextRound(standings, played, maxRound+1)
		if err != nil {
			return models.Wrap(models.KindValidation, err.Error(), nil)
		}
		created, err = s.matches.BulkCreate(ctx, tx, tournamentID, descriptors)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("swiss round generated", "tournament_id", tournamentID, "matches", len(created))
	return created, nil
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}
