package progression

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/matchgrid/tourney/internal/events"
	"github.com/matchgrid/tourney/internal/models"
	"github.com/matchgrid/tourney/internal/store"
	"github.com/matchgrid/tourney/internal/tenant"
)

// SetWinner is the canonical match-completion cascade (spec.md §4.4): record
// the result, free any station, then propagate the winner (and, for
// losers-bracket matches, the loser) into every dependent match's
// prerequisite slot.
func (s *Service) SetWinner(ctx context.Context, scope tenant.Scope, matchID, winnerID int64, player1Score, player2Score *int) (*models.Match, error) {
	if err := scope.RequireWritable(); err != nil {
		return nil, err
	}
	m0, err := s.matches.Get(ctx, s.db, matchID)
	if err != nil {
		return nil, err
	}

	var result *models.Match
	var room string
	var affected []*models.Match
	err = s.acquireAndRun(ctx, m0.TournamentID, func(tx *sql.Tx) error {
		m, t, err := s.loadAndCheckMatch(ctx, tx, scope, matchID)
		if err != nil {
			return err
		}
		room = events.Room(t.TenantID, t.ID)

		loserID, err := winnerAndLoser(m, winnerID)
		if err != nil {
			return err
		}

		if err := s.appendHistory(ctx, tx, m, "set_winner", ""); err != nil {
			return err
		}

		now := time.Now().UTC()
		m.WinnerID = &winnerID
		m.LoserID = loserID
		m.Player1Score = player1Score
		m.Player2Score = player2Score
		m.State = models.MatchComplete
		m.CompletedAt = &now
		if m.StationID != nil {
			if err := s.stations.AssignMatch(ctx, tx, *m.StationID, nil); err != nil {
				return err
			}
			m.StationID = nil
		}
		if err := s.matches.Update(ctx, tx, m); err != nil {
			return err
		}

		affected, err = s.propagate(ctx, tx, m)
		if err != nil {
			return err
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(room, events.Event{Type: events.TypeMatchUpdated, TournamentID: result.TournamentID, Payload: result})
	for _, m := range affected {
		s.bus.Publish(room, events.Event{Type: events.TypeMatchUpdated, TournamentID: m.TournamentID, Payload: m})
	}
	return result, nil
}

// SetForfeit withdraws forfeitedParticipant from the match, awarding the win
// to whoever occupies the other slot and flagging the result as forfeited.
// Grounded on other_examples' jmelgar1-braccet forfeit.go
// ForfeitService.ProcessWithdrawal/advanceForfeitWinner idiom.
func (s *Service) SetForfeit(ctx context.Context, scope tenant.Scope, matchID, forfeitedParticipant int64) (*models.Match, error) {
	if err := scope.RequireWritable(); err != nil {
		return nil, err
	}
	m0, err := s.matches.Get(ctx, s.db, matchID)
	if err != nil {
		return nil, err
	}
	opponent := m0.OtherPlayer(forfeitedParticipant)
	if opponent == nil {
		return nil, models.Wrap(models.KindValidation, "forfeiting participant is not in this match", nil)
	}

	var result *models.Match
	var room string
	var affected []*models.Match
	err = s.acquireAndRun(ctx, m0.TournamentID, func(tx *sql.Tx) error {
		m, t, err := s.loadAndCheckMatch(ctx, tx, scope, matchID)
		if err != nil {
			return err
		}
		room = events.Room(t.TenantID, t.ID)

		loserID, err := winnerAndLoser(m, *opponent)
		if err != nil {
			return err
		}

		if err := s.appendHistory(ctx, tx, m, "set_forfeit", ""); err != nil {
			return err
		}

		now := time.Now().UTC()
		m.WinnerID = opponent
		m.LoserID = loserID
		m.Forfeited = true
		m.ForfeitedParticipant = &forfeitedParticipant
		m.State = models.MatchComplete
		m.CompletedAt = &now
		if m.StationID != nil {
			if err := s.stations.AssignMatch(ctx, tx, *m.StationID, nil); err != nil {
				return err
			}
			m.StationID = nil
		}
		if err := s.matches.Update(ctx, tx, m); err != nil {
			return err
		}

		affected, err = s.propagate(ctx, tx, m)
		if err != nil {
			return err
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(room, events.Event{Type: events.TypeMatchUpdated, TournamentID: result.TournamentID, Payload: result})
	for _, m := range affected {
		s.bus.Publish(room, events.Event{Type: events.TypeMatchUpdated, TournamentID: m.TournamentID, Payload: m})
	}
	return result, nil
}

func (s *Service) loadAndCheckMatch(ctx context.Context, tx store.SQLExecutor, scope tenant.Scope, matchID int64) (*models.Match, *models.Tournament, error) {
	m, err := s.matches.Get(ctx, tx, matchID)
	if err != nil {
		return nil, nil, err
	}
	t, err := s.ownedTournament(ctx, tx, scope, m.TournamentID)
	if err != nil {
		return nil, nil, err
	}
	if m.IsBye {
		return nil, nil, models.Wrap(models.KindConflict, "bye matches resolve automatically and cannot be edited", nil)
	}
	return m, t, nil
}

func winnerAndLoser(m *models.Match, winnerID int64) (*int64, error) {
	if !m.BothSlotsFilled() {
		return nil, models.Wrap(models.KindConflict, "match is missing a player", nil)
	}
	switch winnerID {
	case *m.Player1ID:
		return m.Player2ID, nil
	case *m.Player2ID:
		return m.Player1ID, nil
	default:
		return nil, models.Wrap(models.KindValidation, fmt.Sprintf("%s: participant %d", errAmbiguousWinner, winnerID), nil)
	}
}

// propagate fills every dependent match's prerequisite slot with this
// match's winner or loser, opening it once both slots are filled, and
// resolves grand-finals-reset activation (spec.md §4.3, §4.3.2).
func (s *Service) propagate(ctx context.Context, tx *sql.Tx, completed *models.Match) ([]*models.Match, error) {
	dependents, err := s.matches.FindByPrereq(ctx, tx, completed.TournamentID, completed.ID)
	if err != nil {
		return nil, err
	}

	var touched []*models.Match
	for _, dep := range dependents {
		changed := false
		if dep.Player1PrereqMatchID != nil && *dep.Player1PrereqMatchID == completed.ID {
			occupant := completed.WinnerID
			if dep.Player1IsPrereqLoser {
				occupant = completed.LoserID
			}
			dep.Player1ID = occupant
			changed = true
		}
		if dep.Player2PrereqMatchID != nil && *dep.Player2PrereqMatchID == completed.ID {
			occupant := completed.WinnerID
			if dep.Player2IsPrereqLoser {
				occupant = completed.LoserID
			}
			dep.Player2ID = occupant
			changed = true
		}
		if !changed {
			continue
		}

		if dep.GrandFinalsReset {
			resolveGrandFinalsReset(dep, completed)
		} else if dep.BothSlotsFilled() && dep.State == models.MatchPending {
			dep.State = models.MatchOpen
		}

		if err := s.matches.Update(ctx, tx, dep); err != nil {
			return nil, err
		}
		touched = append(touched, dep)
	}
	return touched, nil
}

// resolveGrandFinalsReset only opens the reset match once its sibling grand
// finals game has been decided, and only if the losers-bracket finalist
// (player 2 by this system's generation convention) won that game --
// otherwise the winners-bracket finalist already holds the title and the
// reset match is auto-resolved with no play (spec.md §4.3.2).
func resolveGrandFinalsReset(reset, completed *models.Match) {
	if completed.GrandFinalsReset || completed.Round != reset.Round-1 {
		return
	}
	if !reset.BothSlotsFilled() || completed.WinnerID == nil {
		return
	}
	if completed.Player2ID != nil && *completed.WinnerID == *completed.Player2ID {
		reset.State = models.MatchOpen
		return
	}
	reset.State = models.MatchComplete
	reset.WinnerID = completed.WinnerID
	reset.LoserID = completed.LoserID
}
