package progression

import (
	"context"
	"database/sql"

	"github.com/matchgrid/tourney/internal/events"
	"github.com/matchgrid/tourney/internal/models"
	"github.com/matchgrid/tourney/internal/tenant"
)

// appendHistory snapshots a match's current state into the undo ledger
// before a mutation is applied, then trims the ledger down to the
// retention floor (spec.md §4.6 requires keeping at least 50 entries).
func (s *Service) appendHistory(ctx context.Context, tx *sql.Tx, m *models.Match, action, actor string) error {
	rec := &models.MatchChangeRecord{
		TournamentID:      m.TournamentID,
		MatchID:           m.ID,
		Action:            action,
		Actor:             actor,
		PriorState:        m.State,
		PriorWinnerID:     m.WinnerID,
		PriorLoserID:      m.LoserID,
		PriorPlayer1Score: m.Player1Score,
		PriorPlayer2Score: m.Player2Score,
		PriorForfeited:    m.Forfeited,
	}
	if err := s.history.Append(ctx, tx, rec); err != nil {
		return err
	}
	return s.history.Trim(ctx, tx, m.TournamentID, s.historyRetain)
}

// historyRetentionDefault is used when the caller passes a non-positive
// retention count to NewService (spec.md §4.6 requires keeping at least 50
// entries by default).
const historyRetentionDefault = 50

// UndoLast reverts the most recent ledger entry for the tournament,
// restoring the affected match's prior result and removing the entry
// (spec.md §4.6). Matches with downstream prerequisites already filled by
// the reverted result are NOT automatically rolled back -- the operator is
// expected to undo in sequence.
func (s *Service) UndoLast(ctx context.Context, scope tenant.Scope, tournamentID int64) (*models.Match, error) {
	if err := scope.RequireWritable(); err != nil {
		return nil, err
	}

	var result *models.Match
	var room string
	err := s.acquireAndRun(ctx, tournamentID, func(tx *sql.Tx) error {
		t, err := s.ownedTournament(ctx, tx, scope, tournamentID)
		if err != nil {
			return err
		}
		room = events.Room(t.TenantID, t.ID)

		rec, err := s.history.Latest(ctx, tx, tournamentID)
		if err != nil {
			return err
		}

		m, err := s.matches.Get(ctx, tx, rec.MatchID)
		if err != nil {
			return err
		}
		if m.StationID != nil && rec.PriorState != models.MatchComplete {
			// station freed by the action being undone; nothing to restore,
			// the match simply returns to its earlier unstarted state below.
			_ = s.stations.AssignMatch(ctx, tx, *m.StationID, nil)
			m.StationID = nil
		}

		m.State = rec.PriorState
		m.WinnerID = rec.PriorWinnerID
		m.LoserID = rec.PriorLoserID
		m.Player1Score = rec.PriorPlayer1Score
		m.Player2Score = rec.PriorPlayer2Score
		m.Forfeited = rec.PriorForfeited
		if rec.PriorState != models.MatchComplete {
			m.CompletedAt = nil
		}
		if rec.PriorState != models.MatchUnderway {
			m.UnderwayAt = nil
		}

		if err := s.matches.Update(ctx, tx, m); err != nil {
			return err
		}
		if err := s.history.Delete(ctx, tx, rec.ID); err != nil {
			return err
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(room, events.Event{Type: events.TypeMatchUndone, TournamentID: result.TournamentID, Payload: result})
	return result, nil
}

// Reopen reverts a completed match back to open play, only legal when no
// dependent match has progressed past pending (spec.md §4.4 edge case:
// reopening mid-bracket would strand a downstream result).
func (s *Service) Reopen(ctx context.Context, scope tenant.Scope, matchID int64) (*models.Match, error) {
	if err := scope.RequireWritable(); err != nil {
		return nil, err
	}
	m0, err := s.matches.Get(ctx, s.db, matchID)
	if err != nil {
		return nil, err
	}

	var result *models.Match
	var room string
	err = s.acquireAndRun(ctx, m0.TournamentID, func(tx *sql.Tx) error {
		m, t, err := s.ownedMatch(ctx, tx, scope, matchID)
		if err != nil {
			return err
		}
		room = events.Room(t.TenantID, t.ID)
		if m.State != models.MatchComplete {
			return models.Wrap(models.KindConflict, "match is not complete", nil)
		}

		dependents, err := s.matches.FindByPrereq(ctx, tx, t.ID, m.ID)
		if err != nil {
			return err
		}
		for _, dep := range dependents {
			if dep.State != models.MatchPending || dep.BothSlotsFilled() {
				return models.Wrap(models.KindConflict, "a dependent match has already progressed", nil)
			}
		}

		if err := s.appendHistory(ctx, tx, m, "reopen", ""); err != nil {
			return err
		}

		m.WinnerID = nil
		m.LoserID = nil
		m.Forfeited = false
		m.ForfeitedParticipant = nil
		m.CompletedAt = nil
		m.State = models.MatchOpen
		if !m.BothSlotsFilled() {
			m.State = models.MatchPending
		}
		if err := s.matches.Update(ctx, tx, m); err != nil {
			return err
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(room, events.Event{Type: events.TypeMatchUpdated, TournamentID: result.TournamentID, Payload: result})
	return result, nil
}

// SetStation manually assigns a station to an underway or ready match.
func (s *Service) SetStation(ctx context.Context, scope tenant.Scope, matchID, stationID int64) (*models.Match, error) {
	if err := scope.RequireWritable(); err != nil {
		return nil, err
	}
	m0, err := s.matches.Get(ctx, s.db, matchID)
	if err != nil {
		return nil, err
	}

	var result *models.Match
	var room string
	err = s.acquireAndRun(ctx, m0.TournamentID, func(tx *sql.Tx) error {
		m, t, err := s.ownedMatch(ctx, tx, scope, matchID)
		if err != nil {
			return err
		}
		room = events.Room(t.TenantID, t.ID)
		if m.State != models.MatchOpen && m.State != models.MatchUnderway {
			return models.Wrap(models.KindConflict, "match is not ready or underway", nil)
		}
		station, err := s.stations.Get(ctx, tx, stationID)
		if err != nil {
			return err
		}
		if station.TournamentID != t.ID {
			return models.Wrap(models.KindValidation, "station does not belong to this tournament", nil)
		}
		if station.CurrentMatchID != nil && *station.CurrentMatchID != m.ID {
			return models.Wrap(models.KindConflict, "station is already in use", nil)
		}

		if m.StationID != nil && *m.StationID != stationID {
			if err := s.stations.AssignMatch(ctx, tx, *m.StationID, nil); err != nil {
				return err
			}
		}
		if err := s.stations.AssignMatch(ctx, tx, stationID, &m.ID); err != nil {
			return err
		}
		m.StationID = &stationID
		if err := s.matches.Update(ctx, tx, m); err != nil {
			return err
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(room, events.Event{Type: events.TypeMatchUpdated, TournamentID: result.TournamentID, Payload: result})
	return result, nil
}

// ClearStation releases whatever station a match currently holds.
func (s *Service) ClearStation(ctx context.Context, scope tenant.Scope, matchID int64) (*models.Match, error) {
	if err := scope.RequireWritable(); err != nil {
		return nil, err
	}
	m0, err := s.matches.Get(ctx, s.db, matchID)
	if err != nil {
		return nil, err
	}

	var result *models.Match
	var room string
	err = s.acquireAndRun(ctx, m0.TournamentID, func(tx *sql.Tx) error {
		m, t, err := s.ownedMatch(ctx, tx, scope, matchID)
		if err != nil {
			return err
		}
		room = events.Room(t.TenantID, t.ID)
		if m.StationID != nil {
			if err := s.stations.AssignMatch(ctx, tx, *m.StationID, nil); err != nil {
				return err
			}
			m.StationID = nil
			if err := s.matches.Update(ctx, tx, m); err != nil {
				return err
			}
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(room, events.Event{Type: events.TypeMatchUpdated, TournamentID: result.TournamentID, Payload: result})
	return result, nil
}

// AutoAssignStations greedily pairs every free station with a ready (open,
// unstarted) match in play-order, used after a round of results frees up
// several stations at once (spec.md §4.5).
func (s *Service) AutoAssignStations(ctx context.Context, scope tenant.Scope, tournamentID int64) ([]*models.Match, error) {
	if err := scope.RequireWritable(); err != nil {
		return nil, err
	}

	var assigned []*models.Match
	var room string
	err := s.acquireAndRun(ctx, tournamentID, func(tx *sql.Tx) error {
		t, err := s.ownedTournament(ctx, tx, scope, tournamentID)
		if err != nil {
			return err
		}
		room = events.Room(t.TenantID, t.ID)

		free, err := s.stations.ListAvailable(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if len(free) == 0 {
			return nil
		}

		all, err := s.matches.ListByTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}

		idx := 0
		for _, m := range all {
			if idx >= len(free) {
				break
			}
			if m.StationID != nil || m.State != models.MatchOpen || !m.BothSlotsFilled() {
				continue
			}
			station := free[idx]
			if err := s.stations.AssignMatch(ctx, tx, station.ID, &m.ID); err != nil {
				return err
			}
			m.StationID = &station.ID
			if err := s.matches.Update(ctx, tx, m); err != nil {
				return err
			}
			assigned = append(assigned, m)
			idx++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, m := range assigned {
		s.bus.Publish(room, events.Event{Type: events.TypeMatchUpdated, TournamentID: m.TournamentID, Payload: m})
	}
	return assigned, nil
}

// FindNextMatch returns the earliest-by-play-order match that is ready to
// be called (open, both slots filled, no station yet assigned).
func (s *Service) FindNextMatch(ctx context.Context, scope tenant.Scope, tournamentID int64) (*models.Match, error) {
	if _, err := s.ownedTournament(ctx, s.db, scope, tournamentID); err != nil {
		return nil, err
	}
	all, err := s.matches.ListByTournament(ctx, s.db, tournamentID)
	if err != nil {
		return nil, err
	}
	for _, m := range all {
		if m.State == models.MatchOpen && m.BothSlotsFilled() && m.StationID == nil {
			return m, nil
		}
	}
	return nil, models.ErrNotFound
}
