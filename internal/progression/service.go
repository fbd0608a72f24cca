// Package progression is the match lifecycle state machine (spec.md §4.4):
// bracket generation, starting/completing/forfeiting/reopening matches,
// station assignment, and the undo ledger. Every mutating method runs
// under the tournament's write lock and publishes to the event bus only
// after its transaction commits, grounded on the teacher's
// services/bracket_service.go defer-rollback/commit idiom.
package progression

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/matchgrid/tourney/internal/bracket"
	"github.com/matchgrid/tourney/internal/events"
	"github.com/matchgrid/tourney/internal/models"
	"github.com/matchgrid/tourney/internal/store"
	"github.com/matchgrid/tourney/internal/tenant"
)

type Service struct {
	db            *sql.DB
	locks         *store.LockRegistry
	tournaments   store.TournamentStore
	participants  store.ParticipantStore
	matches       store.MatchStore
	stations      store.StationStore
	history       store.HistoryStore
	bus           *events.Bus
	log           *slog.Logger
	historyRetain int
}

func NewService(
	db *sql.DB,
	locks *store.LockRegistry,
	tournaments store.TournamentStore,
	participants store.ParticipantStore,
	matches store.MatchStore,
	stations store.StationStore,
	history store.HistoryStore,
	bus *events.Bus,
	log *slog.Logger,
	historyRetain int,
) *Service {
	if historyRetain <= 0 {
		historyRetain = historyRetentionDefault
	}
	return &Service{
		db: db, locks: locks,
		tournaments: tournaments, participants: participants, matches: matches,
		stations: stations, history: history, bus: bus, log: log,
		historyRetain: historyRetain,
	}
}

// withTx runs fn inside a transaction, committing only if fn returns nil,
// matching the teacher's named-txErr rollback-or-commit pattern.
func (s *Service) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (txErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if txErr != nil {
			tx.Rollback()
			return
		}
		txErr = tx.Commit()
	}()
	return fn(tx)
}

func (s *Service) ownedTournament(ctx context.Context, tx store.SQLExecutor, scope tenant.Scope, tournamentID int64) (*models.Tournament, error) {
	t, err := s.tournaments.Get(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	if err := scope.CheckOwnership(t.TenantID); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) ownedMatch(ctx context.Context, tx store.SQLExecutor, scope tenant.Scope, matchID int64) (*models.Match, *models.Tournament, error) {
	m, err := s.matches.Get(ctx, tx, matchID)
	if err != nil {
		return nil, nil, err
	}
	t, err := s.ownedTournament(ctx, tx, scope, m.TournamentID)
	if err != nil {
		return nil, nil, err
	}
	return m, t, nil
}

// GenerateBracket resolves the tournament's format generator, builds the
// full match set from the active roster in seed order, and persists it
// (spec.md §4.3). Only legal once, before any other bracket exists.
func (s *Service) GenerateBracket(ctx context.Context, scope tenant.Scope, tournamentID int64) ([]*models.Match, error) {
	if err := scope.RequireWritable(); err != nil {
		return nil, err
	}
	release, err := s.locks.Acquire(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	defer release()

	var created []*models.Match
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := s.ownedTournament(ctx, tx, scope, tournamentID)
		if err != nil {
			return err
		}
		if t.State != models.StatePending && t.State != models.StateCheckingIn {
			return models.Wrap(models.KindConflict, "bracket already generated or tournament already underway", nil)
		}

		roster, err := s.participants.ListByTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		var seeds []bracket.Seed
		for _, p := range roster {
			if !p.Active {
				continue
			}
			seeds = append(seeds, bracket.Seed{ParticipantID: p.ID, Seed: p.Seed})
		}
		if len(seeds) < 2 {
			return models.Wrap(models.KindValidation, "at least two active participants are required to generate a bracket", nil)
		}

		gen, err := bracket.ForFormat(t.Format)
		if err != nil {
			return models.Wrap(models.KindValidation, err.Error(), nil)
		}
		descriptors, _, err := gen.Generate(seeds, t.Options)
		if err != nil {
			return models.Wrap(models.KindValidation, err.Error(), nil)
		}

		created, err = s.matches.BulkCreate(ctx, tx, tournamentID, descriptors)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bracket generated", "tournament_id", tournamentID, "matches", len(created))
	return created, nil
}

// MarkUnderway transitions a match from pending/open to underway, auto
// assigning a free station if one exists (spec.md §4.4).
func (s *Service) MarkUnderway(ctx context.Context, scope tenant.Scope, matchID int64) (*models.Match, error) {
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
		if m.State != models.MatchPending && m.State != models.MatchOpen {
			return models.Wrap(models.KindConflict, "match is not ready to start", nil)
		}
		if !m.BothSlotsFilled() {
			return models.Wrap(models.KindConflict, "match is missing a player", nil)
		}

		if err := s.appendHistory(ctx, tx, m, "mark_underway", ""); err != nil {
			return err
		}

		now := time.Now().UTC()
		m.State = models.MatchUnderway
		m.UnderwayAt = &now

		if m.StationID == nil {
			if avail, err := s.stations.ListAvailable(ctx, tx, t.ID); err == nil && len(avail) > 0 {
				m.StationID = &avail[0].ID
				if err := s.stations.AssignMatch(ctx, tx, avail[0].ID, &m.ID); err != nil {
					return err
				}
			}
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

func (s *Service) acquireAndRun(ctx context.Context, tournamentID int64, fn func(tx *sql.Tx) error) error {
	release, err := s.locks.Acquire(ctx, tournamentID)
	if err != nil {
		return err
	}
	defer release()
	return s.withTx(ctx, fn)
}

var errAmbiguousWinner = errors.New("progression: winner id does not occupy either match slot")
