package progression

import (
	"context"

	"github.com/matchgrid/tourney/internal/models"
	"github.com/matchgrid/tourney/internal/tenant"
)

// CreateStation registers a new play station for a tournament (spec.md §3).
func (s *Service) CreateStation(ctx context.Context, scope tenant.Scope, tournamentID int64, name string) (*models.Station, error) {
	if err := scope.RequireWritable(); err != nil {
		return nil, err
	}
	release, err := s.locks.Acquire(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	defer release()
	if _, err := s.ownedTournament(ctx, s.db, scope, tournamentID); err != nil {
		return nil, err
	}
	st := &models.Station{TournamentID: tournamentID, Name: name}
	if err := s.stations.Create(ctx, s.db, st); err != nil {
		return nil, err
	}
	return st, nil
}

// ListStations returns every station for a tournament.
func (s *Service) ListStations(ctx context.Context, scope tenant.Scope, tournamentID int64) ([]*models.Station, error) {
	if _, err := s.ownedTournament(ctx, s.db, scope, tournamentID); err != nil {
		return nil, err
	}
	return s.stations.ListByTournament(ctx, s.db, tournamentID)
}
