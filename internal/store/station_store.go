package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/matchgrid/tourney/internal/models"
)

type StationStore interface {
	Create(ctx context.Context, tx SQLExecutor, s *models.Station) error
	Get(ctx context.Context, tx SQLExecutor, id int64) (*models.Station, error)
	ListByTournament(ctx context.Context, tx SQLExecutor, tournamentID int64) ([]*models.Station, error)
	ListAvailable(ctx context.Context, tx SQLExecutor, tournamentID int64) ([]*models.Station, error)
	AssignMatch(ctx context.Context, tx SQLExecutor, stationID int64, matchID *int64) error
	Delete(ctx context.Context, tx SQLExecutor, id int64) error
}

type stationStore struct{}

func NewStationStore() StationStore { return stationStore{} }

func (stationStore) Create(ctx context.Context, tx SQLExecutor, s *models.Station) error {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO tcc_stations (tournament_id, name) VALUES (?, ?) RETURNING id`,
		s.TournamentID, s.Name)
	return row.Scan(&s.ID)
}

func (stationStore) Get(ctx context.Context, tx SQLExecutor, id int64) (*models.Station, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, tournament_id, name, current_match_id FROM tcc_stations WHERE id = ?`, id)
	s, err := scanStation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return s, err
}

func (stationStore) ListByTournament(ctx context.Context, tx SQLExecutor, tournamentID int64) ([]*models.Station, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, tournament_id, name, current_match_id FROM tcc_stations WHERE tournament_id = ? ORDER BY name ASC`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStations(rows)
}

func (stationStore) ListAvailable(ctx context.Context, tx SQLExecutor, tournamentID int64) ([]*models.Station, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, tournament_id, name, current_match_id FROM tcc_stations
		WHERE tournament_id = ? AND current_match_id IS NULL ORDER BY name ASC`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStations(rows)
}

func (stationStore) AssignMatch(ctx context.Context, tx SQLExecutor, stationID int64, matchID *int64) error {
	result, err := tx.ExecContext(ctx, `UPDATE tcc_stations SET current_match_id = ? WHERE id = ?`, nullInt64(matchID), stationID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, models.ErrNotFound)
}

func (stationStore) Delete(ctx context.Context, tx SQLExecutor, id int64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM tcc_stations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, models.ErrNotFound)
}

func scanStation(s rowScanner) (*models.Station, error) {
	var st models.Station
	if err := s.Scan(&st.ID, &st.TournamentID, &st.Name, &st.CurrentMatchID); err != nil {
		return nil, err
	}
	return &st, nil
}

func scanStations(rows *sql.Rows) ([]*models.Station, error) {
	var out []*models.Station
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
