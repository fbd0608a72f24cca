package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/matchgrid/tourney/internal/models"
)

type ParticipantStore interface {
	Create(ctx context.Context, tx SQLExecutor, p *models.Participant) error
	Get(ctx context.Context, tx SQLExecutor, id int64) (*models.Participant, error)
	ListByTournament(ctx context.Context, tx SQLExecutor, tournamentID int64) ([]*models.Participant, error)
	UpdateSeed(ctx context.Context, tx SQLExecutor, id int64, seed int) error
	SetCheckedIn(ctx context.Context, tx SQLExecutor, id int64, checkedIn bool) error
	SetActive(ctx context.Context, tx SQLExecutor, id int64, active bool) error
	SetFinalRank(ctx context.Context, tx SQLExecutor, id int64, rank int) error
	Delete(ctx context.Context, tx SQLExecutor, id int64) error
}

type participantStore struct{}

func NewParticipantStore() ParticipantStore { return participantStore{} }

func (participantStore) Create(ctx context.Context, tx SQLExecutor, p *models.Participant) error {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO tcc_participants (tournament_id, display_name, seed, active, checked_in, misc)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, created_at`,
		p.TournamentID, p.DisplayName, p.Seed, p.Active, p.CheckedIn, p.Misc)
	return row.Scan(&p.ID, &p.CreatedAt)
}

func (participantStore) Get(ctx context.Context, tx SQLExecutor, id int64) (*models.Participant, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, tournament_id, display_name, seed, active, checked_in, misc, final_rank, created_at
		FROM tcc_participants WHERE id = ?`, id)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return p, err
}

func (participantStore) ListByTournament(ctx context.Context, tx SQLExecutor, tournamentID int64) ([]*models.Participant, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, tournament_id, display_name, seed, active, checked_in, misc, final_rank, created_at
		FROM tcc_participants WHERE tournament_id = ? ORDER BY seed ASC`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (participantStore) UpdateSeed(ctx context.Context, tx SQLExecutor, id int64, seed int) error {
	result, err := tx.ExecContext(ctx, `UPDATE tcc_participants SET seed = ? WHERE id = ?`, seed, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, models.ErrNotFound)
}

func (participantStore) SetCheckedIn(ctx context.Context, tx SQLExecutor, id int64, checkedIn bool) error {
	result, err := tx.ExecContext(ctx, `UPDATE tcc_participants SET checked_in = ? WHERE id = ?`, checkedIn, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, models.ErrNotFound)
}

func (participantStore) SetActive(ctx context.Context, tx SQLExecutor, id int64, active bool) error {
	result, err := tx.ExecContext(ctx, `UPDATE tcc_participants SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, models.ErrNotFound)
}

func (participantStore) SetFinalRank(ctx context.Context, tx SQLExecutor, id int64, rank int) error {
	result, err := tx.ExecContext(ctx, `UPDATE tcc_participants SET final_rank = ? WHERE id = ?`, rank, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, models.ErrNotFound)
}

func (participantStore) Delete(ctx context.Context, tx SQLExecutor, id int64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM tcc_participants WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, models.ErrNotFound)
}

func scanParticipant(s rowScanner) (*models.Participant, error) {
	var p models.Participant
	if err := s.Scan(&p.ID, &p.TournamentID, &p.DisplayName, &p.Seed, &p.Active, &p.CheckedIn, &p.Misc, &p.FinalRank, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
