package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/matchgrid/tourney/internal/models"
)

type WaitlistStore interface {
	Create(ctx context.Context, tx SQLExecutor, w *models.WaitlistEntry) error
	Get(ctx context.Context, tx SQLExecutor, id int64) (*models.WaitlistEntry, error)
	ListByTournament(ctx context.Context, tx SQLExecutor, tournamentID int64) ([]*models.WaitlistEntry, error)
	NextPosition(ctx context.Context, tx SQLExecutor, tournamentID int64) (int, error)
	SetStatus(ctx context.Context, tx SQLExecutor, id int64, status models.WaitlistStatus, promotedAt any) error
}

type waitlistStore struct{}

func NewWaitlistStore() WaitlistStore { return waitlistStore{} }

func (waitlistStore) Create(ctx context.Context, tx SQLExecutor, w *models.WaitlistEntry) error {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO tcc_waitlist (tournament_id, name, email, position, status)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, created_at`,
		w.TournamentID, w.Name, w.Email, w.Position, w.Status)
	return row.Scan(&w.ID, &w.CreatedAt)
}

func (waitlistStore) Get(ctx context.Context, tx SQLExecutor, id int64) (*models.WaitlistEntry, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, tournament_id, name, email, position, status, created_at, promoted_at
		FROM tcc_waitlist WHERE id = ?`, id)
	w, err := scanWaitlistEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return w, err
}

func (waitlistStore) ListByTournament(ctx context.Context, tx SQLExecutor, tournamentID int64) ([]*models.WaitlistEntry, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, tournament_id, name, email, position, status, created_at, promoted_at
		FROM tcc_waitlist WHERE tournament_id = ? ORDER BY position ASC`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.WaitlistEntry
	for rows.Next() {
		w, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (waitlistStore) NextPosition(ctx context.Context, tx SQLExecutor, tournamentID int64) (int, error) {
	var max sql.NullInt64
	row := tx.QueryRowContext(ctx, `SELECT MAX(position) FROM tcc_waitlist WHERE tournament_id = ?`, tournamentID)
	if err := row.Scan(&max); err != nil {
		return 0, err
	}
	return int(max.Int64) + 1, nil
}

func (waitlistStore) SetStatus(ctx context.Context, tx SQLExecutor, id int64, status models.WaitlistStatus, promotedAt any) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE tcc_waitlist SET status = ?, promoted_at = COALESCE(?, promoted_at) WHERE id = ?`,
		status, promotedAt, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, models.ErrNotFound)
}

func scanWaitlistEntry(s rowScanner) (*models.WaitlistEntry, error) {
	var w models.WaitlistEntry
	if err := s.Scan(&w.ID, &w.TournamentID, &w.Name, &w.Email, &w.Position, &w.Status, &w.CreatedAt, &w.PromotedAt); err != nil {
		return nil, err
	}
	return &w, nil
}
