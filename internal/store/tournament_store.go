package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/matchgrid/tourney/internal/models"
)

// TournamentStore is the persistence boundary for tournaments, grounded on
// the teacher's repositories/tournament_repository.go (constructor-returns-
// interface, SQLExecutor-parameterized methods, RETURNING-based inserts).
type TournamentStore interface {
	Create(ctx context.Context, tx SQLExecutor, t *models.Tournament) error
	Get(ctx context.Context, tx SQLExecutor, id int64) (*models.Tournament, error)
	GetBySlug(ctx context.Context, tx SQLExecutor, tenantID int64, slug string) (*models.Tournament, error)
	List(ctx context.Context, tx SQLExecutor, tenantID int64, viewAll bool) ([]*models.Tournament, error)
	UpdateState(ctx context.Context, tx SQLExecutor, id int64, state models.TournamentState, startedAt, completedAt *time.Time) error
	Delete(ctx context.Context, tx SQLExecutor, id int64) error
}

type tournamentStore struct{}

func NewTournamentStore() TournamentStore { return tournamentStore{} }

func (tournamentStore) Create(ctx context.Context, tx SQLExecutor, t *models.Tournament) error {
	optsJSON, err := json.Marshal(t.Options)
	if err != nil {
		return err
	}
	row := tx.QueryRowContext(ctx, `
		INSERT INTO tcc_tournaments (tenant_id, name, slug, game_name, format, state, options_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at, updated_at`,
		t.TenantID, t.Name, t.Slug, t.GameName, t.Format, t.State, string(optsJSON))
	return row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (tournamentStore) Get(ctx context.Context, tx SQLExecutor, id int64) (*models.Tournament, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, slug, game_name, format, state, options_json,
		       created_at, started_at, completed_at, updated_at
		FROM tcc_tournaments WHERE id = ?`, id)
	return scanTournament(row)
}

func (tournamentStore) GetBySlug(ctx context.Context, tx SQLExecutor, tenantID int64, slug string) (*models.Tournament, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, slug, game_name, format, state, options_json,
		       created_at, started_at, completed_at, updated_at
		FROM tcc_tournaments WHERE tenant_id = ? AND slug = ?`, tenantID, slug)
	return scanTournament(row)
}

func (tournamentStore) List(ctx context.Context, tx SQLExecutor, tenantID int64, viewAll bool) ([]*models.Tournament, error) {
	var rows *sql.Rows
	var err error
	if viewAll {
		rows, err = tx.QueryContext(ctx, `
			SELECT id, tenant_id, name, slug, game_name, format, state, options_json,
			       created_at, started_at, completed_at, updated_at
			FROM tcc_tournaments ORDER BY updated_at DESC`)
	} else {
		rows, err = tx.QueryContext(ctx, `
			SELECT id, tenant_id, name, slug, game_name, format, state, options_json,
			       created_at, started_at, completed_at, updated_at
			FROM tcc_tournaments WHERE tenant_id = ? ORDER BY updated_at DESC`, tenantID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Tournament
	for rows.Next() {
		t, err := scanTournamentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (tournamentStore) UpdateState(ctx context.Context, tx SQLExecutor, id int64, state models.TournamentState, startedAt, completedAt *time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE tcc_tournaments
		SET state = ?, started_at = COALESCE(?, started_at), completed_at = COALESCE(?, completed_at), updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, state, startedAt, completedAt, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, models.ErrNotFound)
}

func (tournamentStore) Delete(ctx context.Context, tx SQLExecutor, id int64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM tcc_tournaments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, models.ErrNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTournament(row *sql.Row) (*models.Tournament, error) {
	t, err := scanTournamentRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return t, err
}

func scanTournamentRows(s rowScanner) (*models.Tournament, error) {
	var t models.Tournament
	var optsJSON string
	if err := s.Scan(&t.ID, &t.TenantID, &t.Name, &t.Slug, &t.GameName, &t.Format, &t.State, &optsJSON,
		&t.CreatedAt, &t.StartedAt, &t.CompletedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Options = models.DefaultOptions()
	if err := json.Unmarshal([]byte(optsJSON), &t.Options); err != nil {
		return nil, err
	}
	return &t, nil
}
