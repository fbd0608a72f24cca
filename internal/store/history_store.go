package store

import (
	"context"
	"database/sql"

	"github.com/matchgrid/tourney/internal/models"
)

// HistoryStore is the undo ledger (spec.md §4.6): every mutating match
// action appends a snapshot of the prior state before applying the change,
// and Undo pops the newest entry and restores it.
type HistoryStore interface {
	Append(ctx context.Context, tx SQLExecutor, r *models.MatchChangeRecord) error
	Latest(ctx context.Context, tx SQLExecutor, tournamentID int64) (*models.MatchChangeRecord, error)
	Delete(ctx context.Context, tx SQLExecutor, id int64) error
	Trim(ctx context.Context, tx SQLExecutor, tournamentID int64, keep int) error
}

type historyStore struct{}

func NewHistoryStore() HistoryStore { return historyStore{} }

func (historyStore) Append(ctx context.Context, tx SQLExecutor, r *models.MatchChangeRecord) error {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO tcc_match_history
			(tournament_id, match_id, action, actor, prior_state, prior_winner_id, prior_loser_id,
			 prior_player1_score, prior_player2_score, prior_forfeited)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, timestamp`,
		r.TournamentID, r.MatchID, r.Action, r.Actor, r.PriorState,
		nullInt64(r.PriorWinnerID), nullInt64(r.PriorLoserID),
		nullInt(r.PriorPlayer1Score), nullInt(r.PriorPlayer2Score), r.PriorForfeited)
	return row.Scan(&r.ID, &r.Timestamp)
}

func (historyStore) Latest(ctx context.Context, tx SQLExecutor, tournamentID int64) (*models.MatchChangeRecord, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, tournament_id, match_id, action, actor, timestamp,
		       prior_state, prior_winner_id, prior_loser_id, prior_player1_score, prior_player2_score, prior_forfeited
		FROM tcc_match_history WHERE tournament_id = ? ORDER BY id DESC LIMIT 1`, tournamentID)

	var r models.MatchChangeRecord
	err := row.Scan(&r.ID, &r.TournamentID, &r.MatchID, &r.Action, &r.Actor, &r.Timestamp,
		&r.PriorState, &r.PriorWinnerID, &r.PriorLoserID, &r.PriorPlayer1Score, &r.PriorPlayer2Score, &r.PriorForfeited)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (historyStore) Delete(ctx context.Context, tx SQLExecutor, id int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM tcc_match_history WHERE id = ?`, id)
	return err
}

// Trim keeps at least `keep` most recent entries per tournament (spec.md
// §4.6 requires retaining at least 50), deleting anything older.
func (historyStore) Trim(ctx context.Context, tx SQLExecutor, tournamentID int64, keep int) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM tcc_match_history
		WHERE tournament_id = ? AND id NOT IN (
			SELECT id FROM tcc_match_history WHERE tournament_id = ? ORDER BY id DESC LIMIT ?
		)`, tournamentID, tournamentID, keep)
	return err
}
