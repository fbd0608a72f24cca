package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/matchgrid/tourney/internal/bracket"
	"github.com/matchgrid/tourney/internal/models"
)

type MatchStore interface {
	// BulkCreate persists a full set of generated descriptors in one pass,
	// then rewrites temporary prereq indices to real ids in a second pass --
	// the teacher's services/bracket_service.go two-phase linking idiom,
	// generalized from its single-elimination-only struct to the
	// prereq-index contract bracket.Descriptor exposes for every format.
	BulkCreate(ctx context.Context, tx SQLExecutor, tournamentID int64, descriptors []bracket.Descriptor) ([]*models.Match, error)
	Get(ctx context.Context, tx SQLExecutor, id int64) (*models.Match, error)
	ListByTournament(ctx context.Context, tx SQLExecutor, tournamentID int64) ([]*models.Match, error)
	Update(ctx context.Context, tx SQLExecutor, m *models.Match) error
	DeleteByTournament(ctx context.Context, tx SQLExecutor, tournamentID int64) error
	// FindByPrereq returns every match whose player1 or player2 prerequisite
	// is matchID, used to propagate a completed match's winner/loser forward
	// (spec.md §4.3's prerequisite DAG).
	FindByPrereq(ctx context.Context, tx SQLExecutor, tournamentID, matchID int64) ([]*models.Match, error)
}

type matchStore struct{}

func NewMatchStore() MatchStore { return matchStore{} }

func (matchStore) BulkCreate(ctx context.Context, tx SQLExecutor, tournamentID int64, descriptors []bracket.Descriptor) ([]*models.Match, error) {
	ids := make([]int64, len(descriptors))

	for i, d := range descriptors {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO tcc_matches (tournament_id, identifier, round, suggested_play_order, losers_bracket, is_bye,
				grand_finals_reset, player1_id, player2_id, player1_is_prereq_loser, player2_is_prereq_loser,
				winner_id, state)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			tournamentID, d.Identifier, d.Round, d.SuggestedPlayOrder, d.LosersBracket, d.IsBye,
			d.GrandFinalsReset, nullInt64(d.Player1ID), nullInt64(d.Player2ID), d.Player1IsPrereqLoser, d.Player2IsPrereqLoser,
			nullInt64(d.ByeWinnerID), stateFor(d))
		var id int64
		if err := row.Scan(&id); err != nil {
			return nil, err
		}
		ids[i] = id
	}

	for i, d := range descriptors {
		var p1, p2 *int64
		if d.Player1PrereqIndex != nil {
			p1 = &ids[*d.Player1PrereqIndex]
		}
		if d.Player2PrereqIndex != nil {
			p2 = &ids[*d.Player2PrereqIndex]
		}
		if p1 == nil && p2 == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE tcc_matches SET player1_prereq_match_id = ?, player2_prereq_match_id = ? WHERE id = ?`,
			nullInt64(p1), nullInt64(p2), ids[i]); err != nil {
			return nil, err
		}
	}

	out := make([]*models.Match, len(descriptors))
	for i, d := range descriptors {
		m := &models.Match{
			ID:                   ids[i],
			TournamentID:         tournamentID,
			Identifier:           d.Identifier,
			Round:                d.Round,
			SuggestedPlayOrder:   d.SuggestedPlayOrder,
			LosersBracket:        d.LosersBracket,
			IsBye:                d.IsBye,
			GrandFinalsReset:     d.GrandFinalsReset,
			Player1ID:            d.Player1ID,
			Player2ID:            d.Player2ID,
			Player1IsPrereqLoser: d.Player1IsPrereqLoser,
			Player2IsPrereqLoser: d.Player2IsPrereqLoser,
			State:                stateFor(d),
		}
		if d.Player1PrereqIndex != nil {
			m.Player1PrereqMatchID = &ids[*d.Player1PrereqIndex]
		}
		if d.Player2PrereqIndex != nil {
			m.Player2PrereqMatchID = &ids[*d.Player2PrereqIndex]
		}
		if d.IsBye {
			m.WinnerID = d.ByeWinnerID
		}
		out[i] = m
	}
	return out, nil
}

// stateFor assigns a bye match's initial state as already complete, since
// progression never needs to referee it (spec.md §4.4).
func stateFor(d bracket.Descriptor) models.MatchState {
	if d.IsBye {
		return models.MatchComplete
	}
	if d.Player1ID != nil && d.Player2ID != nil {
		return models.MatchOpen
	}
	return models.MatchPending
}

func (matchStore) Get(ctx context.Context, tx SQLExecutor, id int64) (*models.Match, error) {
	row := tx.QueryRowContext(ctx, matchSelect+` WHERE id = ?`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return m, err
}

func (matchStore) ListByTournament(ctx context.Context, tx SQLExecutor, tournamentID int64) ([]*models.Match, error) {
	rows, err := tx.QueryContext(ctx, matchSelect+` WHERE tournament_id = ? ORDER BY suggested_play_order ASC`, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (matchStore) Update(ctx context.Context, tx SQLExecutor, m *models.Match) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE tcc_matches SET
			player1_id = ?, player2_id = ?,
			player1_prereq_match_id = ?, player2_prereq_match_id = ?,
			player1_is_prereq_loser = ?, player2_is_prereq_loser = ?,
			winner_id = ?, loser_id = ?,
			player1_score = ?, player2_score = ?, display_score = ?,
			forfeited = ?, forfeited_participant = ?,
			station_id = ?,
			state = ?, underway_at = ?, completed_at = ?
		WHERE id = ?`,
		nullInt64(m.Player1ID), nullInt64(m.Player2ID),
		nullInt64(m.Player1PrereqMatchID), nullInt64(m.Player2PrereqMatchID),
		m.Player1IsPrereqLoser, m.Player2IsPrereqLoser,
		nullInt64(m.WinnerID), nullInt64(m.LoserID),
		nullInt(m.Player1Score), nullInt(m.Player2Score), m.DisplayScore,
		m.Forfeited, nullInt64(m.ForfeitedParticipant),
		nullInt64(m.StationID),
		m.State, m.UnderwayAt, m.CompletedAt,
		m.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, models.ErrNotFound)
}

func (matchStore) DeleteByTournament(ctx context.Context, tx SQLExecutor, tournamentID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM tcc_matches WHERE tournament_id = ?`, tournamentID)
	return err
}

func (matchStore) FindByPrereq(ctx context.Context, tx SQLExecutor, tournamentID, matchID int64) ([]*models.Match, error) {
	rows, err := tx.QueryContext(ctx, matchSelect+`
		WHERE tournament_id = ? AND (player1_prereq_match_id = ? OR player2_prereq_match_id = ?)`,
		tournamentID, matchID, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const matchSelect = `
	SELECT id, tournament_id, identifier, round, suggested_play_order, losers_bracket, is_bye, grand_finals_reset,
	       player1_id, player2_id,
	       player1_prereq_match_id, player2_prereq_match_id, player1_is_prereq_loser, player2_is_prereq_loser,
	       winner_id, loser_id, player1_score, player2_score, display_score,
	       forfeited, forfeited_participant, station_id,
	       state, underway_at, completed_at
	FROM tcc_matches`

func scanMatch(s rowScanner) (*models.Match, error) {
	var m models.Match
	if err := s.Scan(&m.ID, &m.TournamentID, &m.Identifier, &m.Round, &m.SuggestedPlayOrder, &m.LosersBracket, &m.IsBye, &m.GrandFinalsReset,
		&m.Player1ID, &m.Player2ID,
		&m.Player1PrereqMatchID, &m.Player2PrereqMatchID, &m.Player1IsPrereqLoser, &m.Player2IsPrereqLoser,
		&m.WinnerID, &m.LoserID, &m.Player1Score, &m.Player2Score, &m.DisplayScore,
		&m.Forfeited, &m.ForfeitedParticipant, &m.StationID,
		&m.State, &m.UnderwayAt, &m.CompletedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
