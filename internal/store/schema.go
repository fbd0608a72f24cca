package store

import (
	"context"
	"database/sql"
)

// schema is applied idempotently on every startup (spec.md §3). Tenant
// scoping is a first-class column on every owned table rather than a
// separate mapping table, matching the teacher's single-tenant tables
// widened with one extra column instead of a parallel schema.
const schema = `
CREATE TABLE IF NOT EXISTS tcc_tournaments (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id    INTEGER NOT NULL,
	name         TEXT NOT NULL,
	slug         TEXT NOT NULL,
	game_name    TEXT NOT NULL DEFAULT '',
	format       TEXT NOT NULL,
	state        TEXT NOT NULL DEFAULT 'pending',
	options_json TEXT NOT NULL DEFAULT '{}',
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	started_at   DATETIME,
	completed_at DATETIME,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(tenant_id, slug)
);

CREATE INDEX IF NOT EXISTS idx_tournaments_tenant ON tcc_tournaments(tenant_id);

CREATE TABLE IF NOT EXISTS tcc_participants (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	tournament_id INTEGER NOT NULL REFERENCES tcc_tournaments(id) ON DELETE CASCADE,
	display_name  TEXT NOT NULL,
	seed          INTEGER NOT NULL,
	active        BOOLEAN NOT NULL DEFAULT 1,
	checked_in    BOOLEAN NOT NULL DEFAULT 0,
	misc          TEXT NOT NULL DEFAULT '',
	final_rank    INTEGER,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_participants_tournament ON tcc_participants(tournament_id);

CREATE TABLE IF NOT EXISTS tcc_stations (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	tournament_id   INTEGER NOT NULL REFERENCES tcc_tournaments(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	current_match_id INTEGER
);

CREATE INDEX IF NOT EXISTS idx_stations_tournament ON tcc_stations(tournament_id);

CREATE TABLE IF NOT EXISTS tcc_matches (
	id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	tournament_id           INTEGER NOT NULL REFERENCES tcc_tournaments(id) ON DELETE CASCADE,
	identifier              TEXT NOT NULL,
	round                   INTEGER NOT NULL,
	suggested_play_order    INTEGER NOT NULL,
	losers_bracket          BOOLEAN NOT NULL DEFAULT 0,
	is_bye                  BOOLEAN NOT NULL DEFAULT 0,
	grand_finals_reset      BOOLEAN NOT NULL DEFAULT 0,

	player1_id              INTEGER REFERENCES tcc_participants(id),
	player2_id              INTEGER REFERENCES tcc_participants(id),

	player1_prereq_match_id INTEGER REFERENCES tcc_matches(id),
	player2_prereq_match_id INTEGER REFERENCES tcc_matches(id),
	player1_is_prereq_loser BOOLEAN NOT NULL DEFAULT 0,
	player2_is_prereq_loser BOOLEAN NOT NULL DEFAULT 0,

	winner_id               INTEGER REFERENCES tcc_participants(id),
	loser_id                INTEGER REFERENCES tcc_participants(id),
	player1_score           INTEGER,
	player2_score           INTEGER,
	display_score           TEXT NOT NULL DEFAULT '',

	forfeited               BOOLEAN NOT NULL DEFAULT 0,
	forfeited_participant   INTEGER REFERENCES tcc_participants(id),

	station_id              INTEGER REFERENCES tcc_stations(id),

	state                   TEXT NOT NULL DEFAULT 'pending',
	underway_at             DATETIME,
	completed_at            DATETIME
);

CREATE INDEX IF NOT EXISTS idx_matches_tournament ON tcc_matches(tournament_id);
CREATE INDEX IF NOT EXISTS idx_matches_state ON tcc_matches(tournament_id, state);
CREATE INDEX IF NOT EXISTS idx_matches_prereq1 ON tcc_matches(player1_prereq_match_id);
CREATE INDEX IF NOT EXISTS idx_matches_prereq2 ON tcc_matches(player2_prereq_match_id);

CREATE TABLE IF NOT EXISTS tcc_waitlist (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	tournament_id INTEGER NOT NULL REFERENCES tcc_tournaments(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	position      INTEGER NOT NULL,
	status        TEXT NOT NULL DEFAULT 'waiting',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	promoted_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_waitlist_tournament ON tcc_waitlist(tournament_id, position);

CREATE TABLE IF NOT EXISTS tcc_match_history (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	tournament_id        INTEGER NOT NULL REFERENCES tcc_tournaments(id) ON DELETE CASCADE,
	match_id             INTEGER NOT NULL REFERENCES tcc_matches(id) ON DELETE CASCADE,
	action               TEXT NOT NULL,
	actor                TEXT NOT NULL DEFAULT '',
	timestamp            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,

	prior_state          TEXT NOT NULL,
	prior_winner_id      INTEGER,
	prior_loser_id       INTEGER,
	prior_player1_score  INTEGER,
	prior_player2_score  INTEGER,
	prior_forfeited      BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_history_tournament ON tcc_match_history(tournament_id, id);
`

// Migrate applies schema.go's DDL. Every statement is idempotent
// (CREATE ... IF NOT EXISTS), so this is safe to call on every boot instead
// of tracking a migration version table (spec.md has no multi-version
// deployment requirement to justify one).
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
