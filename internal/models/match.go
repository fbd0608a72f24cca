package models

import "time"

// MatchState is the per-match lifecycle (spec.md §3).
type MatchState string

const (
	MatchPending  MatchState = "pending"
	MatchOpen     MatchState = "open"
	MatchUnderway MatchState = "underway"
	MatchComplete MatchState = "complete"
)

// Match is an edge in the bracket DAG (spec.md §3). Round is positive for
// winners-bracket/linear rounds and negative for losers-bracket rounds in
// double elimination.
type Match struct {
	ID                 int64
	TournamentID       int64
	Identifier         string // e.g. "A", "B", ...
	Round              int
	SuggestedPlayOrder int
	LosersBracket      bool
	IsBye              bool
	GrandFinalsReset   bool

	Player1ID *int64
	Player2ID *int64

	Player1PrereqMatchID *int64
	Player2PrereqMatchID *int64
	Player1IsPrereqLoser bool
	Player2IsPrereqLoser bool

	WinnerID *int64
	LoserID  *int64

	Player1Score *int
	Player2Score *int
	DisplayScore string

	Forfeited            bool
	ForfeitedParticipant *int64

	StationID *int64

	State       MatchState
	UnderwayAt  *time.Time
	CompletedAt *time.Time
}

// BothSlotsFilled reports whether both player slots are assigned.
func (m *Match) BothSlotsFilled() bool {
	return m.Player1ID != nil && m.Player2ID != nil
}

// OtherPlayer returns the participant id on the opposite slot from pid, or
// nil if pid doesn't occupy either slot.
func (m *Match) OtherPlayer(pid int64) *int64 {
	if m.Player1ID != nil && *m.Player1ID == pid {
		return m.Player2ID
	}
	if m.Player2ID != nil && *m.Player2ID == pid {
		return m.Player1ID
	}
	return nil
}

// Station is a play location that hosts at most one underway match at a time
// (spec.md §3).
type Station struct {
	ID             int64
	TournamentID   int64
	Name           string
	CurrentMatchID *int64
}

// MatchChangeRecord is one append-only ledger entry supporting undo
// (spec.md §3, §4.6).
type MatchChangeRecord struct {
	ID           int64
	TournamentID int64
	MatchID      int64
	Action       string
	Actor        string
	Timestamp    time.Time

	PriorState        MatchState
	PriorWinnerID     *int64
	PriorLoserID      *int64
	PriorPlayer1Score *int
	PriorPlayer2Score *int
	PriorForfeited    bool
}
