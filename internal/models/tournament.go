package models

import "time"

// TournamentFormat is the bracket generation algorithm used for a tournament.
type TournamentFormat string

const (
	FormatSingleElim TournamentFormat = "single_elim"
	FormatDoubleElim TournamentFormat = "double_elim"
	FormatRoundRobin TournamentFormat = "round_robin"
	FormatSwiss      TournamentFormat = "swiss"
)

// TournamentState is the lifecycle state described in spec.md §4.2.
type TournamentState string

const (
	StatePending     TournamentState = "pending"
	StateCheckingIn  TournamentState = "checking_in"
	StateUnderway    TournamentState = "underway"
	StateAwaitReview TournamentState = "awaiting_review"
	StateComplete    TournamentState = "complete"
)

// GrandFinalsModifier controls double-elimination grand final behavior.
type GrandFinalsModifier string

const (
	GrandFinalsNone         GrandFinalsModifier = "none"
	GrandFinalsSkip         GrandFinalsModifier = "skip"
	GrandFinalsBracketReset GrandFinalsModifier = "bracket_reset"
)

// ByeStrategy controls how single-elimination byes are distributed.
type ByeStrategy string

const (
	ByeTraditional ByeStrategy = "traditional"
	ByeCompact     ByeStrategy = "compact_bracket"
)

// RankedBy is the round-robin standings tiebreaker metric.
type RankedBy string

const (
	RankedByMatchWins  RankedBy = "match_wins"
	RankedByGameWins   RankedBy = "game_wins"
	RankedByPoints     RankedBy = "points_scored"
	RankedByPointsDiff RankedBy = "points_difference"
)

// TournamentOptions bundles the format-specific knobs from spec.md §3.
// Persisted as a single JSON column (options_json) per SPEC_FULL.md §3;
// unknown keys are rejected at decode time (spec.md §9, "config via kwargs").
type TournamentOptions struct {
	HoldThirdPlaceMatch bool                `json:"hold_third_place_match"`
	GrandFinalsModifier GrandFinalsModifier `json:"grand_finals_modifier"`
	SwissRounds         int                 `json:"swiss_rounds"`
	RankedBy            RankedBy            `json:"ranked_by"`
	SequentialPairings  bool                `json:"sequential_pairings"`
	ByeStrategy         ByeStrategy         `json:"bye_strategy"`
	CompactBracket      bool                `json:"compact_bracket"`
	SignupCap           int                 `json:"signup_cap"`
}

// DefaultOptions returns the zero-value options with sane enum defaults.
func DefaultOptions() TournamentOptions {
	return TournamentOptions{
		GrandFinalsModifier: GrandFinalsNone,
		RankedBy:            RankedByMatchWins,
		ByeStrategy:         ByeTraditional,
	}
}

// Tournament is a contest owned by exactly one tenant (spec.md §3).
type Tournament struct {
	ID          int64
	TenantID    int64
	Name        string
	Slug        string
	GameName    string
	Format      TournamentFormat
	State       TournamentState
	Options     TournamentOptions
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// ListBucket groups tournaments for the listing endpoint (spec.md §4.2).
type ListBucket string

const (
	BucketUpcoming ListBucket = "pending_or_checking_in"
	BucketLive     ListBucket = "underway_or_review"
	BucketComplete ListBucket = "complete"
)

func BucketOf(s TournamentState) ListBucket {
	switch s {
	case StatePending, StateCheckingIn:
		return BucketUpcoming
	case StateUnderway, StateAwaitReview:
		return BucketLive
	default:
		return BucketComplete
	}
}
