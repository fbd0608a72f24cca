// Package bracket is a pure function library: given a format, a seeded
// roster, and format options, it produces an ordered list of match
// descriptors with prerequisite links. It never touches the store
// (spec.md §4.3) — the caller persists descriptors and substitutes temporary
// indices with permanent ids, matching the two-pass linking idiom in the
// teacher's services/bracket_service.go.
package bracket

import (
	"fmt"

	"github.com/matchgrid/tourney/internal/models"
)

// Seed is one roster entry, ordered ascending by seed (1 is top) before
// being handed to a Generator.
type Seed struct {
	ParticipantID int64
	Seed          int
}

// Descriptor is one generated match, referencing prerequisites by index into
// the slice the Generator returned (spec.md §4.3).
type Descriptor struct {
	Identifier         string
	Round              int
	LosersBracket      bool
	SuggestedPlayOrder int

	Player1ID *int64
	Player2ID *int64

	Player1PrereqIndex   *int
	Player2PrereqIndex   *int
	Player1IsPrereqLoser bool
	Player2IsPrereqLoser bool

	IsBye       bool
	ByeWinnerID *int64

	// GrandFinalsReset marks the second (conditional) grand final match in
	// double elimination's bracket_reset mode (spec.md §4.3.2).
	GrandFinalsReset bool
}

// Stats summarizes a generation run (spec.md §4.3.5).
type Stats struct {
	TotalMatches         int
	ByeMatches           int
	RoundCount           int
	FormatSpecificRounds int
}

// Generator is the interface every format module implements.
type Generator interface {
	Generate(roster []Seed, opts models.TournamentOptions) ([]Descriptor, Stats, error)
	Name() string
}

// ForFormat resolves the Generator for a tournament format.
func ForFormat(f models.TournamentFormat) (Generator, error) {
	switch f {
	case models.FormatSingleElim:
		return SingleElimination{}, nil
	case models.FormatDoubleElim:
		return DoubleElimination{}, nil
	case models.FormatRoundRobin:
		return RoundRobin{}, nil
	case models.FormatSwiss:
		return Swiss{}, nil
	default:
		return nil, fmt.Errorf("bracket: unsupported format %q", f)
	}
}

// identifierAt returns the unique alphabetic label for generation index i
// (0 -> "A", 25 -> "Z", 26 -> "AA", ...), matching spec.md §4.3.5.
func identifierAt(i int) string {
	var buf []byte
	i++
	for i > 0 {
		i--
		buf = append([]byte{byte('A' + i%26)}, buf...)
		i /= 26
	}
	return string(buf)
}

// roundLabel names a winners-bracket/linear round given the final round
// number (spec.md §4.3.1).
func roundLabel(round, finalRound int) string {
	switch finalRound - round {
	case 0:
		return "Finals"
	case 1:
		return "Semifinals"
	case 2:
		return "Quarterfinals"
	default:
		return fmt.Sprintf("Round %d", round)
	}
}

// seedOrder returns, for a standard single-elimination bracket of the given
// power-of-two size, the seed number occupying each physical bracket
// position (0-indexed), built via the recursive doubling construction in
// spec.md §4.3.1: pairs(1) = [1,2], pairs(d) = interleave(pairs(d-1),
// 2^d+1-pairs(d-1)). This is what gives standard seeding its "1 can only
// meet the bottom seed in the final" property, and (as a side effect) what
// already hands byes to the top B-N seeds first — see DESIGN.md for why
// there is no separate "balanced" ByeStrategy: this construction already
// produces that placement.
func seedOrder(size int) []int {
	if size <= 1 {
		return []int{1}
	}
	prev := seedOrder(size / 2)
	out := make([]int, 0, size)
	for _, s := range prev {
		out = append(out, s, size+1-s)
	}
	return out
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

func log2(n int) int {
	r := 0
	for (1 << r) < n {
		r++
	}
	return r
}

func seedByNumber(roster []Seed, seed int) (int64, bool) {
	for _, s := range roster {
		if s.Seed == seed {
			return s.ParticipantID, true
		}
	}
	return 0, false
}

func intPtr(v int) *int       { return &v }
func i64Ptr(v int64) *int64   { return &v }
