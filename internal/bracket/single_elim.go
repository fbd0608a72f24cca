package bracket

import (
	"fmt"

	"github.com/matchgrid/tourney/internal/models"
)

// slot is either a known participant, a known bye (round 1 only), or a
// reference to the match that will produce the occupant (spec.md §4.3).
type slot struct {
	participantID *int64
	bye           bool
	prereqIndex   *int
	isLoser       bool
}

// SingleElimination builds a standard bracket using Challonge-style seeding
// (spec.md §4.3.1), grounded on the teacher's brackets/single_elimination.go
// node-walking approach, generalized to the slot/prereq model shared with
// DoubleElimination.
type SingleElimination struct{}

func (SingleElimination) Name() string { return "single_elimination" }

func (SingleElimination) Generate(roster []Seed, opts models.TournamentOptions) ([]Descriptor, Stats, error) {
	n := len(roster)
	if n < 2 {
		return nil, Stats{}, fmt.Errorf("bracket: single elimination requires at least 2 participants, got %d", n)
	}

	out, stats, _, err := buildSingleElimWinners(roster, opts, 1, false)
	if err != nil {
		return nil, Stats{}, err
	}
	return out, stats, nil
}

// buildSingleElimWinners emits a full single-elimination winners bracket
// starting at startRound. When losersBracket is true the emitted descriptors
// are flagged accordingly (used by DoubleElimination for its winners side).
// It returns the descriptors, summary stats, and roundIndices where
// roundIndices[k] holds the descriptor indices for round startRound+k-1
// (k starting at 1) — DoubleElimination walks every round's losers into its
// losers bracket, not just the semifinal pair.
func buildSingleElimWinners(roster []Seed, opts models.TournamentOptions, startRound int, losersBracket bool) ([]Descriptor, Stats, [][]int, error) {
	n := len(roster)
	b := nextPowerOfTwo(n)
	order := seedOrder(b)
	numRounds := log2(b)
	finalRound := startRound + numRounds - 1

	var out []Descriptor
	playOrder := 0
	nextPlayOrder := func() int { playOrder++; return playOrder }

	compact := opts.ByeStrategy == models.ByeCompact || opts.CompactBracket
	byeMatches := 0

	roundIndices := make([][]int, numRounds+1) // roundIndices[r] = descriptor indices at round startRound+r-1

	cur := make([]slot, 0, b/2)
	for j := 0; j < b/2; j++ {
		seedA, seedB := order[2*j], order[2*j+1]
		pidA, okA := seedByNumber(roster, seedA)
		pidB, okB := seedByNumber(roster, seedB)

		switch {
		case okA && okB:
			d := Descriptor{
				Identifier:          identifierAt(len(out)),
				Round:               startRound,
				LosersBracket:       losersBracket,
				SuggestedPlayOrder:  nextPlayOrder(),
				Player1ID:           i64Ptr(pidA),
				Player2ID:           i64Ptr(pidB),
			}
			out = append(out, d)
			idx := len(out) - 1
			roundIndices[1] = append(roundIndices[1], idx)
			cur = append(cur, slot{prereqIndex: intPtr(idx)})
		case okA && !okB:
			cur = append(cur, resolveByeSlot(&out, &byeMatches, compact, pidA, startRound, losersBracket, nextPlayOrder, &roundIndices))
		case !okA && okB:
			cur = append(cur, resolveByeSlot(&out, &byeMatches, compact, pidB, startRound, losersBracket, nextPlayOrder, &roundIndices))
		default:
			return nil, Stats{}, nil, fmt.Errorf("bracket: impossible pairing at bracket position %d/%d", 2*j, b)
		}
	}

	round := startRound + 1
	for len(cur) > 1 {
		var next []slot
		for j := 0; j+1 < len(cur); j += 2 {
			d := Descriptor{
				Identifier:         identifierAt(len(out)),
				Round:              round,
				LosersBracket:      losersBracket,
				SuggestedPlayOrder: nextPlayOrder(),
			}
			assignSlot(&d, true, cur[j])
			assignSlot(&d, false, cur[j+1])
			out = append(out, d)
			idx := len(out) - 1
			roundIndices[round-startRound+1] = append(roundIndices[round-startRound+1], idx)
			next = append(next, slot{prereqIndex: intPtr(idx)})
		}
		cur = next
		round++
	}

	var semifinalIndices []int
	if numRounds >= 2 {
		semifinalIndices = roundIndices[numRounds-1]
	}

	if opts.HoldThirdPlaceMatch && len(semifinalIndices) == 2 {
		d := Descriptor{
			Identifier:           identifierAt(len(out)),
			Round:                finalRound,
			LosersBracket:        losersBracket,
			SuggestedPlayOrder:   nextPlayOrder(),
			Player1PrereqIndex:   intPtr(semifinalIndices[0]),
			Player1IsPrereqLoser: true,
			Player2PrereqIndex:   intPtr(semifinalIndices[1]),
			Player2IsPrereqLoser: true,
		}
		out = append(out, d)
	}

	stats := Stats{
		TotalMatches: len(out),
		ByeMatches:   byeMatches,
		RoundCount:   numRounds,
	}
	return out, stats, roundIndices, nil
}

// resolveByeSlot emits (or, under a compact bracket, suppresses) the bye
// match for a single real participant facing an empty bracket position
// (spec.md §4.3.1's bye_strategy == compact_bracket).
func resolveByeSlot(out *[]Descriptor, byeMatches *int, compact bool, participantID int64, round int, losersBracket bool, nextPlayOrder func() int, roundIndices *[][]int) slot {
	if compact {
		return slot{participantID: i64Ptr(participantID)}
	}
	d := Descriptor{
		Identifier:         identifierAt(len(*out)),
		Round:              round,
		LosersBracket:      losersBracket,
		SuggestedPlayOrder: nextPlayOrder(),
		IsBye:              true,
		Player1ID:          i64Ptr(participantID),
		ByeWinnerID:        i64Ptr(participantID),
	}
	*out = append(*out, d)
	idx := len(*out) - 1
	(*roundIndices)[1] = append((*roundIndices)[1], idx)
	*byeMatches++
	return slot{prereqIndex: intPtr(idx)}
}

// assignSlot fills player 1 (first=true) or player 2 of d from s, whether s
// is a known participant or a reference to an earlier match's winner/loser.
func assignSlot(d *Descriptor, first bool, s slot) {
	if first {
		if s.participantID != nil {
			d.Player1ID = s.participantID
		} else {
			d.Player1PrereqIndex = s.prereqIndex
			d.Player1IsPrereqLoser = s.isLoser
		}
		return
	}
	if s.participantID != nil {
		d.Player2ID = s.participantID
	} else {
		d.Player2PrereqIndex = s.prereqIndex
		d.Player2IsPrereqLoser = s.isLoser
	}
}
