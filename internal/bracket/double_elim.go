package bracket

import (
	"fmt"

	"github.com/matchgrid/tourney/internal/models"
)

// DoubleElimination builds a winners bracket, a losers bracket with
// alternating consolidation/drop rounds, and a grand finals — grounded on
// other_examples' cliffdoyle-gamer_world double-elimination generator
// (generateWinnersBracket / generateLosersBracket / generateGrandFinals),
// adapted onto the slot/prereq model shared with SingleElimination.
type DoubleElimination struct{}

func (DoubleElimination) Name() string { return "double_elimination" }

func (DoubleElimination) Generate(roster []Seed, opts models.TournamentOptions) ([]Descriptor, Stats, error) {
	n := len(roster)
	if n < 2 {
		return nil, Stats{}, fmt.Errorf("bracket: double elimination requires at least 2 participants, got %d", n)
	}

	out, wbStats, roundIndices, err := buildSingleElimWinners(roster, opts, 1, false)
	if err != nil {
		return nil, Stats{}, err
	}
	w := wbStats.RoundCount

	playOrder := len(out)
	nextPlayOrder := func() int { playOrder++; return playOrder }

	// wbLosers[k] holds, for each non-bye match in winners round k, a slot
	// referencing that match's loser. Bye matches never produce a loser.
	wbLosers := make([][]slot, w+1)
	for k := 1; k <= w; k++ {
		for _, idx := range roundIndices[k] {
			if out[idx].IsBye {
				continue
			}
			wbLosers[k] = append(wbLosers[k], slot{prereqIndex: intPtr(idx), isLoser: true})
		}
	}

	lbRound := -1
	current := wbLosers[1]
	for k := 2; k <= w; k++ {
		for len(current) > len(wbLosers[k]) && len(current) > 1 {
			current = consolidateRound(&out, current, lbRound, false, nextPlayOrder)
			lbRound--
		}
		if len(wbLosers[k]) > 0 {
			current = mergeDropRound(&out, current, wbLosers[k], lbRound, nextPlayOrder)
			lbRound--
		}
	}
	for len(current) > 1 {
		current = consolidateRound(&out, current, lbRound, false, nextPlayOrder)
		lbRound--
	}

	var lbChampion slot
	if len(current) == 1 {
		lbChampion = current[0]
	} else {
		// Degenerate bracket (e.g. a single bye-only winners bracket) with no
		// losers at all: there is no losers bracket finalist.
		lbChampion = slot{}
	}

	wbFinalIdx := -1
	if len(roundIndices[w]) == 1 {
		wbFinalIdx = roundIndices[w][0]
	}

	if wbFinalIdx >= 0 && lbChampion.prereqIndex != nil {
		gf1Idx := len(out)
		gf1 := Descriptor{
			Identifier:         identifierAt(gf1Idx),
			Round:              w + 1,
			SuggestedPlayOrder: nextPlayOrder(),
			Player1PrereqIndex: intPtr(wbFinalIdx),
			Player2PrereqIndex: lbChampion.prereqIndex,
		}
		out = append(out, gf1)

		if opts.GrandFinalsModifier != models.GrandFinalsSkip {
			// gf2's prereq is gf1 itself, not gf1's own inputs: propagate()
			// resolves dependents by matching a completed match's ID against
			// a dependent's prereq, so gf2 must point at gf1 to ever be
			// reached. Player1 takes gf1's winner, Player2 its loser;
			// resolveGrandFinalsReset then either auto-completes gf2 (the
			// winners finalist already won outright) or opens it for a
			// replay (the losers finalist forced a second game).
			gf2 := Descriptor{
				Identifier:           identifierAt(len(out)),
				Round:                w + 2,
				SuggestedPlayOrder:   nextPlayOrder(),
				Player1PrereqIndex:   intPtr(gf1Idx),
				Player2PrereqIndex:   intPtr(gf1Idx),
				Player2IsPrereqLoser: true,
				GrandFinalsReset:     true,
			}
			out = append(out, gf2)
		}
	}

	byeMatches := wbStats.ByeMatches
	stats := Stats{
		TotalMatches:         len(out),
		ByeMatches:           byeMatches,
		RoundCount:           w,
		FormatSpecificRounds: lbRound*-1 - 1,
	}
	return out, stats, nil
}

// consolidateRound pairs consecutive entries of current against each other,
// carrying forward an unpaired tail slot (cliffdoyle's losers-bracket
// consolidation round, used when an odd number of competitors remain).
func consolidateRound(out *[]Descriptor, current []slot, round int, losersBracket bool, nextPlayOrder func() int) []slot {
	var next []slot
	i := 0
	for ; i+1 < len(current); i += 2 {
		d := Descriptor{
			Identifier:         identifierAt(len(*out)),
			Round:              round,
			LosersBracket:      true,
			SuggestedPlayOrder: nextPlayOrder(),
		}
		assignSlot(&d, true, current[i])
		assignSlot(&d, false, current[i+1])
		*out = append(*out, d)
		idx := len(*out) - 1
		next = append(next, slot{prereqIndex: intPtr(idx)})
	}
	if i < len(current) {
		next = append(next, current[i])
	}
	return next
}

// mergeDropRound pairs survivors of the losers bracket 1:1 against the
// freshly dropped losers of a winners-bracket round, carrying forward any
// excess on either side.
func mergeDropRound(out *[]Descriptor, current, dropped []slot, round int, nextPlayOrder func() int) []slot {
	n := len(current)
	if len(dropped) < n {
		n = len(dropped)
	}
	var next []slot
	for i := 0; i < n; i++ {
		d := Descriptor{
			Identifier:         identifierAt(len(*out)),
			Round:              round,
			LosersBracket:      true,
			SuggestedPlayOrder: nextPlayOrder(),
		}
		assignSlot(&d, true, current[i])
		assignSlot(&d, false, dropped[i])
		*out = append(*out, d)
		idx := len(*out) - 1
		next = append(next, slot{prereqIndex: intPtr(idx)})
	}
	if len(current) > n {
		next = append(next, current[n:]...)
	}
	if len(dropped) > n {
		next = append(next, dropped[n:]...)
	}
	return next
}
