package bracket

import (
	"fmt"

	"github.com/matchgrid/tourney/internal/models"
)

// RoundRobin builds every round via the circle method: one seat is fixed,
// the rest rotate one position each round, producing a full single
// round-robin in m-1 rounds (m participants, padded to even with a bye
// seat). This generalizes the teacher's brackets/round_robin.go nested-loop
// generator, which only produced an unordered double round-robin without
// per-round scheduling.
type RoundRobin struct{}

func (RoundRobin) Name() string { return "round_robin" }

func (RoundRobin) Generate(roster []Seed, opts models.TournamentOptions) ([]Descriptor, Stats, error) {
	n := len(roster)
	if n < 2 {
		return nil, Stats{}, fmt.Errorf("bracket: round robin requires at least 2 participants, got %d", n)
	}

	ids := make([]int64, n)
	for _, s := range roster {
		if s.Seed < 1 || s.Seed > n {
			return nil, Stats{}, fmt.Errorf("bracket: seed %d out of range for %d participants", s.Seed, n)
		}
		ids[s.Seed-1] = s.ParticipantID
	}

	const byeSeat = -1
	arr := append([]int64{}, ids...)
	if len(arr)%2 == 1 {
		arr = append(arr, byeSeat)
	}
	m := len(arr)
	rounds := m - 1

	var out []Descriptor
	playOrder := 0
	byeMatches := 0

	for r := 0; r < rounds; r++ {
		for i := 0; i < m/2; i++ {
			var a, b int64
			if opts.SequentialPairings {
				a, b = arr[2*i], arr[2*i+1]
			} else {
				a, b = arr[i], arr[m-1-i]
			}

			playOrder++
			d := Descriptor{
				Identifier:         identifierAt(len(out)),
				Round:              r + 1,
				SuggestedPlayOrder: playOrder,
			}
			switch {
			case a == byeSeat && b == byeSeat:
				continue
			case a == byeSeat:
				d.IsBye, d.Player1ID, d.ByeWinnerID = true, i64Ptr(b), i64Ptr(b)
				byeMatches++
			case b == byeSeat:
				d.IsBye, d.Player1ID, d.ByeWinnerID = true, i64Ptr(a), i64Ptr(a)
				byeMatches++
			default:
				d.Player1ID, d.Player2ID = i64Ptr(a), i64Ptr(b)
			}
			out = append(out, d)
		}

		// Rotate every seat but the first (the circle method's fixed pivot).
		if m > 2 {
			last := arr[m-1]
			copy(arr[2:], arr[1:m-1])
			arr[1] = last
		}
	}

	stats := Stats{
		TotalMatches: len(out),
		ByeMatches:   byeMatches,
		RoundCount:   rounds,
	}
	return out, stats, nil
}
