package bracket

import (
	"fmt"
	"sort"

	"github.com/matchgrid/tourney/internal/models"
)

// Swiss only generates round 1 at tournament creation — every later round
// depends on results, so progression calls SwissNextRound once a round
// completes (spec.md §4.3.4). No pack example implements Swiss pairing; this
// follows spec.md's literal algorithm (top-half-vs-bottom-half opener,
// score-group pairing with bye floating) in the same Generator shape as the
// other formats.
type Swiss struct{}

func (Swiss) Name() string { return "swiss" }

// RecommendedRounds returns ceil(log2(n)), the round count spec.md §4.3.4
// recommends for n participants.
func RecommendedRounds(n int) int {
	if n < 2 {
		return 0
	}
	return log2(nextPowerOfTwo(n))
}

func (Swiss) Generate(roster []Seed, opts models.TournamentOptions) ([]Descriptor, Stats, error) {
	n := len(roster)
	if n < 2 {
		return nil, Stats{}, fmt.Errorf("bracket: swiss requires at least 2 participants, got %d", n)
	}

	ordered := make([]Seed, n)
	copy(ordered, roster)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Seed < ordered[j].Seed })

	half := n / 2
	var out []Descriptor
	playOrder := 0
	byeMatches := 0

	for i := 0; i < half; i++ {
		playOrder++
		out = append(out, Descriptor{
			Identifier:         identifierAt(len(out)),
			Round:              1,
			SuggestedPlayOrder: playOrder,
			Player1ID:          i64Ptr(ordered[i].ParticipantID),
			Player2ID:          i64Ptr(ordered[i+half].ParticipantID),
		})
	}
	if n%2 == 1 {
		bye := ordered[n-1].ParticipantID
		playOrder++
		out = append(out, Descriptor{
			Identifier:         identifierAt(len(out)),
			Round:              1,
			SuggestedPlayOrder: playOrder,
			IsBye:              true,
			Player1ID:          i64Ptr(bye),
			ByeWinnerID:        i64Ptr(bye),
		})
		byeMatches++
	}

	rounds := RecommendedRounds(n)
	if rounds < 1 {
		rounds = 1
	}
	stats := Stats{
		TotalMatches:         len(out),
		ByeMatches:           byeMatches,
		RoundCount:           1,
		FormatSpecificRounds: rounds,
	}
	return out, stats, nil
}

// StandingEntry is one participant's current score, used to pair the next
// Swiss round (spec.md §4.3.4).
type StandingEntry struct {
	ParticipantID int64
	Score         float64
	HasHadBye     bool
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

// SwissNextRound pairs participants within score groups, avoiding rematches
// where possible, and floats the bye to the lowest-scoring participant who
// has not yet received one (spec.md §4.3.4).
func SwissNextRound(standings []StandingEntry, played map[[2]int64]bool, round int) ([]Descriptor, Stats, error) {
	if len(standings) < 2 {
		return nil, Stats{}, fmt.Errorf("bracket: swiss next round requires at least 2 participants, got %d", len(standings))
	}

	remaining := make([]StandingEntry, len(standings))
	copy(remaining, standings)
	sort.SliceStable(remaining, func(i, j int) bool { return remaining[i].Score > remaining[j].Score })

	var out []Descriptor
	playOrder := 0
	byeMatches := 0

	if len(remaining)%2 == 1 {
		byeIdx := len(remaining) - 1
		for i := len(remaining) - 1; i >= 0; i-- {
			if !remaining[i].HasHadBye {
				byeIdx = i
				break
			}
		}
		bye := remaining[byeIdx]
		remaining = append(remaining[:byeIdx], remaining[byeIdx+1:]...)
		playOrder++
		out = append(out, Descriptor{
			Identifier:         identifierAt(len(out)),
			Round:              round,
			SuggestedPlayOrder: playOrder,
			IsBye:              true,
			Player1ID:          i64Ptr(bye.ParticipantID),
			ByeWinnerID:        i64Ptr(bye.ParticipantID),
		})
		byeMatches++
	}

	for len(remaining) > 0 {
		a := remaining[0]
		opponent := 1
		for i := 1; i < len(remaining); i++ {
			if !played[pairKey(a.ParticipantID, remaining[i].ParticipantID)] {
				opponent = i
				break
			}
		}
		b := remaining[opponent]

		playOrder++
		out = append(out, Descriptor{
			Identifier:         identifierAt(len(out)),
			Round:              round,
			SuggestedPlayOrder: playOrder,
			Player1ID:          i64Ptr(a.ParticipantID),
			Player2ID:          i64Ptr(b.ParticipantID),
		})

		next := make([]StandingEntry, 0, len(remaining)-2)
		for i, e := range remaining {
			if i == 0 || i == opponent {
				continue
			}
			next = append(next, e)
		}
		remaining = next
	}

	stats := Stats{
		TotalMatches: len(out),
		ByeMatches:   byeMatches,
		RoundCount:   round,
	}
	return out, stats, nil
}
