package models

import "time"

// Participant is a roster slot in one tournament (spec.md §3). Participants
// never move between tournaments.
type Participant struct {
	ID           int64
	TournamentID int64
	DisplayName  string
	Seed         int
	Active       bool
	CheckedIn    bool
	Misc         string
	FinalRank    *int
	CreatedAt    time.Time
}

// WaitlistStatus is the lifecycle of an overflow signup (spec.md §3).
type WaitlistStatus string

const (
	WaitlistWaiting  WaitlistStatus = "waiting"
	WaitlistPromoted WaitlistStatus = "promoted"
	WaitlistRemoved  WaitlistStatus = "removed"
)

// WaitlistEntry is an overflow signup recorded while a tournament is pending
// and full (spec.md §3, §4.7).
type WaitlistEntry struct {
	ID           int64
	TournamentID int64
	Name         string
	Email        string
	Position     int
	Status       WaitlistStatus
	CreatedAt    time.Time
	PromotedAt   *time.Time
}
