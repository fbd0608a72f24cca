// Package signup is the public collaborator spec.md §4.7 describes for
// unauthenticated participant signup and waitlist management, separate from
// the tenant-authenticated registry/progression APIs: lookup, signup, and
// waitlist join/leave/status. It is deliberately thin and reuses the same
// stores as internal/registry rather than owning its own persistence.
package signup

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/matchgrid/tourney/internal/events"
	"github.com/matchgrid/tourney/internal/models"
	"github.com/matchgrid/tourney/internal/store"
)

// Service implements spec.md §4.7's public signup collaborator contract.
type Service struct {
	db           *sql.DB
	tournaments  store.TournamentStore
	participants store.ParticipantStore
	waitlist     store.WaitlistStore
	bus          *events.Bus
	log          *slog.Logger
}

func NewService(db *sql.DB, t store.TournamentStore, p store.ParticipantStore, w store.WaitlistStore, bus *events.Bus, log *slog.Logger) *Service {
	return &Service{db: db, tournaments: t, participants: p, waitlist: w, bus: bus, log: log}
}

// LookupParticipant finds a participant by name, case-insensitive exact
// match first, falling back to a case-insensitive substring match
// (spec.md §4.7).
func (s *Service) LookupParticipant(ctx context.Context, tournamentID int64, name string) (*models.Participant, error) {
	roster, err := s.participants.ListByTournament(ctx, s.db, tournamentID)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, models.ErrNotFound
	}
	for _, p := range roster {
		if strings.ToLower(p.DisplayName) == needle {
			return p, nil
		}
	}
	for _, p := range roster {
		if strings.Contains(strings.ToLower(p.DisplayName), needle) {
			return p, nil
		}
	}
	return nil, models.ErrNotFound
}

// Signup adds a participant directly to the roster, subject to the
// tournament being pending, the name not colliding case-insensitively, and
// the optional signup cap not being reached (spec.md §4.7). Success
// publishes participant.updated.
func (s *Service) Signup(ctx context.Context, tournamentID int64, name, misc string) (*models.Participant, error) {
	t, err := s.tournaments.Get(ctx, s.db, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.State != models.StatePending {
		return nil, models.Wrap(models.KindConflict, "signup is only open while the tournament is pending", nil)
	}

	roster, err := s.participants.ListByTournament(ctx, s.db, tournamentID)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, p := range roster {
		if strings.ToLower(p.DisplayName) == lower {
			return nil, models.Wrap(models.KindConflict, "a participant with that name is already signed up", nil)
		}
	}
	if cap := t.Options.SignupCap; cap > 0 && len(roster) >= cap {
		return nil, models.Wrap(models.KindConflict, "signup cap reached", nil)
	}

	p := &models.Participant{
		TournamentID: tournamentID,
		DisplayName:  name,
		Misc:         misc,
		Seed:         len(roster) + 1,
		Active:       true,
	}
	if err := s.participants.Create(ctx, s.db, p); err != nil {
		return nil, err
	}
	s.bus.Publish(events.Room(t.TenantID, t.ID), events.Event{Type: events.TypeParticipantUpdated, TournamentID: t.ID, Payload: p})
	return p, nil
}

// WaitlistJoin enqueues a name at the next position of the tournament's
// waitlist (spec.md §4.7). It does not check the tournament's state or
// whether the signup cap has been reached.
func (s *Service) WaitlistJoin(ctx context.Context, tournamentID int64, name, email string) (*models.WaitlistEntry, error) {
	t, err := s.tournaments.Get(ctx, s.db, tournamentID)
	if err != nil {
		return nil, err
	}
	pos, err := s.waitlist.NextPosition(ctx, s.db, tournamentID)
	if err != nil {
		return nil, err
	}
	w := &models.WaitlistEntry{
		TournamentID: tournamentID,
		Name:         name,
		Email:        email,
		Position:     pos,
		Status:       models.WaitlistWaiting,
	}
	if err := s.waitlist.Create(ctx, s.db, w); err != nil {
		return nil, err
	}
	s.bus.Publish(events.Room(t.TenantID, t.ID), events.Event{Type: events.TypeWaitlistUpdated, TournamentID: t.ID, Payload: w})
	return w, nil
}

// WaitlistLeave marks an entry removed and compacts the remaining queue's
// positions back to 1..M contiguous (spec.md §4.7).
func (s *Service) WaitlistLeave(ctx context.Context, tournamentID, entryID int64) error {
	t, err := s.tournaments.Get(ctx, s.db, tournamentID)
	if err != nil {
		return err
	}
	if err := s.waitlist.SetStatus(ctx, s.db, entryID, models.WaitlistRemoved, nil); err != nil {
		return err
	}
	if err := s.compact(ctx, tournamentID); err != nil {
		return err
	}
	s.bus.Publish(events.Room(t.TenantID, t.ID), events.Event{Type: events.TypeWaitlistUpdated, TournamentID: t.ID})
	return nil
}

// WaitlistStatus reports one entry's current position and status.
func (s *Service) WaitlistStatus(ctx context.Context, entryID int64) (*models.WaitlistEntry, error) {
	return s.waitlist.Get(ctx, s.db, entryID)
}

// compact renumbers every still-waiting entry to a contiguous 1..M
// position sequence after a removal (spec.md §4.7).
func (s *Service) compact(ctx context.Context, tournamentID int64) error {
	entries, err := s.waitlist.ListByTournament(ctx, s.db, tournamentID)
	if err != nil {
		return err
	}
	pos := 1
	for _, e := range entries {
		if e.Status != models.WaitlistWaiting {
			continue
		}
		if e.Position != pos {
			if err := s.renumber(ctx, e.ID, pos); err != nil {
				return err
			}
		}
		pos++
	}
	return nil
}

func (s *Service) renumber(ctx context.Context, entryID int64, position int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tcc_waitlist SET position = ? WHERE id = ?`, position, entryID)
	return err
}
