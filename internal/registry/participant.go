package registry

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand"

	"github.com/matchgrid/tourney/internal/events"
	"github.com/matchgrid/tourney/internal/models"
	"github.com/matchgrid/tourney/internal/store"
	"github.com/matchgrid/tourney/internal/tenant"
)

// ParticipantRegistry owns the tournament roster (spec.md §4.2): add,
// bulk-add, seed management, check-in, and final rank write-back once a
// tournament completes.
type ParticipantRegistry struct {
	db           *sql.DB
	tournaments  store.TournamentStore
	participants store.ParticipantStore
	bus          *events.Bus
	log          *slog.Logger
}

func NewParticipantRegistry(db *sql.DB, t store.TournamentStore, p store.ParticipantStore, bus *events.Bus, log *slog.Logger) *ParticipantRegistry {
	return &ParticipantRegistry{db: db, tournaments: t, participants: p, bus: bus, log: log}
}

func (r *ParticipantRegistry) ownedTournament(ctx context.Context, scope tenant.Scope, tournamentID int64) (*models.Tournament, error) {
	t, err := r.tournaments.Get(ctx, r.db, tournamentID)
	if err != nil {
		return nil, err
	}
	if err := scope.CheckOwnership(t.TenantID); err != nil {
		return nil, err
	}
	return t, nil
}

// Add appends one participant to the roster, seeding it last; Randomize
// can reshuffle the seeds afterwards. Only legal before the bracket is
// generated (spec.md §4.2, §4.3 Non-goals).
func (r *ParticipantRegistry) Add(ctx context.Context, scope tenant.Scope, tournamentID int64, displayName string) (*models.Participant, error) {
	t, err := r.ownedTournament(ctx, scope, tournamentID)
	if err != nil {
		return nil, err
	}
	if err := scope.RequireWritable(); err != nil {
		return nil, err
	}
	if t.State != models.StatePending && t.State != models.StateCheckingIn {
		return nil, models.Wrap(models.KindConflict, "cannot modify roster once the tournament has started", nil)
	}

	existing, err := r.participants.ListByTournament(ctx, r.db, tournamentID)
	if err != nil {
		return nil, err
	}

	p := &models.Participant{
		TournamentID: tournamentID,
		DisplayName:  displayName,
		Seed:         len(existing) + 1,
		Active:       true,
	}
	if err := r.participants.Create(ctx, r.db, p); err != nil {
		return nil, err
	}
	r.bus.Publish(events.Room(t.TenantID, t.ID), events.Event{Type: events.TypeParticipantUpdated, TournamentID: t.ID, Payload: p})
	return p, nil
}

// BulkAdd adds many participants in seed order as named (spec.md §4.2).
func (r *ParticipantRegistry) BulkAdd(ctx context.Context, scope tenant.Scope, tournamentID int64, names []string) ([]*models.Participant, error) {
	out := make([]*models.Participant, 0, len(names))
	for _, n := range names {
		p, err := r.Add(ctx, scope, tournamentID, n)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *ParticipantRegistry) List(ctx context.Context, scope tenant.Scope, tournamentID int64) ([]*models.Participant, error) {
	if _, err := r.ownedTournament(ctx, scope, tournamentID); err != nil {
		return nil, err
	}
	return r.participants.ListByTournament(ctx, r.db, tournamentID)
}

// Randomize shuffles seed assignments (spec.md §4.2's "randomize seeds"
// action), only legal before a bracket exists.
func (r *ParticipantRegistry) Randomize(ctx context.Context, scope tenant.Scope, tournamentID int64) error {
	t, err := r.ownedTournament(ctx, scope, tournamentID)
	if err != nil {
		return err
	}
	if err := scope.RequireWritable(); err != nil {
		return err
	}
	if t.State != models.StatePending && t.State != models.StateCheckingIn {
		return models.Wrap(models.KindConflict, "cannot reseed once the tournament has started", nil)
	}

	roster, err := r.participants.ListByTournament(ctx, r.db, tournamentID)
	if err != nil {
		return err
	}
	seeds := make([]int, len(roster))
	for i := range seeds {
		seeds[i] = i + 1
	}
	rand.Shuffle(len(seeds), func(i, j int) { seeds[i], seeds[j] = seeds[j], seeds[i] })

	for i, p := range roster {
		if err := r.participants.UpdateSeed(ctx, r.db, p.ID, seeds[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *ParticipantRegistry) SetCheckedIn(ctx context.Context, scope tenant.Scope, tournamentID, participantID int64, checkedIn bool) error {
	t, err := r.ownedTournament(ctx, scope, tournamentID)
	if err != nil {
		return err
	}
	if err := scope.RequireWritable(); err != nil {
		return err
	}
	if err := r.participants.SetCheckedIn(ctx, r.db, participantID, checkedIn); err != nil {
		return err
	}
	r.bus.Publish(events.Room(t.TenantID, t.ID), events.Event{
		Type: events.TypeParticipantUpdated, TournamentID: t.ID,
		Payload: map[string]any{"participant_id": participantID, "checked_in": checkedIn},
	})
	return nil
}

// WriteFinalRanks persists standings computed by progression once a
// tournament completes (spec.md §4.2).
func (r *ParticipantRegistry) WriteFinalRanks(ctx context.Context, tournamentID int64, ranks map[int64]int) error {
	for participantID, rank := range ranks {
		if err := r.participants.SetFinalRank(ctx, r.db, participantID, rank); err != nil {
			return err
		}
	}
	return nil
}
