// Package registry owns tournament and participant CRUD and the
// tournament lifecycle state machine (spec.md §4.2). It sits above
// internal/store (persistence) and below internal/progression (match
// generation and play), and owns tournament and roster writes to
// tcc_tournaments/tcc_participants; internal/signup also inserts
// participants through the same participant store.
package registry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/matchgrid/tourney/internal/events"
	"github.com/matchgrid/tourney/internal/models"
	"github.com/matchgrid/tourney/internal/store"
	"github.com/matchgrid/tourney/internal/tenant"
)

// validTransitions mirrors the teacher's services/tournament_service.go
// isValidStatusTransition table, generalized to this system's five states.
var validTransitions = map[models.TournamentState][]models.TournamentState{
	models.StatePending:     {models.StateCheckingIn, models.StateUnderway},
	models.StateCheckingIn:  {models.StateUnderway, models.StatePending},
	models.StateUnderway:    {models.StateAwaitReview, models.StatePending},
	models.StateAwaitReview: {models.StateComplete, models.StateUnderway},
	models.StateComplete:    {},
}

func canTransition(from, to models.TournamentState) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TournamentRegistry is the tournament-lifecycle service.
type TournamentRegistry struct {
	db    *sql.DB
	store store.TournamentStore
	bus   *events.Bus
	log   *slog.Logger
}

func NewTournamentRegistry(db *sql.DB, s store.TournamentStore, bus *events.Bus, log *slog.Logger) *TournamentRegistry {
	return &TournamentRegistry{db: db, store: s, bus: bus, log: log}
}

// Create persists a new tournament, deriving a tenant-unique slug from its
// name (spec.md §4.2).
func (r *TournamentRegistry) Create(ctx context.Context, scope tenant.Scope, name, gameName string, format models.TournamentFormat, opts models.TournamentOptions) (*models.Tournament, error) {
	if err := scope.RequireWritable(); err != nil {
		return nil, err
	}

	base := slugify(name)
	slug, err := uniqueSlug(base, func(candidate string) (bool, error) {
		_, err := r.store.GetBySlug(ctx, r.db, scope.TenantID, candidate)
		if err == models.ErrNotFound {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	t := &models.Tournament{
		TenantID: scope.TenantID,
		Name:     name,
		Slug:     slug,
		GameName: gameName,
		Format:   format,
		State:    models.StatePending,
		Options:  opts,
	}
	if err := r.store.Create(ctx, r.db, t); err != nil {
		return nil, err
	}
	r.log.Info("tournament created", "tournament_id", t.ID, "tenant_id", scope.TenantID, "format", format)
	return t, nil
}

func (r *TournamentRegistry) Get(ctx context.Context, scope tenant.Scope, id int64) (*models.Tournament, error) {
	t, err := r.store.Get(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if err := scope.CheckOwnership(t.TenantID); err != nil {
		return nil, err
	}
	return t, nil
}

// GetBySlug resolves a tournament by its tenant-scoped slug (spec.md §6's
// `{idOrSlug}` route parameter).
func (r *TournamentRegistry) GetBySlug(ctx context.Context, scope tenant.Scope, slug string) (*models.Tournament, error) {
	t, err := r.store.GetBySlug(ctx, r.db, scope.TenantID, slug)
	if err != nil {
		return nil, err
	}
	if err := scope.CheckOwnership(t.TenantID); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TournamentRegistry) List(ctx context.Context, scope tenant.Scope) (map[models.ListBucket][]*models.Tournament, error) {
	all, err := r.store.List(ctx, r.db, scope.TenantID, scope.ViewAll)
	if err != nil {
		return nil, err
	}
	buckets := map[models.ListBucket][]*models.Tournament{}
	for _, t := range all {
		b := models.BucketOf(t.State)
		buckets[b] = append(buckets[b], t)
	}
	return buckets, nil
}

// TransitionState validates and applies a lifecycle transition, stamping
// started_at/completed_at as appropriate (spec.md §4.2).
func (r *TournamentRegistry) TransitionState(ctx context.Context, scope tenant.Scope, id int64, to models.TournamentState) (*models.Tournament, error) {
	if err := scope.RequireWritable(); err != nil {
		return nil, err
	}
	t, err := r.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(t.State, to) {
		return nil, models.Wrap(models.KindConflict, "invalid tournament state transition", nil)
	}

	var startedAt, completedAt *time.Time
	now := time.Now().UTC()
	if to == models.StateUnderway && t.StartedAt == nil {
		startedAt = &now
	}
	if to == models.StateComplete {
		completedAt = &now
	}

	if err := r.store.UpdateState(ctx, r.db, id, to, startedAt, completedAt); err != nil {
		return nil, err
	}
	t.State = to
	if startedAt != nil {
		t.StartedAt = startedAt
	}
	if completedAt != nil {
		t.CompletedAt = completedAt
	}

	r.bus.Publish(events.Room(t.TenantID, t.ID), events.Event{
		Type:         events.TypeTournamentState,
		TournamentID: t.ID,
		Payload:      map[string]any{"state": to},
	})
	return t, nil
}

func (r *TournamentRegistry) Delete(ctx context.Context, scope tenant.Scope, id int64) error {
	t, err := r.Get(ctx, scope, id)
	if err != nil {
		return err
	}
	if err := scope.RequireWritable(); err != nil {
		return err
	}
	return r.store.Delete(ctx, r.db, t.ID)
}
