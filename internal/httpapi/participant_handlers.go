package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type addParticipantRequest struct {
	DisplayName string `json:"displayName"`
}

func (h *Handlers) addParticipant(w http.ResponseWriter, r *http.Request) {
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
	var req addParticipantRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.DisplayName == "" {
		badRequest(w, errRequired("displayName"))
		return
	}
	p, err := h.Participants.Add(r.Context(), scope, t.ID, req.DisplayName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, envelope{"participant": p})
}

func (h *Handlers) listParticipants(w http.ResponseWriter, r *http.Request) {
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
	roster, err := h.Participants.List(r.Context(), scope, t.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"participants": roster})
}

func (h *Handlers) randomizeSeeds(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Participants.Randomize(r.Context(), scope, t.ID); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil)
}

type checkinRequest struct {
	CheckedIn bool `json:"checkedIn"`
}

func (h *Handlers) setCheckedIn(w http.ResponseWriter, r *http.Request) {
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
	participantID, err := strconv.ParseInt(chi.URLParam(r, "participantID"), 10, 64)
	if err != nil {
		badRequest(w, err)
		return
	}
	var req checkinRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.Participants.SetCheckedIn(r.Context(), scope, t.ID, participantID, req.CheckedIn); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil)
}

func (h *Handlers) listStations(w http.ResponseWriter, r *http.Request) {
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
	stations, err := h.Progression.ListStations(r.Context(), scope, t.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"stations": stations})
}

type createStationRequest struct {
	Name string `json:"name"`
}

func (h *Handlers) createStation(w http.ResponseWriter, r *http.Request) {
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
	var req createStationRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.Name == "" {
		badRequest(w, errRequired("name"))
		return
	}
	st, err := h.Progression.CreateStation(r.Context(), scope, t.ID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, envelope{"station": st})
}
