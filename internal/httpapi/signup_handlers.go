package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (h *Handlers) tournamentIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "tournamentID"), 10, 64)
}

func (h *Handlers) lookupParticipant(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := h.tournamentIDParam(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		badRequest(w, errRequired("name"))
		return
	}
	p, err := h.Signup.LookupParticipant(r.Context(), tournamentID, name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"participant": p})
}

type publicSignupRequest struct {
	Name string `json:"name"`
	Misc string `json:"misc"`
}

func (h *Handlers) publicSignup(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := h.tournamentIDParam(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var req publicSignupRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.Name == "" {
		badRequest(w, errRequired("name"))
		return
	}
	p, err := h.Signup.Signup(r.Context(), tournamentID, req.Name, req.Misc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, envelope{"participant": p})
}

type waitlistJoinRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handlers) waitlistJoin(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := h.tournamentIDParam(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var req waitlistJoinRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.Name == "" {
		badRequest(w, errRequired("name"))
		return
	}
	entry, err := h.Signup.WaitlistJoin(r.Context(), tournamentID, req.Name, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, envelope{"waitlistEntry": entry})
}

func (h *Handlers) waitlistLeave(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := h.tournamentIDParam(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.Signup.WaitlistLeave(r.Context(), tournamentID, entryID); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil)
}

func (h *Handlers) waitlistStatus(w http.ResponseWriter, r *http.Request) {
	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil {
		badRequest(w, err)
		return
	}
	entry, err := h.Signup.WaitlistStatus(r.Context(), entryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"waitlistEntry": entry})
}
