package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matchgrid/tourney/internal/models"
)

func (h *Handlers) matchID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "matchId"), 10, 64)
}

func (h *Handlers) listMatches(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.resolveTournament(r, scope, "tournamentIdOrSlug")
	if err != nil {
		writeError(w, r, err)
		return
	}
	matches, err := h.Progression.ListMatches(r.Context(), scope, t.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	completed := 0
	var next *models.Match
	for _, m := range matches {
		if m.State == models.MatchComplete {
			completed++
		}
		if next == nil && m.State == models.MatchOpen && m.BothSlotsFilled() {
			next = m
		}
	}
	progress := 0
	if len(matches) > 0 {
		progress = completed * 100 / len(matches)
	}

	fields := envelope{
		"matches":         matches,
		"completedCount":  completed,
		"progressPercent": progress,
	}
	if next != nil {
		fields["nextMatchId"] = next.ID
		fields["nextMatchPlayers"] = []*int64{next.Player1ID, next.Player2ID}
	}
	ok(w, http.StatusOK, fields)
}

func (h *Handlers) matchStats(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.resolveTournament(r, scope, "tournamentIdOrSlug")
	if err != nil {
		writeError(w, r, err)
		return
	}
	matches, err := h.Progression.ListMatches(r.Context(), scope, t.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats := map[models.MatchState]int{}
	for _, m := range matches {
		stats[m.State]++
	}
	ok(w, http.StatusOK, envelope{"stats": stats, "total": len(matches)})
}

func (h *Handlers) getMatch(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.resolveTournament(r, scope, "tournamentIdOrSlug")
	if err != nil {
		writeError(w, r, err)
		return
	}
	matches, err := h.Progression.ListMatches(r.Context(), scope, t.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	matchID, err := h.matchID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	for _, m := range matches {
		if m.ID == matchID {
			ok(w, http.StatusOK, envelope{"match": m})
			return
		}
	}
	writeError(w, r, models.ErrNotFound)
}

func (h *Handlers) markUnderway(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	matchID, err := h.matchID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	m, err := h.Progression.MarkUnderway(r.Context(), scope, matchID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"match": m})
}

type winnerRequest struct {
	WinnerID     int64 `json:"winnerId"`
	Player1Score *int  `json:"player1Score"`
	Player2Score *int  `json:"player2Score"`
}

func (h *Handlers) setWinner(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	matchID, err := h.matchID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var req winnerRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	m, err := h.Progression.SetWinner(r.Context(), scope, matchID, req.WinnerID, req.Player1Score, req.Player2Score)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"match": m})
}

type scoreRequest struct {
	Player1Score *int   `json:"player1Score"`
	Player2Score *int   `json:"player2Score"`
	WinnerID     *int64 `json:"winnerId"`
}

// setScore is a convenience variant of winner/score reporting: the caller
// may supply scores alone, in which case the higher score's side wins
// (spec.md §6 `/score`).
func (h *Handlers) setScore(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	matchID, err := h.matchID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var req scoreRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	winnerID := req.WinnerID
	if winnerID == nil {
		if req.Player1Score == nil || req.Player2Score == nil {
			badRequest(w, errRequired("winnerId or both scores"))
			return
		}
		m, err := h.Progression.GetMatch(r.Context(), scope, matchID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		switch {
		case *req.Player1Score > *req.Player2Score:
			winnerID = m.Player1ID
		case *req.Player2Score > *req.Player1Score:
			winnerID = m.Player2ID
		default:
			badRequest(w, errRequired("winnerId (scores are tied)"))
			return
		}
	}

	m, err := h.Progression.SetWinner(r.Context(), scope, matchID, *winnerID, req.Player1Score, req.Player2Score)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"match": m})
}

func (h *Handlers) reopenMatch(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	matchID, err := h.matchID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	m, err := h.Progression.Reopen(r.Context(), scope, matchID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"match": m})
}

type dqRequest struct {
	ParticipantID int64 `json:"participantId"`
}

func (h *Handlers) forfeitMatch(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	matchID, err := h.matchID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var req dqRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	m, err := h.Progression.SetForfeit(r.Context(), scope, matchID, req.ParticipantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"match": m})
}

type setStationRequest struct {
	StationID *int64 `json:"stationId"`
}

func (h *Handlers) setMatchStation(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	matchID, err := h.matchID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var req setStationRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	var m *models.Match
	if req.StationID == nil {
		m, err = h.Progression.ClearStation(r.Context(), scope, matchID)
	} else {
		m, err = h.Progression.SetStation(r.Context(), scope, matchID, *req.StationID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"match": m})
}

type batchScoreEntry struct {
	MatchID  int64 `json:"matchId"`
	WinnerID int64 `json:"winnerId"`
	Score1   *int  `json:"score1"`
	Score2   *int  `json:"score2"`
}

type batchScoresRequest struct {
	Scores []batchScoreEntry `json:"scores"`
}

// batchScores applies each entry independently, reporting a partial-success
// result rather than failing the whole batch on one bad entry
// (spec.md §6 `/batch-scores`).
func (h *Handlers) batchScores(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req batchScoresRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	type result struct {
		MatchID int64  `json:"matchId"`
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}
	results := make([]result, 0, len(req.Scores))
	for _, entry := range req.Scores {
		_, err := h.Progression.SetWinner(r.Context(), scope, entry.MatchID, entry.WinnerID, entry.Score1, entry.Score2)
		if err != nil {
			results = append(results, result{MatchID: entry.MatchID, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, result{MatchID: entry.MatchID, Success: true})
	}
	ok(w, http.StatusOK, envelope{"results": results})
}

func (h *Handlers) autoAssignStations(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.resolveTournament(r, scope, "tournamentIdOrSlug")
	if err != nil {
		writeError(w, r, err)
		return
	}
	assigned, err := h.Progression.AutoAssignStations(r.Context(), scope, t.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"matches": assigned})
}

func (h *Handlers) undoLast(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.resolveTournament(r, scope, "tournamentIdOrSlug")
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Progression.UndoLast(r.Context(), scope, t.ID)
	if err != nil {
		if models.KindOf(err) == models.KindNotFound {
			ok(w, http.StatusOK, envelope{"message": "nothing to undo"})
			return
		}
		writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"match": m})
}
