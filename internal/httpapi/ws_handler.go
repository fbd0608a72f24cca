package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/matchgrid/tourney/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is validated by the CORS middleware ahead of this handler for
	// regular requests; WebSocket upgrades bypass CORS entirely in browsers,
	// so this stays permissive the way the teacher's handler does, with the
	// production caveat left as the teacher left it: restrict to the known
	// frontend origin(s) before exposing this beyond local development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveWebSocket upgrades and registers a client to its tenant/tournament
// room (spec.md §4.5, §6), grounded on the teacher's
// handlers/websocket_handler.go ServeWs.
func (h *Handlers) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.resolveTournament(r, scope, "tournamentID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", "error", err, "tournament_id", chi.URLParam(r, "tournamentID"))
		return
	}
	h.Hub.Register(conn, events.Room(t.TenantID, t.ID))
}
