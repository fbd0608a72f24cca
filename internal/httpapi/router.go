package httpapi

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/matchgrid/tourney/internal/events"
	"github.com/matchgrid/tourney/internal/progression"
	"github.com/matchgrid/tourney/internal/registry"
	"github.com/matchgrid/tourney/internal/signup"
)

type requestIDKeyType struct{}

var requestIDKey requestIDKeyType

type loggerKeyType struct{}

var loggerKey loggerKeyType

// loggerFromContext retrieves the request-scoped logger stamped by
// slogLogger, falling back to slog.Default() for requests that never went
// through the router (e.g. a handler invoked directly from a test).
func loggerFromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerKey).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}

// requestID stamps a v4 uuid onto the request context, echoed back in every
// envelope so a client can correlate a response with its server-side logs.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type bodyKeyType struct{}

var bodyKey bodyKeyType

const maxBufferedBody = 1_048_576

// bufferBody captures the raw request body onto the context before any
// handler consumes it, so writeError can log a (redacted) snapshot of what
// the client actually sent when an internal error occurs. readJSON still
// reads from r.Body as normal since it's replaced with a fresh reader over
// the same bytes.
func bufferBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil && r.Body != http.NoBody {
			buf, err := io.ReadAll(io.LimitReader(r.Body, maxBufferedBody))
			if err == nil {
				r.Body = io.NopCloser(bytes.NewReader(buf))
				r = r.WithContext(context.WithValue(r.Context(), bodyKey, buf))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func bodyFromContext(ctx context.Context) []byte {
	buf, _ := ctx.Value(bodyKey).([]byte)
	return buf
}

// Handlers bundles every collaborator the HTTP surface calls into, wired
// together by cmd/server/main.go.
type Handlers struct {
	Tournaments  *registry.TournamentRegistry
	Participants *registry.ParticipantRegistry
	Progression  *progression.Service
	Signup       *signup.Service
	Hub          *events.Hub
	Log          *slog.Logger
	JWTSecret    []byte
	CORSOrigins  []string
}

// NewRouter wires the full route tree, grounded on the teacher's
// routes/routes.go SetupRoutes layout: chi middleware stack first, then
// public routes, then an authenticated group.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(slogLogger(h.Log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(bufferBody)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { ok(w, http.StatusOK, nil) })

	// Public signup collaborator (spec.md §4.7) -- unauthenticated by design.
	r.Route("/api/public/{tournamentID}", func(pr chi.Router) {
		pr.Get("/participants/lookup", h.lookupParticipant)
		pr.Post("/signup", h.publicSignup)
		pr.Post("/waitlist/join", h.waitlistJoin)
		pr.Post("/waitlist/{entryID}/leave", h.waitlistLeave)
		pr.Get("/waitlist/{entryID}", h.waitlistStatus)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(Authenticate(h.JWTSecret, h.Log))

		ar.Route("/api/tournaments", func(tr chi.Router) {
			tr.Get("/", h.listTournaments)
			tr.Post("/create", h.createTournament)
			tr.Get("/{idOrSlug}", h.getTournament)
			tr.Put("/{idOrSlug}", h.updateTournament)
			tr.Post("/{idOrSlug}/start", h.startTournament)
			tr.Post("/{idOrSlug}/reset", h.resetTournament)
			tr.Post("/{idOrSlug}/complete", h.completeTournament)
			tr.Delete("/{idOrSlug}", h.deleteTournament)
			tr.Get("/{idOrSlug}/bracket", h.bracketView)
			tr.Get("/{idOrSlug}/standings", h.standings)
			tr.Post("/{idOrSlug}/swiss/next-round", h.swissNextRound)

			tr.Get("/{idOrSlug}/participants", h.listParticipants)
			tr.Post("/{idOrSlug}/participants", h.addParticipant)
			tr.Post("/{idOrSlug}/participants/randomize", h.randomizeSeeds)
			tr.Post("/{idOrSlug}/participants/{participantID}/checkin", h.setCheckedIn)

			tr.Get("/{idOrSlug}/stations", h.listStations)
			tr.Post("/{idOrSlug}/stations", h.createStation)
		})

		ar.Route("/api/matches/{tournamentIdOrSlug}", func(mr chi.Router) {
			mr.Get("/", h.listMatches)
			mr.Get("/stats", h.matchStats)
			mr.Get("/{matchId}", h.getMatch)
			mr.Post("/{matchId}/underway", h.markUnderway)
			mr.Post("/{matchId}/winner", h.setWinner)
			mr.Post("/{matchId}/score", h.setScore)
			mr.Post("/{matchId}/reopen", h.reopenMatch)
			mr.Post("/{matchId}/dq", h.forfeitMatch)
			mr.Post("/{matchId}/station", h.setMatchStation)
			mr.Post("/batch-scores", h.batchScores)
			mr.Post("/auto-assign", h.autoAssignStations)
			mr.Post("/undo", h.undoLast)
		})

		ar.Get("/ws/tournaments/{tournamentID}", h.serveWebSocket)
	})

	return r
}

// slogLogger adapts chi's RequestLogger to emit structured slog lines,
// matching the teacher's preference for chiMiddleware.Logger but routed
// through the application's own logger instead of the stdlib logger.
func slogLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			r = r.WithContext(context.WithValue(r.Context(), loggerKey, log))
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method, "path", r.URL.Path,
				"status", ww.Status(), "bytes", ww.BytesWritten(),
				"request_id", requestIDFromContext(r.Context()))
		})
	}
}
