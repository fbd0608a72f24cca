package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	_ "modernc.org/sqlite"

	"github.com/matchgrid/tourney/internal/events"
	"github.com/matchgrid/tourney/internal/models"
	"github.com/matchgrid/tourney/internal/progression"
	"github.com/matchgrid/tourney/internal/registry"
	"github.com/matchgrid/tourney/internal/signup"
	"github.com/matchgrid/tourney/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, nil))
}

var testJWTSecret = []byte("test-secret")

func bearerToken(t *testing.T, userID int64, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  float64(userID),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(testJWTSecret)
	require.NoError(t, err)
	return signed
}

// testServer wires a full router against an in-memory sqlite store, mirroring
// cmd/server/main.go's construction order.
func testServer(t *testing.T) (http.Handler, int64) {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, store.Migrate(context.Background(), db))

	tournaments := store.NewTournamentStore()
	participants := store.NewParticipantStore()
	matches := store.NewMatchStore()
	stations := store.NewStationStore()
	history := store.NewHistoryStore()
	waitlist := store.NewWaitlistStore()
	bus := events.NewBus()
	log := discardLogger()

	h := &Handlers{
		Tournaments:  registry.NewTournamentRegistry(db, tournaments, bus, log),
		Participants: registry.NewParticipantRegistry(db, tournaments, participants, bus, log),
		Progression:  progression.NewService(db, store.NewLockRegistry(), tournaments, participants, matches, stations, history, bus, log, 50),
		Signup:       signup.NewService(db, tournaments, participants, waitlist, bus, log),
		Hub:          events.NewHub(bus, log),
		Log:          log,
		JWTSecret:    testJWTSecret,
		CORSOrigins:  []string{"*"},
	}
	return NewRouter(h), 1
}

func doRequest(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz_RespondsOKWithoutAuth(t *testing.T) {
	r, _ := testServer(t)
	rec := doRequest(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_RejectsMissingToken(t *testing.T) {
	r, _ := testServer(t)
	rec := doRequest(t, r, http.MethodGet, "/api/tournaments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_RejectsTokenSignedWithWrongSecret(t *testing.T) {
	r, _ := testServer(t)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": float64(1)})
	signed, err := tok.SignedString([]byte("not-the-right-secret"))
	require.NoError(t, err)

	rec := doRequest(t, r, http.MethodGet, "/api/tournaments", signed, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateTournament_RejectsMissingName(t *testing.T) {
	r, userID := testServer(t)
	token := bearerToken(t, userID, "user")

	rec := doRequest(t, r, http.MethodPost, "/api/tournaments/create", token, map[string]any{
		"gameName": "Smash",
		"format":   string(models.FormatSingleElim),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTournament_SucceedsAndIsListedForOwner(t *testing.T) {
	r, userID := testServer(t)
	token := bearerToken(t, userID, "user")

	rec := doRequest(t, r, http.MethodPost, "/api/tournaments/create", token, map[string]any{
		"name":     "Summer Clash",
		"gameName": "Smash",
		"format":   string(models.FormatSingleElim),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env["success"])
	created := env["tournament"].(map[string]any)
	assert.Equal(t, "Summer Clash", created["Name"])

	listRec := doRequest(t, r, http.MethodGet, "/api/tournaments", token, nil)
	require.Equal(t, http.StatusOK, listRec.Code)
	listEnv := decodeEnvelope(t, listRec)
	assert.Contains(t, listEnv, "tournaments")
}

func TestGetTournament_RejectsCrossTenantAccess(t *testing.T) {
	r, owner := testServer(t)
	ownerToken := bearerToken(t, owner, "user")

	createRec := doRequest(t, r, http.MethodPost, "/api/tournaments/create", ownerToken, map[string]any{
		"name": "Winter Open", "format": string(models.FormatSingleElim),
	})
	require.Equal(t, http.StatusCreated, createRec.Code)
	created := decodeEnvelope(t, createRec)["tournament"].(map[string]any)
	id := int64(created["ID"].(float64))

	otherToken := bearerToken(t, owner+1, "user")
	rec := doRequest(t, r, http.MethodGet, "/api/tournaments/"+itoa(id), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStartTournament_GeneratesBracketAndTransitionsState(t *testing.T) {
	r, owner := testServer(t)
	token := bearerToken(t, owner, "user")

	createRec := doRequest(t, r, http.MethodPost, "/api/tournaments/create", token, map[string]any{
		"name": "Qualifier", "format": string(models.FormatSingleElim),
	})
	require.Equal(t, http.StatusCreated, createRec.Code)
	created := decodeEnvelope(t, createRec)["tournament"].(map[string]any)
	id := int64(created["ID"].(float64))
	idStr := itoa(id)

	for _, name := range []string{"Ann", "Bo", "Cy", "Dee"} {
		addRec := doRequest(t, r, http.MethodPost, "/api/tournaments/"+idStr+"/participants", token, map[string]any{
			"displayName": name,
		})
		require.Equal(t, http.StatusCreated, addRec.Code)
	}

	startRec := doRequest(t, r, http.MethodPost, "/api/tournaments/"+idStr+"/start", token, nil)
	require.Equal(t, http.StatusOK, startRec.Code)
	env := decodeEnvelope(t, startRec)
	assert.Greater(t, env["matchCount"].(float64), float64(0))

	getRec := doRequest(t, r, http.MethodGet, "/api/tournaments/"+idStr, token, nil)
	require.Equal(t, http.StatusOK, getRec.Code)
	tourn := decodeEnvelope(t, getRec)["tournament"].(map[string]any)
	assert.Equal(t, string(models.StateUnderway), tourn["State"])
}

func TestStartTournament_RejectsTooFewParticipants(t *testing.T) {
	r, owner := testServer(t)
	token := bearerToken(t, owner, "user")

	createRec := doRequest(t, r, http.MethodPost, "/api/tournaments/create", token, map[string]any{
		"name": "Tiny", "format": string(models.FormatSingleElim),
	})
	require.Equal(t, http.StatusCreated, createRec.Code)
	created := decodeEnvelope(t, createRec)["tournament"].(map[string]any)
	id := int64(created["ID"].(float64))

	rec := doRequest(t, r, http.MethodPost, "/api/tournaments/"+itoa(id)+"/start", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicSignup_DoesNotRequireAuthentication(t *testing.T) {
	r, owner := testServer(t)
	token := bearerToken(t, owner, "user")

	createRec := doRequest(t, r, http.MethodPost, "/api/tournaments/create", token, map[string]any{
		"name": "Drop-in", "format": string(models.FormatSingleElim),
	})
	require.Equal(t, http.StatusCreated, createRec.Code)
	created := decodeEnvelope(t, createRec)["tournament"].(map[string]any)
	id := int64(created["ID"].(float64))

	signupRec := doRequest(t, r, http.MethodPost, "/api/public/"+itoa(id)+"/signup", "", map[string]any{
		"name": "Walk-in Wendy",
	})
	assert.Equal(t, http.StatusCreated, signupRec.Code)
}

func TestPublicSignup_RejectsDuplicateName(t *testing.T) {
	r, owner := testServer(t)
	token := bearerToken(t, owner, "user")

	createRec := doRequest(t, r, http.MethodPost, "/api/tournaments/create", token, map[string]any{
		"name": "Drop-in Two", "format": string(models.FormatSingleElim),
	})
	require.Equal(t, http.StatusCreated, createRec.Code)
	created := decodeEnvelope(t, createRec)["tournament"].(map[string]any)
	id := int64(created["ID"].(float64))
	path := "/api/public/" + itoa(id) + "/signup"

	first := doRequest(t, r, http.MethodPost, path, "", map[string]any{"name": "Wendy"})
	require.Equal(t, http.StatusCreated, first.Code)

	second := doRequest(t, r, http.MethodPost, path, "", map[string]any{"name": "Wendy"})
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestSetWinner_RejectsUnplayableMatch(t *testing.T) {
	r, owner := testServer(t)
	token := bearerToken(t, owner, "user")

	createRec := doRequest(t, r, http.MethodPost, "/api/tournaments/create", token, map[string]any{
		"name": "Finale", "format": string(models.FormatSingleElim),
	})
	require.Equal(t, http.StatusCreated, createRec.Code)
	created := decodeEnvelope(t, createRec)["tournament"].(map[string]any)
	id := int64(created["ID"].(float64))
	idStr := itoa(id)

	for _, name := range []string{"Ann", "Bo", "Cy", "Dee"} {
		doRequest(t, r, http.MethodPost, "/api/tournaments/"+idStr+"/participants", token, map[string]any{
			"displayName": name,
		})
	}
	doRequest(t, r, http.MethodPost, "/api/tournaments/"+idStr+"/start", token, nil)

	rec := doRequest(t, r, http.MethodPost, "/api/matches/"+idStr+"/999999/winner", token, map[string]any{
		"winnerId": 1,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func itoa(v int64) string {
	return jsonNumber(v)
}

func jsonNumber(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
