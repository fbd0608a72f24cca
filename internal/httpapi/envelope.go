// Package httpapi is the HTTP transport for the tournament server
// (spec.md §6): chi router, JWT-derived tenant scoping, and one handler
// group per resource, grounded on the teacher's routes/routes.go and
// handlers/helpers.go idioms.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/matchgrid/tourney/internal/models"
)

// envelope is spec.md §6's uniform response shape:
// { success: bool, ..., error?: {code, message} }.
type envelope map[string]any

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	const maxBytes = 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var unmarshalErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxErr.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalErr):
			return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalErr.Field)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return fmt.Errorf("body contains unknown key %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data envelope) {
	if id := w.Header().Get("X-Request-Id"); id != "" {
		data["requestId"] = id
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func ok(w http.ResponseWriter, status int, fields envelope) {
	out := envelope{"success": true}
	for k, v := range fields {
		out[k] = v
	}
	writeJSON(w, status, out)
}

func fail(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{
		"success": false,
		"error":   envelope{"code": code, "message": message},
	})
}

// writeError maps a CoreError's Kind to an HTTP status, matching the
// teacher's mapServiceErrorToHTTP dispatch but switching on a typed Kind
// instead of a long errors.Is list (spec.md §7). Operational errors (the
// named Kinds below) are expected and never log a stack trace; anything
// that falls to the Internal/default case is unexpected and logs with
// stack, request context, and a redacted body for debugging (spec.md §7).
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := models.KindOf(err)
	switch kind {
	case models.KindNotFound:
		fail(w, http.StatusNotFound, kind.String(), err.Error())
	case models.KindValidation:
		fail(w, http.StatusBadRequest, kind.String(), err.Error())
	case models.KindConflict:
		fail(w, http.StatusConflict, kind.String(), err.Error())
	case models.KindUnauthorized:
		fail(w, http.StatusUnauthorized, kind.String(), err.Error())
	case models.KindForbidden:
		fail(w, http.StatusForbidden, kind.String(), err.Error())
	default:
		logInternalError(r, err)
		fail(w, http.StatusInternalServerError, kind.String(), "the server encountered a problem and could not process your request")
	}
}

// logInternalError logs an unexpected (non-operational) error with enough
// context to debug it after the fact: the stack at the point writeError was
// called, the request method/path/request id, the tenant id if the request
// ever authenticated, and a redacted snapshot of whatever body the client
// sent (spec.md §7).
func logInternalError(r *http.Request, err error) {
	log := loggerFromContext(r.Context())

	attrs := []any{
		"error", err.Error(),
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", requestIDFromContext(r.Context()),
		"stack", string(debug.Stack()),
	}
	if scope, scopeErr := scopeFromRequest(r); scopeErr == nil {
		attrs = append(attrs, "tenant_id", scope.TenantID)
	}
	if body := bodyFromContext(r.Context()); len(body) > 0 {
		attrs = append(attrs, "body", redactBody(body))
	}
	log.Error("internal error", attrs...)
}

func badRequest(w http.ResponseWriter, err error) {
	fail(w, http.StatusBadRequest, "validation", err.Error())
}

func errRequired(field string) error {
	return fmt.Errorf("%s is required", field)
}
