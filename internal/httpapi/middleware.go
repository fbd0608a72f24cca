package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/matchgrid/tourney/internal/tenant"
)

const bearerPrefix = "Bearer "

type contextKey string

const principalContextKey contextKey = "principal"

// Authenticate verifies the bearer JWT and stores the resolved Principal in
// the request context, grounded on the teacher's middleware/auth.go
// Authenticate idiom but decoding straight into spec.md §4.1's Principal
// shape instead of a raw claims map.
func Authenticate(secret []byte, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractToken(r)
			if err != nil || tokenString == "" {
				fail(w, http.StatusUnauthorized, "unauthorized", "missing or malformed Authorization header")
				return
			}

			parsed, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !parsed.Valid {
				log.Warn("token validation failed", "error", err)
				fail(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			claims := parsed.Claims.(*jwt.MapClaims)
			p, err := principalFromClaims(*claims)
			if err != nil {
				fail(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func principalFromClaims(claims jwt.MapClaims) (*tenant.Principal, error) {
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return nil, errors.New("missing or invalid 'sub' claim")
	}
	roleStr, _ := claims["role"].(string)
	if roleStr == "" {
		roleStr = string(tenant.RoleUser)
	}

	p := &tenant.Principal{UserID: int64(sub), Role: tenant.Role(roleStr)}
	if v, ok := claims["view_all"].(bool); ok {
		p.ViewAll = v
	}
	if v, ok := claims["impersonate_tenant_id"].(float64); ok {
		id := int64(v)
		p.ImpersonateID = &id
	}
	return p, nil
}

func extractToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", nil
	}
	if !strings.HasPrefix(h, bearerPrefix) {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimPrefix(h, bearerPrefix), nil
}

func principalFromContext(ctx context.Context) (*tenant.Principal, error) {
	p, ok := ctx.Value(principalContextKey).(*tenant.Principal)
	if !ok {
		return nil, errors.New("principal not found in context")
	}
	return p, nil
}

// scopeFromRequest resolves the request's tenant.Scope from its
// authenticated principal (spec.md §4.1).
func scopeFromRequest(r *http.Request) (tenant.Scope, error) {
	p, err := principalFromContext(r.Context())
	if err != nil {
		return tenant.Scope{}, err
	}
	return tenant.Resolve(p)
}
