package middleware

import (
	"context"
	"net/http"
	"strings"

	"dcc-backend/internal/auth"
	"dcc-backend/internal/models"
	"dcc-backend/internal/transport"
)

type principalKey struct{}

// Principal is the authenticated identity attached to the request context.
type Principal struct {
	UserID string
	Role   string
	Slug   string
}

// RequireRole is the identity gate: it resolves the bearer token, checks the
// token's tenant against the resolved clinic, and authorizes by role.
// Anything that does not line up ends the request; there is no fail-open
// path. SOFTWARE_OWNER passes every role check.
func RequireRole(manager *auth.Manager, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				transport.WriteError(w, http.StatusServiceUnavailable, "auth not configured", nil)
				return
			}

			token := bearerToken(r)
			if token == "" {
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}

			claims, err := manager.Parse(token)
			if err != nil {
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}

			if clinic := ClinicFromContext(r.Context()); clinic != nil {
				if claims.Role != models.RoleSoftwareOwner && claims.Slug != clinic.Slug {
					transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
					return
				}
			}

			if claims.Role != models.RoleSoftwareOwner && !allowed[claims.Role] {
				transport.WriteError(w, http.StatusForbidden, "forbidden", nil)
				return
			}

			principal := &Principal{UserID: claims.UserID, Role: claims.Role, Slug: claims.Slug}
			ctx := context.WithValue(r.Context(), principalKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func PrincipalFromContext(ctx context.Context) *Principal {
	if v := ctx.Value(principalKey{}); v != nil {
		if p, ok := v.(*Principal); ok {
			return p
		}
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
