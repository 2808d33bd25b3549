package middleware

import (
	"context"
	"net/http"
	"strings"

	"dcc-backend/internal/models"
	"dcc-backend/internal/transport"
)

// ClinicSlugHeader scopes every API call to one tenant.
const ClinicSlugHeader = "X-Clinic-Slug"

type clinicKey struct{}

// ClinicResolver loads the tenant root for a slug. Implementations must
// return nil (not an error) for unknown slugs.
type ClinicResolver interface {
	Resolve(ctx context.Context, slug string) (*models.Clinic, error)
}

// Tenant resolves the clinic named by the slug header and rejects requests
// for missing, removed or inactive tenants. There is no fallback tenant:
// no slug means no access.
func Tenant(resolver ClinicResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := strings.TrimSpace(r.Header.Get(ClinicSlugHeader))
			if slug == "" {
				transport.WriteError(w, http.StatusBadRequest, "missing clinic slug", nil)
				return
			}

			clinic, err := resolver.Resolve(r.Context(), slug)
			if err != nil {
				transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
				return
			}
			if clinic == nil || clinic.Removed || !clinic.Active {
				transport.WriteError(w, http.StatusNotFound, "clinic not found", nil)
				return
			}

			ctx := context.WithValue(r.Context(), clinicKey{}, clinic)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClinicFromContext(ctx context.Context) *models.Clinic {
	if v := ctx.Value(clinicKey{}); v != nil {
		if c, ok := v.(*models.Clinic); ok {
			return c
		}
	}
	return nil
}
