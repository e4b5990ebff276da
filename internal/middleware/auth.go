package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/NicoZweifel/aquila/internal/auth"
	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
	"github.com/NicoZweifel/aquila/internal/pkg/response"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const identityKey contextKey = "identity"

// IdentityFromContext retrieves the authenticated identity, or nil when
// the request did not pass the auth middleware.
func IdentityFromContext(ctx context.Context) *models.Identity {
	id, _ := ctx.Value(identityKey).(*models.Identity)
	return id
}

// WithIdentity stores an identity on the context. Handler tests use it to
// bypass the middleware.
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Authenticate verifies the bearer credential on every request and stores
// the resulting identity on the context. elevator may be nil.
func Authenticate(provider auth.Provider, elevator auth.Elevator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := bearerToken(r)

			id, err := provider.Verify(r.Context(), credential)
			if err != nil {
				response.Error(w, err)
				return
			}

			if elevator != nil {
				id, err = elevator.Elevate(r.Context(), id)
				if err != nil {
					response.Error(w, err)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireScope gates a route on a scope. Admin passes every gate.
func RequireScope(scope string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if id == nil {
				response.Error(w, apierrors.ErrMissingCredentials)
				return
			}
			if !id.Allowed(scope) {
				response.Error(w, apierrors.AuthForbiddenErr("scope %s required", scope))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the credential from the Authorization header. The
// "Bearer " prefix is optional: a raw upstream token sent without a scheme
// still goes through verification as-is.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
