package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
)

type fakeProvider struct {
	gotCredential string
	id            *models.Identity
	err           error
}

func (f *fakeProvider) Verify(ctx context.Context, credential string) (*models.Identity, error) {
	f.gotCredential = credential
	if f.err != nil {
		return nil, f.err
	}
	return f.id, nil
}

func (f *fakeProvider) LoginURL() string { return "" }

func (f *fakeProvider) ExchangeCode(ctx context.Context, code string) (*models.Identity, error) {
	return nil, apierrors.AuthUnsupportedErr("exchange")
}

type fakeElevator struct {
	elevate func(*models.Identity) (*models.Identity, error)
}

func (f *fakeElevator) Elevate(ctx context.Context, id *models.Identity) (*models.Identity, error) {
	return f.elevate(id)
}

func echoIdentity(t *testing.T, captured **models.Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateTrimsBearerPrefix(t *testing.T) {
	provider := &fakeProvider{id: &models.Identity{ID: "alice"}}
	var seen *models.Identity

	h := Authenticate(provider, nil)(echoIdentity(t, &seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok-123", provider.gotCredential)
	require.NotNil(t, seen)
	assert.Equal(t, "alice", seen.ID)
}

func TestAuthenticateMissingHeaderYieldsEmptyCredential(t *testing.T) {
	provider := &fakeProvider{err: apierrors.ErrMissingCredentials}
	var seen *models.Identity

	h := Authenticate(provider, nil)(echoIdentity(t, &seen))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, provider.gotCredential)
	assert.Nil(t, seen)
}

func TestAuthenticateSchemelessHeaderPassesRawCredential(t *testing.T) {
	// An upstream access token sent without the Bearer scheme still
	// authenticates; the prefix is optional.
	provider := &fakeProvider{id: &models.Identity{ID: "gh-user"}}
	var seen *models.Identity

	h := Authenticate(provider, nil)(echoIdentity(t, &seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "gho_opaque")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gho_opaque", provider.gotCredential)
	require.NotNil(t, seen)
	assert.Equal(t, "gh-user", seen.ID)
}

func TestAuthenticateAppliesElevator(t *testing.T) {
	provider := &fakeProvider{id: &models.Identity{ID: "alice", Scopes: []string{"read"}}}
	elevator := &fakeElevator{elevate: func(id *models.Identity) (*models.Identity, error) {
		return &models.Identity{ID: id.ID, Scopes: append(id.Scopes, "job:run")}, nil
	}}
	var seen *models.Identity

	h := Authenticate(provider, elevator)(echoIdentity(t, &seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.NotNil(t, seen)
	assert.Contains(t, seen.Scopes, "job:run")
}

func TestAuthenticateElevatorFailurePropagates(t *testing.T) {
	provider := &fakeProvider{id: &models.Identity{ID: "alice"}}
	elevator := &fakeElevator{elevate: func(id *models.Identity) (*models.Identity, error) {
		return nil, apierrors.AuthForbiddenErr("group lookup denied")
	}}

	h := Authenticate(provider, elevator)(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireScope(t *testing.T) {
	tests := []struct {
		name   string
		scopes []string
		want   int
	}{
		{"exact scope passes", []string{"asset:upload"}, http.StatusOK},
		{"admin wildcard passes", []string{"admin"}, http.StatusOK},
		{"unrelated scope is forbidden", []string{"read"}, http.StatusForbidden},
		{"no scopes is forbidden", nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireScope("asset:upload")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req = req.WithContext(WithIdentity(req.Context(), &models.Identity{ID: "u", Scopes: tt.scopes}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireScopeWithoutIdentity(t *testing.T) {
	h := RequireScope("read")(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
