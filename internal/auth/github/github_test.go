package github

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
)

func testConfig() Config {
	return Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "http://localhost:8080/auth/callback",
	}
}

func TestVerifyResolvesLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		w.Write([]byte(`{"login":"octocat"}`))
	}))
	defer srv.Close()

	p := New(testConfig(), WithUserEndpoint(srv.URL))

	id, err := p.Verify(context.Background(), "gho_token")
	require.NoError(t, err)
	assert.Equal(t, "octocat", id.ID)
	assert.Equal(t, []string{models.ScopeRead}, id.Scopes)
}

func TestVerifyDefaultScopesConfigurable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"login":"octocat"}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.DefaultScopes = []string{models.ScopeRead, models.ScopeJobAttach}
	p := New(cfg, WithUserEndpoint(srv.URL))

	id, err := p.Verify(context.Background(), "gho_token")
	require.NoError(t, err)
	assert.Equal(t, []string{models.ScopeRead, models.ScopeJobAttach}, id.Scopes)
}

func TestVerifyMissingCredential(t *testing.T) {
	p := New(testConfig())

	_, err := p.Verify(context.Background(), "")
	assert.ErrorIs(t, err, apierrors.ErrMissingCredentials)
}

func TestVerifyRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := New(testConfig(), WithUserEndpoint(srv.URL))

	_, err := p.Verify(context.Background(), "revoked")
	assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)
}

func TestVerifyAPIOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := New(testConfig(), WithUserEndpoint(srv.URL))

	_, err := p.Verify(context.Background(), "gho_token")
	var ae *apierrors.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.AuthSystem, ae.Kind)
}

type failingHTTPClient struct{}

func (failingHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestVerifyTransportFailure(t *testing.T) {
	p := New(testConfig(), WithHTTPClient(failingHTTPClient{}))

	_, err := p.Verify(context.Background(), "gho_token")
	var ae *apierrors.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.AuthSystem, ae.Kind)
}

func TestVerifyEmptyLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := New(testConfig(), WithUserEndpoint(srv.URL))

	_, err := p.Verify(context.Background(), "gho_token")
	assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)
}

func TestLoginURL(t *testing.T) {
	p := New(testConfig())

	url := p.LoginURL()
	assert.Contains(t, url, "github.com/login/oauth/authorize")
	assert.Contains(t, url, "client_id=client-id")
}
