// Package github authenticates requests against GitHub. A bearer
// credential is treated as a GitHub access token and resolved to a login
// via the user API; the OAuth code flow is available for interactive
// clients.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"github.com/NicoZweifel/aquila/internal/auth"
	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
)

const userEndpoint = "https://api.github.com/user"

// HTTPClient interface for making HTTP requests (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider authenticates GitHub access tokens and runs the OAuth code
// flow. Authenticated users receive the configured default scopes; a
// scope elevator can widen them afterwards.
type Provider struct {
	oauth         *oauth2.Config
	defaultScopes []string
	httpClient    HTTPClient
	userEndpoint  string
}

var _ auth.Provider = (*Provider)(nil)

// Config holds the GitHub application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string

	// DefaultScopes are granted to every authenticated user. Defaults to
	// read-only access.
	DefaultScopes []string
}

// Option configures the provider.
type Option func(*Provider)

// WithHTTPClient overrides the HTTP client used for GitHub API calls.
// This is primarily used for testing.
func WithHTTPClient(c HTTPClient) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithUserEndpoint overrides the user API endpoint, for tests.
func WithUserEndpoint(url string) Option {
	return func(p *Provider) { p.userEndpoint = url }
}

// New returns a provider for the given GitHub OAuth application.
func New(cfg Config, opts ...Option) *Provider {
	scopes := cfg.DefaultScopes
	if len(scopes) == 0 {
		scopes = []string{models.ScopeRead}
	}

	p := &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauthgithub.Endpoint,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"read:user"},
		},
		defaultScopes: scopes,
		httpClient:    http.DefaultClient,
		userEndpoint:  userEndpoint,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Verify resolves a GitHub access token to its login.
func (p *Provider) Verify(ctx context.Context, credential string) (*models.Identity, error) {
	if credential == "" {
		return nil, apierrors.ErrMissingCredentials
	}

	user, err := p.fetchUser(ctx, credential)
	if err != nil {
		return nil, err
	}
	return &models.Identity{ID: user, Scopes: append([]string(nil), p.defaultScopes...)}, nil
}

// LoginURL returns the GitHub authorization URL.
func (p *Provider) LoginURL() string {
	return p.oauth.AuthCodeURL("")
}

// ExchangeCode trades an authorization code for the identity of the user
// who granted it.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*models.Identity, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, &apierrors.AuthError{
			Kind:    apierrors.AuthInvalid,
			Message: fmt.Sprintf("code exchange failed: %v", err),
		}
	}
	return p.Verify(ctx, token.AccessToken)
}

func (p *Provider) fetchUser(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userEndpoint, nil)
	if err != nil {
		return "", apierrors.AuthSystemErr(err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", apierrors.AuthSystemErr(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", apierrors.ErrInvalidCredentials
	case resp.StatusCode != http.StatusOK:
		return "", apierrors.AuthSystemErr(fmt.Errorf("github API returned status %d", resp.StatusCode))
	}

	var data struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", apierrors.AuthSystemErr(fmt.Errorf("decode github user response: %w", err))
	}
	if data.Login == "" {
		return "", apierrors.ErrInvalidCredentials
	}
	return data.Login, nil
}
