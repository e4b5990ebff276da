// Package mock is a development-only auth provider that accepts any
// non-empty credential and grants full access.
package mock

import (
	"context"

	"github.com/NicoZweifel/aquila/internal/auth"
	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
)

// Provider authenticates every non-empty credential as a fixed admin
// identity. Never deploy it outside local development.
type Provider struct{}

var _ auth.Provider = (*Provider)(nil)

// New returns the development provider.
func New() *Provider {
	return &Provider{}
}

func (p *Provider) Verify(ctx context.Context, credential string) (*models.Identity, error) {
	if credential == "" {
		return nil, apierrors.ErrMissingCredentials
	}
	return &models.Identity{ID: "dev", Scopes: []string{models.ScopeAdmin}}, nil
}

// LoginURL returns empty: there is no interactive flow to start.
func (p *Provider) LoginURL() string {
	return ""
}

func (p *Provider) ExchangeCode(ctx context.Context, code string) (*models.Identity, error) {
	return nil, apierrors.AuthUnsupportedErr("code exchange is not available with mock auth")
}
