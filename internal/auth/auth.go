// Package auth defines the authentication port and the layered credential
// chain the server verifies requests with.
package auth

import (
	"context"

	"github.com/NicoZweifel/aquila/internal/models"
)

// Provider resolves a credential string to an identity. All errors returned
// are *apierrors.AuthError.
type Provider interface {
	// Verify authenticates a credential. An empty credential fails with
	// the missing kind.
	Verify(ctx context.Context, credential string) (*models.Identity, error)

	// LoginURL returns the URL that starts an interactive login flow,
	// or "" when the provider has none.
	LoginURL() string

	// ExchangeCode trades an authorization code for an identity.
	ExchangeCode(ctx context.Context, code string) (*models.Identity, error)
}

// Elevator optionally rewrites an identity's scopes after authentication,
// e.g. mapping external group memberships to internal scopes.
type Elevator interface {
	Elevate(ctx context.Context, id *models.Identity) (*models.Identity, error)
}

// ElevatorFunc adapts a function to the Elevator interface.
type ElevatorFunc func(ctx context.Context, id *models.Identity) (*models.Identity, error)

func (f ElevatorFunc) Elevate(ctx context.Context, id *models.Identity) (*models.Identity, error) {
	return f(ctx, id)
}
