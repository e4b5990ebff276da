package auth

import (
	"context"
	"errors"

	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
)

// TokenVerifier validates a server-issued bearer token.
type TokenVerifier interface {
	Verify(token string) (*models.Identity, error)
}

// Chain verifies credentials against the server's own tokens first and
// falls back to an upstream provider. An expired server token stops the
// chain: the client must mint a fresh token rather than have a stale one
// silently reinterpreted as an upstream credential.
type Chain struct {
	tokens   TokenVerifier
	upstream Provider
}

// NewChain layers tokens in front of upstream.
func NewChain(tokens TokenVerifier, upstream Provider) *Chain {
	return &Chain{tokens: tokens, upstream: upstream}
}

func (c *Chain) Verify(ctx context.Context, credential string) (*models.Identity, error) {
	if credential == "" {
		return nil, apierrors.ErrMissingCredentials
	}

	id, err := c.tokens.Verify(credential)
	if err == nil {
		return id, nil
	}
	if errors.Is(err, apierrors.ErrExpiredCredentials) {
		return nil, err
	}
	return c.upstream.Verify(ctx, credential)
}

func (c *Chain) LoginURL() string {
	return c.upstream.LoginURL()
}

func (c *Chain) ExchangeCode(ctx context.Context, code string) (*models.Identity, error) {
	return c.upstream.ExchangeCode(ctx, code)
}
