package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
)

type fakeVerifier struct {
	id  *models.Identity
	err error
}

func (f *fakeVerifier) Verify(token string) (*models.Identity, error) {
	return f.id, f.err
}

type fakeProvider struct {
	verifyCalls int
	id          *models.Identity
	err         error
	loginURL    string
}

func (f *fakeProvider) Verify(ctx context.Context, credential string) (*models.Identity, error) {
	f.verifyCalls++
	return f.id, f.err
}

func (f *fakeProvider) LoginURL() string { return f.loginURL }

func (f *fakeProvider) ExchangeCode(ctx context.Context, code string) (*models.Identity, error) {
	return f.id, f.err
}

func TestChainTokenSuccessSkipsUpstream(t *testing.T) {
	upstream := &fakeProvider{}
	chain := NewChain(&fakeVerifier{id: &models.Identity{ID: "alice"}}, upstream)

	id, err := chain.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "alice", id.ID)
	assert.Zero(t, upstream.verifyCalls)
}

func TestChainExpiredDoesNotFallThrough(t *testing.T) {
	upstream := &fakeProvider{id: &models.Identity{ID: "from-upstream"}}
	chain := NewChain(&fakeVerifier{err: apierrors.ErrExpiredCredentials}, upstream)

	_, err := chain.Verify(context.Background(), "stale")
	assert.ErrorIs(t, err, apierrors.ErrExpiredCredentials)
	assert.Zero(t, upstream.verifyCalls, "an expired token must not be retried upstream")
}

func TestChainInvalidFallsThrough(t *testing.T) {
	upstream := &fakeProvider{id: &models.Identity{ID: "gh-user", Scopes: []string{"read"}}}
	chain := NewChain(&fakeVerifier{err: apierrors.ErrInvalidCredentials}, upstream)

	id, err := chain.Verify(context.Background(), "gho_opaque")
	require.NoError(t, err)
	assert.Equal(t, "gh-user", id.ID)
	assert.Equal(t, 1, upstream.verifyCalls)
}

func TestChainEmptyCredentialNeverReachesUpstream(t *testing.T) {
	// Even an upstream that would accept an empty credential must not see
	// one; the chain fails missing before any verification.
	upstream := &fakeProvider{id: &models.Identity{ID: "too-permissive"}}
	chain := NewChain(&fakeVerifier{err: apierrors.ErrMissingCredentials}, upstream)

	_, err := chain.Verify(context.Background(), "")
	assert.ErrorIs(t, err, apierrors.ErrMissingCredentials)
	assert.Zero(t, upstream.verifyCalls)
}

func TestChainPassthroughs(t *testing.T) {
	upstream := &fakeProvider{loginURL: "https://example.com/login", id: &models.Identity{ID: "u"}}
	chain := NewChain(&fakeVerifier{}, upstream)

	assert.Equal(t, "https://example.com/login", chain.LoginURL())

	id, err := chain.ExchangeCode(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "u", id.ID)
}
