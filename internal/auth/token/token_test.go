package token

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
)

func TestMintVerifyRoundTrip(t *testing.T) {
	svc := New("secret")

	tok, err := svc.Mint("alice", []string{"read", "asset:upload"}, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	id, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.ID)
	assert.Equal(t, []string{"read", "asset:upload"}, id.Scopes)
}

func TestVerifyEmptyTokenIsMissing(t *testing.T) {
	svc := New("secret")

	_, err := svc.Verify("")
	assert.ErrorIs(t, err, apierrors.ErrMissingCredentials)
}

func TestVerifyGarbageIsInvalid(t *testing.T) {
	svc := New("secret")

	_, err := svc.Verify("not-a-token")
	assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)
}

func TestVerifyWrongKeyIsInvalid(t *testing.T) {
	tok, err := New("key-one").Mint("alice", []string{"read"}, time.Hour)
	require.NoError(t, err)

	_, err = New("key-two").Verify(tok)
	assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)
}

func TestVerifyExpiredIsDistinguished(t *testing.T) {
	now := time.Now()
	minter := New("secret", WithClock(func() time.Time { return now }))
	verifier := New("secret", WithClock(func() time.Time { return now.Add(2 * time.Hour) }))

	tok, err := minter.Mint("alice", []string{"read"}, time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	assert.ErrorIs(t, err, apierrors.ErrExpiredCredentials)
	assert.False(t, errors.Is(err, apierrors.ErrInvalidCredentials))
}

func TestVerifyNotYetExpired(t *testing.T) {
	now := time.Now()
	minter := New("secret", WithClock(func() time.Time { return now }))
	verifier := New("secret", WithClock(func() time.Time { return now.Add(30 * time.Minute) }))

	tok, err := minter.Mint("alice", []string{"read"}, time.Hour)
	require.NoError(t, err)

	id, err := verifier.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.ID)
}
