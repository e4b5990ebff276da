package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
)

func TestVerify(t *testing.T) {
	p := New()

	id, err := p.Verify(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "dev", id.ID)
	assert.True(t, id.Allowed(models.ScopeJobRun), "dev identity is admin")

	_, err = p.Verify(context.Background(), "")
	assert.ErrorIs(t, err, apierrors.ErrMissingCredentials)
}

func TestNoInteractiveFlow(t *testing.T) {
	p := New()

	assert.Empty(t, p.LoginURL())

	_, err := p.ExchangeCode(context.Background(), "code")
	var ae *apierrors.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierrors.AuthUnsupported, ae.Kind)
}
