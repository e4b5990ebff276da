package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedAdminWildcard(t *testing.T) {
	admin := &Identity{ID: "root", Scopes: []string{ScopeAdmin}}

	assert.True(t, admin.Allowed(ScopeAssetUpload))
	assert.True(t, admin.Allowed(ScopeJobAttach))
	assert.True(t, admin.Allowed("anything:at-all"))
}

func TestAllowedExactScope(t *testing.T) {
	id := &Identity{ID: "bob", Scopes: []string{ScopeRead, ScopeAssetDownload}}

	assert.True(t, id.Allowed(ScopeAssetDownload))
	assert.False(t, id.Allowed(ScopeAssetUpload))
	assert.False(t, id.Allowed(ScopeAdmin))
}

func TestHasScopeIsExact(t *testing.T) {
	admin := &Identity{ID: "root", Scopes: []string{ScopeAdmin}}

	assert.True(t, admin.HasScope(ScopeAdmin))
	assert.False(t, admin.HasScope(ScopeWrite), "HasScope does not apply the wildcard")
}

func TestJobStateTerminal(t *testing.T) {
	assert.False(t, JobPending.Terminal())
	assert.False(t, JobRunning.Terminal())
	assert.True(t, JobSucceeded.Terminal())
	assert.True(t, JobFailed.Terminal())
}
