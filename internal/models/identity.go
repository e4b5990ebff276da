package models

// Identity is the authenticated caller of a request. It is reconstructed
// from a credential on every request and never persisted.
type Identity struct {
	ID     string   `json:"id"`
	Scopes []string `json:"scopes"`
}

// Allowed reports whether the identity may pass a gate requiring scope.
// The admin scope is a wildcard and satisfies every gate.
func (id *Identity) Allowed(scope string) bool {
	for _, s := range id.Scopes {
		if s == scope || s == ScopeAdmin {
			return true
		}
	}
	return false
}

// HasScope reports whether the identity carries the exact scope, without
// the admin wildcard.
func (id *Identity) HasScope(scope string) bool {
	for _, s := range id.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
