// Package token mints and verifies the server's own signed bearer tokens.
//
// A token is an HS256 JWT carrying {sub, exp, scopes}. Verification
// distinguishes expiry from every other decode failure: the layered auth
// chain must not retry an expired server token against the upstream
// provider.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
)

// Claims are the payload of a signed token.
type Claims struct {
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a symmetric key held at
// construction.
type Service struct {
	secret []byte
	now    func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a service signing with secret.
func New(secret string, opts ...Option) *Service {
	s := &Service{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mint signs an assertion for subject with the given scopes, expiring after
// ttl.
func (s *Service) Mint(subject string, scopes []string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apierrors.AuthSystemErr(err)
	}
	return signed, nil
}

// Verify validates a token and returns the identity it asserts. An empty
// token is missing; a token past exp is expired; every other decode failure
// is invalid.
func (s *Service) Verify(tok string) (*models.Identity, error) {
	if tok == "" {
		return nil, apierrors.ErrMissingCredentials
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tok, &claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apierrors.ErrExpiredCredentials
		}
		return nil, apierrors.ErrInvalidCredentials
	}

	return &models.Identity{ID: claims.Subject, Scopes: claims.Scopes}, nil
}
