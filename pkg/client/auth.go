package client

import (
	"context"
	"net/http"
)

type mintTokenRequest struct {
	Subject         string   `json:"subject"`
	DurationSeconds int64    `json:"duration_seconds,omitempty"`
	Scopes          []string `json:"scopes,omitempty"`
}

// MintToken requests a scoped token for subject. Zero durationSeconds and
// nil scopes take the server defaults (one year, read-only).
func (c *Client) MintToken(ctx context.Context, subject string, scopes []string, durationSeconds int64) (*Token, error) {
	var tok Token
	err := c.doJSON(ctx, http.MethodPost, "/auth/token", mintTokenRequest{
		Subject:         subject,
		DurationSeconds: durationSeconds,
		Scopes:          scopes,
	}, &tok)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}
