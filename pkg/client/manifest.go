package client

import (
	"context"
	"fmt"
	"net/http"
)

// PublishManifest stores m under its version. When latest is true the
// manifests/latest alias is updated to the same content.
func (c *Client) PublishManifest(ctx context.Context, m *Manifest, latest bool) error {
	path := fmt.Sprintf("/manifest?latest=%t", latest)
	return c.doJSON(ctx, http.MethodPost, path, m, nil)
}

// FetchManifest retrieves the manifest stored under version. Use
// "latest" for the alias.
func (c *Client) FetchManifest(ctx context.Context, version string) (*Manifest, error) {
	var m Manifest
	if err := c.doJSON(ctx, http.MethodGet, "/manifest/"+version, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
