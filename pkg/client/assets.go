package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Upload stores data as a content-addressed blob and returns its hash.
// created is false when the server already held an identical blob. The
// returned hash is verified against a locally computed digest.
func (c *Client) Upload(ctx context.Context, data []byte) (hash string, created bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/assets", bytes.NewReader(data))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	body, status, err := c.do(req)
	if err != nil {
		return "", false, err
	}

	sum := sha256.Sum256(data)
	local := hex.EncodeToString(sum[:])
	remote := string(body)
	if remote != local {
		return "", false, fmt.Errorf("server digest %s does not match local digest %s", remote, local)
	}

	return remote, status == http.StatusCreated, nil
}

// UploadFile uploads the file at path. See Upload.
func (c *Client) UploadFile(ctx context.Context, path string) (hash string, created bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	return c.Upload(ctx, data)
}

// UploadStream streams r to the blob address hash, which the caller must
// have computed in advance. size sets Content-Length when non-negative.
// The server verifies the stream against hash and rejects a mismatch.
func (c *Client) UploadStream(ctx context.Context, hash string, r io.Reader, size int64) (created bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/assets/stream/"+hash, r)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if size >= 0 {
		req.ContentLength = size
	}

	_, status, err := c.do(req)
	if err != nil {
		return false, err
	}
	return status == http.StatusCreated, nil
}

// UploadFileStream hashes the file at path in a first pass and then
// streams it, so arbitrarily large files never reside in memory.
func (c *Client) UploadFileStream(ctx context.Context, path string) (hash string, created bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", false, err
	}
	hash = hex.EncodeToString(h.Sum(nil))

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", false, err
	}

	created, err = c.UploadStream(ctx, hash, f, size)
	return hash, created, err
}

// Download fetches the blob at hash. Redirect downloads are followed
// transparently.
func (c *Client) Download(ctx context.Context, hash string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/assets/"+hash, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, _, err := c.do(req)
	return body, err
}

// DownloadFile fetches the blob at hash into the file at path.
func (c *Client) DownloadFile(ctx context.Context, hash, path string) error {
	data, err := c.Download(ctx, hash)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
