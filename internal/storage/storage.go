// Package storage defines the contract for blob and manifest persistence.
//
// Blobs are immutable and addressed by the lowercase hex SHA-256 of their
// content; manifests live under manifests/<version>. Drivers must make
// manifest writes atomic (a reader observes the old bytes or the new bytes,
// never a partial file) and must make blob writes idempotent per hash.
package storage

import (
	"context"
	"io"
)

// ManifestPrefix is the directory manifests are stored under.
const ManifestPrefix = "manifests/"

// Backend is the storage port. All errors returned are
// *apierrors.StorageError.
type Backend interface {
	// WriteBlob stores data at the blob address hash. It returns
	// created=false without writing when an identical address already
	// exists; the dedup hit is not an error.
	WriteBlob(ctx context.Context, hash string, data []byte) (created bool, err error)

	// WriteBlobStream streams r to the blob address hash. size is a hint
	// from the transport (-1 when unknown). Drivers may short-circuit an
	// existing address without consuming r, returning created=false.
	WriteBlobStream(ctx context.Context, hash string, r io.Reader, size int64) (created bool, err error)

	// WriteManifest atomically stores data under manifests/<version>.
	WriteManifest(ctx context.Context, version string, data []byte) error

	// ReadFile returns the bytes at path.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// Exists reports whether path is stored.
	Exists(ctx context.Context, path string) (bool, error)

	// DeleteFile removes path. Used only for integrity rollback.
	DeleteFile(ctx context.Context, path string) error

	// DownloadURL returns a redirect target for path, or "" when the
	// driver does not advertise one.
	DownloadURL(ctx context.Context, path string) (string, error)
}

// ManifestPath returns the storage path for a manifest version.
func ManifestPath(version string) string {
	return ManifestPrefix + version
}
