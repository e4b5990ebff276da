// Package fs implements the storage backend on a filesystem via afero,
// which keeps the driver testable against an in-memory filesystem.
//
// Writes go to a sibling temporary file and are renamed into place, so a
// concurrent reader sees either the previous bytes or the new bytes.
package fs

import (
	"context"
	"io"
	"os"
	"path"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
	"github.com/NicoZweifel/aquila/internal/storage"
)

// Backend stores blobs and manifests under a root directory.
type Backend struct {
	fs   afero.Fs
	root string
}

// New returns a driver rooted at dir on the host filesystem.
func New(dir string) *Backend {
	return &Backend{fs: afero.NewOsFs(), root: dir}
}

// NewWithFs returns a driver on an arbitrary afero filesystem.
func NewWithFs(fsys afero.Fs, dir string) *Backend {
	return &Backend{fs: fsys, root: dir}
}

func (b *Backend) path(p string) string {
	return path.Join(b.root, p)
}

// atomicWrite writes data to a temporary sibling of dst and renames it into
// place. The temporary name is unique so concurrent writers of the same
// address never interleave.
func (b *Backend) atomicWrite(dst string, write func(io.Writer) error) error {
	if err := b.fs.MkdirAll(path.Dir(dst), 0o755); err != nil {
		return apierrors.StorageIOErr(err)
	}

	tmp := dst + ".tmp." + uuid.NewString()
	f, err := b.fs.Create(tmp)
	if err != nil {
		return apierrors.StorageIOErr(err)
	}

	if err := write(f); err != nil {
		f.Close()
		_ = b.fs.Remove(tmp)
		return apierrors.StorageIOErr(err)
	}
	if err := f.Close(); err != nil {
		_ = b.fs.Remove(tmp)
		return apierrors.StorageIOErr(err)
	}

	if err := b.fs.Rename(tmp, dst); err != nil {
		_ = b.fs.Remove(tmp)
		return apierrors.StorageIOErr(err)
	}
	return nil
}

func (b *Backend) WriteBlob(ctx context.Context, hash string, data []byte) (bool, error) {
	dst := b.path(hash)
	if ok, err := afero.Exists(b.fs, dst); err != nil {
		return false, apierrors.StorageIOErr(err)
	} else if ok {
		return false, nil
	}

	err := b.atomicWrite(dst, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *Backend) WriteBlobStream(ctx context.Context, hash string, r io.Reader, size int64) (bool, error) {
	dst := b.path(hash)
	if ok, err := afero.Exists(b.fs, dst); err != nil {
		return false, apierrors.StorageIOErr(err)
	} else if ok {
		return false, nil
	}

	err := b.atomicWrite(dst, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *Backend) WriteManifest(ctx context.Context, version string, data []byte) error {
	return b.atomicWrite(b.path(storage.ManifestPath(version)), func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func (b *Backend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	data, err := afero.ReadFile(b.fs, b.path(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apierrors.StorageNotFoundErr(p)
		}
		return nil, apierrors.StorageIOErr(err)
	}
	return data, nil
}

func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	ok, err := afero.Exists(b.fs, b.path(p))
	if err != nil {
		return false, apierrors.StorageIOErr(err)
	}
	return ok, nil
}

func (b *Backend) DeleteFile(ctx context.Context, p string) error {
	if err := b.fs.Remove(b.path(p)); err != nil {
		if os.IsNotExist(err) {
			return apierrors.StorageNotFoundErr(p)
		}
		return apierrors.StorageIOErr(err)
	}
	return nil
}

// DownloadURL always returns empty: the filesystem driver serves bytes
// directly.
func (b *Backend) DownloadURL(ctx context.Context, p string) (string, error) {
	return "", nil
}
