// Package handler provides HTTP handlers for the gateway API.
package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/NicoZweifel/aquila/internal/middleware"
	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
	"github.com/NicoZweifel/aquila/internal/pkg/response"
	"github.com/NicoZweifel/aquila/internal/storage"
)

// AssetHandler handles blob upload and download.
type AssetHandler struct {
	store storage.Backend
}

// NewAssetHandler creates a new asset handler.
func NewAssetHandler(store storage.Backend) *AssetHandler {
	return &AssetHandler{store: store}
}

// Routes returns a chi router with asset routes.
func (h *AssetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(middleware.RequireScope(models.ScopeAssetUpload)).Post("/", h.Upload)
	r.With(middleware.RequireScope(models.ScopeAssetUpload)).Put("/stream/{hash}", h.UploadStream)
	r.With(middleware.RequireScope(models.ScopeAssetDownload)).Get("/{hash}", h.Download)

	return r
}

// Upload handles POST /assets. The whole body is buffered, addressed by
// its digest and written through the storage port.
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		response.Error(w, apierrors.StorageIOErr(err))
		return
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	created, err := h.store.WriteBlob(r.Context(), digest, data)
	if err != nil {
		response.Error(w, err)
		return
	}
	middleware.RecordUpload(created)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Text(w, status, digest)
}

// UploadStream handles PUT /assets/stream/{hash}. The body is streamed to
// the storage port while being hashed; a digest mismatch rolls the blob
// back.
func (h *AssetHandler) UploadStream(w http.ResponseWriter, r *http.Request) {
	// The declared hash is not validated for shape up front: a path that
	// cannot be a SHA-256 digest fails the integrity comparison below.
	declared := chi.URLParam(r, "hash")

	hr := newHashReader(r.Body)
	created, err := h.store.WriteBlobStream(r.Context(), declared, hr, r.ContentLength)
	if err != nil {
		response.Error(w, err)
		return
	}

	if !created {
		// The backend short-circuited an existing blob without consuming
		// the stream; there is nothing to verify.
		middleware.RecordUpload(false)
		response.Text(w, http.StatusOK, declared)
		return
	}

	if computed := hr.Sum(); computed != declared {
		if err := h.store.DeleteFile(r.Context(), declared); err != nil {
			slog.Error("rollback of mismatched blob failed",
				slog.String("hash", declared), slog.Any("error", err))
		}
		response.Error(w, apierrors.StorageSystemErr(
			"integrity check failed: body hashes to %s, path declares %s", computed, declared))
		return
	}

	middleware.RecordUpload(true)
	response.Text(w, http.StatusCreated, declared)
}

// Download handles GET /assets/{hash}. The blob is read first so a missing
// hash is a clean 404 even when the driver advertises redirects.
func (h *AssetHandler) Download(w http.ResponseWriter, r *http.Request) {
	digest := chi.URLParam(r, "hash")

	data, err := h.store.ReadFile(r.Context(), digest)
	if err != nil {
		response.Error(w, err)
		return
	}

	url, err := h.store.DownloadURL(r.Context(), digest)
	if err != nil {
		response.Error(w, err)
		return
	}
	if url != "" {
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// hashReader hashes the stream as the storage driver consumes it. The
// mutex matters: a driver may read chunks from a worker goroutine while
// the handler finalizes the digest after the write returns.
type hashReader struct {
	mu sync.Mutex
	r  io.Reader
	h  hash.Hash
}

func newHashReader(r io.Reader) *hashReader {
	return &hashReader{r: r, h: sha256.New()}
}

func (hr *hashReader) Read(p []byte) (int, error) {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	n, err := hr.r.Read(p)
	if n > 0 {
		hr.h.Write(p[:n])
	}
	return n, err
}

// Sum returns the hex digest of everything read so far.
func (hr *hashReader) Sum() string {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	return hex.EncodeToString(hr.h.Sum(nil))
}
