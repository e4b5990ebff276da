package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NicoZweifel/aquila/internal/middleware"
	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
	"github.com/NicoZweifel/aquila/internal/pkg/response"
	"github.com/NicoZweifel/aquila/internal/storage"
)

// LatestVersion is the alias a publish updates by default.
const LatestVersion = "latest"

// ManifestHandler handles manifest publish and read.
type ManifestHandler struct {
	store storage.Backend
}

// NewManifestHandler creates a new manifest handler.
func NewManifestHandler(store storage.Backend) *ManifestHandler {
	return &ManifestHandler{store: store}
}

// Routes returns a chi router with manifest routes.
func (h *ManifestHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(middleware.RequireScope(models.ScopeManifestPublish)).Post("/", h.Publish)
	r.With(middleware.RequireScope(models.ScopeManifestRead)).Get("/{version}", h.Read)

	return r
}

// Publish handles POST /manifest?latest={bool}. The manifest is validated
// against the schema but stored as submitted, pretty-printed, so fields
// outside the schema survive the round trip. It is written under its
// version and mirrored to the latest alias unless ?latest=false.
func (h *ManifestHandler) Publish(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.Error(w, &apierrors.StorageError{Kind: apierrors.StorageIO, Err: err})
		return
	}

	var manifest models.Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		response.Error(w, &apierrors.StorageError{
			Kind:    apierrors.StorageInvalidRequest,
			Message: "invalid manifest body: " + err.Error(),
		})
		return
	}
	if manifest.Version == "" {
		response.Error(w, &apierrors.StorageError{
			Kind:    apierrors.StorageInvalidRequest,
			Message: "manifest version is required",
		})
		return
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		response.Error(w, &apierrors.StorageError{Kind: apierrors.StorageSerialization, Err: err})
		return
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		response.Error(w, &apierrors.StorageError{Kind: apierrors.StorageSerialization, Err: err})
		return
	}

	if err := h.store.WriteManifest(r.Context(), manifest.Version, data); err != nil {
		response.Error(w, err)
		return
	}

	if r.URL.Query().Get("latest") != "false" {
		if err := h.store.WriteManifest(r.Context(), LatestVersion, data); err != nil {
			response.Error(w, err)
			return
		}
	}

	w.WriteHeader(http.StatusCreated)
}

// Read handles GET /manifest/{version}. The stored bytes are parsed so a
// corrupt manifest surfaces as a serialization failure, but the response
// relays the bytes as stored.
func (h *ManifestHandler) Read(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")

	data, err := h.store.ReadFile(r.Context(), storage.ManifestPath(version))
	if err != nil {
		response.Error(w, err)
		return
	}

	var manifest models.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		response.Error(w, &apierrors.StorageError{Kind: apierrors.StorageSerialization, Err: err})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
