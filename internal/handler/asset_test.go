package handler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/storage/fs"
)

const helloHash = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func newAssetRouter(scopes []string) (http.Handler, *fs.Backend) {
	store := fs.NewWithFs(afero.NewMemMapFs(), "/data")
	h := NewAssetHandler(store)
	return mountAs(scopes, "/assets", h.Routes()), store
}

func TestUploadRoundTrip(t *testing.T) {
	router, _ := newAssetRouter(admin())

	// First upload creates the blob.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/assets", strings.NewReader("hello")))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, helloHash, rec.Body.String())

	// Second upload of the same bytes is a dedup hit.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/assets", strings.NewReader("hello")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, helloHash, rec.Body.String())

	// Download returns the exact bytes.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/"+helloHash, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
}

func TestUploadArbitraryBytes(t *testing.T) {
	router, _ := newAssetRouter(admin())

	body := bytes.Repeat([]byte{0x00, 0xff, 0x42}, 1000)
	sum := sha256.Sum256(body)
	want := hex.EncodeToString(sum[:])

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/assets", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, want, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/"+want, nil))
	assert.Equal(t, body, rec.Body.Bytes())
}

func TestDownloadMissingIs404(t *testing.T) {
	router, _ := newAssetRouter(admin())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/"+strings.Repeat("0", 64), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamUploadCreates(t *testing.T) {
	router, _ := newAssetRouter(admin())

	req := httptest.NewRequest(http.MethodPut, "/assets/stream/"+helloHash, strings.NewReader("hello"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, helloHash, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/"+helloHash, nil))
	assert.Equal(t, "hello", rec.Body.String())
}

func TestStreamUploadDedup(t *testing.T) {
	router, store := newAssetRouter(admin())

	_, err := store.WriteBlob(context.Background(), helloHash, []byte("hello"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/assets/stream/"+helloHash, strings.NewReader("hello"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStreamUploadIntegrityMismatch(t *testing.T) {
	router, store := newAssetRouter(admin())

	// "x" does not hash to "deadbeef"; the blob must be rolled back.
	req := httptest.NewRequest(http.MethodPut, "/assets/stream/deadbeef", strings.NewReader("x"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	exists, err := store.Exists(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.False(t, exists, "mismatched blob must not survive")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/deadbeef", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadScopeEnforcement(t *testing.T) {
	router, _ := newAssetRouter([]string{models.ScopeRead})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/assets", strings.NewReader("hello")))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	router, _ = newAssetRouter([]string{models.ScopeAssetUpload})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/assets", strings.NewReader("hello")))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

// redirectBackend advertises a download URL for every stored blob.
type redirectBackend struct {
	*fs.Backend
	url string
}

func (b *redirectBackend) DownloadURL(ctx context.Context, path string) (string, error) {
	return b.url, nil
}

func TestDownloadRedirect(t *testing.T) {
	store := &redirectBackend{
		Backend: fs.NewWithFs(afero.NewMemMapFs(), "/data"),
		url:     "https://cdn.example.com/blob",
	}
	_, err := store.WriteBlob(context.Background(), helloHash, []byte("hello"))
	require.NoError(t, err)

	router := mountAs(admin(), "/assets", NewAssetHandler(store).Routes())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/"+helloHash, nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://cdn.example.com/blob", rec.Header().Get("Location"))
}

func TestDownloadRedirectStillChecksExistence(t *testing.T) {
	store := &redirectBackend{
		Backend: fs.NewWithFs(afero.NewMemMapFs(), "/data"),
		url:     "https://cdn.example.com/blob",
	}
	router := mountAs(admin(), "/assets", NewAssetHandler(store).Routes())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/"+helloHash, nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
