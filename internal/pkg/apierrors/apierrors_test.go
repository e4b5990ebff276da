package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"storage not found", StorageNotFoundErr("abc"), http.StatusNotFound},
		{"storage invalid", &StorageError{Kind: StorageInvalidRequest, Message: "bad"}, http.StatusBadRequest},
		{"storage unsupported", StorageUnsupportedErr("presign"), http.StatusNotImplemented},
		{"storage io", StorageIOErr(errors.New("disk")), http.StatusInternalServerError},
		{"storage serialization", &StorageError{Kind: StorageSerialization}, http.StatusInternalServerError},
		{"storage system", StorageSystemErr("boom"), http.StatusInternalServerError},

		{"auth missing", ErrMissingCredentials, http.StatusUnauthorized},
		{"auth invalid", ErrInvalidCredentials, http.StatusUnauthorized},
		{"auth expired", ErrExpiredCredentials, http.StatusUnauthorized},
		{"auth forbidden", AuthForbiddenErr("scope x required"), http.StatusForbidden},
		{"auth unsupported", AuthUnsupportedErr("login"), http.StatusNotImplemented},
		{"auth system", AuthSystemErr(errors.New("provider down")), http.StatusInternalServerError},

		{"compute not found", ComputeNotFoundErr("job-1"), http.StatusNotFound},
		{"compute invalid", ComputeInvalidErr("no cmd"), http.StatusBadRequest},
		{"compute unsupported", ComputeUnsupportedErr("image override"), http.StatusNotImplemented},
		{"compute system", ComputeSystemErr("batch down"), http.StatusInternalServerError},

		{"unknown", errors.New("who knows"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestStatusWrappedError(t *testing.T) {
	err := fmt.Errorf("handler context: %w", StorageNotFoundErr("abc"))
	assert.Equal(t, http.StatusNotFound, Status(err))
}

func TestCode(t *testing.T) {
	assert.Equal(t, "storage_error", Code(StorageNotFoundErr("x")))
	assert.Equal(t, "auth_error", Code(ErrInvalidCredentials))
	assert.Equal(t, "compute_error", Code(ComputeSystemErr("x")))
	assert.Equal(t, "internal_error", Code(errors.New("x")))
}

func TestSystemClassification(t *testing.T) {
	assert.True(t, System(StorageIOErr(errors.New("disk"))))
	assert.True(t, System(StorageSystemErr("boom")))
	assert.True(t, System(AuthSystemErr(errors.New("down"))))
	assert.True(t, System(ComputeSystemErr("down")))
	assert.True(t, System(errors.New("unknown")))

	assert.False(t, System(StorageNotFoundErr("x")))
	assert.False(t, System(ErrExpiredCredentials))
	assert.False(t, System(AuthForbiddenErr("nope")))
	assert.False(t, System(ComputeInvalidErr("bad")))
}

func TestPublicHidesSystemDetails(t *testing.T) {
	err := StorageSystemErr("s3 bucket %s exploded", "secret-bucket")
	assert.Equal(t, "storage error", Public(err))
	assert.NotContains(t, Public(err), "secret-bucket")

	assert.Equal(t, "auth error", Public(AuthSystemErr(errors.New("internal detail"))))
	assert.Equal(t, "compute error", Public(ComputeSystemErr("internal detail")))
}

func TestPublicSurfacesExpectedKinds(t *testing.T) {
	err := AuthForbiddenErr("scope job:run required")
	assert.Contains(t, Public(err), "job:run")

	nf := StorageNotFoundErr("manifests/v9")
	assert.Contains(t, Public(nf), "manifests/v9")
}
