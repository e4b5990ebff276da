// Package apierrors defines the error taxonomies of the gateway and their
// mapping to HTTP status codes.
//
// There are three families: storage, auth and compute. Every driver returns
// errors from its own family; handlers pass them through unchanged and the
// response package resolves the status code. System-class errors are logged
// server-side and surface a generic message; all other kinds surface their
// message to the client verbatim.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

// StorageKind classifies storage errors.
type StorageKind int

const (
	// StorageIO is a low-level I/O failure. HTTP 500.
	StorageIO StorageKind = iota
	// StorageSerialization is a JSON encode/decode failure. HTTP 500.
	StorageSerialization
	// StorageNotFound means the path does not exist. HTTP 404.
	StorageNotFound
	// StorageInvalidRequest means the caller's request was malformed. HTTP 400.
	StorageInvalidRequest
	// StorageSystem is a backend-specific failure. HTTP 500.
	StorageSystem
	// StorageUnsupported means the driver lacks the feature. HTTP 501.
	StorageUnsupported
)

// StorageError is an error from the storage port.
type StorageError struct {
	Kind    StorageKind
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	switch e.Kind {
	case StorageIO:
		return fmt.Sprintf("io error: %s", e.reason())
	case StorageSerialization:
		return fmt.Sprintf("serialization error: %s", e.reason())
	case StorageNotFound:
		return fmt.Sprintf("resource not found: %s", e.reason())
	case StorageInvalidRequest:
		return fmt.Sprintf("invalid request: %s", e.reason())
	case StorageUnsupported:
		return fmt.Sprintf("feature not supported: %s", e.reason())
	default:
		return fmt.Sprintf("storage system failure: %s", e.reason())
	}
}

func (e *StorageError) reason() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown"
}

func (e *StorageError) Unwrap() error { return e.Err }

// StorageIOErr wraps an I/O failure.
func StorageIOErr(err error) *StorageError {
	return &StorageError{Kind: StorageIO, Err: err}
}

// StorageNotFoundErr reports a missing path.
func StorageNotFoundErr(path string) *StorageError {
	return &StorageError{Kind: StorageNotFound, Message: path}
}

// StorageSystemErr reports a backend failure.
func StorageSystemErr(format string, args ...any) *StorageError {
	return &StorageError{Kind: StorageSystem, Message: fmt.Sprintf(format, args...)}
}

// StorageUnsupportedErr reports a feature the driver does not implement.
func StorageUnsupportedErr(feature string) *StorageError {
	return &StorageError{Kind: StorageUnsupported, Message: feature}
}

// AuthKind classifies auth errors.
type AuthKind int

const (
	// AuthInvalid means the credential failed verification. HTTP 401.
	AuthInvalid AuthKind = iota
	// AuthExpired means the credential was valid but is past expiry. HTTP 401.
	AuthExpired
	// AuthMissing means no credential was presented. HTTP 401.
	AuthMissing
	// AuthForbidden means the identity lacks a required permission. HTTP 403.
	AuthForbidden
	// AuthSystem is a provider failure. HTTP 500.
	AuthSystem
	// AuthUnsupported means the provider lacks the feature. HTTP 501.
	AuthUnsupported
)

// AuthError is an error from the auth port or the scope gate.
type AuthError struct {
	Kind    AuthKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	switch e.Kind {
	case AuthInvalid:
		return "unauthorized: credentials invalid"
	case AuthExpired:
		return "unauthorized: credentials expired"
	case AuthMissing:
		return "unauthorized: credentials missing"
	case AuthForbidden:
		return fmt.Sprintf("insufficient permissions: %s", e.Message)
	case AuthUnsupported:
		return fmt.Sprintf("feature not supported: %s", e.Message)
	default:
		if e.Message != "" {
			return fmt.Sprintf("auth system failure: %s", e.Message)
		}
		return fmt.Sprintf("auth system failure: %v", e.Err)
	}
}

func (e *AuthError) Unwrap() error { return e.Err }

// ErrInvalidCredentials, ErrExpiredCredentials and ErrMissingCredentials are
// the shared instances drivers return for the three 401 cases.
var (
	ErrInvalidCredentials = &AuthError{Kind: AuthInvalid}
	ErrExpiredCredentials = &AuthError{Kind: AuthExpired}
	ErrMissingCredentials = &AuthError{Kind: AuthMissing}
)

// AuthForbiddenErr reports a scope or permission failure.
func AuthForbiddenErr(format string, args ...any) *AuthError {
	return &AuthError{Kind: AuthForbidden, Message: fmt.Sprintf(format, args...)}
}

// AuthSystemErr reports a provider failure.
func AuthSystemErr(err error) *AuthError {
	return &AuthError{Kind: AuthSystem, Err: err}
}

// AuthUnsupportedErr reports a feature the provider does not implement.
func AuthUnsupportedErr(feature string) *AuthError {
	return &AuthError{Kind: AuthUnsupported, Message: feature}
}

// ComputeKind classifies compute errors.
type ComputeKind int

const (
	// ComputeInvalidRequest means the job request was rejected. HTTP 400.
	ComputeInvalidRequest ComputeKind = iota
	// ComputeNotFound means the job or resource does not exist. HTTP 404.
	ComputeNotFound
	// ComputeSystem is an infrastructure failure. HTTP 500.
	ComputeSystem
	// ComputeUnsupported means the backend lacks the feature. HTTP 501.
	ComputeUnsupported
)

// ComputeError is an error from the compute port.
type ComputeError struct {
	Kind    ComputeKind
	Message string
	Err     error
}

func (e *ComputeError) Error() string {
	switch e.Kind {
	case ComputeInvalidRequest:
		return fmt.Sprintf("invalid request: %s", e.reason())
	case ComputeNotFound:
		return fmt.Sprintf("job %s not found", e.Message)
	case ComputeUnsupported:
		return fmt.Sprintf("feature not supported: %s", e.reason())
	default:
		return fmt.Sprintf("compute system failure: %s", e.reason())
	}
}

func (e *ComputeError) reason() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown"
}

func (e *ComputeError) Unwrap() error { return e.Err }

// ComputeInvalidErr reports a rejected job request.
func ComputeInvalidErr(format string, args ...any) *ComputeError {
	return &ComputeError{Kind: ComputeInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// ComputeNotFoundErr reports a missing job.
func ComputeNotFoundErr(jobID string) *ComputeError {
	return &ComputeError{Kind: ComputeNotFound, Message: jobID}
}

// ComputeSystemErr reports an infrastructure failure.
func ComputeSystemErr(format string, args ...any) *ComputeError {
	return &ComputeError{Kind: ComputeSystem, Message: fmt.Sprintf(format, args...)}
}

// ComputeUnsupportedErr reports a feature the backend does not implement.
func ComputeUnsupportedErr(feature string) *ComputeError {
	return &ComputeError{Kind: ComputeUnsupported, Message: feature}
}

// Status resolves the HTTP status code for any gateway error.
func Status(err error) int {
	var se *StorageError
	if errors.As(err, &se) {
		switch se.Kind {
		case StorageNotFound:
			return http.StatusNotFound
		case StorageInvalidRequest:
			return http.StatusBadRequest
		case StorageUnsupported:
			return http.StatusNotImplemented
		default:
			return http.StatusInternalServerError
		}
	}

	var ae *AuthError
	if errors.As(err, &ae) {
		switch ae.Kind {
		case AuthInvalid, AuthExpired, AuthMissing:
			return http.StatusUnauthorized
		case AuthForbidden:
			return http.StatusForbidden
		case AuthUnsupported:
			return http.StatusNotImplemented
		default:
			return http.StatusInternalServerError
		}
	}

	var ce *ComputeError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case ComputeNotFound:
			return http.StatusNotFound
		case ComputeInvalidRequest:
			return http.StatusBadRequest
		case ComputeUnsupported:
			return http.StatusNotImplemented
		default:
			return http.StatusInternalServerError
		}
	}

	return http.StatusInternalServerError
}

// Code returns a short machine-readable code for the error body.
func Code(err error) string {
	var se *StorageError
	if errors.As(err, &se) {
		return "storage_error"
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return "auth_error"
	}
	var ce *ComputeError
	if errors.As(err, &ce) {
		return "compute_error"
	}
	return "internal_error"
}

// System reports whether the error is a system-class failure whose details
// must stay server-side.
func System(err error) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Kind == StorageIO || se.Kind == StorageSerialization || se.Kind == StorageSystem
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind == AuthSystem
	}
	var ce *ComputeError
	if errors.As(err, &ce) {
		return ce.Kind == ComputeSystem
	}
	return true
}

// Public returns the message to send to the client: the error text for
// expected kinds, a generic string for system-class failures.
func Public(err error) string {
	if !System(err) {
		return err.Error()
	}
	var se *StorageError
	if errors.As(err, &se) {
		return "storage error"
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return "auth error"
	}
	var ce *ComputeError
	if errors.As(err, &ce) {
		return "compute error"
	}
	return "internal server error"
}
