// Package response provides JSON and error writers for API handlers.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
)

// errorBody is the envelope for error responses. Success responses carry
// their value directly, without an envelope, so that clients can decode
// bodies as the documented types.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", slog.Any("error", err))
	}
}

// Text writes a plain text response with the given status code.
func Text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// Error writes an error response. The status code and body come from the
// apierrors mapping: expected kinds surface their message verbatim,
// system-class failures are logged here and surface a generic message.
func Error(w http.ResponseWriter, err error) {
	if apierrors.System(err) {
		slog.Error("internal error", slog.Any("error", err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apierrors.Status(err))
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{
		Code:    apierrors.Code(err),
		Message: apierrors.Public(err),
	}})
}
