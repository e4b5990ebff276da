package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/NicoZweifel/aquila/internal/auth"
	"github.com/NicoZweifel/aquila/internal/middleware"
	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
	"github.com/NicoZweifel/aquila/internal/pkg/response"
)

const (
	// defaultTokenDuration applies when a mint request names none.
	defaultTokenDuration = 365 * 24 * time.Hour

	// callbackTokenDuration is the lifetime of tokens minted through the
	// OAuth callback.
	callbackTokenDuration = 30 * 24 * time.Hour
)

// TokenMinter signs scoped tokens for the issuance endpoints.
type TokenMinter interface {
	Mint(subject string, scopes []string, ttl time.Duration) (string, error)
}

// AuthHandler handles login, token issuance and the OAuth callback.
type AuthHandler struct {
	provider auth.Provider
	tokens   TokenMinter
	validate *validator.Validate
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(provider auth.Provider, tokens TokenMinter) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		tokens:   tokens,
		validate: validator.New(),
	}
}

// Login handles GET /auth/login with a redirect to the provider's login
// flow, or 501 when the provider has none.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	url := h.provider.LoginURL()
	if url == "" {
		response.Error(w, apierrors.AuthUnsupportedErr("interactive login is not available"))
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// MintTokenRequest is the HTTP request body for minting a token.
type MintTokenRequest struct {
	Subject         string   `json:"subject" validate:"required"`
	DurationSeconds int64    `json:"duration_seconds,omitempty" validate:"omitempty,gt=0"`
	Scopes          []string `json:"scopes,omitempty"`
}

// MintTokenResponse carries a freshly minted token.
type MintTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// Mint handles POST /auth/token. Requires the write scope. A non-admin
// caller may not mint privileged scopes: handing out write or admin is an
// escalation only admins perform.
func (h *AuthHandler) Mint(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	if id == nil {
		response.Error(w, apierrors.ErrMissingCredentials)
		return
	}

	var req MintTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, &apierrors.StorageError{
			Kind:    apierrors.StorageInvalidRequest,
			Message: "invalid request body: " + err.Error(),
		})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.Error(w, &apierrors.StorageError{
			Kind:    apierrors.StorageInvalidRequest,
			Message: err.Error(),
		})
		return
	}

	if !id.HasScope(models.ScopeAdmin) {
		for _, s := range req.Scopes {
			if s == models.ScopeAdmin || s == models.ScopeWrite {
				response.Error(w, apierrors.AuthForbiddenErr("minting scope %s requires admin", s))
				return
			}
		}
	}

	scopes := req.Scopes
	if len(scopes) == 0 {
		scopes = []string{models.ScopeRead}
	}
	ttl := defaultTokenDuration
	if req.DurationSeconds > 0 {
		ttl = time.Duration(req.DurationSeconds) * time.Second
	}

	token, err := h.tokens.Mint(req.Subject, scopes, ttl)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, MintTokenResponse{
		Token:     token,
		ExpiresIn: int64(ttl.Seconds()),
	})
}

// CallbackResponse is the body of a successful OAuth code exchange.
type CallbackResponse struct {
	Status string `json:"status"`
	User   string `json:"user"`
	Token  string `json:"token"`
}

// Callback handles the OAuth redirect. The code is exchanged through the
// provider and a 30-day session token is minted for the resulting user.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		response.Error(w, &apierrors.AuthError{
			Kind:    apierrors.AuthInvalid,
			Message: "missing code parameter",
		})
		return
	}

	id, err := h.provider.ExchangeCode(r.Context(), code)
	if err != nil {
		response.Error(w, err)
		return
	}

	token, err := h.tokens.Mint(id.ID, id.Scopes, callbackTokenDuration)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, CallbackResponse{
		Status: "success",
		User:   id.ID,
		Token:  token,
	})
}
