// Package server assembles the gateway's HTTP surface.
package server

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NicoZweifel/aquila/internal/auth"
	"github.com/NicoZweifel/aquila/internal/compute"
	"github.com/NicoZweifel/aquila/internal/config"
	"github.com/NicoZweifel/aquila/internal/handler"
	"github.com/NicoZweifel/aquila/internal/middleware"
	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/response"
	"github.com/NicoZweifel/aquila/internal/storage"
)

// Services are the backends the router serves. Elevator and Limiter may
// be nil.
type Services struct {
	Storage  storage.Backend
	Auth     auth.Provider
	Compute  compute.Backend
	Tokens   handler.TokenMinter
	Elevator auth.Elevator
	Limiter  middleware.Counter
}

// NewRouter builds the gateway router.
//
// Every route except /health, /metrics, login and the OAuth callback runs
// behind bearer authentication. The streaming routes (PUT
// /assets/stream/{hash}, GET /jobs/{id}/attach) deliberately carry no
// request timeout: an upload or an attach session lives as long as its
// transfer.
func NewRouter(cfg *config.Config, logger *slog.Logger, svcs Services) chi.Router {
	assets := handler.NewAssetHandler(svcs.Storage)
	manifests := handler.NewManifestHandler(svcs.Storage)
	auths := handler.NewAuthHandler(svcs.Auth, svcs.Tokens)
	jobs := handler.NewJobHandler(svcs.Compute)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.Metrics())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Text(w, http.StatusOK, "OK")
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/auth/login", auths.Login)
	r.Get(callbackPath(cfg), auths.Callback)

	r.Group(func(r chi.Router) {
		if svcs.Limiter != nil {
			r.Use(middleware.RateLimit(svcs.Limiter, middleware.DefaultRateLimitConfig()))
		}
		r.Use(middleware.Authenticate(svcs.Auth, svcs.Elevator))

		r.With(
			chimiddleware.Timeout(cfg.Server.RequestTimeout),
			middleware.RequireScope(models.ScopeWrite),
		).Post("/auth/token", auths.Mint)

		// Manifest reads compress well; blob routes carry opaque bytes
		// and stay uncompressed.
		r.With(chimiddleware.Timeout(cfg.Server.RequestTimeout)).
			Mount("/manifest", gzhttp.GzipHandler(manifests.Routes()))

		r.Mount("/assets", assets.Routes())
		r.Mount("/jobs", jobs.Routes())
	})

	return r
}

// callbackPath extracts the route to mount the OAuth callback on from the
// configured externally visible callback URL.
func callbackPath(cfg *config.Config) string {
	if u, err := url.Parse(cfg.Auth.CallbackURL); err == nil && u.Path != "" {
		return u.Path
	}
	return "/auth/callback"
}
