package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NicoZweifel/aquila/internal/middleware"
	"github.com/NicoZweifel/aquila/internal/models"
)

// mountAs mounts routes the way the server does, with a fixed identity
// injected in place of the auth middleware.
func mountAs(scopes []string, pattern string, routes chi.Router) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			id := &models.Identity{ID: "tester", Scopes: scopes}
			next.ServeHTTP(w, req.WithContext(middleware.WithIdentity(req.Context(), id)))
		})
	})
	r.Mount(pattern, routes)
	return r
}

func admin() []string {
	return []string{models.ScopeAdmin}
}
