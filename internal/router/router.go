package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"jewelflow/internal/config"
	"jewelflow/internal/handler"
	"jewelflow/internal/middleware"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Category *handler.CategoryHandler
}

// New wires the wire-contract routes. Paths keep their trailing slash.
func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Post("/register/", h.Auth.Register)
		api.Post("/token/", h.Auth.Token)
		api.Post("/token/refresh/", h.Auth.Refresh)

		api.Group(func(authed chi.Router) {
			authed.Use(authMiddleware.RequireAuth)

			authed.Get("/users/me/", h.Auth.Me)

			authed.Route("/products/categories", func(c chi.Router) {
				c.Get("/", h.Category.List)
				c.Post("/", h.Category.Create)
				c.Delete("/bulk/", h.Category.BulkDelete)
				c.Get("/{id}/", h.Category.Get)
				c.Put("/{id}/", h.Category.Update)
				c.Patch("/{id}/", h.Category.SetStatus)
				c.Delete("/{id}/", h.Category.Delete)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not found.","code":"not_found"}`))
	})

	return r
}
