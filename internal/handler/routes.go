package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obot-platform/botmaker/internal/middleware"
	"github.com/obot-platform/botmaker/internal/version"
)

// NewRouter builds the HTTP router with global middleware and every route.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SanitizedLogger(h.log))
	r.Use(middleware.Recover(h.log, h.cfg.Development))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(h.cfg.PermissiveCORS(), h.cfg.Server.CORSOrigins))
	if h.cfg.Server.WriteTimeout > 0 {
		r.Use(chimiddleware.Timeout(h.cfg.Server.WriteTimeout))
	}

	// Set before mounting so sub-routers inherit them.
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		h.Error(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		h.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		h.JSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version.Get(),
		})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/templates", h.ListTemplates)

		r.Get("/discord-auth", h.AuthGet)
		r.Post("/discord-auth", h.AuthPost)

		// Code generation is rate limited per client IP
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(h.cfg.RateLimit.Requests, h.cfg.RateLimit.Window))

			r.Post("/generate-bot", h.GenerateBot)
			r.Post("/deploy-bot", h.DeployBot)
		})
	})

	return r
}
