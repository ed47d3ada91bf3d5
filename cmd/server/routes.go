package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Simplici0/woodshop/internal/obs"
)

// routes builds the HTTP handler. A nil registry leaves /metrics unmounted.
func (s *server) routes(allowedOrigins []string, registry *prometheus.Registry) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)
	r.Use(obs.RequestLogger{Logger: s.logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-Match"},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	r.Get("/health/live", s.handleLive)
	r.Get("/health/ready", s.handleReady)

	r.Route("/api", func(api chi.Router) {
		api.Get("/settings", s.handleSettingsGet)
		api.Put("/settings", s.handleSettingsPut)

		api.Post("/pricing/compute", s.handleCompute)
		api.Post("/pricing/merge", s.handleMerge)

		api.Route("/price-sheet", func(ps chi.Router) {
			ps.Get("/", s.handleSheetList)
			ps.Post("/", s.handleSheetCreate)
			ps.Get("/export.xlsx", s.handleSheetExport)
			ps.Post("/sync", s.handleSheetSyncAll)

			ps.Get("/{id}", s.handleSheetGet)
			ps.Put("/{id}", s.handleSheetReplace)
			ps.Delete("/{id}", s.handleSheetDelete)
			ps.Post("/{id}/sync", s.handleSheetSync)
			ps.Get("/{id}/text", s.handleSheetText)
			ps.Get("/{id}/pdf", s.handleSheetPDF)
		})
	})

	return r
}
