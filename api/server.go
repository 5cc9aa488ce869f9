/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/employees/*      Balances and conflicts per employee
  /api/leave/*          Leave record writes, dry-run validation
  /api/users/*          Per-login badges
  /api/holidays/*       Holiday calendar
  /api/admin/*          Admin operations
  /metrics              Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. Elevated access (booking in the past) is
  granted by the X-Leave-Elevated header, which a fronting proxy must
  strip from untrusted requests.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured. gatherer may
// be nil, in which case /metrics is not mounted.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ElevatedHeader},
		AllowCredentials: true,
	}))
	r.Use(elevatedAccess)

	r.Route("/api", func(r chi.Router) {
		r.Route("/employees", func(r chi.Router) {
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/conflicts", h.GetConflicts)
		})

		r.Route("/leave", func(r chi.Router) {
			r.Post("/", h.CreateLeave)
			r.Post("/validate", h.ValidateLeave)
			r.Put("/{id}", h.UpdateLeave)
			r.Delete("/{id}", h.DeleteLeave)
			r.Get("/{id}/conflict", h.GetLeaveConflict)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/{userID}/badges", h.GetBadges)
		})

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/conflicts/refresh", h.RefreshConflicts)
		})
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
