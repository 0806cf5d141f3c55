/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for operator tooling

ROUTE GROUPS:
  /api/employees/*   Directory import and listing
  /api/entries/*     Time entry import and listing
  /api/rates/*       Rate versions and margins
  /api/allowances/*  Allowance versions
  /api/runs/*        Pipeline runs, rollups, warnings, invoices
  /api/invoices      Issued invoice history
  /metrics           Prometheus metrics
  /healthz           Liveness

SECURITY NOTE:
  No authentication middleware. The API is an internal back-office
  surface; deploy it behind the office proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/billing/serve.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/billing-engine/metrics"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Input tables
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Put("/", h.ReplaceEmployees)
		})
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Post("/", h.ImportEntries)
			r.Delete("/", h.ClearEntries)
		})
		r.Route("/rates", func(r chi.Router) {
			r.Get("/", h.ListRates)
			r.Post("/", h.ImportRates)
			r.Get("/margins", h.RateMargins)
		})
		r.Route("/allowances", func(r chi.Router) {
			r.Get("/", h.ListAllowances)
			r.Post("/", h.ImportAllowances)
		})

		// Runs
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.ListRuns)
			r.Post("/", h.CreateRun)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetRun)
				r.Get("/rollups", h.GetRunRollups)
				r.Get("/warnings", h.GetRunWarnings)
				r.Get("/costs", h.GetRunCosts)
				r.Get("/invoices", h.GetRunInvoices)
				r.Post("/invoices/{clin}/issue", h.IssueInvoice)
			})
		})

		// Invoice history
		r.Get("/invoices", h.ListInvoiceHistory)
	})

	// Operational endpoints
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
