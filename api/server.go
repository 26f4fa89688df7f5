/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack and route definitions. This
  is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the web app
  5. Identity:   X-User-ID header on /api/me/* routes

ROUTE GROUPS:
  /api/catalog          Unlockable items (public)
  /api/me/*             Current user's credits, unlocks, notifications
  /api/scenarios        Demo histories (only when enabled)
  /metrics              Prometheus scrape endpoint

SECURITY NOTE:
  Identity is taken from the X-User-ID header, set by the upstream auth
  proxy. This server does not verify tokens and must not be exposed
  directly.

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
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
	// Scenarios mounts the demo scenario routes.
	Scenarios bool
}

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", UserHeader},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", h.GetCatalog)
		if opts.Scenarios {
			r.Get("/scenarios", h.ListScenarios)
		}

		r.Route("/me", func(r chi.Router) {
			r.Use(RequireUser)

			r.Get("/credits", h.GetCredits)
			r.Get("/transactions", h.GetTransactions)
			r.Post("/spend", h.Spend)
			r.Post("/daily-login", h.DailyLogin)
			r.Post("/actions/{action}", h.RecordAction)
			r.Post("/logout", h.Logout)
			if opts.Scenarios {
				r.Post("/scenarios/load", h.LoadScenario)
			}

			r.Route("/unlocks", func(r chi.Router) {
				r.Get("/", h.ListUnlocks)
				r.Post("/{item}", h.UnlockItem)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.ListNotifications)
				r.Delete("/", h.ClearNotifications)
				r.Post("/read-all", h.MarkAllNotificationsRead)
				r.Post("/{id}/read", h.MarkNotificationRead)
				r.Delete("/{id}", h.DeleteNotification)
			})
		})
	})

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
