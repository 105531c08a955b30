/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     httplog request logging (ECS schema) on the handler's slog logger
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CleanPath:  Collapse duplicate slashes
  5. CORS:       Cross-origin requests for an admin frontend

ROUTE GROUPS:
  /, /punch/*           Kiosk, public
  /api/auth/login       Public
  /api/*                Bearer token; role checked per group
  /healthz              Liveness

SEE ALSO:
  - handlers.go, kiosk.go: Handler implementations
  - auth.go: Token verification and roles
  - cmd/punchclock: Server startup
*/
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(h.logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(cors.Handler(corsOptions(h.corsOrigins)))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Kiosk routes
	r.Get("/", h.Home)
	r.Route("/punch", func(r chi.Router) {
		r.Post("/", h.Punch)
		r.Get("/qrcode", h.QRCode)
		r.Get("/segments", h.Segments)
		r.Get("/card/{id}", h.PunchCard)
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Verifier())
			r.Use(AuthRequired)

			// HR only
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(RoleHR))

				r.Route("/employees", func(r chi.Router) {
					r.Get("/", h.ListEmployees)
					r.Post("/", h.CreateEmployee)
					r.Post("/import", h.ImportEmployees)
					r.Get("/{id}", h.GetEmployee)
					r.Put("/{id}", h.UpdateEmployee)
					r.Delete("/{id}", h.DeleteEmployee)
				})
				r.Get("/areas", h.ListAreas)

				r.Route("/holidays", func(r chi.Router) {
					r.Get("/", h.ListHolidays)
					r.Post("/", h.CreateHoliday)
					r.Delete("/{id}", h.DeleteHoliday)
				})
			})

			// HR and managers
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(RoleHR, RoleManager))

				r.Route("/records", func(r chi.Router) {
					r.Get("/", h.ListRecords)
					r.Get("/{id}/{date}/{segment}", h.GetRecord)
					r.Put("/{id}/{date}/{segment}", h.PutRecord)
					r.Delete("/{id}/{date}/{segment}", h.DeleteRecord)
				})

				r.Route("/export", func(r chi.Router) {
					r.Get("/payroll", h.ExportPayroll)
					r.Get("/punch-cards", h.ExportPunchCards)
				})
			})
		})
	})

	return r
}

func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}
	if len(origins) == 0 {
		opts.AllowedOrigins = []string{"*"}
		return opts
	}
	opts.AllowedOrigins = origins
	opts.AllowCredentials = true
	return opts
}
