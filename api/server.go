/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route table under
  /leave_mgmt. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:        Unique ID per request for tracing
  2. Logger:           Request logging
  3. Recoverer:        Panic recovery (500 instead of crash)
  4. CORS:             Credentialed cross-origin requests
  5. Sessions:         scs LoadAndSave wraps every route

ROUTE GROUPS:
  /leave_mgmt/login, /logout          Session lifecycle (open)
  /leave_mgmt/*                       Data routes (session required)
  /leave_mgmt/pdf*                    Reports (session or bearer token)

SEE ALSO:
  - handlers.go: handler implementations
  - auth.go: the session and token gates
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(h.Sessions.LoadAndSave)

	r.Route("/leave_mgmt", func(r chi.Router) {
		// Session lifecycle
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)

		// Data routes
		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)

			r.Get("/get-leaves", h.handleGetLeaves)
			r.Post("/add-leave", h.handleAddLeave)
			r.Post("/delete-leave/{leaveID}", h.handleDeleteLeave)
			r.Post("/add-faculty", h.handleAddFaculty)
			r.Delete("/delete-faculty/{id}", h.handleDeleteFaculty)
			r.Get("/faculty-suggestions", h.handleFacultySuggestions)
			r.Get("/leave-details-data/{id}", h.handleLeaveDetails)
			r.Post("/reconcile/{id}", h.handleReconcile)
		})

		// Reports also accept a department bearer token for headless pulls
		r.Group(func(r chi.Router) {
			r.Use(h.RequireSessionOrToken)

			r.Get("/pdf", h.handleFacultyPDF)
			r.Get("/pdf/all", h.handleCombinedPDF)
			r.Get("/pdf/todays-report", h.handleTodaysReport)
		})
	})

	return r
}
