package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/anxiouscrypt/smapp/internal/api/handlers"
	"github.com/anxiouscrypt/smapp/internal/auth"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(userHandler *handlers.UserHandler, healthHandler *handlers.HealthHandler, tokens *auth.TokenManager, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", healthHandler.Check)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", userHandler.Register)
		r.Post("/sessions", userHandler.Login)

		r.Get("/users/{username}", userHandler.Get)

		// Mutating routes require a valid session token
		r.Group(func(r chi.Router) {
			r.Use(tokens.Middleware())
			r.Get("/me", userHandler.GetMe)
			r.Patch("/users/{username}", userHandler.Update)
			r.Put("/users/{username}/password", userHandler.ChangePassword)
			r.Delete("/users/{username}", userHandler.Delete)
		})
	})

	return r
}
