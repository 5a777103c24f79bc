package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/payroll-api/app"
	"github.com/upb/payroll-api/handlers"
	"github.com/upb/payroll-api/middleware"
	"github.com/upb/payroll-api/models"
	"github.com/upb/payroll-api/utils"
)

// SetupRoutes configures all application routes and middleware.
// Authentication runs globally; public paths are exempted by the auth middleware itself.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger.Named("http")))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(deps.Config.Server.RequestTimeout))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(deps.AuthMiddleware.Handler)

	// Health check endpoints
	var jwks handlers.ReadinessChecker
	if deps.Validator != nil {
		jwks = deps.Validator
	}
	health := handlers.NewHealthHandler(jwks, deps.Logger)
	r.Get("/health", health.HandleHealth)
	r.Get("/health/ready", health.HandleReadiness)

	// Hosted UI auth endpoints (Cognito)
	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/login", handlers.AuthLoginHandler(deps))
		r.Get("/register", handlers.AuthRegisterHandler(deps))
		r.Get("/reset-password", handlers.AuthResetPasswordHandler(deps))
		r.Get("/callback", handlers.AuthCallbackHandler(deps))
		r.Get("/logout", handlers.AuthLogoutHandler(deps))

		// verify authenticates on its own and is listed as a public path
		r.Post("/verify", handlers.VerifyTokenHandler(deps.Authenticator))
		r.Get("/me", handlers.GetCurrentUserHandler())
	})

	r.Get("/api/users/me", handlers.GetCurrentUserHandler())

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireGroup(models.GroupAdmin))
		r.Get("/me", handlers.GetCurrentUserHandler())
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
