package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Arifulit/job-portal-server/internal/domain"
	"github.com/Arifulit/job-portal-server/internal/service"
	"github.com/Arifulit/job-portal-server/pkg/health"
	"github.com/Arifulit/job-portal-server/pkg/httputil"
	"github.com/Arifulit/job-portal-server/pkg/middleware"
)

// RouterConfig collects the collaborators and settings the router needs.
type RouterConfig struct {
	ServiceName string
	Development bool

	Auth   *service.AuthService
	Users  *service.UserService
	Admin  *service.AdminService
	Health *health.Handler

	// Metrics records HTTP collectors; nil disables request metrics.
	Metrics *middleware.HTTPMetrics
	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer

	CORS       middleware.CORSConfig
	RateLimit  middleware.RateLimitConfig
	PprofCIDRs []string
	Logger     *slog.Logger
}

// NewRouter creates a chi router with all routes registered. ctx bounds the
// lifetime of background work started by the middleware.
func NewRouter(ctx context.Context, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	errs := httputil.NewErrorWriter(logger, cfg.Development)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health", cfg.Health.LivenessHandler())
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	authHandler := NewAuthHandler(cfg.Auth, errs)
	userHandler := NewUserHandler(cfg.Users, errs)
	adminHandler := NewAdminHandler(cfg.Admin, errs)

	authenticate := middleware.Auth(cfg.Auth.Authenticate, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(ctx, cfg.RateLimit, logger))
		r.Use(middleware.NoStore)
		r.Use(ContentTypeJSON)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh-token", authHandler.RefreshToken)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(middleware.RequestLogger(logger))

				r.Post("/logout", authHandler.Logout)
				r.Post("/change-password", authHandler.ChangePassword)
				r.Get("/profile", authHandler.Profile)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequestLogger(logger))

			r.Get("/profile", userHandler.GetProfile)
			r.Put("/profile", userHandler.UpdateProfile)
			r.Delete("/account", userHandler.DeleteAccount)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequestLogger(logger))
			r.Use(middleware.RequireRole(domain.RoleAdmin))

			r.Get("/users", adminHandler.ListUsers)
			r.Put("/users/{userId}/status", adminHandler.UpdateStatus)
			r.Put("/users/{userId}/verify", adminHandler.UpdateVerification)
			r.Delete("/users/{userId}", adminHandler.DeleteUser)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteFailure(w, http.StatusNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	return r
}
