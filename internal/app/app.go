package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Arifulit/job-portal-server/internal/auth"
	"github.com/Arifulit/job-portal-server/internal/config"
	"github.com/Arifulit/job-portal-server/internal/event"
	handler "github.com/Arifulit/job-portal-server/internal/handler/http"
	"github.com/Arifulit/job-portal-server/internal/password"
	"github.com/Arifulit/job-portal-server/internal/repository"
	"github.com/Arifulit/job-portal-server/internal/repository/postgres"
	redisrepo "github.com/Arifulit/job-portal-server/internal/repository/redis"
	"github.com/Arifulit/job-portal-server/internal/service"
	"github.com/Arifulit/job-portal-server/migrations"
	"github.com/Arifulit/job-portal-server/pkg/database"
	"github.com/Arifulit/job-portal-server/pkg/health"
	pkgkafka "github.com/Arifulit/job-portal-server/pkg/kafka"
	"github.com/Arifulit/job-portal-server/pkg/middleware"
	"github.com/Arifulit/job-portal-server/pkg/tracing"
)

// ServiceName identifies this server in logs, metrics and traces.
const ServiceName = "job-portal-server"

// App wires together all dependencies and runs the server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	publisher      pkgkafka.Publisher
	authService    *service.AuthService
	httpServer     *http.Server
	tracerShutdown func(context.Context) error

	// stopBackground ends work started by middleware, such as rate limiter eviction.
	stopBackground context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	// Release whatever was opened if a later step fails.
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Insecure:       cfg.OTELInsecure,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.Postgres()
	a.pool, err = database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	reg := prometheus.DefaultRegisterer
	if err := database.RegisterPoolMetrics(reg, a.pool, ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
		return nil, err
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	healthHandler := health.NewHandler(health.WithService(ServiceName))
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return a.pool.Ping(ctx)
	})

	// Refresh token store.
	var tokenRepo repository.RefreshTokenRepository
	switch cfg.RefreshTokenStore {
	case config.StoreRedis:
		a.redis, err = database.NewRedisClient(ctx, cfg.Redis(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("refresh tokens stored in Redis", slog.String("addr", cfg.Redis().Addr()))
		tokenRepo = redisrepo.NewRefreshTokenRepository(a.redis)
		healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	default:
		tokenRepo = postgres.NewRefreshTokenRepository(a.pool)
	}

	// Kafka producer; events are dropped when Kafka is disabled.
	if cfg.KafkaEnabled {
		producer := pkgkafka.NewProducer(
			pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers),
			pkgkafka.NewProducerMetrics(reg),
			logger,
		)
		a.publisher = producer
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		a.publisher = pkgkafka.NoopPublisher{}
		logger.Info("kafka disabled, user events will not be published")
	}

	tokenSvc, err := auth.NewTokenService(auth.Config{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessExpiry:  cfg.JWTAccessExpires,
		RefreshExpiry: cfg.JWTRefreshExpires,
		Issuer:        cfg.JWTIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("create token service: %w", err)
	}

	// Build the dependency graph.
	hasher := password.NewHasher(password.Config{
		Cost:          cfg.BcryptSaltRounds,
		MaxConcurrent: cfg.HashMaxConcurrency,
	})
	userRepo := postgres.NewUserRepository(a.pool)
	eventProducer := event.NewProducer(a.publisher, logger)
	svcCfg := service.Config{
		StoreTimeout:         cfg.StoreTimeout,
		RequireVerifiedLogin: cfg.RequireVerifiedLogin,
	}

	a.authService = service.NewAuthService(userRepo, tokenRepo, hasher, tokenSvc, eventProducer, service.NewMetrics(reg), svcCfg, logger)
	userService := service.NewUserService(userRepo, tokenRepo, eventProducer, svcCfg, logger)
	adminService := service.NewAdminService(userRepo, tokenRepo, hasher, eventProducer, svcCfg, logger)

	if cfg.AdminEmail != "" {
		if _, err := adminService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.AllowCredentials = cfg.CORSAllowCredentials
	corsCfg.Environment = cfg.Environment

	bgCtx, stopBackground := context.WithCancel(context.Background())
	a.stopBackground = stopBackground

	// HTTP router.
	router := handler.NewRouter(bgCtx, handler.RouterConfig{
		ServiceName: ServiceName,
		Development: cfg.IsDevelopment(),
		Auth:        a.authService,
		Users:       userService,
		Admin:       adminService,
		Health:      healthHandler,
		Metrics:     middleware.NewHTTPMetrics(reg, ServiceName),
		CORS:        corsCfg,
		RateLimit: middleware.RateLimitConfig{
			RPS:               cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
			TrustForwardedFor: cfg.RateLimitTrustForwarded,
		},
		PprofCIDRs: cfg.PprofAllowedCIDRs,
		Logger:     logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and the refresh token purge job, then blocks
// until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go runTokenPurge(ctx, a.cfg.RefreshTokenPurgeInterval, a.authService.PurgeExpiredTokens, a.logger)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// runTokenPurge periodically deletes expired refresh token records. A
// non-positive interval disables the job.
func runTokenPurge(ctx context.Context, interval time.Duration, purge func(context.Context) (int64, error), logger *slog.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := purge(ctx); err != nil {
				logger.Error("refresh token purge error", slog.String("error", err.Error()))
			}
		}
	}
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer, Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases connections opened by NewApp. It is safe to call
// on a partially initialized App.
func (a *App) closeResources() error {
	var errs []error

	if a.stopBackground != nil {
		a.stopBackground()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = a.tracerShutdown(ctx)
	}

	return errors.Join(errs...)
}
