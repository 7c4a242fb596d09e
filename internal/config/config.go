package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	pkgconfig "github.com/Arifulit/job-portal-server/pkg/config"
	"github.com/Arifulit/job-portal-server/pkg/database"
)

// Supported refresh token stores.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

const minSecretLength = 32

var environments = []string{"development", "production", "test"}

// Config holds all configuration for the job portal server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"5000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// JWT
	JWTAccessSecret   string        `env:"JWT_ACCESS_SECRET"`
	JWTRefreshSecret  string        `env:"JWT_REFRESH_SECRET"`
	JWTAccessExpires  time.Duration `env:"JWT_ACCESS_EXPIRES" envDefault:"15m"`
	JWTRefreshExpires time.Duration `env:"JWT_REFRESH_EXPIRES" envDefault:"168h"`
	JWTIssuer         string        `env:"JWT_ISSUER" envDefault:"job-portal-server"`

	// Password hashing
	BcryptSaltRounds   int `env:"BCRYPT_SALT_ROUNDS" envDefault:"10"`
	HashMaxConcurrency int `env:"HASH_MAX_CONCURRENCY" envDefault:"0"`

	// Auth policy
	StoreTimeout              time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	RequireVerifiedLogin      bool          `env:"REQUIRE_VERIFIED_LOGIN" envDefault:"false"`
	RefreshTokenStore         string        `env:"REFRESH_TOKEN_STORE" envDefault:"postgres"`
	RefreshTokenPurgeInterval time.Duration `env:"REFRESH_TOKEN_PURGE_INTERVAL" envDefault:"1h"`

	// Bootstrap admin
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// PostgreSQL
	PostgresHost         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser         string        `env:"POSTGRES_USER" envDefault:"jobportal"`
	PostgresPass         string        `env:"POSTGRES_PASSWORD" envDefault:"jobportal_secret"`
	PostgresDB           string        `env:"POSTGRES_DB" envDefault:"jobportal"`
	PostgresSSL          string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns           int32         `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns           int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetime    time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime    time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"15m"`
	SlowQueryThresholdMs int           `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Redis (used when REFRESH_TOKEN_STORE=redis)
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
	OTELInsecure   bool    `env:"OTEL_INSECURE" envDefault:"true"`

	// CORS
	CORSAllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	CORSAllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`

	// Rate limiting on /api/v1. RATE_LIMIT_RPS=0 disables it.
	RateLimitRPS            float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst          int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
	RateLimitTrustForwarded bool    `env:"RATE_LIMIT_TRUST_FORWARDED" envDefault:"false"`

	// Profiling endpoints are mounted only for these CIDRs.
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`
}

// Load reads configuration from a .env file (if present) and the environment,
// then validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithEnvFiles(cfg, ".env"); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges, secret strength and store selection. All problems
// are reported together.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(environments, c.Environment) {
		errs = append(errs, fmt.Errorf("ENVIRONMENT must be one of %v, got %q", environments, c.Environment))
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}

	errs = append(errs, c.validateSecrets()...)

	if c.JWTAccessExpires <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_EXPIRES must be positive"))
	}
	if c.JWTRefreshExpires <= 0 {
		errs = append(errs, errors.New("JWT_REFRESH_EXPIRES must be positive"))
	}
	if c.BcryptSaltRounds < 4 || c.BcryptSaltRounds > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_SALT_ROUNDS must be between 4 and 31, got %d", c.BcryptSaltRounds))
	}
	if c.HashMaxConcurrency < 0 {
		errs = append(errs, errors.New("HASH_MAX_CONCURRENCY must not be negative"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}
	if c.RefreshTokenStore != StorePostgres && c.RefreshTokenStore != StoreRedis {
		errs = append(errs, fmt.Errorf("REFRESH_TOKEN_STORE must be %q or %q, got %q", StorePostgres, StoreRedis, c.RefreshTokenStore))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be between 0 and 1, got %v", c.OTELSampleRate))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS must not be negative"))
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true"))
	}

	return errors.Join(errs...)
}

func (c *Config) validateSecrets() []error {
	var errs []error
	if c.JWTAccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET is required"))
	}
	if c.JWTRefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET is required"))
	}
	if len(errs) > 0 {
		return errs
	}

	if c.JWTAccessSecret == c.JWTRefreshSecret {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}

	// Short secrets are tolerated only for local development.
	if !c.IsDevelopment() {
		if len(c.JWTAccessSecret) < minSecretLength {
			errs = append(errs, fmt.Errorf("JWT_ACCESS_SECRET must be at least %d characters long, got %d", minSecretLength, len(c.JWTAccessSecret)))
		}
		if len(c.JWTRefreshSecret) < minSecretLength {
			errs = append(errs, fmt.Errorf("JWT_REFRESH_SECRET must be at least %d characters long, got %d", minSecretLength, len(c.JWTRefreshSecret)))
		}
	}
	return errs
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Postgres returns the connection settings for the PostgreSQL pool.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: c.DBMaxConnLifetime,
		MaxConnIdleTime: c.DBMaxConnIdleTime,
	}
}

// Redis returns the connection settings for the Redis client.
func (c *Config) Redis() database.RedisConfig {
	cfg := database.DefaultRedisConfig()
	cfg.Host = c.RedisHost
	cfg.Port = c.RedisPort
	cfg.Password = c.RedisPassword
	cfg.DB = c.RedisDB
	return cfg
}
