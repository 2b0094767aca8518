// Package config provides application configuration loaded from environment
// variables with defaults and validation. It covers the HTTP server, the
// database, image storage and processing, the feed cache, lifecycle events,
// actor authentication, moderation rules, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "agro-classifieds")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]

	// Environment is reported as deployment.environment
	// (OTEL_DEPLOYMENT_ENVIRONMENT, falling back to APP_ENV).
	Environment string
	// Headers are sent with every export, e.g. collector auth
	// (OTEL_EXPORTER_OTLP_HEADERS="k1=v1,k2=v2").
	Headers       map[string]string
	ExportTimeout time.Duration // OTEL_EXPORTER_OTLP_TIMEOUT
}

// DBConfig selects the database backend.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	Path   string // DB_PATH: SQLite file
	DSN    string // DB_DSN: PostgreSQL DSN or URL
}

// Target returns the DSN handed to repo.Open for the configured driver.
func (d DBConfig) Target() string {
	if d.Driver == "postgres" {
		return d.DSN
	}
	return d.Path
}

// StorageConfig selects where derived rasters are written.
type StorageConfig struct {
	Backend        string // STORAGE_BACKEND: local|minio
	UploadDir      string // UPLOAD_DIR
	UploadBaseURL  string // UPLOAD_BASE_URL, served from UploadDir
	MinIOEndpoint  string // MINIO_ENDPOINT (host:port)
	MinIOAccessKey string // MINIO_ACCESS_KEY
	MinIOSecretKey string // MINIO_SECRET_KEY
	MinIOBucket    string // MINIO_BUCKET
	MinIOUseSSL    bool   // MINIO_USE_SSL
	MinIOPublicURL string // MINIO_PUBLIC_URL (optional)
}

// ImagesConfig bounds image ingestion.
type ImagesConfig struct {
	MaxFiles       int           // IMAGES_MAX_FILES
	MaxUploadBytes int64         // IMAGES_MAX_UPLOAD_BYTES, whole multipart body
	Timeout        time.Duration // IMAGE_TIMEOUT, per ingest call
	Concurrency    int           // IMAGE_CONCURRENCY
	JPEGQuality    int           // IMAGE_JPEG_QUALITY
}

// RedisConfig enables the public feed cache when Addr is set.
type RedisConfig struct {
	Addr     string        // REDIS_ADDR
	Password string        // REDIS_PASSWORD
	DB       int           // REDIS_DB
	FeedTTL  time.Duration // FEED_CACHE_TTL
}

// NATSConfig enables lifecycle event publication when URL is set.
type NATSConfig struct {
	URL           string // NATS_URL
	SubjectPrefix string // NATS_SUBJECT_PREFIX
}

// AuthConfig controls how the request actor is established.
type AuthConfig struct {
	JWTSecret      string        // JWT_SECRET
	TokenTTL       time.Duration // JWT_TTL
	HeaderIdentity bool          // AUTH_HEADER_IDENTITY (development only)
}

// ModerationConfig holds moderation rules.
type ModerationConfig struct {
	MinReasonLength int // MODERATION_MIN_REASON (runes)
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Persistence and media
	DB      DBConfig
	Storage StorageConfig
	Images  ImagesConfig

	// Optional infrastructure
	Redis RedisConfig
	NATS  NATSConfig

	// Actors and moderation
	Auth       AuthConfig
	Moderation ModerationConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "app.db"),
			DSN:    getenv("DB_DSN", ""),
		},
		Storage: StorageConfig{
			Backend:        strings.ToLower(getenv("STORAGE_BACKEND", "local")),
			UploadDir:      getenv("UPLOAD_DIR", "public/uploads"),
			UploadBaseURL:  normalizeBasePath(getenv("UPLOAD_BASE_URL", "/uploads")),
			MinIOEndpoint:  getenv("MINIO_ENDPOINT", ""),
			MinIOAccessKey: getenv("MINIO_ACCESS_KEY", ""),
			MinIOSecretKey: getenv("MINIO_SECRET_KEY", ""),
			MinIOBucket:    getenv("MINIO_BUCKET", "classifieds"),
			MinIOUseSSL:    getbool("MINIO_USE_SSL", false),
			MinIOPublicURL: getenv("MINIO_PUBLIC_URL", ""),
		},
		Images: ImagesConfig{
			MaxFiles:       getint("IMAGES_MAX_FILES", 10),
			MaxUploadBytes: getint64("IMAGES_MAX_UPLOAD_BYTES", 64<<20),
			Timeout:        getdur("IMAGE_TIMEOUT", 30*time.Second),
			Concurrency:    getint("IMAGE_CONCURRENCY", 4),
			JPEGQuality:    getint("IMAGE_JPEG_QUALITY", 80),
		},

		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
			FeedTTL:  getdur("FEED_CACHE_TTL", time.Minute),
		},
		NATS: NATSConfig{
			URL:           getenv("NATS_URL", ""),
			SubjectPrefix: strings.Trim(getenv("NATS_SUBJECT_PREFIX", "listings"), "."),
		},

		Auth: AuthConfig{
			JWTSecret:      getenv("JWT_SECRET", ""),
			TokenTTL:       getdur("JWT_TTL", 24*time.Hour),
			HeaderIdentity: getbool("AUTH_HEADER_IDENTITY", false),
		},
		Moderation: ModerationConfig{
			MinReasonLength: getint("MODERATION_MIN_REASON", 10),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:       getbool("OTEL_ENABLED", false),
			Endpoint:      getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:      getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName:   getenv("OTEL_SERVICE_NAME", "agro-classifieds"),
			SampleRatio:   getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
			Environment:   getenv("OTEL_DEPLOYMENT_ENVIRONMENT", getenv("APP_ENV", "development")),
			Headers:       splitPairs(getenv("OTEL_EXPORTER_OTLP_HEADERS", "")),
			ExportTimeout: getdur("OTEL_EXPORTER_OTLP_TIMEOUT", 10*time.Second),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" {
		cfg.DB.Driver = "postgres"
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "listings"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return cfg, errors.New("DB_DSN is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	switch cfg.Storage.Backend {
	case "local":
		if strings.TrimSpace(cfg.Storage.UploadDir) == "" {
			return cfg, errors.New("UPLOAD_DIR must not be empty")
		}
	case "minio":
		if cfg.Storage.MinIOEndpoint == "" || cfg.Storage.MinIOBucket == "" {
			return cfg, errors.New("MINIO_ENDPOINT and MINIO_BUCKET are required when STORAGE_BACKEND=minio")
		}
	default:
		return cfg, errors.New("STORAGE_BACKEND must be one of: local, minio")
	}
	if cfg.Images.MaxFiles < 1 {
		return cfg, errors.New("IMAGES_MAX_FILES must be >= 1")
	}
	if cfg.Images.MaxUploadBytes <= 0 {
		return cfg, errors.New("IMAGES_MAX_UPLOAD_BYTES must be > 0")
	}
	if cfg.Images.Timeout <= 0 {
		return cfg, errors.New("IMAGE_TIMEOUT must be > 0")
	}
	if cfg.Images.Concurrency < 1 {
		return cfg, errors.New("IMAGE_CONCURRENCY must be >= 1")
	}
	if cfg.Images.JPEGQuality < 1 || cfg.Images.JPEGQuality > 100 {
		return cfg, errors.New("IMAGE_JPEG_QUALITY must be in [1,100]")
	}
	if cfg.Redis.Addr != "" && cfg.Redis.FeedTTL <= 0 {
		return cfg, errors.New("FEED_CACHE_TTL must be > 0")
	}
	if !cfg.Auth.HeaderIdentity && strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return cfg, errors.New("JWT_SECRET is required unless AUTH_HEADER_IDENTITY=true")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return cfg, errors.New("JWT_TTL must be > 0")
	}
	if cfg.Moderation.MinReasonLength < 1 {
		return cfg, errors.New("MODERATION_MIN_REASON must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if cfg.OTEL.ExportTimeout <= 0 {
		return cfg, errors.New("OTEL_EXPORTER_OTLP_TIMEOUT must be > 0")
	}
	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// splitPairs parses "k1=v1,k2=v2". Entries without a key are dropped.
func splitPairs(s string) map[string]string {
	items := splitCSV(s)
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]string, len(items))
	for _, item := range items {
		k, v, _ := strings.Cut(item, "=")
		if k = strings.TrimSpace(k); k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
