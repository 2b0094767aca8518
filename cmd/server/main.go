// Command server runs the classifieds HTTP API.
//
// @title           Agro Classifieds API
// @version         1.0
// @description     Listing lifecycle and moderation engine for agricultural machinery and rural property classifieds.
//
// @contact.name   API Support
// @license.name   MIT
//
// @BasePath  /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/agro-classifieds/docs"
	"github.com/tbourn/agro-classifieds/internal/auth"
	"github.com/tbourn/agro-classifieds/internal/cache"
	"github.com/tbourn/agro-classifieds/internal/config"
	"github.com/tbourn/agro-classifieds/internal/events"
	httpapi "github.com/tbourn/agro-classifieds/internal/http"
	"github.com/tbourn/agro-classifieds/internal/media"
	"github.com/tbourn/agro-classifieds/internal/observability"
	"github.com/tbourn/agro-classifieds/internal/repo"
	"github.com/tbourn/agro-classifieds/internal/sysutil"
)

var version = "dev"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	setupLogging(cfg)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", cfg.OTEL.ServiceName).Str("version", version).Logger()
	zerolog.DefaultContextLogger = &log.Logger
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	storage, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	pipeline := media.NewPipeline(storage, media.Options{
		MaxFiles:    cfg.Images.MaxFiles,
		Quality:     cfg.Images.JPEGQuality,
		Timeout:     cfg.Images.Timeout,
		Concurrency: cfg.Images.Concurrency,
	})

	deps := httpapi.Deps{DB: db, Images: pipeline}

	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.FeedTTL,
		})
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("feed cache disabled")
		} else {
			defer rc.Close()
			deps.Cache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("feed cache enabled")
		}
	}

	if cfg.NATS.URL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("lifecycle events disabled")
		} else {
			defer pub.Close()
			deps.Events = pub
			log.Info().Str("url", cfg.NATS.URL).Msg("lifecycle events enabled")
		}
	}

	if cfg.Auth.JWTSecret != "" {
		deps.Tokens = auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	} else if !cfg.Auth.HeaderIdentity {
		log.Warn().Msg("no JWT_SECRET and header identity disabled: every request is anonymous")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", cfg.Storage.UploadBaseURL})))

	if cfg.Storage.Backend != "minio" {
		r.Static(cfg.Storage.UploadBaseURL, cfg.Storage.UploadDir)
	}
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		docs.SwaggerInfo.Version = version
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	httpapi.RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("db", cfg.DB.Driver).Str("storage", cfg.Storage.Backend).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	db, err := repo.Open(cfg.DB.Driver, cfg.DB.Target())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DB.Driver, err)
	}
	if cfg.OTEL.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("gorm tracing: %w", err)
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func openStorage(ctx context.Context, cfg config.StorageConfig) (media.Storage, error) {
	switch strings.ToLower(cfg.Backend) {
	case "minio":
		st, err := media.NewMinIOStorage(ctx, media.MinIOOptions{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
			PublicURL: cfg.MinIOPublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		return st, nil
	default:
		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			return nil, fmt.Errorf("upload dir: %w", err)
		}
		st, err := media.NewLocalStorage(cfg.UploadDir, cfg.UploadBaseURL)
		if err != nil {
			return nil, fmt.Errorf("local storage: %w", err)
		}
		return st, nil
	}
}
