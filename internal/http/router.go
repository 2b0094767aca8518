// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, actor
// authentication, metrics, CORS, security headers, idempotency, and rate
// limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/cache"
	"github.com/tbourn/agro-classifieds/internal/config"
	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/events"
	"github.com/tbourn/agro-classifieds/internal/http/handlers"
	"github.com/tbourn/agro-classifieds/internal/http/middleware"
	"github.com/tbourn/agro-classifieds/internal/repo"
	"github.com/tbourn/agro-classifieds/internal/search"
	"github.com/tbourn/agro-classifieds/internal/services"
)

// Deps are the infrastructure handles the routes are built on. Cache,
// Events and Tokens are optional.
type Deps struct {
	DB     *gorm.DB
	Images services.ImageStore
	Cache  cache.FeedCache
	Events events.Publisher
	Tokens middleware.TokenParser
}

var corsHeaders = []string{
	"Origin", "Content-Type", "Accept", "Authorization",
	middleware.HeaderUserID, middleware.HeaderUserName, middleware.HeaderUserRole,
	middleware.HeaderIdempotencyKey, "If-None-Match",
}

// createScope is the idempotency scope of POST {base}/ads/:variant.
func createScope(base string) middleware.IdempotencyScope {
	base = strings.TrimSuffix(base, "/")
	return func(c *gin.Context) string {
		if c.Request.Method != http.MethodPost || c.FullPath() != base+"/ads/:variant" {
			return ""
		}
		v, known := domain.ParseVariant(c.Param("variant"))
		if !known {
			return ""
		}
		return "listing.create." + string(v)
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), authentication,
// idempotency and rate limiting, CORS and security headers, health and
// metrics endpoints, and then mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Authenticate + ContextLogger: actor and request-scoped logger
//  6. Body size limiter (multipart uploads included)
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	base := cfg.APIBasePath
	if base == "/" {
		base = ""
	}

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Actor and request-scoped logger
	r.Use(middleware.Authenticate(middleware.AuthOptions{
		Tokens:         deps.Tokens,
		HeaderIdentity: cfg.Auth.HeaderIdentity,
	}))
	r.Use(middleware.ContextLogger())

	// 6) Global body size limit
	maxBody := cfg.Images.MaxUploadBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	r.Use(limitBody(maxBody))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scope:  createScope(base),
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			_, err := repo.GetIdempotency(ctx, deps.DB, userID, scope, key, now)
			switch {
			case errors.Is(err, repo.ErrNotFound):
				return false, nil
			case err != nil:
				return false, err
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "ETag", "Content-Length", "Retry-After"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, listed := allowed[origin]; listed {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "ETag", "Content-Length", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers. Public feeds stay revalidatable for ETag clients.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:         cfg.Security.EnableHSTS,
		HSTSMaxAge:         cfg.Security.HSTSMaxAge,
		NoStore:            true,
		RevalidatePrefixes: []string{base + "/feeds/"},
		EnablePolicy:       true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(buildServices(deps, cfg))

	api := groupWithPrefix(r, base)
	{
		// Listings
		api.POST("/ads/:variant", h.CreateListing)
		api.GET("/ads/:variant/:slug", h.GetListing)
		api.PUT("/listings/:id", h.EditListing)

		// Lifecycle
		api.PATCH("/listings/:id/status", h.TransitionStatus)
		api.DELETE("/listings/:id", h.DeleteListing)
		api.POST("/listings/:id/restore", h.RestoreListing)

		// Feeds
		api.GET("/feeds/:variant", h.ListFeed)
		api.GET("/feeds/:variant/featured", h.ListFeatured)
		api.GET("/compare/:variant", h.CompareListings)
		api.GET("/me/listings", h.ListMyListings)
	}

	admin := api.Group("/admin")
	{
		admin.GET("/listings", h.ListModeration)
		admin.DELETE("/listings/:id/images/:imageId", h.RetireImage)
		admin.GET("/audit-logs", h.ListAuditLogs)
		admin.GET("/stats", h.DashboardStats)
	}
}

// buildServices performs the dependency injection: services ← repo/db,
// media pipeline, feed cache and event publisher.
func buildServices(deps Deps, cfg config.Config) (*services.ListingService, *services.LifecycleService, *services.SearchService, *services.AuditLogger) {
	feedCache := deps.Cache
	if feedCache == nil {
		feedCache = cache.Noop{}
	}
	publisher := deps.Events
	if publisher == nil {
		publisher = events.Noop{}
	}

	composer := search.NewComposer(deps.DB, search.WithCache(feedCache))
	fx := services.Effects{Feeds: composer, Events: publisher}
	audit := services.NewAuditLogger(deps.DB)

	listings := services.NewListingService(deps.DB, deps.Images, audit)
	listings.Effects = fx
	if cfg.IdempotencyTTL > 0 {
		listings.IdempotencyTTL = cfg.IdempotencyTTL
	}

	lifecycle := services.NewLifecycleService(deps.DB, audit, deps.Images)
	lifecycle.Effects = fx
	lifecycle.MinReasonLength = cfg.Moderation.MinReasonLength

	return listings, lifecycle, services.NewSearchService(deps.DB, composer), audit
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
