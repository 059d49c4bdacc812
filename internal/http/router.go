// Package httpapi assembles the Gin engine: global middleware, operational
// routes (/health, /metrics, /swagger) and the contact log API group with
// its authentication, idempotency and rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-contactlog-backend/internal/auth"
	"github.com/tbourn/go-contactlog-backend/internal/config"
	_ "github.com/tbourn/go-contactlog-backend/internal/docs" // registers the OpenAPI document
	"github.com/tbourn/go-contactlog-backend/internal/domain"
	"github.com/tbourn/go-contactlog-backend/internal/flash"
	"github.com/tbourn/go-contactlog-backend/internal/http/handlers"
	"github.com/tbourn/go-contactlog-backend/internal/http/middleware"
	"github.com/tbourn/go-contactlog-backend/internal/repo"
	"github.com/tbourn/go-contactlog-backend/internal/services"
	"github.com/tbourn/go-contactlog-backend/internal/validation"
)

// termRepoShim adapts the repository free functions to the services.TermRepo
// interface expected by the TaxonomyService. This keeps services decoupled
// from the concrete repo package while reusing existing functions.
type termRepoShim struct{}

// ListTopLevelTerms proxies repo.ListTopLevelTerms.
func (termRepoShim) ListTopLevelTerms(ctx context.Context, db *gorm.DB, vocabulary string) ([]domain.TaxonomyTerm, error) {
	return repo.ListTopLevelTerms(ctx, db, vocabulary)
}

// CountTerms proxies repo.CountTerms.
func (termRepoShim) CountTerms(ctx context.Context, db *gorm.DB, vocabulary string) (int64, error) {
	return repo.CountTerms(ctx, db, vocabulary)
}

// CreateTerm proxies repo.CreateTerm.
func (termRepoShim) CreateTerm(ctx context.Context, db *gorm.DB, vocabulary string, parentID *string, name string, weight int) (*domain.TaxonomyTerm, error) {
	return repo.CreateTerm(ctx, db, vocabulary, parentID, name, weight)
}

// ReportExportCost is the number of rate-limit tokens a spreadsheet export
// consumes; other API requests consume one.
const ReportExportCost = 5

// NewTaxonomyService returns a TaxonomyService backed by the repo package.
// The server uses it to seed vocabularies before routes are registered.
func NewTaxonomyService(db *gorm.DB) *services.TaxonomyService {
	return services.NewTaxonomyService(db, termRepoShim{})
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), compression, CORS
// and security headers, health, metrics and docs endpoints, and then mounts
// the authenticated contact log API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip
//  8. CORS and Security headers
//
// On the API group:
//  9. Authentication (acting user for everything below)
//  10. Idempotency validator (before rate limiter to allow bypass on replay)
//  11. Rate limiter (per user/IP, bypass on replay)
//
// A nil store disables notifications; a nil authManager runs the API in
// development mode, trusting the X-User-ID header.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, store flash.Store, authManager *auth.Manager) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders:     []string{auth.HeaderUserName},
		MaskQueryParams: []string{"q"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Response compression (scrapers negotiate their own encoding)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 8) CORS, then baseline security headers
	r.Use(corsHandlers(cfg.CORS)...)
	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
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

	// API docs
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	pattern := cfg.SpecialCharsPattern
	if pattern == "" {
		pattern = config.DefaultSpecialCharsPattern
	}
	policy := services.NewTimeWindowPolicy(cfg.Location)
	logSvc := services.NewContactLogService(db, policy, validation.MustNew(pattern), store)
	taxSvc := NewTaxonomyService(db)
	reportSvc := &services.ReportService{DB: db, Policy: policy}

	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	h := handlers.New(logSvc, taxSvc, reportSvc, store, handlers.Options{
		BasePath:       apiBase,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})

	// Public API
	api := groupWithPrefix(r, apiBase)

	// 9) Acting user
	api.Use(auth.Authenticate(authManager))

	// 10) Idempotency validation (before rate limiting)
	api.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scope: middleware.ScopeByRoute(map[string]string{
				strings.TrimRight(apiBase, "/") + "/contacts/add": handlers.IdempotencyScopeCreate,
			}),
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			_, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return err == nil, err
		},
	))

	// 11) Token-bucket rate limiter per user/IP
	// The export reads every record, including deleted ones.
	rl := middleware.NewRateLimiter(middleware.RateLimitOptions{
		RPS:   cfg.RateRPS,
		Burst: cfg.RateBurst,
		Key:   middleware.KeyByUserOrIP(),
		Cost: middleware.CostByRoute(map[string]int{
			strings.TrimRight(apiBase, "/") + "/contacts/report.xlsx": ReportExportCost,
		}),
	})
	api.Use(rl.Handler())

	// JSON and xlsx responses are never rendered as documents nor cached.
	api.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		NoStore:               true,
		ContentSecurityPolicy: middleware.APIContentSecurityPolicy,
		Expose:                []string{"ETag", "Idempotency-Replayed", "Content-Disposition", "Retry-After"},
	}))

	{
		// Contact logs
		api.GET("/contacts", h.ListContactLogs)
		api.GET("/contacts/add", h.AddContactLogForm)
		api.POST("/contacts/add", h.CreateContactLog)
		api.GET("/contacts/report.xlsx", h.ExportReport)
		api.GET("/contact/:log_id", h.EditContactLogForm)
		api.POST("/contact/:log_id", h.UpdateContactLog)
		api.POST("/contact_log/:log_id/delete", h.DeleteContactLog)

		// Taxonomy
		api.GET("/taxonomy/:vocabulary/options", h.ListTaxonomyOptions)
	}
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
