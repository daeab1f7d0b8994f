// Package http is the REST surface of chemlite, built on gin.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/internal/interfaces/http/handlers"
	"github.com/turtacn/chemlite/internal/interfaces/http/middleware"
)

// RouterConfig collects the handlers and middleware inputs. Nil handlers
// leave their routes unregistered.
type RouterConfig struct {
	Mode           string
	PathwayHandler *handlers.PathwayHandler
	HealthHandler  *handlers.HealthHandler

	// Metrics instruments every request. MetricsHandler serves the scrape
	// endpoint at MetricsPath.
	Metrics        middleware.HTTPMetrics
	MetricsHandler http.Handler
	MetricsPath    string

	Logging     middleware.LoggingConfig
	CORSOrigins []string
	RateLimiter middleware.RateLimiter
	MaxBodySize int64
	Logger      logging.Logger
}

// NewRouter builds the engine. Middleware order: recovery, request id,
// logging, metrics, CORS, then rate limiting and body limits.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Logging.SkipPaths == nil {
		cfg.Logging = middleware.DefaultLoggingConfig()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.RequestLogging(cfg.Logger, cfg.Logging),
	)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins...)))
	}

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	v1 := r.Group("/api/v1")
	if cfg.RateLimiter != nil {
		v1.Use(middleware.RateLimit(cfg.RateLimiter, middleware.DefaultRateLimitConfig()))
	}
	if cfg.MaxBodySize > 0 {
		v1.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	if cfg.PathwayHandler != nil {
		cfg.PathwayHandler.RegisterRoutes(v1)
	}
	return r
}
