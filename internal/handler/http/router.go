package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kolamcraft/catalog/internal/auth"
	"github.com/kolamcraft/catalog/internal/service"
	"github.com/kolamcraft/catalog/pkg/health"
	"github.com/kolamcraft/catalog/pkg/middleware"
)

// RouterConfig holds the HTTP-surface knobs the router needs.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	RateLimitRPS   int
	RateLimitBurst int
	CacheMaxAge    int
	TracingEnabled bool
}

// NewRouter creates a chi router with all catalog routes registered. Read
// endpoints are public; write endpoints sit behind the admin gate and a
// per-client rate limit.
func NewRouter(
	productService *service.ProductService,
	gate *auth.Gate,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	if cfg.TracingEnabled {
		r.Use(middleware.Tracing("catalog"))
	}
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("catalog"))

	// Health and telemetry endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/api/health", healthHandler.StatusHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	productHandler := NewProductHandler(productService, logger)

	r.Route("/api/products", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.CacheMaxAge > 0 {
				r.Use(middleware.CacheControl(cfg.CacheMaxAge))
			}
			r.Get("/", productHandler.ListProducts)
			r.Get("/{id}", productHandler.GetProduct)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
			r.Use(RequireAdmin(gate, logger))

			r.Post("/", productHandler.CreateProduct)
			r.Put("/{id}", productHandler.UpdateProduct)
			r.Delete("/{id}", productHandler.DeleteProduct)
		})
	})

	return r
}
