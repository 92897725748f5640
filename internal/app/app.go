package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kolamcraft/catalog/internal/auth"
	"github.com/kolamcraft/catalog/internal/config"
	"github.com/kolamcraft/catalog/internal/event"
	handler "github.com/kolamcraft/catalog/internal/handler/http"
	"github.com/kolamcraft/catalog/internal/repository/postgres"
	"github.com/kolamcraft/catalog/internal/service"
	"github.com/kolamcraft/catalog/internal/storage"
	"github.com/kolamcraft/catalog/internal/storage/memory"
	"github.com/kolamcraft/catalog/internal/storage/supabase"
	"github.com/kolamcraft/catalog/migrations"
	"github.com/kolamcraft/catalog/pkg/database"
	"github.com/kolamcraft/catalog/pkg/health"
	"github.com/kolamcraft/catalog/pkg/httpclient"
	"github.com/kolamcraft/catalog/pkg/httputil"
	pkgkafka "github.com/kolamcraft/catalog/pkg/kafka"
	"github.com/kolamcraft/catalog/pkg/middleware"
	"github.com/kolamcraft/catalog/pkg/tracing"
)

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	producer        *pkgkafka.Producer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Error responses carry upstream detail only outside production.
	httputil.IncludeDetails = cfg.IsDevelopment()

	tracingShutdown, err := tracing.Init(ctx, "catalog", tracing.Config{
		Enabled:     cfg.OtelEnabled,
		Endpoint:    cfg.OtelEndpoint,
		SampleRatio: cfg.OtelSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Kafka producer for catalog domain events.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	store, err := newStorage(cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	verifier, err := newVerifier(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	gate := auth.NewGate(verifier, cfg.AdminEmails, logger)

	// Build the dependency graph.
	repo := postgres.NewProductRepository(pool)
	eventProducer := event.NewProducer(producer, logger)
	productService := service.NewProductService(repo, store, eventProducer, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	router := handler.NewRouter(productService, gate, healthHandler, handler.RouterConfig{
		CORS: middleware.CORSConfig{
			AllowedOrigins:   []string{cfg.ClientOrigin},
			AllowCredentials: true,
			Environment:      cfg.Environment,
		},
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		CacheMaxAge:    cfg.CacheMaxAge,
		TracingEnabled: cfg.OtelEnabled,
	}, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		producer:        producer,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// newStorage selects the image store backend.
func newStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendSupabase:
		client := httpclient.New(httpclient.DefaultConfig())
		return supabase.New(supabase.Config{
			BaseURL:    cfg.SupabaseURL,
			ServiceKey: cfg.SupabaseServiceKey,
			Bucket:     cfg.StorageBucket,
		}, client), nil
	case config.StorageBackendMemory:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost:%d", cfg.HTTPPort)
		}
		return memory.New(baseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// newVerifier selects the identity verifier, optionally layering the Redis
// verification cache on top.
func newVerifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.Verifier, error) {
	var verifier auth.Verifier

	switch cfg.AuthProvider {
	case config.AuthProviderSupabase:
		client := httpclient.NewBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultBreakerConfig("supabase-auth"),
			logger,
		)
		verifier = auth.NewSupabaseVerifier(auth.SupabaseConfig{
			BaseURL: cfg.SupabaseURL,
			AnonKey: cfg.SupabaseAnonKey,
		}, client)
	case config.AuthProviderJWT:
		verifier = auth.NewJWTVerifier(cfg.JWTSecret)
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.AuthProvider)
	}

	if cfg.AuthCacheEnabled {
		redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		ttl := time.Duration(cfg.AuthCacheTTLSeconds) * time.Second
		verifier = auth.NewCachedVerifier(verifier, redisClient, ttl, logger)
	}

	return verifier, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
