package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfhttp "github.com/Strob0t/CatalogForge/internal/adapter/http"
	"github.com/Strob0t/CatalogForge/internal/adapter/imgproc"
	cfnats "github.com/Strob0t/CatalogForge/internal/adapter/nats"
	"github.com/Strob0t/CatalogForge/internal/adapter/natskv"
	cfotel "github.com/Strob0t/CatalogForge/internal/adapter/otel"
	"github.com/Strob0t/CatalogForge/internal/adapter/postgres"
	"github.com/Strob0t/CatalogForge/internal/adapter/ristretto"
	"github.com/Strob0t/CatalogForge/internal/adapter/tiered"
	"github.com/Strob0t/CatalogForge/internal/adapter/ws"
	"github.com/Strob0t/CatalogForge/internal/config"
	"github.com/Strob0t/CatalogForge/internal/logger"
	"github.com/Strob0t/CatalogForge/internal/middleware"
	"github.com/Strob0t/CatalogForge/internal/resilience"
	"github.com/Strob0t/CatalogForge/internal/service"
)

const version = "0.1.0"

// featureBucket is the JetStream KV bucket backing the shared L2 feature cache.
const featureBucket = "catalog_features"

// Idempotency keys outlive any sane importer retry window, then expire.
const (
	idempotencyBucket = "idempotency_keys"
	idempotencyTTL    = 24 * time.Hour
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(os.Args[2:]); err != nil {
			slog.Error("migrate failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx := context.Background()

	// --- Observability ---

	otelShutdown, err := cfotel.Init(ctx, cfg.Observability.OTLPEndpoint, cfg.Logging.Service, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	// Run migrations
	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS
	queue, err := cfnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Drain() }()

	// Feature cache: in-process ristretto L1 over a shared JetStream KV L2.
	l1, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("feature cache: %w", err)
	}
	defer l1.Close()

	kv, err := queue.KeyValue(ctx, featureBucket, cfg.Cache.TTL)
	if err != nil {
		return fmt.Errorf("feature cache bucket: %w", err)
	}
	featureCache := tiered.New(l1, natskv.New(kv), cfg.Cache.TTL)

	// Replay cache for retried mutating requests.
	idemKV, err := queue.KeyValue(ctx, idempotencyBucket, idempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency bucket: %w", err)
	}

	// Image decoding
	decodePool := imgproc.NewPool(cfg.Imaging.MaxConcurrent)
	decoder := imgproc.NewExtractor(cfg.Validation.BorderPx, decodePool, featureCache, cfg.Cache.TTL, log)

	// --- Services ---

	hub := ws.NewHub()
	store := postgres.NewStore(pool)
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)

	skuSvc := service.NewSKUService(store, queue, cfg.SKU.MaxAttempts)
	skuSvc.SetBreaker(breaker)
	skuSvc.SetMetrics(metrics)

	validationSvc := service.NewValidationService(decoder, queue, cfg.Validation)
	validationSvc.SetBreaker(breaker)
	validationSvc.SetMetrics(metrics)

	reviewSvc := service.NewReviewService(store, queue, hub, cfg.Review, cfg.Training)
	reviewSvc.SetBreaker(breaker)
	reviewSvc.SetMetrics(metrics)

	// SLA scanner for overdue review tasks
	scanCtx, cancelScan := context.WithCancel(ctx)
	defer cancelScan()
	reviewSvc.StartOverdueScanner(scanCtx, cfg.Review.ScanInterval)

	// --- HTTP ---

	handlers := &cfhttp.Handlers{
		SKUs:       skuSvc,
		Validation: validationSvc,
		Reviews:    reviewSvc,
	}

	rl := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := rl.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	r := chi.NewRouter()

	// Middleware
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(cfhttp.Logger)
	r.Use(rl.Handler)
	r.Use(middleware.Idempotency(idemKV))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	// Health endpoint with dependency status
	r.Get("/health", cfhttp.HealthHandler(pool, queue, breaker))

	// WebSocket endpoint streaming review lifecycle events
	r.Get("/ws", hub.HandleWS)

	// API routes
	cfhttp.MountRoutes(r, handlers, *cfg)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
