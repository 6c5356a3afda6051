package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finadvisor/internal/advice"
	"finadvisor/internal/amqp"
	"finadvisor/internal/backend"
	"finadvisor/internal/cache"
	"finadvisor/internal/cli"
	"finadvisor/internal/genai"
	apphttp "finadvisor/internal/http"
	"finadvisor/internal/log"
	"finadvisor/internal/middleware/ratelimit"
	"finadvisor/internal/middleware/security"
	"finadvisor/internal/nlu"
	"finadvisor/internal/scheduler"
	"finadvisor/internal/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel)

	ctx, stop := cli.SignalContext()
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	backends, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).CreateBackends(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to configure backends", log.FieldError, err)
		os.Exit(1)
	}
	if backends.Cleanup != nil {
		defer func() {
			if err := backends.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	// A cache that cannot be reached only costs repeated generation.
	sweeps := cache.NewManager()
	store, err := cache.New(ctx, cache.Options{
		Backend: cfg.CacheBackend,
		Size:    cfg.CacheSize,
		TTL:     cfg.CacheTTL,
		Redis: cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
	}, sweeps)
	if err != nil {
		logger.Warn("Generated text cache unavailable, continuing without it",
			log.FieldStore, cfg.CacheBackend,
			log.FieldError, err)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	selector, err := advice.NewDefaultSelector()
	if err != nil {
		logger.Error("Failed to load advice catalogue", log.FieldError, err)
		os.Exit(1)
	}

	analyzer := nlu.NewAnalyzer(backends.NLU, cfg.BackendTimeout, logger.WithComponent(log.ComponentNLU).Slog())
	generator := genai.NewService(backends.Generator, cfg.BackendTimeout,
		genai.WithCache(store),
		genai.WithLogger(logger.WithComponent(log.ComponentGeneration).Slog()))

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, advice events disabled", log.FieldError, err)
		} else {
			publisher = client
			logger.Info("Advice events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	advisor := services.NewAdvisorService(analyzer, generator, selector, publisher)
	defer func() {
		if err := advisor.Close(); err != nil {
			logger.Warn("Failed to close advisor", log.FieldError, err)
		}
	}()

	if cfg.BackendEagerInit {
		go func() {
			backends.NLU.Get(ctx)
			backends.Generator.Get(ctx)
			advisor.ReportStatus(ctx)
		}()
	}

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM})
	detector := security.NewDetector()
	for _, cidr := range cfg.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, log.FieldError, err)
		}
	}

	sched := scheduler.New(ctx, logger)
	if err := sched.RegisterSweep("cache", cfg.CacheSweepSchedule, sweeps); err != nil {
		logger.Error("Failed to schedule cache sweep", log.FieldError, err)
		os.Exit(1)
	}
	if err := sched.RegisterSweep("rate_limit", cfg.CacheSweepSchedule, limiter); err != nil {
		logger.Error("Failed to schedule rate limit sweep", log.FieldError, err)
		os.Exit(1)
	}
	if err := sched.RegisterStatusReport(cfg.StatusReportSchedule, advisor.ReportStatus); err != nil {
		logger.Error("Failed to schedule status report", log.FieldError, err)
		os.Exit(1)
	}
	sched.Start()

	srv := apphttp.NewServer(":"+cfg.Port, advisor, apphttp.Options{
		Version:        version,
		RateLimiter:    limiter,
		Detector:       detector,
		Logger:         logger,
		RequestTimeout: cfg.BackendTimeout + cfg.BackendInitTimeout + 5*time.Second,
	})
	srv.MaxHeaderBytes = 1 << 16

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting finadvisor server",
			"port", cfg.Port,
			"version", version,
			"nlu_backend", cfg.NLUBackend,
			"generation_backend", cfg.GenerationBackend,
			"cache_backend", cfg.CacheBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	sched.Stop(shutdownCtx)
	logger.Info("Server stopped gracefully")
}
