package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/whatsapp-intake-agent/internal/api/router"
	"github.com/wolfman30/whatsapp-intake-agent/internal/app/bootstrap"
	appconfig "github.com/wolfman30/whatsapp-intake-agent/internal/config"
	"github.com/wolfman30/whatsapp-intake-agent/internal/observability/metrics"
	"github.com/wolfman30/whatsapp-intake-agent/pkg/logging"
)

func main() {
	// .env is optional outside local development
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting whatsapp intake agent",
		"env", cfg.Env,
		"port", cfg.Port,
		"session_backend", cfg.SessionBackend,
	)

	redisClient := bootstrap.BuildRedisClient(context.Background(), cfg, logger, true)
	if cfg.UseRedis() && redisClient == nil {
		logger.Warn("redis backend requested but unreachable; sessions will not survive restarts")
	}

	metricsHandler, intakeMetrics := setupMetrics()

	intake, err := bootstrap.BuildIntake(cfg, redisClient, intakeMetrics, logger)
	if err != nil {
		logger.Error("failed to build intake", "error", err)
		os.Exit(1)
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	workersDone := make(chan error, 1)
	go func() {
		workersDone <- intake.Dispatcher.Run(workerCtx)
	}()

	// Setup router
	r := router.New(&router.Config{
		Logger:          logger,
		WhatsAppWebhook: intake.Webhook,
		MetricsHandler:  metricsHandler,
		HealthCheck:     redisHealthCheck(redisClient),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Webhooks are no longer arriving; flush queued replies.
	stopWorkers()
	select {
	case err := <-workersDone:
		if err != nil {
			logger.Error("delivery workers exited with error", "error", err)
		}
	case <-ctx.Done():
		logger.Warn("delivery workers did not drain before shutdown deadline")
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close failed", "error", err)
		}
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupMetrics() (http.Handler, *metrics.IntakeMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewIntakeMetrics(reg)
}

func redisHealthCheck(client *redis.Client) func(context.Context) error {
	if client == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
