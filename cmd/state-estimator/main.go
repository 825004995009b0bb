package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/consumer"
	"github.com/meigsy/shift/internal/estimator"
	"github.com/meigsy/shift/internal/events"
	"github.com/meigsy/shift/internal/handler"
	db "github.com/meigsy/shift/internal/repository/db"
	"github.com/meigsy/shift/pkg/config"
	"github.com/meigsy/shift/pkg/natsclient"
	"github.com/meigsy/shift/pkg/telemetry"
)

// fallbackSchedule sweeps unprocessed batches even when every trigger publish
// failed, so the pipeline cannot stall on a quiet bus.
const fallbackSchedule = "@every 5m"

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// ── OpenTelemetry ──────────────────────────────────────────────────────
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint != "" {
		tp, err := telemetry.InitTracer(context.Background(), "state-estimator", otelEndpoint)
		if err != nil {
			logger.Error("failed to init OTel tracer", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
		logger.Info("OTel tracer initialized", zap.String("endpoint", otelEndpoint))
	}

	// ── Vault secrets ──────────────────────────────────────────────────────
	vaultAddr := os.Getenv("VAULT_ADDR")
	if vaultAddr == "" {
		vaultAddr = "http://localhost:8200"
	}
	vaultToken := os.Getenv("VAULT_TOKEN")
	if vaultToken == "" {
		vaultToken = "root"
	}
	secretPath := os.Getenv("VAULT_SECRET_PATH")
	if secretPath == "" {
		secretPath = "secret/data/shift/state-estimator"
	}

	vaultManager, err := config.NewSecretManager(vaultAddr, vaultToken)
	if err != nil {
		logger.Fatal("Vault connection failed", zap.Error(err))
	}
	secrets, err := vaultManager.GetKV2(secretPath)
	if err != nil {
		logger.Fatal("Failed to load secrets from Vault", zap.Error(err))
	}

	pgURL := config.StringSecret(secrets, "PG_URL", os.Getenv("PG_URL"))
	natsURL := config.StringSecret(secrets, "NATS_URL", os.Getenv("NATS_URL"))

	// ── Database ───────────────────────────────────────────────────────────
	poolCfg, err := pgxpool.ParseConfig(pgURL)
	if err != nil {
		logger.Fatal("failed to parse PG_URL", zap.Error(err))
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()
	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// ── NATS JetStream ─────────────────────────────────────────────────────
	natsClient, err := natsclient.NewClient(natsURL, logger)
	if err != nil {
		logger.Fatal("NATS initialization failed", zap.Error(err))
	}
	defer natsClient.Close()
	if err := natsClient.ProvisionStreams(); err != nil {
		logger.Fatal("NATS stream provisioning failed", zap.Error(err))
	}

	// ── Pipeline & Consumer ────────────────────────────────────────────────
	querier := db.New(pool)
	publisher := events.NewJetStreamPublisher(natsClient)
	pipeline := estimator.NewPipeline(querier, publisher, logger)

	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	watchConsumer := consumer.NewWatchEventsConsumer(natsClient, pipeline, logger)
	if err := watchConsumer.Start(consumerCtx); err != nil {
		logger.Fatal("Failed to start watch events consumer", zap.Error(err))
	}

	// ── Fallback sweep ─────────────────────────────────────────────────────
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(fallbackSchedule, func() {
		if err := pipeline.Run(consumerCtx); err != nil {
			logger.Error("fallback estimation run failed", zap.Error(err))
		}
	}); err != nil {
		logger.Fatal("failed to schedule fallback sweep", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()
	logger.Info("fallback sweep scheduled", zap.String("schedule", fallbackSchedule))

	// ── Health endpoint ────────────────────────────────────────────────────
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	handler.NewHealthHandler().Register(e)

	go func() {
		logger.Info("state-estimator health server listening on :8081")
		if err := e.Start(":8081"); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failure", zap.Error(err))
		}
	}()

	// ── Graceful Shutdown ──────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("initiating graceful shutdown")

	consumerCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Echo shutdown error", zap.Error(err))
	}
	logger.Info("state-estimator shut down cleanly")
}
