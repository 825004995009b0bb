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
	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/consumer"
	"github.com/meigsy/shift/internal/dispatcher"
	"github.com/meigsy/shift/internal/handler"
	db "github.com/meigsy/shift/internal/repository/db"
	"github.com/meigsy/shift/internal/selector"
	"github.com/meigsy/shift/pkg/config"
	"github.com/meigsy/shift/pkg/natsclient"
	"github.com/meigsy/shift/pkg/telemetry"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// ── OpenTelemetry ──────────────────────────────────────────────────────
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint != "" {
		tp, err := telemetry.InitTracer(context.Background(), "intervention-selector", otelEndpoint)
		if err != nil {
			logger.Error("failed to init OTel tracer", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
		mp, err := telemetry.InitMeterProvider(context.Background(), "intervention-selector", otelEndpoint)
		if err != nil {
			logger.Error("failed to init OTel meter provider", zap.Error(err))
		} else {
			defer mp.Shutdown(context.Background())
		}
		logger.Info("OTel initialized", zap.String("endpoint", otelEndpoint))
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
		secretPath = "secret/data/shift/intervention-selector"
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
	apnsKeyPEM := config.StringSecret(secrets, "APNS_KEY_PEM", os.Getenv("APNS_KEY_PEM"))
	apnsKeyID := config.StringSecret(secrets, "APNS_KEY_ID", os.Getenv("APNS_KEY_ID"))
	apnsTeamID := config.StringSecret(secrets, "APNS_TEAM_ID", os.Getenv("APNS_TEAM_ID"))
	appleBundleID := config.StringSecret(secrets, "APPLE_BUNDLE_ID", os.Getenv("APPLE_BUNDLE_ID"))

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

	// ── Push dispatcher ────────────────────────────────────────────────────
	// APNs credentials are optional: without them the selector still creates
	// instances and the context endpoint surfaces them.
	var push dispatcher.PushSender
	if apnsKeyPEM != "" && apnsKeyID != "" && apnsTeamID != "" {
		apns, err := dispatcher.NewAPNSDispatcher([]byte(apnsKeyPEM), apnsKeyID, apnsTeamID, appleBundleID, logger)
		if err != nil {
			logger.Fatal("APNs dispatcher init failed", zap.Error(err))
		}
		push = apns
		logger.Info("APNs dispatcher initialized")
	} else {
		logger.Warn("APNs credentials absent, push delivery disabled")
	}

	// ── Processor & Consumer ───────────────────────────────────────────────
	querier := db.New(pool)
	defects := telemetry.NewDefectCounter(logger)
	processor := selector.NewProcessor(querier, push, defects, logger)

	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	estimatesConsumer := consumer.NewStateEstimatesConsumer(natsClient, processor, logger)
	if err := estimatesConsumer.Start(consumerCtx); err != nil {
		logger.Fatal("Failed to start state estimates consumer", zap.Error(err))
	}

	// ── Health endpoint ────────────────────────────────────────────────────
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	handler.NewHealthHandler().Register(e)

	go func() {
		logger.Info("intervention-selector health server listening on :8082")
		if err := e.Start(":8082"); err != nil && err != http.ErrServerClosed {
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
	logger.Info("intervention-selector shut down cleanly")
}
