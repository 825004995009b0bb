// @title        Shift Ingestion Gateway
// @version      1.0
// @description  HealthKit batch ingestion, app interactions, and the aggregated client context.
// @host         localhost:8080
// @BasePath     /
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
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/auth"
	"github.com/meigsy/shift/internal/dedup"
	"github.com/meigsy/shift/internal/events"
	"github.com/meigsy/shift/internal/handler"
	db "github.com/meigsy/shift/internal/repository/db"
	"github.com/meigsy/shift/internal/service"
	"github.com/meigsy/shift/pkg/config"
	"github.com/meigsy/shift/pkg/middleware"
	"github.com/meigsy/shift/pkg/natsclient"
	"github.com/meigsy/shift/pkg/telemetry"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// ── OpenTelemetry ──────────────────────────────────────────────────────
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint != "" {
		tp, err := telemetry.InitTracer(context.Background(), "ingestion-gateway", otelEndpoint)
		if err != nil {
			logger.Error("failed to init OTel tracer", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
		mp, err := telemetry.InitMeterProvider(context.Background(), "ingestion-gateway", otelEndpoint)
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
		secretPath = "secret/data/shift/gateway"
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
	gcpProjectID := config.StringSecret(secrets, "GCP_PROJECT_ID", os.Getenv("GCP_PROJECT_ID"))
	gcpAPIKey := config.StringSecret(secrets, "GCP_API_KEY", os.Getenv("GCP_API_KEY"))
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
	logger.Info("connected to database (OTel-instrumented)")

	// ── NATS JetStream ─────────────────────────────────────────────────────
	natsClient, err := natsclient.NewClient(natsURL, logger)
	if err != nil {
		logger.Fatal("NATS initialization failed", zap.Error(err))
	}
	defer natsClient.Close()
	if err := natsClient.ProvisionStreams(); err != nil {
		logger.Fatal("NATS stream provisioning failed", zap.Error(err))
	}

	dedupStore, err := dedup.NewKVStore(natsClient)
	if err != nil {
		logger.Fatal("dedup bucket bind failed", zap.Error(err))
	}

	// ── Repository & Services ──────────────────────────────────────────────
	querier := db.New(pool)
	publisher := events.NewJetStreamPublisher(natsClient)
	defects := telemetry.NewDefectCounter(logger)

	ingestionSvc := service.NewIngestionService(querier, dedupStore, publisher, defects, logger)
	interactionSvc := service.NewInteractionService(querier, defects, logger)
	contextSvc := service.NewContextService(querier, defects, logger)
	accountSvc := service.NewAccountService(querier, logger)

	verifier := auth.NewIdentityPlatformVerifier(gcpProjectID)
	apple := auth.NewAppleAuthenticator(appleBundleID, gcpAPIKey)

	// ── HTTP Server ────────────────────────────────────────────────────────
	e := echo.New()
	e.HideBanner = true
	e.Use(otelecho.Middleware("ingestion-gateway"))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("HTTP request",
				zap.String("URI", v.URI),
				zap.Int("status", v.Status),
			)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(middleware.NullToEmptyArray())

	authMW := handler.BearerAuth(verifier, logger)
	handler.NewHealthHandler().Register(e)
	handler.NewAuthHandler(apple, accountSvc, logger).Register(e)
	handler.NewIngestHandler(ingestionSvc, logger).Register(e, authMW)
	handler.NewInteractionHandler(interactionSvc, logger).Register(e, authMW)
	handler.NewContextHandler(contextSvc, logger).Register(e, authMW)
	handler.NewAccountHandler(accountSvc, logger).Register(e, authMW)

	go func() {
		logger.Info("ingestion-gateway HTTP server listening on :8080")
		if err := e.Start(":8080"); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failure", zap.Error(err))
		}
	}()

	// ── Graceful Shutdown ──────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Echo shutdown error", zap.Error(err))
	}
	logger.Info("ingestion-gateway shut down cleanly")
}
