package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pawmart/pawmart-backend/api/routes"
	"github.com/pawmart/pawmart-backend/internal/catalog"
	"github.com/pawmart/pawmart-backend/internal/ledger"
	"github.com/pawmart/pawmart-backend/internal/notifications"
	"github.com/pawmart/pawmart-backend/internal/orders"
	"github.com/pawmart/pawmart-backend/internal/payments"
	"github.com/pawmart/pawmart-backend/internal/refunds"
	"github.com/pawmart/pawmart-backend/internal/wallet"
	"github.com/pawmart/pawmart-backend/pkg/config"
	"github.com/pawmart/pawmart-backend/pkg/db"
	"github.com/pawmart/pawmart-backend/pkg/logger"
	"github.com/pawmart/pawmart-backend/pkg/metrics"
	"github.com/pawmart/pawmart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	ledgerStore, err := ledger.NewStore(ledger.NewRepository(dbClient.DB()), dbClient, ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger store", err)
		os.Exit(1)
	}

	adapter := payments.NewSimulatedAdapter(cfg.Payments)

	walletSvc, err := wallet.NewService(ledgerStore, adapter, logg, ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	refundCoord, err := refunds.NewCoordinator(walletSvc, logg, ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create refund coordinator", err)
		os.Exit(1)
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	events := notifications.NewPublisher(redisClient, logg)

	orderSvc, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		dbClient,
		catalogSvc,
		walletSvc,
		adapter,
		refundCoord,
		events,
		logg,
		ledgerMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DBPinger:     dbClient,
			RedisClient:  redisClient,
			OrderService: orderSvc,
			WalletSvc:    walletSvc,
			LedgerStore:  ledgerStore,
			Registry:     registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
