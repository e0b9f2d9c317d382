package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pawmart/pawmart-backend/internal/ledger"
	"github.com/pawmart/pawmart-backend/internal/payments"
	"github.com/pawmart/pawmart-backend/internal/wallet"
	"github.com/pawmart/pawmart-backend/pkg/config"
	"github.com/pawmart/pawmart-backend/pkg/db"
	"github.com/pawmart/pawmart-backend/pkg/logger"
	"github.com/pawmart/pawmart-backend/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "transfer-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "transfer-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.NewRegistry())
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

	worker, err := wallet.NewWorker(ledgerStore, walletSvc, adapter, cfg.Transfer, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create transfer worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lctx := logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"poll_interval": cfg.Transfer.PollInterval.String(),
	})
	logg.Info(lctx, "starting transfer worker")

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(lctx, "transfer worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(lctx, "transfer worker stopped")
}
