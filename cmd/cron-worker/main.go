package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pawmart/pawmart-backend/internal/catalog"
	"github.com/pawmart/pawmart-backend/internal/cron"
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
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(registry)
	cronMetrics := metrics.NewCronJobMetrics(registry)

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

	lock, err := cron.NewRedisLock(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registryJobs := cron.NewRegistry()

	expiryJob, err := cron.NewPendingPaymentExpiryJob(orderSvc, cfg.Orders.PendingPaymentTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create expiry job", err)
		os.Exit(1)
	}
	auditJob, err := cron.NewLedgerAuditJob(ledgerStore, logg, ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit job", err)
		os.Exit(1)
	}
	for _, job := range []cron.Job{expiryJob, auditJob} {
		if err := registryJobs.Register(job); err != nil {
			logg.Error(context.Background(), "failed to register job", err)
			os.Exit(1)
		}
	}

	svc, err := cron.NewService(registryJobs, lock, cfg.Cron, logg, cronMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lctx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
	})
	logg.Info(lctx, "starting cron worker")

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(lctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(lctx, "cron worker stopped")
}
