package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pawmart/pawmart-backend/api/controllers"
	"github.com/pawmart/pawmart-backend/api/middleware"
	"github.com/pawmart/pawmart-backend/internal/ledger"
	"github.com/pawmart/pawmart-backend/internal/orders"
	"github.com/pawmart/pawmart-backend/internal/wallet"
	"github.com/pawmart/pawmart-backend/pkg/config"
	"github.com/pawmart/pawmart-backend/pkg/db"
	"github.com/pawmart/pawmart-backend/pkg/logger"
	pkgredis "github.com/pawmart/pawmart-backend/pkg/redis"
)

// Deps carries everything the router needs wired in.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DBPinger     db.Pinger
	RedisClient  *pkgredis.Client
	OrderService orders.Service
	WalletSvc    wallet.Service
	LedgerStore  ledger.Store
	Registry     prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.DBPinger, deps.RedisClient))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(deps.Logger))
		if deps.RedisClient != nil {
			r.Use(middleware.Idempotency(deps.RedisClient, deps.Logger))
		}

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.OrderService, deps.Logger))
			r.Post("/", controllers.PlaceOrder(deps.OrderService, deps.Logger))
			r.Get("/{orderID}", controllers.GetOrder(deps.OrderService, deps.Logger))
			r.Get("/{orderID}/transactions", controllers.OrderTransactions(deps.OrderService, deps.LedgerStore, deps.Logger))
			r.Post("/{orderID}/status", controllers.AdvanceOrderStatus(deps.OrderService, deps.Logger))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(deps.OrderService, deps.Logger))
			r.Post("/{orderID}/retry-payment", controllers.RetryOrderPayment(deps.OrderService, deps.Logger))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/balance", controllers.WalletBalance(deps.WalletSvc, deps.Logger))
			r.Get("/transactions", controllers.WalletLedger(deps.WalletSvc, deps.Logger))
			r.Post("/top-up", controllers.WalletTopUp(deps.WalletSvc, deps.Logger))
			r.Post("/transfers", controllers.WalletTransferOut(deps.WalletSvc, deps.Logger))
		})
	})

	return r
}
