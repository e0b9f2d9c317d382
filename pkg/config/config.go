package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Payments PaymentsConfig
	Orders   OrdersConfig
	Transfer TransferConfig
	Cron     CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PAWMART_APP_ENV" default:"dev"`
	Port         string `envconfig:"PAWMART_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PAWMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAWMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"PAWMART_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"PAWMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAWMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAWMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAWMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAWMART_REDIS_URL"`
	Address      string        `envconfig:"PAWMART_REDIS_ADDR"`
	Password     string        `envconfig:"PAWMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAWMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAWMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAWMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAWMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAWMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAWMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type PaymentsConfig struct {
	// Simulated adapter knobs; a real rail integration would replace these.
	AuthorizeTimeout time.Duration `envconfig:"PAWMART_PAYMENTS_AUTHORIZE_TIMEOUT" default:"10s"`
}

type OrdersConfig struct {
	// PendingPaymentTTL is how long an order may sit unpaid before the cron
	// worker cancels it.
	PendingPaymentTTL time.Duration `envconfig:"PAWMART_ORDERS_PENDING_PAYMENT_TTL" default:"24h"`
}

type TransferConfig struct {
	PollInterval time.Duration `envconfig:"PAWMART_TRANSFER_POLL_INTERVAL" default:"30s"`
	// SettleAfter is the minimum age of a pending withdrawal before the
	// worker asks the gateway for its outcome.
	SettleAfter time.Duration `envconfig:"PAWMART_TRANSFER_SETTLE_AFTER" default:"1m"`
	BatchSize   int           `envconfig:"PAWMART_TRANSFER_BATCH_SIZE" default:"50"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"PAWMART_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"PAWMART_CRON_LOCK_TTL" default:"55m"`
}
