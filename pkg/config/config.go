package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Cart         CartConfig
	Session      SessionConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	Chat         ChatConfig
	Jobs         JobsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	if cfg.Cart.UsesRedis() && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("%s or %s is required when cart storage is redis", EnvRedisURL, EnvRedisAddr)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"SHOPNEARBY_APP_ENV" required:"true"`
	Port         string   `envconfig:"SHOPNEARBY_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"SHOPNEARBY_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"SHOPNEARBY_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"SHOPNEARBY_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPNEARBY_DB_DSN" required:"true"`
	Driver string `envconfig:"SHOPNEARBY_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"SHOPNEARBY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPNEARBY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPNEARBY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPNEARBY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (d DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(d.Driver), DBDriverSQLite)
}

func (d DBConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(d.Driver)) {
	case DBDriverPostgres, DBDriverSQLite:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvDBDriver, DBDriverPostgres, DBDriverSQLite)
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPNEARBY_REDIS_URL"`
	Address      string        `envconfig:"SHOPNEARBY_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPNEARBY_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPNEARBY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPNEARBY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPNEARBY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPNEARBY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPNEARBY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPNEARBY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CartConfig carries the pricing constants and persistence knobs of the cart store.
type CartConfig struct {
	MaxQty         int           `envconfig:"SHOPNEARBY_CART_MAX_QTY" default:"5"`
	DeliveryFee    string        `envconfig:"SHOPNEARBY_CART_DELIVERY_FEE" default:"199"`
	TaxRate        string        `envconfig:"SHOPNEARBY_CART_TAX_RATE" default:"0.08"`
	Currency       string        `envconfig:"SHOPNEARBY_CART_CURRENCY" default:"INR"`
	QuantityPolicy string        `envconfig:"SHOPNEARBY_CART_QUANTITY_POLICY" default:"reject"`
	Storage        string        `envconfig:"SHOPNEARBY_CART_STORAGE" default:"redis"`
	PersistTTL     time.Duration `envconfig:"SHOPNEARBY_CART_PERSIST_TTL" default:"720h"`
	PersistTimeout time.Duration `envconfig:"SHOPNEARBY_CART_PERSIST_TIMEOUT" default:"250ms"`
	SessionIdleTTL time.Duration `envconfig:"SHOPNEARBY_CART_SESSION_IDLE_TTL" default:"30m"`
}

// DeliveryFeeAmount parses the configured flat delivery fee.
func (c CartConfig) DeliveryFeeAmount() decimal.Decimal {
	fee, err := decimal.NewFromString(strings.TrimSpace(c.DeliveryFee))
	if err != nil {
		return decimal.Zero
	}
	return fee
}

// TaxRateValue parses the configured tax rate as a fraction (0.08 == 8%).
func (c CartConfig) TaxRateValue() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

// UsesRedis reports whether carts are persisted to redis.
func (c CartConfig) UsesRedis() bool {
	return strings.EqualFold(strings.TrimSpace(c.Storage), CartStorageRedis)
}

func (c CartConfig) validate() error {
	if c.MaxQty < 1 {
		return fmt.Errorf("%s must be at least 1", EnvCartMaxQty)
	}
	fee, err := decimal.NewFromString(strings.TrimSpace(c.DeliveryFee))
	if err != nil || fee.IsNegative() {
		return fmt.Errorf("%s must be a non-negative amount", EnvCartDeliveryFee)
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil || rate.IsNegative() {
		return fmt.Errorf("%s must be a non-negative fraction", EnvCartTaxRate)
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage)) {
	case CartStorageRedis, CartStorageMemory:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvCartStorage, CartStorageRedis, CartStorageMemory)
	}
	return nil
}

type SessionConfig struct {
	Secret     string        `envconfig:"SHOPNEARBY_SESSION_SECRET" required:"true"`
	Issuer     string        `envconfig:"SHOPNEARBY_SESSION_ISSUER" default:"shopnearby"`
	TTL        time.Duration `envconfig:"SHOPNEARBY_SESSION_TTL" default:"720h"`
	CookieName string        `envconfig:"SHOPNEARBY_SESSION_COOKIE" default:"sn_cart"`
}

type StripeConfig struct {
	APIKey           string        `envconfig:"SHOPNEARBY_STRIPE_API_KEY"`
	Secret           string        `envconfig:"SHOPNEARBY_STRIPE_SECRET"`
	Env              string        `envconfig:"SHOPNEARBY_STRIPE_ENV" default:"test"`
	WebhookTolerance time.Duration `envconfig:"SHOPNEARBY_STRIPE_WEBHOOK_TOLERANCE" default:"5m"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// Enabled reports whether card payments can be wired.
func (s StripeConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// CheckoutConfig bounds how long payment sessions hold the cart lock.
type CheckoutConfig struct {
	PendingTTL   time.Duration `envconfig:"SHOPNEARBY_CHECKOUT_PENDING_TTL" default:"15m"`
	Retain       time.Duration `envconfig:"SHOPNEARBY_CHECKOUT_RETAIN" default:"1h"`
	AwaitTimeout time.Duration `envconfig:"SHOPNEARBY_CHECKOUT_AWAIT_TIMEOUT" default:"30s"`
}

type JobsConfig struct {
	Interval time.Duration `envconfig:"SHOPNEARBY_JOBS_INTERVAL" default:"1m"`
}

type ChatConfig struct {
	RedisRelay   bool   `envconfig:"SHOPNEARBY_CHAT_REDIS_RELAY" default:"false"`
	Channel      string `envconfig:"SHOPNEARBY_CHAT_CHANNEL" default:"chat"`
	HistoryLimit int    `envconfig:"SHOPNEARBY_CHAT_HISTORY_LIMIT" default:"200"`
	AutoReply    string `envconfig:"SHOPNEARBY_CHAT_AUTO_REPLY" default:"Thanks for your message! Our support team will get back to you soon."`

	IdleTTL time.Duration `envconfig:"SHOPNEARBY_CHAT_IDLE_TTL" default:"24h"`

	SupportKey string `envconfig:"SHOPNEARBY_CHAT_SUPPORT_KEY"`

	RateWindow       time.Duration `envconfig:"SHOPNEARBY_CHAT_RATE_WINDOW" default:"1m"`
	RateIPLimit      int           `envconfig:"SHOPNEARBY_CHAT_RATE_IP_LIMIT" default:"60"`
	RateSessionLimit int           `envconfig:"SHOPNEARBY_CHAT_RATE_SESSION_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHOPNEARBY_AUTO_MIGRATE" default:"false"`
}
