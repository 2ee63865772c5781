package config

const EnvPrefix = "SHOPNEARBY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	CartStorageRedis  = "redis"
	CartStorageMemory = "memory"
)

const (
	EnvAppEnv   = "SHOPNEARBY_APP_ENV"
	EnvPort     = "SHOPNEARBY_APP_PORT"
	EnvLogLevel = "SHOPNEARBY_LOG_LEVEL"

	EnvDBDSN    = "SHOPNEARBY_DB_DSN"
	EnvDBDriver = "SHOPNEARBY_DB_DRIVER"

	EnvRedisURL  = "SHOPNEARBY_REDIS_URL"
	EnvRedisAddr = "SHOPNEARBY_REDIS_ADDR"

	EnvCartMaxQty         = "SHOPNEARBY_CART_MAX_QTY"
	EnvCartDeliveryFee    = "SHOPNEARBY_CART_DELIVERY_FEE"
	EnvCartTaxRate        = "SHOPNEARBY_CART_TAX_RATE"
	EnvCartQuantityPolicy = "SHOPNEARBY_CART_QUANTITY_POLICY"
	EnvCartStorage        = "SHOPNEARBY_CART_STORAGE"

	EnvSessionSecret = "SHOPNEARBY_SESSION_SECRET"

	EnvStripeAPIKey = "SHOPNEARBY_STRIPE_API_KEY"
	EnvStripeSecret = "SHOPNEARBY_STRIPE_SECRET"
)
