package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "STOREFRONT_APP_ENV"
	EnvPort         = "STOREFRONT_APP_PORT"
	EnvLogLevel     = "STOREFRONT_LOG_LEVEL"
	EnvLogWarnStack = "STOREFRONT_LOG_WARN_STACK"

	EnvStoreCurrency          = "STOREFRONT_STORE_CURRENCY"
	EnvStoreTaxEnabled        = "STOREFRONT_STORE_TAX_ENABLED"
	EnvStoreTaxRate           = "STOREFRONT_STORE_TAX_RATE"
	EnvStoreFlatShipping      = "STOREFRONT_STORE_FLAT_SHIPPING_RATE"
	EnvStoreFeeName           = "STOREFRONT_STORE_ADDITIONAL_FEE_NAME"
	EnvStoreFeeAmount         = "STOREFRONT_STORE_ADDITIONAL_FEE_AMOUNT"
	EnvStoreB2BMinimumOrder   = "STOREFRONT_STORE_B2B_MINIMUM_ORDER"
	EnvStoreSettingsOverrides = "STOREFRONT_STORE_SETTINGS_OVERRIDES"

	EnvDocStoreDriver = "STOREFRONT_DOCSTORE_DRIVER"

	EnvDBDSN        = "STOREFRONT_DB_DSN"
	EnvDBHost       = "STOREFRONT_DB_HOST"
	EnvDBPort       = "STOREFRONT_DB_PORT"
	EnvDBUser       = "STOREFRONT_DB_USER"
	EnvDBPassword   = "STOREFRONT_DB_PASSWORD"
	EnvDBName       = "STOREFRONT_DB_NAME"
	EnvDBSSLMode    = "STOREFRONT_DB_SSLMODE"
	EnvSQLitePath   = "STOREFRONT_SQLITE_PATH"
	EnvAutoMigrate  = "STOREFRONT_AUTO_MIGRATE"
	EnvMongoURI     = "STOREFRONT_MONGO_URI"
	EnvMongoDB      = "STOREFRONT_MONGO_DATABASE"
	EnvMongoTimeout = "STOREFRONT_MONGO_CONNECT_TIMEOUT"

	EnvRedisURL     = "STOREFRONT_REDIS_URL"
	EnvRedisCartTTL = "STOREFRONT_REDIS_CART_TTL"

	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvGCPProjectID        = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic   = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvWriteQueueWorkers   = "STOREFRONT_WRITE_QUEUE_WORKERS"
	EnvWriteQueueAttempts  = "STOREFRONT_WRITE_QUEUE_MAX_ATTEMPTS"
	EnvSyncPollInterval    = "STOREFRONT_SYNC_POLL_INTERVAL"
	EnvIdempotencyTTL      = "STOREFRONT_IDEMPOTENCY_TTL"
	EnvCORSAllowedOrigins  = "STOREFRONT_CORS_ALLOWED_ORIGINS"
	EnvShutdownGracePeriod = "STOREFRONT_SHUTDOWN_GRACE_PERIOD"
)

var requiredEnvVars = []string{
	EnvAppEnv,
	EnvPort,
	EnvJWTSecret,
}

var legacyDBEnvVars = []string{
	EnvDBHost,
	EnvDBUser,
	EnvDBName,
}
