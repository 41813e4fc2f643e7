package config

const (
	EnvPrefix = "DEALDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "DEALDESK_APP_ENV"
	EnvPort         = "DEALDESK_APP_PORT"
	EnvLogLevel     = "DEALDESK_LOG_LEVEL"
	EnvLogWarnStack = "DEALDESK_LOG_WARN_STACK"
	EnvCORSOrigins  = "DEALDESK_CORS_ORIGINS"
	EnvShutdown     = "DEALDESK_SHUTDOWN_TIMEOUT"

	EnvDBDSN      = "DEALDESK_DB_DSN"
	EnvDBDriver   = "DEALDESK_DB_DRIVER"
	EnvDBHost     = "DEALDESK_DB_HOST"
	EnvDBPort     = "DEALDESK_DB_PORT"
	EnvDBUser     = "DEALDESK_DB_USER"
	EnvDBPassword = "DEALDESK_DB_PASSWORD"
	EnvDBName     = "DEALDESK_DB_NAME"
	EnvDBSSLMode  = "DEALDESK_DB_SSLMODE"

	EnvRedisURL  = "DEALDESK_REDIS_URL"
	EnvRedisAddr = "DEALDESK_REDIS_ADDR"

	EnvUseSQLite   = "DEALDESK_USE_SQLITE"
	EnvAutoMigrate = "DEALDESK_AUTO_MIGRATE"

	EnvDealAdapter     = "DEALDESK_DEAL_ADAPTER"
	EnvDealTaxRate     = "DEALDESK_DEAL_TAX_RATE"
	EnvDealTimezone    = "DEALDESK_DEAL_TIMEZONE"
	EnvDealSaveLockTTL = "DEALDESK_DEAL_SAVE_LOCK_TTL"

	EnvGCPProjectID      = "DEALDESK_GCP_PROJECT_ID"
	EnvPubSubDealTopic   = "DEALDESK_PUBSUB_DEAL_TOPIC"
	EnvOutboxEnabled     = "DEALDESK_OUTBOX_ENABLED"
	EnvOutboxBatchSize   = "DEALDESK_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxMaxAttempts = "DEALDESK_OUTBOX_MAX_ATTEMPTS"

	// DealAdapterNormalized and DealAdapterLegacy select the draft adapter strategy.
	DealAdapterNormalized = "normalized"
	DealAdapterLegacy     = "legacy"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
