package config

const (
	EnvPrefix = "ETHOPARTS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "ETHOPARTS_APP_ENV"
	EnvPort                   = "ETHOPARTS_APP_PORT"
	EnvLogLevel               = "ETHOPARTS_LOG_LEVEL"
	EnvDBDSN                  = "ETHOPARTS_DB_DSN"
	EnvDBHost                 = "ETHOPARTS_DB_HOST"
	EnvDBUser                 = "ETHOPARTS_DB_USER"
	EnvDBName                 = "ETHOPARTS_DB_NAME"
	EnvDBPassword             = "ETHOPARTS_DB_PASSWORD"
	EnvUseSQLite              = "ETHOPARTS_USE_SQLITE"
	EnvRedisURL               = "ETHOPARTS_REDIS_URL"
	EnvJWTSecret              = "ETHOPARTS_JWT_SECRET"
	EnvJWTIssuer              = "ETHOPARTS_JWT_ISSUER"
	EnvJWTExpMins             = "ETHOPARTS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "ETHOPARTS_REFRESH_TOKEN_TTL_MINUTES"
	EnvCommissionRate         = "ETHOPARTS_COMMISSION_RATE"
	EnvCommissionDueHours     = "ETHOPARTS_COMMISSION_DUE_HOURS"
	EnvCronInterval           = "ETHOPARTS_CRON_INTERVAL"
	EnvGCPProjectID           = "ETHOPARTS_GCP_PROJECT_ID"
	EnvPubSubDomainTopic      = "ETHOPARTS_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubAnalyticsSub     = "ETHOPARTS_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvCORSAllowedOrigins     = "ETHOPARTS_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
