package config

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv    = "RENTMATE_APP_ENV"
	EnvPort      = "RENTMATE_APP_PORT"
	EnvLogLevel  = "RENTMATE_LOG_LEVEL"
	EnvDBDSN     = "RENTMATE_DB_DSN"
	EnvDBDriver  = "RENTMATE_DB_DRIVER"
	EnvDBHost    = "RENTMATE_DB_HOST"
	EnvDBUser    = "RENTMATE_DB_USER"
	EnvDBName    = "RENTMATE_DB_NAME"
	EnvDBPass    = "RENTMATE_DB_PASSWORD"
	EnvRedisURL  = "RENTMATE_REDIS_URL"
	EnvJWTSecret = "RENTMATE_JWT_SECRET"
	EnvJWTIssuer = "RENTMATE_JWT_ISSUER"

	EnvGCPProjectID               = "RENTMATE_GCP_PROJECT_ID"
	EnvPubSubNotificationsEnabled = "RENTMATE_PUBSUB_NOTIFICATIONS_ENABLED"
	EnvPubSubNotificationTopic    = "RENTMATE_PUBSUB_NOTIFICATION_TOPIC"
	EnvNotificationsQueueSize     = "RENTMATE_NOTIFICATIONS_QUEUE_SIZE"
	EnvNotificationsRetentionDays = "RENTMATE_NOTIFICATIONS_RETENTION_DAYS"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
