package config

const EnvPrefix = "BAKERY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	OrderStoreSQL   = "sql"
	OrderStoreMongo = "mongo"
)

const (
	EnvAppEnv    = "BAKERY_APP_ENV"
	EnvPort      = "BAKERY_APP_PORT"
	EnvLogLevel  = "BAKERY_LOG_LEVEL"
	EnvClientURL = "BAKERY_CLIENT_URL"

	EnvDBDSN  = "BAKERY_DB_DSN"
	EnvDBHost = "BAKERY_DB_HOST"
	EnvDBUser = "BAKERY_DB_USER"
	EnvDBName = "BAKERY_DB_NAME"

	EnvMongoURI      = "BAKERY_MONGO_URI"
	EnvMongoDatabase = "BAKERY_MONGO_DATABASE"

	EnvRedisURL = "BAKERY_REDIS_URL"

	EnvJWTSecret              = "BAKERY_JWT_SECRET"
	EnvJWTIssuer              = "BAKERY_JWT_ISSUER"
	EnvJWTExpMins             = "BAKERY_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "BAKERY_REFRESH_TOKEN_TTL_MINUTES"

	EnvUseSQLite   = "BAKERY_USE_SQLITE"
	EnvAutoMigrate = "BAKERY_AUTO_MIGRATE"
	EnvOrderStore  = "BAKERY_ORDER_STORE"

	EnvSquareAccessToken = "BAKERY_SQUARE_ACCESS_TOKEN"
	EnvSquareAppID       = "BAKERY_SQUARE_APPLICATION_ID"
	EnvSquareLocationID  = "BAKERY_SQUARE_LOCATION_ID"
	EnvSquareEnv         = "BAKERY_SQUARE_ENV"

	EnvStoreTimezone = "BAKERY_STORE_TIMEZONE"
	EnvUploadsDir    = "BAKERY_UPLOADS_DIR"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
