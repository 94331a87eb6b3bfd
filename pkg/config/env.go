package config

const (
	EnvPrefix = "PAWCIRCLE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	SessionDriverMemory = "memory"
	SessionDriverRedis  = "redis"
)

const (
	EnvAppEnv      = "PAWCIRCLE_APP_ENV"
	EnvPort        = "PAWCIRCLE_APP_PORT"
	EnvDBDSN       = "PAWCIRCLE_DB_DSN"
	EnvDBHost      = "PAWCIRCLE_DB_HOST"
	EnvDBUser      = "PAWCIRCLE_DB_USER"
	EnvDBName      = "PAWCIRCLE_DB_NAME"
	EnvRedisURL    = "PAWCIRCLE_REDIS_URL"
	EnvJWTSecret   = "PAWCIRCLE_JWT_SECRET"
	EnvJWTIssuer   = "PAWCIRCLE_JWT_ISSUER"
	EnvJWTExpMins  = "PAWCIRCLE_JWT_EXPIRATION_MINUTES"
	EnvUseSQLite   = "PAWCIRCLE_USE_SQLITE"
	EnvCartMaxQty  = "PAWCIRCLE_CART_MAX_QTY"
	EnvSessionTTL  = "PAWCIRCLE_SESSION_TTL"
	EnvExpressFee  = "PAWCIRCLE_PRICING_EXPRESS_FEE"
	EnvOrdersTopic = "PAWCIRCLE_PUBSUB_ORDERS_TOPIC"

	EnvOrdersSubscription = "PAWCIRCLE_PUBSUB_ORDERS_SUBSCRIPTION"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
