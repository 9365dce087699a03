package config

// EnvPrefix is passed to envconfig; individual fields carry explicit
// TENANTRY_-prefixed tags so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "TENANTRY_APP_ENV"
	EnvPort     = "TENANTRY_APP_PORT"
	EnvRedisURL = "TENANTRY_REDIS_URL"

	EnvDBDSN  = "TENANTRY_DB_DSN"
	EnvDBHost = "TENANTRY_DB_HOST"
	EnvDBUser = "TENANTRY_DB_USER"
	EnvDBName = "TENANTRY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
