package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Cron         CronConfig
	Notifier     NotifierConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TENANTRY_APP_ENV" required:"true"`
	Port         string `envconfig:"TENANTRY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TENANTRY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TENANTRY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TENANTRY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TENANTRY_DB_DSN"`
	Driver string `envconfig:"TENANTRY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TENANTRY_DB_HOST"`
	LegacyPort     int    `envconfig:"TENANTRY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TENANTRY_DB_USER"`
	LegacyPassword string `envconfig:"TENANTRY_DB_PASSWORD"`
	LegacyName     string `envconfig:"TENANTRY_DB_NAME"`
	LegacySSLMode  string `envconfig:"TENANTRY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TENANTRY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TENANTRY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TENANTRY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TENANTRY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TENANTRY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TENANTRY_REDIS_ADDR"`
	Password     string        `envconfig:"TENANTRY_REDIS_PASSWORD"`
	DB           int           `envconfig:"TENANTRY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TENANTRY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TENANTRY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TENANTRY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TENANTRY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TENANTRY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TENANTRY_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"TENANTRY_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"TENANTRY_CRON_LOCK_TTL" default:"25h"`
}

type NotifierConfig struct {
	PostmarkServerToken  string        `envconfig:"TENANTRY_POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string        `envconfig:"TENANTRY_POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string        `envconfig:"TENANTRY_NOTIFIER_FROM_EMAIL"`
	SupportEmail         string        `envconfig:"TENANTRY_NOTIFIER_SUPPORT_EMAIL"`
	SendTimeout          time.Duration `envconfig:"TENANTRY_NOTIFIER_SEND_TIMEOUT" default:"10s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TENANTRY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TENANTRY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TENANTRY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	AuditTopic string `envconfig:"TENANTRY_PUBSUB_AUDIT_TOPIC" default:"tn-billing-audit"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
