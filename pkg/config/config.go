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
	HTTP         HTTPConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Session      SessionConfig
	Cart         CartConfig
	Pricing      PricingConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Maintenance  MaintenanceConfig
	Worker       WorkerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PAWCIRCLE_APP_ENV" required:"true"`
	Port         string `envconfig:"PAWCIRCLE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PAWCIRCLE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAWCIRCLE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PAWCIRCLE_SERVICE_KIND" default:"api"`
}

type HTTPConfig struct {
	CORSOrigins     []string      `envconfig:"PAWCIRCLE_CORS_ORIGINS"`
	ReadTimeout     time.Duration `envconfig:"PAWCIRCLE_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"PAWCIRCLE_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"PAWCIRCLE_HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

type DBConfig struct {
	DSN    string `envconfig:"PAWCIRCLE_DB_DSN"`
	Driver string `envconfig:"PAWCIRCLE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PAWCIRCLE_DB_HOST"`
	Port     int    `envconfig:"PAWCIRCLE_DB_PORT" default:"5432"`
	User     string `envconfig:"PAWCIRCLE_DB_USER"`
	Password string `envconfig:"PAWCIRCLE_DB_PASSWORD"`
	Name     string `envconfig:"PAWCIRCLE_DB_NAME"`
	SSLMode  string `envconfig:"PAWCIRCLE_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"PAWCIRCLE_SQLITE_PATH" default:"pawcircle.db"`

	MaxOpenConns    int           `envconfig:"PAWCIRCLE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAWCIRCLE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAWCIRCLE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAWCIRCLE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQuery time.Duration `envconfig:"PAWCIRCLE_DB_SLOW_QUERY" default:"200ms"`
	TxRetries int           `envconfig:"PAWCIRCLE_DB_TX_RETRIES" default:"2"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAWCIRCLE_REDIS_URL"`
	Address      string        `envconfig:"PAWCIRCLE_REDIS_ADDR"`
	Password     string        `envconfig:"PAWCIRCLE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAWCIRCLE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAWCIRCLE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAWCIRCLE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAWCIRCLE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAWCIRCLE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAWCIRCLE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies HS256 bearer tokens. Audience is only checked when set.
type JWTConfig struct {
	Secret            string        `envconfig:"PAWCIRCLE_JWT_SECRET" required:"true"`
	Issuer            string        `envconfig:"PAWCIRCLE_JWT_ISSUER" required:"true"`
	Audience          string        `envconfig:"PAWCIRCLE_JWT_AUDIENCE"`
	ExpirationMinutes int           `envconfig:"PAWCIRCLE_JWT_EXPIRATION_MINUTES" default:"60"`
	Leeway            time.Duration `envconfig:"PAWCIRCLE_JWT_LEEWAY" default:"30s"`
}

// SessionConfig controls the per-user ephemeral store (applied promo, last order, cart view).
type SessionConfig struct {
	Driver string        `envconfig:"PAWCIRCLE_SESSION_DRIVER" default:"redis"`
	TTL    time.Duration `envconfig:"PAWCIRCLE_SESSION_TTL" default:"24h"`
}

// UsesMemory reports whether the in-process session store was requested.
func (s SessionConfig) UsesMemory() bool {
	return strings.EqualFold(strings.TrimSpace(s.Driver), SessionDriverMemory)
}

type CartConfig struct {
	MaxQuantity  int           `envconfig:"PAWCIRCLE_CART_MAX_QTY" default:"5"`
	MutationLock time.Duration `envconfig:"PAWCIRCLE_CART_MUTATION_LOCK_TTL" default:"10s"`
}

func (c CartConfig) validate() error {
	if c.MaxQuantity < 1 {
		return fmt.Errorf("%s must be at least 1", EnvCartMaxQty)
	}
	return nil
}

// PricingConfig holds the amounts the breakdown is computed with. Rates are decimal strings.
type PricingConfig struct {
	CGSTRate       string `envconfig:"PAWCIRCLE_PRICING_CGST_RATE" default:"0.09"`
	SGSTRate       string `envconfig:"PAWCIRCLE_PRICING_SGST_RATE" default:"0.09"`
	ExpressFee     string `envconfig:"PAWCIRCLE_PRICING_EXPRESS_FEE" default:"99"`
	Currency       string `envconfig:"PAWCIRCLE_PRICING_CURRENCY" default:"INR"`
	PromoTablePath string `envconfig:"PAWCIRCLE_PROMO_TABLE"`
}

// RateLimitConfig throttles promo code attempts per user and per client IP.
type RateLimitConfig struct {
	PromoWindow  time.Duration `envconfig:"PAWCIRCLE_PROMO_RATE_LIMIT_WINDOW" default:"1m"`
	PromoPerUser int           `envconfig:"PAWCIRCLE_PROMO_RATE_LIMIT_PER_USER" default:"10"`
	PromoPerIP   int           `envconfig:"PAWCIRCLE_PROMO_RATE_LIMIT_PER_IP" default:"30"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PAWCIRCLE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PAWCIRCLE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PAWCIRCLE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"PAWCIRCLE_PUBSUB_ORDERS_TOPIC" default:"pc-order-events"`
	OrdersSubscription string `envconfig:"PAWCIRCLE_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PAWCIRCLE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PAWCIRCLE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PAWCIRCLE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// MaintenanceConfig drives cmd/cron-worker retention jobs and the event consumer in cmd/worker.
type MaintenanceConfig struct {
	Interval                  time.Duration `envconfig:"PAWCIRCLE_CRON_INTERVAL" default:"24h"`
	JobTimeout                time.Duration `envconfig:"PAWCIRCLE_CRON_JOB_TIMEOUT" default:"10m"`
	OutboxRetentionDays       int           `envconfig:"PAWCIRCLE_OUTBOX_RETENTION_DAYS" default:"30"`
	NotificationRetentionDays int           `envconfig:"PAWCIRCLE_NOTIFICATION_RETENTION_DAYS" default:"90"`
	EventIdempotencyTTL       time.Duration `envconfig:"PAWCIRCLE_EVENT_IDEMPOTENCY_TTL" default:"168h"`
}

// WorkerConfig tunes cmd/worker. An empty MetricsAddr keeps the metrics listener off.
type WorkerConfig struct {
	MetricsAddr  string        `envconfig:"PAWCIRCLE_WORKER_METRICS_ADDR"`
	ReadyTimeout time.Duration `envconfig:"PAWCIRCLE_WORKER_READY_TIMEOUT" default:"30s"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
