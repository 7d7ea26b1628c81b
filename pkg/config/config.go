package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App             AppConfig
	Service         ServiceConfig
	DB              DBConfig
	Redis           RedisConfig
	JWT             JWTConfig
	Password        PasswordConfig
	AuthRateLimit   AuthRateLimitConfig
	PublicRateLimit PublicRateLimitConfig
	CORS            CORSConfig
	FeatureFlags    FeatureFlagsConfig
	Commission      CommissionConfig
	Cron            CronConfig
	Eventing        EventingConfig
	GCP             GCPConfig
	PubSub          PubSubConfig
	BigQuery        BigQueryConfig
	Outbox          OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Commission.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ETHOPARTS_APP_ENV" required:"true"`
	Port         string `envconfig:"ETHOPARTS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ETHOPARTS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ETHOPARTS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"ETHOPARTS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ETHOPARTS_DB_DSN"`
	Driver string `envconfig:"ETHOPARTS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ETHOPARTS_DB_HOST"`
	LegacyPort     int    `envconfig:"ETHOPARTS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ETHOPARTS_DB_USER"`
	LegacyPassword string `envconfig:"ETHOPARTS_DB_PASSWORD"`
	LegacyName     string `envconfig:"ETHOPARTS_DB_NAME"`
	LegacySSLMode  string `envconfig:"ETHOPARTS_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"ETHOPARTS_SQLITE_PATH" default:"ethoparts.db"`

	MaxOpenConns    int           `envconfig:"ETHOPARTS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ETHOPARTS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ETHOPARTS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ETHOPARTS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ETHOPARTS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ETHOPARTS_REDIS_ADDR"`
	Password     string        `envconfig:"ETHOPARTS_REDIS_PASSWORD"`
	DB           int           `envconfig:"ETHOPARTS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ETHOPARTS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ETHOPARTS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ETHOPARTS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ETHOPARTS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ETHOPARTS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ETHOPARTS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ETHOPARTS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"ETHOPARTS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"ETHOPARTS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ETHOPARTS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ETHOPARTS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ETHOPARTS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ETHOPARTS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ETHOPARTS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"ETHOPARTS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"ETHOPARTS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"ETHOPARTS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"ETHOPARTS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"ETHOPARTS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"ETHOPARTS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// PublicRateLimitConfig bounds unauthenticated lookups such as order tracking.
type PublicRateLimitConfig struct {
	RequestsPerSecond float64       `envconfig:"ETHOPARTS_PUBLIC_RATE_LIMIT_RPS" default:"2"`
	Burst             int           `envconfig:"ETHOPARTS_PUBLIC_RATE_LIMIT_BURST" default:"10"`
	VisitorTTL        time.Duration `envconfig:"ETHOPARTS_PUBLIC_RATE_LIMIT_VISITOR_TTL" default:"10m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ETHOPARTS_CORS_ALLOWED_ORIGINS" default:"*"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ETHOPARTS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ETHOPARTS_AUTO_MIGRATE" default:"false"`
}

type CommissionConfig struct {
	Rate     string `envconfig:"ETHOPARTS_COMMISSION_RATE" default:"0.10"`
	DueHours int    `envconfig:"ETHOPARTS_COMMISSION_DUE_HOURS" default:"48"`
}

// RateDecimal parses the configured rate. Load has already validated it.
func (c CommissionConfig) RateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.Rate))
	if err != nil {
		return decimal.RequireFromString("0.10")
	}
	return rate
}

func (c CommissionConfig) DueAfter() time.Duration {
	return time.Duration(c.DueHours) * time.Hour
}

func (c CommissionConfig) validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.Rate))
	if err != nil {
		return fmt.Errorf("%s: %w", EnvCommissionRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be between 0 and 1", EnvCommissionRate)
	}
	if c.DueHours <= 0 {
		return fmt.Errorf("%s must be positive", EnvCommissionDueHours)
	}
	return nil
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"ETHOPARTS_CRON_INTERVAL" default:"1h"`
	LockTTL         time.Duration `envconfig:"ETHOPARTS_CRON_LOCK_TTL" default:"10m"`
	OutboxRetention time.Duration `envconfig:"ETHOPARTS_CRON_OUTBOX_RETENTION" default:"720h"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"ETHOPARTS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ETHOPARTS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ETHOPARTS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ETHOPARTS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic           string `envconfig:"ETHOPARTS_PUBSUB_DOMAIN_TOPIC" default:"ethoparts-domain-events"`
	AnalyticsSubscription string `envconfig:"ETHOPARTS_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"ethoparts-analytics"`
}

type BigQueryConfig struct {
	Dataset                string `envconfig:"ETHOPARTS_BIGQUERY_DATASET" default:"ethoparts"`
	MarketplaceEventsTable string `envconfig:"ETHOPARTS_BIGQUERY_MARKETPLACE_TABLE" default:"marketplace_events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ETHOPARTS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ETHOPARTS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ETHOPARTS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
