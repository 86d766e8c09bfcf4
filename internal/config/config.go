package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	Log       LogConfig
	CORS      CORSConfig
	Engine    EngineConfig
	Series    SeriesConfig
	Lock      LockConfig
	Authority AuthorityConfig
	Worker    WorkerConfig
	PubSub    PubSubConfig
	S3        S3Config
	Email     EmailConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
	// Storage selects the document store: postgres or memory.
	Storage string `mapstructure:"storage"`
	// Fixtures is a YAML customer/product file loaded in memory mode.
	Fixtures string `mapstructure:"fixtures"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addrs    []string `mapstructure:"addrs"`
	Password string   `mapstructure:"password"`
	DB       int      `mapstructure:"db"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// EngineConfig holds the fiscal computation settings.
type EngineConfig struct {
	HomeCurrency         string          `mapstructure:"home_currency"`
	TaxRate              decimal.Decimal `mapstructure:"tax_rate"`
	OverpaymentTolerance decimal.Decimal `mapstructure:"overpayment_tolerance"`
	AllocationAttempts   int             `mapstructure:"allocation_attempts"`
	AllocationBackoff    time.Duration   `mapstructure:"allocation_backoff"`
	VoidWindowDays       int             `mapstructure:"void_window_days"`
	IssuerRUC            string          `mapstructure:"issuer_ruc"`
}

// SeriesConfig selects the series counter store.
type SeriesConfig struct {
	Store string `mapstructure:"store"` // postgres, redis or memory
}

// LockConfig selects and tunes the per-document locker.
type LockConfig struct {
	Provider   string        `mapstructure:"provider"` // redis or memory
	TTL        time.Duration `mapstructure:"ttl"`
	RetryEvery time.Duration `mapstructure:"retry_every"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// AuthorityConfig holds the tax authority client settings.
type AuthorityConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Token       string `mapstructure:"token"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
	MaxRetries  int    `mapstructure:"max_retries"`
}

// WorkerConfig holds submission worker settings.
type WorkerConfig struct {
	Enabled            bool `mapstructure:"enabled"`
	PollIntervalSecs   int  `mapstructure:"poll_interval_secs"`
	BatchSize          int  `mapstructure:"batch_size"`
	Concurrency        int  `mapstructure:"concurrency"`
	RefusalBackoffSecs int  `mapstructure:"refusal_backoff_secs"`
}

// PubSubConfig holds the resolution subscription settings.
type PubSubConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ProjectID    string `mapstructure:"project_id"`
	Subscription string `mapstructure:"subscription"`
}

// S3Config holds AWS S3 settings for the artifact archive.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// EmailConfig holds email delivery settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// Load reads configuration from environment variables with the FISCAL_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FISCAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.storage", "postgres")
	v.SetDefault("server.fixtures", "")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "fiscal")
	v.SetDefault("db.password", "fiscal_secret")
	v.SetDefault("db.name", "fiscal_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Redis defaults
	v.SetDefault("redis.addrs", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "text")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Engine defaults
	v.SetDefault("engine.home_currency", "PEN")
	v.SetDefault("engine.tax_rate", "0.18")
	v.SetDefault("engine.overpayment_tolerance", "0")
	v.SetDefault("engine.allocation_attempts", 5)
	v.SetDefault("engine.allocation_backoff", "10ms")
	v.SetDefault("engine.void_window_days", 7)
	v.SetDefault("engine.issuer_ruc", "")

	v.SetDefault("series.store", "postgres")

	// Lock defaults
	v.SetDefault("lock.provider", "redis")
	v.SetDefault("lock.ttl", "30s")
	v.SetDefault("lock.retry_every", "50ms")
	v.SetDefault("lock.max_retries", 100)

	// Authority defaults
	v.SetDefault("authority.base_url", "http://localhost:9090")
	v.SetDefault("authority.token", "")
	v.SetDefault("authority.timeout_secs", 30)
	v.SetDefault("authority.max_retries", 2)

	// Worker defaults
	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.poll_interval_secs", 10)
	v.SetDefault("worker.batch_size", 20)
	v.SetDefault("worker.concurrency", 5)
	v.SetDefault("worker.refusal_backoff_secs", 3600)

	// Pub/Sub defaults
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.subscription", "authority-resolutions")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "fiscal-artifacts")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 900)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@fiscal.local")
	v.SetDefault("email.from_name", "Billing")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                  "FISCAL_SERVER_PORT",
		"server.read_timeout":          "FISCAL_SERVER_READ_TIMEOUT",
		"server.write_timeout":         "FISCAL_SERVER_WRITE_TIMEOUT",
		"server.environment":           "FISCAL_SERVER_ENVIRONMENT",
		"server.storage":               "FISCAL_SERVER_STORAGE",
		"server.fixtures":              "FISCAL_SERVER_FIXTURES",
		"db.host":                      "FISCAL_DB_HOST",
		"db.port":                      "FISCAL_DB_PORT",
		"db.user":                      "FISCAL_DB_USER",
		"db.password":                  "FISCAL_DB_PASSWORD",
		"db.name":                      "FISCAL_DB_NAME",
		"db.sslmode":                   "FISCAL_DB_SSLMODE",
		"db.max_open":                  "FISCAL_DB_MAX_OPEN",
		"db.max_idle":                  "FISCAL_DB_MAX_IDLE",
		"redis.addrs":                  "FISCAL_REDIS_ADDRS",
		"redis.password":               "FISCAL_REDIS_PASSWORD",
		"redis.db":                     "FISCAL_REDIS_DB",
		"log.level":                    "FISCAL_LOG_LEVEL",
		"log.format":                   "FISCAL_LOG_FORMAT",
		"cors.allowed_origins":         "FISCAL_CORS_ALLOWED_ORIGINS",
		"engine.home_currency":         "FISCAL_ENGINE_HOME_CURRENCY",
		"engine.tax_rate":              "FISCAL_ENGINE_TAX_RATE",
		"engine.overpayment_tolerance": "FISCAL_ENGINE_OVERPAYMENT_TOLERANCE",
		"engine.allocation_attempts":   "FISCAL_ENGINE_ALLOCATION_ATTEMPTS",
		"engine.allocation_backoff":    "FISCAL_ENGINE_ALLOCATION_BACKOFF",
		"engine.void_window_days":      "FISCAL_ENGINE_VOID_WINDOW_DAYS",
		"engine.issuer_ruc":            "FISCAL_ENGINE_ISSUER_RUC",
		"series.store":                 "FISCAL_SERIES_STORE",
		"lock.provider":                "FISCAL_LOCK_PROVIDER",
		"lock.ttl":                     "FISCAL_LOCK_TTL",
		"lock.retry_every":             "FISCAL_LOCK_RETRY_EVERY",
		"lock.max_retries":             "FISCAL_LOCK_MAX_RETRIES",
		"authority.base_url":           "FISCAL_AUTHORITY_BASE_URL",
		"authority.token":              "FISCAL_AUTHORITY_TOKEN",
		"authority.timeout_secs":       "FISCAL_AUTHORITY_TIMEOUT_SECS",
		"authority.max_retries":        "FISCAL_AUTHORITY_MAX_RETRIES",
		"worker.enabled":               "FISCAL_WORKER_ENABLED",
		"worker.poll_interval_secs":    "FISCAL_WORKER_POLL_INTERVAL_SECS",
		"worker.batch_size":            "FISCAL_WORKER_BATCH_SIZE",
		"worker.concurrency":           "FISCAL_WORKER_CONCURRENCY",
		"pubsub.enabled":               "FISCAL_PUBSUB_ENABLED",
		"pubsub.project_id":            "FISCAL_PUBSUB_PROJECT_ID",
		"pubsub.subscription":          "FISCAL_PUBSUB_SUBSCRIPTION",
		"s3.region":                    "FISCAL_S3_REGION",
		"s3.bucket":                    "FISCAL_S3_BUCKET",
		"s3.endpoint":                  "FISCAL_S3_ENDPOINT",
		"s3.access_key":                "FISCAL_S3_ACCESS_KEY",
		"s3.secret_key":                "FISCAL_S3_SECRET_KEY",
		"s3.presign_expiry":            "FISCAL_S3_PRESIGN_EXPIRY",
		"email.provider":               "FISCAL_EMAIL_PROVIDER",
		"email.region":                 "FISCAL_EMAIL_REGION",
		"email.from_address":           "FISCAL_EMAIL_FROM_ADDRESS",
		"email.from_name":              "FISCAL_EMAIL_FROM_NAME",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Platforms that inject PORT win unless FISCAL_SERVER_PORT is set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("FISCAL_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
		Storage:      v.GetString("server.storage"),
		Fixtures:     v.GetString("server.fixtures"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Redis = RedisConfig{
		Addrs:    splitList(v.GetString("redis.addrs")),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}

	taxRate, err := decimal.NewFromString(v.GetString("engine.tax_rate"))
	if err != nil {
		return nil, fmt.Errorf("parsing engine.tax_rate: %w", err)
	}
	tolerance, err := decimal.NewFromString(v.GetString("engine.overpayment_tolerance"))
	if err != nil {
		return nil, fmt.Errorf("parsing engine.overpayment_tolerance: %w", err)
	}
	cfg.Engine = EngineConfig{
		HomeCurrency:         strings.ToUpper(v.GetString("engine.home_currency")),
		TaxRate:              taxRate,
		OverpaymentTolerance: tolerance,
		AllocationAttempts:   v.GetInt("engine.allocation_attempts"),
		AllocationBackoff:    v.GetDuration("engine.allocation_backoff"),
		VoidWindowDays:       v.GetInt("engine.void_window_days"),
		IssuerRUC:            v.GetString("engine.issuer_ruc"),
	}
	cfg.Series = SeriesConfig{Store: v.GetString("series.store")}
	cfg.Lock = LockConfig{
		Provider:   v.GetString("lock.provider"),
		TTL:        v.GetDuration("lock.ttl"),
		RetryEvery: v.GetDuration("lock.retry_every"),
		MaxRetries: v.GetInt("lock.max_retries"),
	}
	cfg.Authority = AuthorityConfig{
		BaseURL:     v.GetString("authority.base_url"),
		Token:       v.GetString("authority.token"),
		TimeoutSecs: v.GetInt("authority.timeout_secs"),
		MaxRetries:  v.GetInt("authority.max_retries"),
	}
	cfg.Worker = WorkerConfig{
		Enabled:            v.GetBool("worker.enabled"),
		PollIntervalSecs:   v.GetInt("worker.poll_interval_secs"),
		BatchSize:          v.GetInt("worker.batch_size"),
		Concurrency:        v.GetInt("worker.concurrency"),
		RefusalBackoffSecs: v.GetInt("worker.refusal_backoff_secs"),
	}
	cfg.PubSub = PubSubConfig{
		Enabled:      v.GetBool("pubsub.enabled"),
		ProjectID:    v.GetString("pubsub.project_id"),
		Subscription: v.GetString("pubsub.subscription"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Engine.HomeCurrency) != 3 {
		return fmt.Errorf("engine.home_currency must be a 3-letter code, got %q", c.Engine.HomeCurrency)
	}
	if c.Engine.TaxRate.IsNegative() || c.Engine.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("engine.tax_rate must be in [0, 1), got %s", c.Engine.TaxRate)
	}
	if c.Engine.OverpaymentTolerance.IsNegative() {
		return fmt.Errorf("engine.overpayment_tolerance must not be negative")
	}
	switch c.Series.Store {
	case "postgres", "redis", "memory":
	default:
		return fmt.Errorf("series.store must be postgres, redis or memory, got %q", c.Series.Store)
	}
	switch c.Lock.Provider {
	case "redis", "memory":
	default:
		return fmt.Errorf("lock.provider must be redis or memory, got %q", c.Lock.Provider)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
