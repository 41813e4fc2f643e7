package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Deals        DealsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs error
	if !c.FeatureFlags.UseSQLite {
		errs = multierr.Append(errs, c.DB.ensureDSN())
	} else if c.App.IsProd() {
		errs = multierr.Append(errs, fmt.Errorf("%s is not allowed in %s", EnvUseSQLite, AppEnvProd))
	} else if strings.TrimSpace(c.DB.DSN) == "" {
		c.DB.DSN = "file:dealdesk.db?_foreign_keys=on"
	}
	errs = multierr.Append(errs, c.Deals.validate())
	errs = multierr.Append(errs, c.Outbox.validate())
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"DEALDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"DEALDESK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"DEALDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DEALDESK_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma separated allow list; empty allows the local dev origins.
	CORSOrigins     []string      `envconfig:"DEALDESK_CORS_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"DEALDESK_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DEALDESK_DB_DSN"`
	Driver string `envconfig:"DEALDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DEALDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"DEALDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DEALDESK_DB_USER"`
	LegacyPassword string `envconfig:"DEALDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"DEALDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"DEALDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DEALDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DEALDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DEALDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DEALDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional: leaving both URL and address empty disables the
// cross-instance save lock and the idempotency middleware.
type RedisConfig struct {
	URL          string        `envconfig:"DEALDESK_REDIS_URL"`
	Address      string        `envconfig:"DEALDESK_REDIS_ADDR"`
	Password     string        `envconfig:"DEALDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"DEALDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DEALDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DEALDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DEALDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DEALDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DEALDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DEALDESK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DEALDESK_AUTO_MIGRATE" default:"false"`
}

type DealsConfig struct {
	Adapter     string        `envconfig:"DEALDESK_DEAL_ADAPTER" default:"normalized"`
	TaxRate     string        `envconfig:"DEALDESK_DEAL_TAX_RATE" default:"0"`
	Timezone    string        `envconfig:"DEALDESK_DEAL_TIMEZONE" default:"Local"`
	SaveLockTTL time.Duration `envconfig:"DEALDESK_DEAL_SAVE_LOCK_TTL" default:"30s"`
}

// AdapterName returns the normalized adapter strategy name.
func (d DealsConfig) AdapterName() string {
	name := strings.ToLower(strings.TrimSpace(d.Adapter))
	if name == "" {
		return DealAdapterNormalized
	}
	return name
}

// TaxRateDecimal parses the configured tax rate (e.g. "0.0825").
func (d DealsConfig) TaxRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(d.TaxRate))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

// Location resolves the timezone used for default promised dates.
func (d DealsConfig) Location() *time.Location {
	name := strings.TrimSpace(d.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

func (d DealsConfig) validate() error {
	var errs error
	switch d.AdapterName() {
	case DealAdapterNormalized, DealAdapterLegacy:
	default:
		errs = multierr.Append(errs, fmt.Errorf("%s must be %q or %q", EnvDealAdapter, DealAdapterNormalized, DealAdapterLegacy))
	}
	if raw := strings.TrimSpace(d.TaxRate); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", EnvDealTaxRate, err))
		} else if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			errs = multierr.Append(errs, fmt.Errorf("%s must be in [0, 1)", EnvDealTaxRate))
		}
	}
	if name := strings.TrimSpace(d.Timezone); name != "" && !strings.EqualFold(name, "local") {
		if _, err := time.LoadLocation(name); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", EnvDealTimezone, err))
		}
	}
	return errs
}

type GCPConfig struct {
	ProjectID string `envconfig:"DEALDESK_GCP_PROJECT_ID"`
}

// PubSubConfig names the topic deal events are published to.
type PubSubConfig struct {
	DealTopic string `envconfig:"DEALDESK_PUBSUB_DEAL_TOPIC" default:"dealdesk-deal-events"`
}

// OutboxConfig controls deal event emission and the publisher loop.
type OutboxConfig struct {
	Enabled        bool `envconfig:"DEALDESK_OUTBOX_ENABLED" default:"false"`
	BatchSize      int  `envconfig:"DEALDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int  `envconfig:"DEALDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int  `envconfig:"DEALDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (o OutboxConfig) validate() error {
	var errs error
	if o.BatchSize < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be negative", EnvOutboxBatchSize))
	}
	if o.MaxAttempts < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be negative", EnvOutboxMaxAttempts))
	}
	return errs
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"DEALDESK_CRON_INTERVAL" default:"1h"`
	LockTTL             time.Duration `envconfig:"DEALDESK_CRON_LOCK_TTL" default:"55m"`
	OutboxRetentionDays int           `envconfig:"DEALDESK_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays    int           `envconfig:"DEALDESK_CRON_DLQ_RETENTION_DAYS" default:"90"`
	LineItemGCBatch     int           `envconfig:"DEALDESK_CRON_LINE_ITEM_GC_BATCH" default:"500"`
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
