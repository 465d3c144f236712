// Package config resolves service configuration from defaults, an optional
// YAML file, and DONORHUB_* environment variables, in that order.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"donorhub/pkg/domain"
)

const envPrefix = "DONORHUB"

type Config struct {
	Env         string            `mapstructure:"env"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Log         LogConfig         `mapstructure:"log"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Postgres    PostgresConfig    `mapstructure:"postgres"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Receipt     ReceiptConfig     `mapstructure:"receipt"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Valuation   map[string]string `mapstructure:"valuation"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Outbox      OutboxConfig      `mapstructure:"outbox"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
}

type HTTPConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StorageConfig struct {
	// Driver is "memory" or "postgres".
	Driver    string        `mapstructure:"driver"`
	TxTimeout time.Duration `mapstructure:"tx_timeout"`
}

type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

type ReceiptConfig struct {
	// Backend is "memory", "s3" or "gcs".
	Backend          string        `mapstructure:"backend"`
	Bucket           string        `mapstructure:"bucket"`
	Region           string        `mapstructure:"region"`
	Prefix           string        `mapstructure:"prefix"`
	RenderTimeout    time.Duration `mapstructure:"render_timeout"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
	Issuer           string        `mapstructure:"issuer"`
}

type AuthConfig struct {
	JWTSigningKey string `mapstructure:"jwt_signing_key"`
	Issuer        string `mapstructure:"issuer"`
}

type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

type IdempotencyConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_header_timeout", 5*time.Second)
	v.SetDefault("http.request_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.tx_timeout", 5*time.Second)
	v.SetDefault("postgres.max_open_conns", 20)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "donorhub.events")
	v.SetDefault("kafka.client_id", "donorhub")
	v.SetDefault("receipt.backend", "memory")
	v.SetDefault("receipt.prefix", "receipts")
	v.SetDefault("receipt.render_timeout", 5*time.Second)
	v.SetDefault("receipt.failure_threshold", 5)
	v.SetDefault("receipt.open_timeout", 30*time.Second)
	v.SetDefault("receipt.issuer", "DonorHub")
	v.SetDefault("auth.issuer", "donorhub")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", time.Minute)
	v.SetDefault("outbox.poll_interval", time.Second)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.max_attempts", 10)
	v.SetDefault("idempotency.ttl", 24*time.Hour)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sample_ratio", 0.1)
	for category, value := range DefaultValuation() {
		v.SetDefault("valuation."+strings.ToLower(string(category)), value.String())
	}
}

// DefaultValuation is the per-unit money-equivalent of each item category.
func DefaultValuation() map[domain.ContributionType]decimal.Decimal {
	return map[domain.ContributionType]decimal.Decimal{
		domain.ContributionFood:            decimal.NewFromInt(5),
		domain.ContributionClothing:        decimal.NewFromInt(10),
		domain.ContributionBooks:           decimal.NewFromInt(8),
		domain.ContributionToys:            decimal.NewFromInt(12),
		domain.ContributionMedicalSupplies: decimal.NewFromInt(15),
		domain.ContributionHygiene:         decimal.NewFromInt(4),
		domain.ContributionFurniture:       decimal.NewFromInt(60),
		domain.ContributionElectronics:     decimal.NewFromInt(80),
	}
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when storage.driver=postgres")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Receipt.Backend {
	case "memory":
	case "s3", "gcs":
		if c.Receipt.Bucket == "" {
			return fmt.Errorf("receipt.bucket is required for backend %s", c.Receipt.Backend)
		}
	default:
		return fmt.Errorf("unknown receipt.backend %q", c.Receipt.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if _, err := c.ValuationTable(); err != nil {
		return err
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ValuationTable parses the valuation section into per-category unit values.
func (c *Config) ValuationTable() (map[domain.ContributionType]decimal.Decimal, error) {
	table := DefaultValuation()
	for key, raw := range c.Valuation {
		category, err := domain.ParseContributionType(key)
		if err != nil || !category.IsItem() {
			return nil, fmt.Errorf("valuation: unknown item category %q", key)
		}
		value, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || value.IsNegative() || value.GreaterThan(domain.MaxUnitValue) {
			return nil, fmt.Errorf("valuation: invalid unit value %q for %s", raw, key)
		}
		table[category] = value
	}
	return table, nil
}
