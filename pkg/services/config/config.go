package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/emr-cost/pkg/services/retry"
	"github.com/spf13/viper"
)

const envPrefix = "EMRCOST"

type Config struct {
	Region  string        `mapstructure:"region"`
	Profile string        `mapstructure:"profile"`
	Pricing PricingConfig `mapstructure:"pricing"`
	Spot    SpotConfig    `mapstructure:"spot"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Export  ExportConfig  `mapstructure:"export"`
	Sync    SyncConfig    `mapstructure:"sync"`
}

type PricingConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	ProductDescription string `mapstructure:"product_description"`
}

type SpotConfig struct {
	// GapTolerance is the largest accepted distance between consecutive spot
	// price samples and the staleness bound of cached series.
	GapTolerance time.Duration `mapstructure:"gap_tolerance"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Factor         float64       `mapstructure:"factor"`
}

type StorageConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type ExportConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// SyncConfig drives the background job of the web server that saves the cost
// of newly created clusters. It needs storage.dsn.
type SyncConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Lookback      time.Duration `mapstructure:"lookback"`
	BatchInterval time.Duration `mapstructure:"batch_interval"`
	SleepInterval time.Duration `mapstructure:"sleep_interval"`
	// MaxBatchAttempts bounds how often a failing batch is retried before it is skipped.
	MaxBatchAttempts int `mapstructure:"max_batch_attempts"`
}

// Policy converts the settings into a retry policy for AWS server faults.
func (r RetryConfig) Policy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = r.MaxAttempts
	p.InitialBackoff = r.InitialBackoff
	p.MaxBackoff = r.MaxBackoff
	p.Factor = r.Factor
	return p
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("region", "")
	v.SetDefault("profile", "")
	v.SetDefault("pricing.base_url", "https://pricing.us-east-1.amazonaws.com")
	v.SetDefault("pricing.product_description", "Linux/UNIX (Amazon VPC)")
	v.SetDefault("spot.gap_tolerance", "25h")
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_backoff", "1s")
	v.SetDefault("retry.max_backoff", "7s")
	v.SetDefault("retry.factor", 2.0)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("export.bucket", "")
	v.SetDefault("export.prefix", "emr-cost")
	v.SetDefault("sync.enabled", false)
	v.SetDefault("sync.lookback", "168h")
	v.SetDefault("sync.batch_interval", "24h")
	v.SetDefault("sync.sleep_interval", "10m")
	v.SetDefault("sync.max_batch_attempts", 5)
}

// Load reads the optional YAML file at path, then EMRCOST_* environment
// variables (EMRCOST_SPOT_GAP_TOLERANCE for spot.gap_tolerance) on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Spot.GapTolerance <= 0 {
		errs = append(errs, fmt.Errorf("spot.gap_tolerance must be positive, got %s", c.Spot.GapTolerance))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.InitialBackoff < 0 || c.Retry.MaxBackoff < 0 {
		errs = append(errs, errors.New("retry backoffs must not be negative"))
	}
	if c.Retry.MaxBackoff > 0 && c.Retry.InitialBackoff > c.Retry.MaxBackoff {
		errs = append(errs, fmt.Errorf("retry.initial_backoff %s exceeds retry.max_backoff %s",
			c.Retry.InitialBackoff, c.Retry.MaxBackoff))
	}
	if c.Retry.Factor < 1 {
		errs = append(errs, fmt.Errorf("retry.factor must be at least 1, got %g", c.Retry.Factor))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Pricing.BaseURL == "" {
		errs = append(errs, errors.New("pricing.base_url is required"))
	}
	if c.Sync.Enabled {
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("sync.enabled requires storage.dsn"))
		}
		if c.Sync.BatchInterval <= 0 || c.Sync.SleepInterval <= 0 || c.Sync.Lookback < 0 {
			errs = append(errs, errors.New("sync intervals must be positive"))
		}
		if c.Sync.MaxBatchAttempts < 1 {
			errs = append(errs, errors.New("sync.max_batch_attempts must be at least 1"))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
