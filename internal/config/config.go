package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Segments  SegmentConfig   `yaml:"segments" mapstructure:"segments"`
	Regions   RegionConfig    `yaml:"regions" mapstructure:"regions"`
	Share     ShareConfig     `yaml:"share" mapstructure:"share"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// SourceConfig configures the transactional source the bronze layer ingests from.
type SourceConfig struct {
	Driver       string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL  string `yaml:"database_url" mapstructure:"database_url"`
	Username     string `yaml:"username" mapstructure:"username"`
	Password     string `yaml:"password" mapstructure:"password"`
	Table        string `yaml:"table" mapstructure:"table"`
	SourceSystem string `yaml:"source_system" mapstructure:"source_system"`
}

// Validate checks that the source is usable before any stage runs.
// Missing credentials abort the run up front rather than mid-pipeline.
func (c SourceConfig) Validate() error {
	switch c.Driver {
	case "postgres":
		if c.DatabaseURL == "" {
			return eris.New("config: source.database_url is required")
		}
		if c.Username == "" || c.Password == "" {
			return eris.New("config: source.username and source.password are required (set SCOUT_SOURCE_USERNAME / SCOUT_SOURCE_PASSWORD)")
		}
	case "sqlite":
		if c.DatabaseURL == "" {
			return eris.New("config: source.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown source driver %q (valid: postgres, sqlite)", c.Driver)
	}
	if c.Table == "" {
		return eris.New("config: source.table is required")
	}
	return nil
}

// WarehouseConfig configures the DuckDB-backed medallion warehouse.
type WarehouseConfig struct {
	// Path is the DuckDB catalog location (a file path, or "" for in-memory).
	Path string `yaml:"path" mapstructure:"path"`
	// Root is the base data location; layers live at <root>/bronze,
	// <root>/silver, <root>/gold.
	Root string `yaml:"root" mapstructure:"root"`
	// Object-store credentials for s3-style roots. Unused for local roots.
	StorageKeyID  string `yaml:"storage_key_id" mapstructure:"storage_key_id"`
	StorageSecret string `yaml:"storage_secret" mapstructure:"storage_secret"`
	StorageRegion string `yaml:"storage_region" mapstructure:"storage_region"`
}

// SegmentConfig holds the customer segmentation thresholds.
type SegmentConfig struct {
	HighValueSpend   float64 `yaml:"high_value_spend" mapstructure:"high_value_spend"`
	MediumValueSpend float64 `yaml:"medium_value_spend" mapstructure:"medium_value_spend"`
	FrequentVisits   int64   `yaml:"frequent_visits" mapstructure:"frequent_visits"`
	RegularVisits    int64   `yaml:"regular_visits" mapstructure:"regular_visits"`
}

// RegionConfig lets deployments extend the region code lookup table.
// Entries here are merged over the built-in defaults.
type RegionConfig struct {
	Names map[string]string `yaml:"names" mapstructure:"names"`
}

// ShareConfig configures the gold-layer sharing facade.
type ShareConfig struct {
	ConfigPath    string   `yaml:"config_path" mapstructure:"config_path"`
	Port          int      `yaml:"port" mapstructure:"port"`
	BearerTokens  []string `yaml:"bearer_tokens" mapstructure:"bearer_tokens"`
	RatePerSecond float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst     int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	MaxQueryRows  int      `yaml:"max_query_rows" mapstructure:"max_query_rows"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credential keys default to empty so AutomaticEnv can
	// populate them during Unmarshal.
	v.SetDefault("source.driver", "postgres")
	v.SetDefault("source.table", "transactions")
	v.SetDefault("source.source_system", "project_scout")
	v.SetDefault("source.database_url", "")
	v.SetDefault("source.username", "")
	v.SetDefault("source.password", "")
	v.SetDefault("warehouse.storage_key_id", "")
	v.SetDefault("warehouse.storage_secret", "")
	v.SetDefault("warehouse.storage_region", "")
	v.SetDefault("warehouse.path", "scout.duckdb")
	v.SetDefault("warehouse.root", "data")
	v.SetDefault("segments.high_value_spend", 10000)
	v.SetDefault("segments.medium_value_spend", 5000)
	v.SetDefault("segments.frequent_visits", 20)
	v.SetDefault("segments.regular_visits", 5)
	v.SetDefault("share.config_path", "shares.yaml")
	v.SetDefault("share.port", 8080)
	v.SetDefault("share.rate_per_second", 10)
	v.SetDefault("share.rate_burst", 20)
	v.SetDefault("share.max_query_rows", 10000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
