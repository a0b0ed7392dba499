package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptodash-backend/internal/domain"
	"github.com/spf13/viper"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	GRPCAddr    string            `mapstructure:"grpc_addr"`
	HTTPAddr    string            `mapstructure:"http_addr"`
	LogLevel    string            `mapstructure:"log_level"`
	LogFormat   string            `mapstructure:"log_format"`
	StoreDriver string            `mapstructure:"store_driver"`
	SQLitePath  string            `mapstructure:"sqlite_path"`
	PostgresDSN string            `mapstructure:"postgres_dsn"`
	SeedDemo    bool              `mapstructure:"seed_demo"`
	CORSOrigins []string          `mapstructure:"cors_origins"`
	Market      MarketConfig      `mapstructure:"market"`
	Rates       map[string]string `mapstructure:"rates"` // fiat code -> USD rate, defaults when empty
}

// MarketConfig configures the market feed and its refresh
type MarketConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	PerPage         int           `mapstructure:"per_page"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	RefreshSchedule string        `mapstructure:"refresh_schedule"`
}

// Load reads configuration from .env, the environment (CRYPTODASH_ prefix) and an
// optional YAML file. configFile may be empty; CRYPTODASH_CONFIG is used then.
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CRYPTODASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = v.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config", "")
	v.SetDefault("grpc_addr", ":8080")
	v.SetDefault("http_addr", ":8081")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("store_driver", DriverMemory)
	v.SetDefault("sqlite_path", "./data/cryptodash.db")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("seed_demo", false)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("market.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("market.api_key", "")
	v.SetDefault("market.per_page", 20)
	v.SetDefault("market.timeout", 10*time.Second)
	v.SetDefault("market.max_retries", 3)
	v.SetDefault("market.retry_delay", 2*time.Second)
	v.SetDefault("market.refresh_schedule", "@every 2m")
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.GRPCAddr == "" {
		return errors.New("grpc_addr is required")
	}
	if c.HTTPAddr == "" {
		return errors.New("http_addr is required")
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite_path is required for the sqlite store")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres_dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store_driver %q", c.StoreDriver)
	}

	if c.Market.PerPage <= 0 || c.Market.PerPage > 250 {
		return fmt.Errorf("market.per_page must be between 1 and 250, got %d", c.Market.PerPage)
	}
	if c.Market.Timeout <= 0 {
		return errors.New("market.timeout must be positive")
	}
	if c.Market.MaxRetries < 0 {
		return errors.New("market.max_retries cannot be negative")
	}
	if c.Market.RetryDelay <= 0 {
		return errors.New("market.retry_delay must be positive")
	}
	if c.Market.RefreshSchedule == "" {
		return errors.New("market.refresh_schedule is required")
	}

	if _, err := c.RateTable(); err != nil {
		return err
	}
	return nil
}

// RateTable builds the fiat conversion table from Rates.
// Without configured rates the built-in table is used; configured rates replace it
// entirely rather than merging.
func (c *Config) RateTable() (*domain.RateTable, error) {
	if len(c.Rates) == 0 {
		return domain.NewRateTable(domain.DefaultRates())
	}

	rates := make(map[string]decimal.Decimal, len(c.Rates))
	for code, raw := range c.Rates {
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", code, err)
		}
		rates[code] = rate
	}
	table, err := domain.NewRateTable(rates)
	if err != nil {
		return nil, fmt.Errorf("invalid rates: %w", err)
	}
	return table, nil
}
