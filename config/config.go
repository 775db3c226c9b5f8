package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the complete application configuration. Values come from the
// YAML file first, then environment variables override (secrets like API
// keys usually arrive via env).
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Quotes  QuotesConfig  `yaml:"quotes"`
	Trading TradingConfig `yaml:"trading"`
	Events  EventsConfig  `yaml:"events"`
}

type ServerConfig struct {
	Addr       string `yaml:"addr" env:"ADDR"`
	CORSOrigin string `yaml:"cors_origin" env:"CORS_ORIGIN"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"` // "json" or "console"
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER"` // "sqlite", "postgres", or "memory"
	Path   string `yaml:"path" env:"STORAGE_PATH"`     // sqlite file
	URL    string `yaml:"url" env:"DATABASE_URL"`      // postgres DSN
}

type QuotesConfig struct {
	// Providers is the fallback order. Known names: "finnhub", "alphavantage".
	Providers       []string      `yaml:"providers" env:"QUOTE_PROVIDERS"`
	AlphaVantageKey string        `yaml:"alphavantage_key" env:"ALPHAVANTAGE_API_KEY"`
	FinnhubToken    string        `yaml:"finnhub_token" env:"FINNHUB_TOKEN"`
	CacheTTL        time.Duration `yaml:"cache_ttl" env:"QUOTE_CACHE_TTL"`
}

type TradingConfig struct {
	// OpeningBalance is the cash a new account starts with.
	OpeningBalance string `yaml:"opening_balance" env:"OPENING_BALANCE"`
}

type EventsConfig struct {
	Enabled bool     `yaml:"enabled" env:"EVENTS_ENABLED"`
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`
}

// Default returns a configuration that works out of the box for local use.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":8080",
			CORSOrigin: "*",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "./stockdash.sqlite",
		},
		Quotes: QuotesConfig{
			Providers: []string{"finnhub", "alphavantage"},
			CacheTTL:  60 * time.Second,
		},
		Trading: TradingConfig{
			OpeningBalance: "10000.00",
		},
		Events: EventsConfig{
			Topic: "trades.executed",
		},
	}
}

// Load builds the config: defaults, then the YAML file at path (if any),
// then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the parts that would otherwise fail at an awkward time.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Storage.URL == "" {
			return fmt.Errorf("storage.url is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	if len(c.Quotes.Providers) == 0 {
		return fmt.Errorf("quotes.providers must list at least one provider")
	}
	// Credentials are checked lazily when providers are built: commands
	// that never fetch quotes should work without API keys.
	for _, p := range c.Quotes.Providers {
		switch p {
		case "alphavantage", "finnhub":
		default:
			return fmt.Errorf("unknown quote provider %q", p)
		}
	}

	opening, err := decimal.NewFromString(c.Trading.OpeningBalance)
	if err != nil {
		return fmt.Errorf("trading.opening_balance: %w", err)
	}
	if !opening.IsPositive() {
		return fmt.Errorf("trading.opening_balance must be positive")
	}

	if c.Events.Enabled {
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("events.brokers is required when events are enabled")
		}
		if c.Events.Topic == "" {
			return fmt.Errorf("events.topic is required when events are enabled")
		}
	}
	return nil
}

// OpeningBalance returns the validated opening balance as a decimal.
func (c *Config) OpeningBalance() decimal.Decimal {
	return decimal.RequireFromString(c.Trading.OpeningBalance)
}
