package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file used when -config is not given.
const DefaultPath = "config/config.yml"

// Config is the gateway configuration. It is built once at startup and
// passed down by pointer; nothing mutates it after LoadConfig returns.
type Config struct {
	Gateway    GatewayConfig    `yaml:"gateway"`
	Logging    LoggingConfig    `yaml:"logging"`
	Reader     ReaderConfig     `yaml:"reader"`
	Risk       RiskConfig       `yaml:"risk"`
	MarketData MarketDataConfig `yaml:"market_data"`
	Portfolio  PortfolioConfig  `yaml:"portfolio"`
	Venues     VenuesConfig     `yaml:"venues"`
}

type GatewayConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ReaderConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// RiskConfig holds the pre-trade limits in quote currency (USD).
type RiskConfig struct {
	MaxOrderNotional    float64 `yaml:"max_order_usd" env:"MAX_ORDER_USD"`
	MaxPositionNotional float64 `yaml:"max_position_usd" env:"MAX_POSITION_USD"`
}

type MarketDataConfig struct {
	StreamProbeTimeout time.Duration `yaml:"stream_probe_timeout"`
	OrderBookDepth     int           `yaml:"order_book_depth"`
}

type PortfolioConfig struct {
	// MaxConcurrency bounds the per-venue fan-out. Zero means unbounded.
	MaxConcurrency int `yaml:"max_concurrency"`
}

type VenuesConfig struct {
	Binance VenueConfig `yaml:"binance" envPrefix:"BINANCE_"`
	Bybit   VenueConfig `yaml:"bybit" envPrefix:"BYBIT_"`
	Kucoin  VenueConfig `yaml:"kucoin" envPrefix:"KUCOIN_"`
}

// VenueConfig configures one venue connector. Credentials normally come from
// the environment rather than the YAML file.
type VenueConfig struct {
	BaseURL        string               `yaml:"base_url"`
	WSURL          string               `yaml:"ws_url"`
	Testnet        bool                 `yaml:"testnet"`
	LocalIP        string               `yaml:"local_ip"`
	APIKey         string               `yaml:"api_key" env:"API_KEY"`
	APISecret      string               `yaml:"api_secret" env:"API_SECRET"`
	APIPassphrase  string               `yaml:"api_passphrase" env:"API_PASSPHRASE"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type LoggingConfig struct {
	Level          string           `yaml:"level"`
	Format         string           `yaml:"format"`
	Output         string           `yaml:"output"`
	MaxAge         int              `yaml:"max_age"`
	ReportInterval time.Duration    `yaml:"report_interval"`
	CloudWatch     CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Region          string `yaml:"region" env:"AWS_REGION"`
	Namespace       string `yaml:"namespace"`
	Dashboard       string `yaml:"dashboard"`
	AccessKeyID     string `yaml:"access_key_id" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
}

// Default returns a configuration with every optional field set.
func Default() Config {
	return Config{
		Gateway: GatewayConfig{Name: "atlas", Version: "dev"},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Reader:  ReaderConfig{Timeout: 10 * time.Second, UserAgent: "atlas-gateway"},
		Risk: RiskConfig{
			MaxOrderNotional:    2000,
			MaxPositionNotional: 10000,
		},
		MarketData: MarketDataConfig{StreamProbeTimeout: 2 * time.Second, OrderBookDepth: 20},
		Venues: VenuesConfig{
			Binance: defaultVenue(),
			Bybit:   defaultVenue(),
			Kucoin:  defaultVenue(),
		},
	}
}

func defaultVenue() VenueConfig {
	return VenueConfig{
		RateLimit: RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5},
		ConnectionPool: ConnectionPoolConfig{
			MaxIdleConns:    10,
			MaxConnsPerHost: 10,
			IdleConnTimeout: 90 * time.Second,
		},
	}
}

// LoadConfig reads the YAML file at path on top of Default, overlays
// credentials and limits from the environment, and validates the result.
// An empty path resolves through APP_ENV.
func LoadConfig(path string) (*Config, error) {
	path = ResolvePath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	for _, v := range []*VenueConfig{&config.Venues.Binance, &config.Venues.Bybit, &config.Venues.Kucoin} {
		v.APIKey = strings.TrimSpace(v.APIKey)
		v.APISecret = strings.TrimSpace(v.APISecret)
		v.APIPassphrase = strings.TrimSpace(v.APIPassphrase)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Gateway.Name == "" {
		return errors.New("gateway.name is required")
	}

	if cfg.Risk.MaxOrderNotional <= 0 {
		return errors.New("risk.max_order_usd must be greater than 0")
	}
	if cfg.Risk.MaxPositionNotional <= 0 {
		return errors.New("risk.max_position_usd must be greater than 0")
	}
	if cfg.Risk.MaxOrderNotional > cfg.Risk.MaxPositionNotional {
		return fmt.Errorf("risk.max_order_usd (%g) must not exceed risk.max_position_usd (%g)",
			cfg.Risk.MaxOrderNotional, cfg.Risk.MaxPositionNotional)
	}

	if cfg.MarketData.StreamProbeTimeout < 0 {
		return errors.New("market_data.stream_probe_timeout must not be negative")
	}
	if cfg.MarketData.OrderBookDepth < 0 {
		return errors.New("market_data.order_book_depth must not be negative")
	}
	if cfg.Portfolio.MaxConcurrency < 0 {
		return errors.New("portfolio.max_concurrency must not be negative")
	}
	if cfg.Reader.Timeout <= 0 {
		return errors.New("reader.timeout must be greater than 0")
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format '%s' is invalid", cfg.Logging.Format)
	}

	if cfg.Logging.CloudWatch.Enabled && cfg.Logging.CloudWatch.Namespace == "" {
		return errors.New("logging.cloudwatch.namespace is required when cloudwatch is enabled")
	}

	for name, v := range map[string]VenueConfig{
		"binance": cfg.Venues.Binance,
		"bybit":   cfg.Venues.Bybit,
		"kucoin":  cfg.Venues.Kucoin,
	} {
		if v.RateLimit.RequestsPerSecond < 0 || v.RateLimit.BurstSize < 0 {
			return fmt.Errorf("venues.%s.rate_limit must not be negative", name)
		}
		if (v.APIKey == "") != (v.APISecret == "") {
			return fmt.Errorf("venues.%s requires both api key and secret", name)
		}
	}

	return nil
}

// HasCredentials reports whether the venue can sign private requests.
func (v VenueConfig) HasCredentials() bool {
	return v.APIKey != "" && v.APISecret != ""
}
