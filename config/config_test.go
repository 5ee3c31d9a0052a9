package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeTempConfig writes content to a temporary YAML file and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

const minimalConfig = `gateway:
  name: "TestGateway"
  version: "1.0"
risk:
  max_order_usd: 500
  max_position_usd: 1000
market_data:
  stream_probe_timeout: 1500ms
venues:
  bybit:
    testnet: true
    rate_limit:
      requests_per_second: 3
`

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Gateway.Name != "TestGateway" {
		t.Errorf("unexpected name: %s", cfg.Gateway.Name)
	}
	if cfg.Risk.MaxOrderNotional != 500 || cfg.Risk.MaxPositionNotional != 1000 {
		t.Errorf("unexpected risk limits: %+v", cfg.Risk)
	}
	if cfg.MarketData.StreamProbeTimeout != 1500*time.Millisecond {
		t.Errorf("unexpected probe timeout: %v", cfg.MarketData.StreamProbeTimeout)
	}
	if !cfg.Venues.Bybit.Testnet || cfg.Venues.Bybit.RateLimit.RequestsPerSecond != 3 {
		t.Errorf("unexpected bybit config: %+v", cfg.Venues.Bybit)
	}
	if cfg.Venues.Bybit.RateLimit.BurstSize != 5 {
		t.Errorf("default burst lost: %d", cfg.Venues.Bybit.RateLimit.BurstSize)
	}
	if cfg.Logging.Format != "json" || cfg.Reader.Timeout != 10*time.Second {
		t.Errorf("defaults not applied: logging=%+v reader=%+v", cfg.Logging, cfg.Reader)
	}
}

func TestLoadConfigDefaultsRiskLimits(t *testing.T) {
	path := writeTempConfig(t, "gateway:\n  name: g\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Risk.MaxOrderNotional != 2000 || cfg.Risk.MaxPositionNotional != 10000 {
		t.Errorf("unexpected default risk limits: %+v", cfg.Risk)
	}
	if cfg.MarketData.StreamProbeTimeout != 2*time.Second {
		t.Errorf("unexpected default probe timeout: %v", cfg.MarketData.StreamProbeTimeout)
	}
}

func TestLoadConfigEnvOverlay(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", " key ")
	t.Setenv("BINANCE_API_SECRET", "secret")
	t.Setenv("KUCOIN_API_PASSPHRASE", "phrase")
	t.Setenv("MAX_ORDER_USD", "750")

	cfg, err := LoadConfig(writeTempConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Venues.Binance.APIKey != "key" || cfg.Venues.Binance.APISecret != "secret" {
		t.Errorf("binance credentials not overlaid: %+v", cfg.Venues.Binance)
	}
	if !cfg.Venues.Binance.HasCredentials() || cfg.Venues.Bybit.HasCredentials() {
		t.Errorf("unexpected HasCredentials result")
	}
	if cfg.Venues.Kucoin.APIPassphrase != "phrase" {
		t.Errorf("kucoin passphrase not overlaid: %q", cfg.Venues.Kucoin.APIPassphrase)
	}
	if cfg.Risk.MaxOrderNotional != 750 {
		t.Errorf("risk limit not overlaid: %v", cfg.Risk.MaxOrderNotional)
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"order above aggregate", func(c *Config) { c.Risk.MaxOrderNotional = 20000 }, "must not exceed"},
		{"zero order limit", func(c *Config) { c.Risk.MaxOrderNotional = 0 }, "max_order_usd"},
		{"negative probe", func(c *Config) { c.MarketData.StreamProbeTimeout = -time.Second }, "stream_probe_timeout"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"half credentials", func(c *Config) { c.Venues.Bybit.APIKey = "k" }, "venues.bybit"},
		{"negative concurrency", func(c *Config) { c.Portfolio.MaxConcurrency = -1 }, "max_concurrency"},
	}
	for _, c := range cases {
		cfg := Default()
		c.mutate(&cfg)
		err := validateConfig(&cfg)
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Errorf("%s: expected error containing %q, got %v", c.name, c.want, err)
		}
	}

	cfg := Default()
	if err := validateConfig(&cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestAppEnvironmentAliases(t *testing.T) {
	t.Setenv("APP_ENV", "Prod")
	if got := AppEnvironment(); got != EnvironmentProduction {
		t.Fatalf("AppEnvironment() = %q", got)
	}
	if !IsProductionLike(AppEnvironment()) {
		t.Fatalf("production should be production-like")
	}
	t.Setenv("APP_ENV", "")
	if got := AppEnvironment(); got != EnvironmentDevelopment {
		t.Fatalf("AppEnvironment() = %q", got)
	}
}

func TestResolvePathKeepsExplicitPath(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	if got := ResolvePath("/tmp/custom.yml"); got != "/tmp/custom.yml" {
		t.Fatalf("ResolvePath changed explicit path: %s", got)
	}
	if got := ResolvePath(""); got != DefaultPath {
		t.Fatalf("ResolvePath(\"\") = %s, want %s", got, DefaultPath)
	}
}
