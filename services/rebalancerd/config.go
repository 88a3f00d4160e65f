package rebalancerd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config drives the keeper daemon. Amounts and prices are decimal strings
// in 1e8 fixed point.
type Config struct {
	// NodeURL is the JSON-RPC endpoint of the vault daemon.
	NodeURL string `yaml:"nodeUrl"`
	// AuthToken authorises oracle_update calls. The REBALANCER_RPC_TOKEN
	// environment variable overrides it so the token can stay out of the
	// config file.
	AuthToken string `yaml:"authToken"`
	// MaintainerAddress is the oracle maintainer identity asserted on
	// updates.
	MaintainerAddress string `yaml:"maintainerAddress"`
	// IntervalSeconds is the pause between keeper passes.
	IntervalSeconds int `yaml:"intervalSeconds"`
	// RequestsPerSecond paces RPC calls within a pass.
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`

	PriceFeed PriceFeedConfig `yaml:"priceFeed"`

	// Owners lists accounts whose vaults the keeper rebalances every
	// pass; Vaults pins additional vault addresses directly.
	Owners []string `yaml:"owners"`
	Vaults []string `yaml:"vaults"`
}

// PriceFeedConfig points the keeper at a JSON price endpoint.
type PriceFeedConfig struct {
	URL string `yaml:"url"`
	// Field names the JSON key holding the price. Defaults to "price".
	Field string `yaml:"field"`
	// TimeoutSeconds bounds each fetch.
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if token := strings.TrimSpace(os.Getenv("REBALANCER_RPC_TOKEN")); token != "" {
		cfg.AuthToken = token
	}
	if strings.TrimSpace(cfg.NodeURL) == "" {
		return nil, fmt.Errorf("config: nodeUrl is required")
	}
	if strings.TrimSpace(cfg.MaintainerAddress) == "" {
		return nil, fmt.Errorf("config: maintainerAddress is required")
	}
	if strings.TrimSpace(cfg.PriceFeed.URL) == "" {
		return nil, fmt.Errorf("config: priceFeed.url is required")
	}
	if cfg.IntervalSeconds <= 0 {
		cfg.IntervalSeconds = 60
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if strings.TrimSpace(cfg.PriceFeed.Field) == "" {
		cfg.PriceFeed.Field = "price"
	}
	if cfg.PriceFeed.TimeoutSeconds <= 0 {
		cfg.PriceFeed.TimeoutSeconds = 10
	}
	return cfg, nil
}

// Interval returns the pass cadence as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
