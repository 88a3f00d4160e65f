package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"vaultbtc/crypto"
	"vaultbtc/native/lending"

	"github.com/BurntSushi/toml"
)

// Config is the top-level daemon configuration, persisted as TOML.
type Config struct {
	RPCAddress             string `toml:"RPCAddress"`
	DataDir                string `toml:"DataDir"`
	NetworkName            string `toml:"NetworkName"`
	Environment            string `toml:"Environment"`
	LogLevel               string `toml:"LogLevel"`
	LogFile                string `toml:"LogFile"`
	LogMaxSizeMB           int    `toml:"LogMaxSizeMB"`
	LogMaxBackups          int    `toml:"LogMaxBackups"`
	RPCAuthToken           string `toml:"RPCAuthToken"`
	MaintainerKeystorePath string `toml:"MaintainerKeystorePath"`
	// Paused lists module names refusing mutations at startup.
	Paused []string `toml:"Paused"`

	Faucet  FaucetConfig   `toml:"Faucet"`
	Lending lending.Params `toml:"Lending"`
	Genesis GenesisConfig  `toml:"Genesis"`
}

// FaucetConfig controls the devnet faucet. Amount is a decimal string in
// 1e8 smallest units.
type FaucetConfig struct {
	Enabled         bool   `toml:"Enabled"`
	Amount          string `toml:"Amount"`
	CooldownSeconds uint64 `toml:"CooldownSeconds"`
}

// GenesisConfig seeds state on first boot. All values are decimal strings
// in 1e8 fixed point; the oracle series is only written when no series
// exists yet.
type GenesisConfig struct {
	Price    string        `toml:"Price"`
	EMAShort string        `toml:"EMAShort"`
	EMAMid   string        `toml:"EMAMid"`
	EMALong  string        `toml:"EMALong"`
	Mints    []GenesisMint `toml:"Mints"`
}

// GenesisMint credits an address with an initial balance.
type GenesisMint struct {
	Address string `toml:"Address"`
	Amount  string `toml:"Amount"`
}

// Load reads the configuration from the given path, creating a default file
// and maintainer keystore when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if cfg.MaintainerKeystorePath == "" {
		if err := ensureKeystore(path, cfg); err != nil {
			return nil, err
		}
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "vaultbtc-local"
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8545"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./vaultbtc-data"
	}
	if cfg.Lending == (lending.Params{}) {
		cfg.Lending = lending.DefaultParams()
	}
	if cfg.Paused == nil {
		cfg.Paused = []string{}
	}
}

// Validate rejects configurations whose amounts do not parse or whose pool
// parameters are inconsistent.
func (c *Config) Validate() error {
	if err := c.Lending.Validate(); err != nil {
		return err
	}
	if c.Faucet.Enabled {
		if _, err := ParseAmount(c.Faucet.Amount); err != nil {
			return fmt.Errorf("config: faucet amount: %w", err)
		}
	}
	seriesFields := []struct {
		name, value string
	}{
		{"genesis price", c.Genesis.Price},
		{"genesis ema short", c.Genesis.EMAShort},
		{"genesis ema mid", c.Genesis.EMAMid},
		{"genesis ema long", c.Genesis.EMALong},
	}
	populated := 0
	for _, field := range seriesFields {
		if strings.TrimSpace(field.value) == "" {
			continue
		}
		populated++
		if _, err := ParseAmount(field.value); err != nil {
			return fmt.Errorf("config: %s: %w", field.name, err)
		}
	}
	// The oracle series seeds atomically, so a partial set would strand the
	// node at startup.
	if populated != 0 && populated != len(seriesFields) {
		return fmt.Errorf("config: genesis price and all three emas must be set together")
	}
	for i, mint := range c.Genesis.Mints {
		if _, err := crypto.DecodeAddress(mint.Address); err != nil {
			return fmt.Errorf("config: genesis mint %d address: %w", i, err)
		}
		if _, err := ParseAmount(mint.Amount); err != nil {
			return fmt.Errorf("config: genesis mint %d amount: %w", i, err)
		}
	}
	return nil
}

// ParseAmount converts a decimal string into a positive big integer.
func ParseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("amount %q is not a decimal integer", raw)
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount %q must be positive", raw)
	}
	return value, nil
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := defaultKeystorePath(configPath)

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	cfg.MaintainerKeystorePath = keystorePath
	return persist(configPath, cfg)
}

// createDefault creates and saves a default configuration file together
// with a fresh maintainer keystore.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:  ":8545",
		DataDir:     "./vaultbtc-data",
		NetworkName: "vaultbtc-local",
		LogLevel:    "info",
		Paused:      []string{},
		Faucet: FaucetConfig{
			Enabled:         true,
			Amount:          "100000000",
			CooldownSeconds: 3600,
		},
		Lending: lending.DefaultParams(),
		Genesis: GenesisConfig{
			Price:    "6000000000000",
			EMAShort: "6000000000000",
			EMAMid:   "6000000000000",
			EMALong:  "6000000000000",
		},
	}
	cfg.MaintainerKeystorePath = keystorePath

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	return filepath.Join(dir, "maintainer.keystore")
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
