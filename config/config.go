package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"stablevault/core/types"
)

// Config is the daemon configuration fixed at startup. Nothing in here is
// mutable through a vault operation.
type Config struct {
	RPCAddress string `toml:"RPCAddress"`
	// DataDir selects the LevelDB location; empty runs fully in memory.
	DataDir string `toml:"DataDir"`
	Env     string `toml:"Env"`

	MinimumCollateralPercentage uint64 `toml:"MinimumCollateralPercentage"`
	TokenName                   string `toml:"TokenName"`
	TokenSymbol                 string `toml:"TokenSymbol"`
	// Prices are base-10 amounts in the 10^18 fixed-point scale. The scale
	// cancels out of every ratio computation, so only consistency between the
	// two matters.
	CollateralPrice string `toml:"CollateralPrice"`
	SyntheticPrice  string `toml:"SyntheticPrice"`

	RPCRequestsPerMinute float64 `toml:"RPCRequestsPerMinute"`
	RPCBurst             int     `toml:"RPCBurst"`

	// Optional external quote feeds. When an endpoint is set the daemon polls
	// it every OracleRefreshSeconds and pushes the quote into the ledger.
	CollateralFeedURL    string `toml:"CollateralFeedURL"`
	SyntheticFeedURL     string `toml:"SyntheticFeedURL"`
	OracleAPIKey         string `toml:"OracleAPIKey"`
	OracleRefreshSeconds int    `toml:"OracleRefreshSeconds"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		RPCAddress:                  ":8645",
		MinimumCollateralPercentage: 150,
		TokenName:                   "Stable",
		TokenSymbol:                 "STB",
		CollateralPrice:             "100000000000000000000",
		SyntheticPrice:              "10000000000000000000",
		RPCRequestsPerMinute:        600,
		RPCBurst:                    20,
		OracleRefreshSeconds:        60,
	}
}

func createDefault(path string) (*Config, error) {
	cfg := defaultConfig()
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := defaultConfig()
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = def.RPCAddress
	}
	if c.MinimumCollateralPercentage == 0 {
		c.MinimumCollateralPercentage = def.MinimumCollateralPercentage
	}
	if strings.TrimSpace(c.TokenName) == "" {
		c.TokenName = def.TokenName
	}
	if strings.TrimSpace(c.TokenSymbol) == "" {
		c.TokenSymbol = def.TokenSymbol
	}
	if strings.TrimSpace(c.CollateralPrice) == "" {
		c.CollateralPrice = def.CollateralPrice
	}
	if strings.TrimSpace(c.SyntheticPrice) == "" {
		c.SyntheticPrice = def.SyntheticPrice
	}
	if c.RPCRequestsPerMinute <= 0 {
		c.RPCRequestsPerMinute = def.RPCRequestsPerMinute
	}
	if c.RPCBurst <= 0 {
		c.RPCBurst = def.RPCBurst
	}
	if c.OracleRefreshSeconds <= 0 {
		c.OracleRefreshSeconds = def.OracleRefreshSeconds
	}
}

// Validate rejects configurations the node could not safely run with.
func (c *Config) Validate() error {
	price, err := c.CollateralPriceValue()
	if err != nil {
		return fmt.Errorf("CollateralPrice: %w", err)
	}
	if price.IsZero() {
		return fmt.Errorf("CollateralPrice must be positive")
	}
	price, err = c.SyntheticPriceValue()
	if err != nil {
		return fmt.Errorf("SyntheticPrice: %w", err)
	}
	if price.IsZero() {
		return fmt.Errorf("SyntheticPrice must be positive")
	}
	if c.MinimumCollateralPercentage == 0 {
		return fmt.Errorf("MinimumCollateralPercentage must be positive")
	}
	return nil
}

// CollateralPriceValue parses the configured collateral asset price.
func (c *Config) CollateralPriceValue() (types.Value, error) {
	return types.ValueFromString(strings.TrimSpace(c.CollateralPrice))
}

// SyntheticPriceValue parses the configured synthetic asset price.
func (c *Config) SyntheticPriceValue() (types.Value, error) {
	return types.ValueFromString(strings.TrimSpace(c.SyntheticPrice))
}
