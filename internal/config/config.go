// Package config handles application configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/tick"
	"github.com/spf13/viper"
)

// Constants for configuration
const (
	EnvPrefix          = "TRAILSTOP"
	DefaultConfigPath  = "./trailstop.yaml"
	DefaultStoragePath = "./trailstop.db"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration
type Config struct {
	Engine     EngineConfig     `mapstructure:"engine"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Markets    []MarketConfig   `mapstructure:"markets"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// EngineConfig holds the identity the engine trades as
type EngineConfig struct {
	Address string `mapstructure:"address"`
}

// StorageConfig selects the order storage: buntdb, sqlite or memory
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// MarketConfig describes a paper pool
type MarketConfig struct {
	ID          string `mapstructure:"id"`
	Token0      string `mapstructure:"token0"`
	Token1      string `mapstructure:"token1"`
	TickSpacing int64  `mapstructure:"tick_spacing"`
	Tick        int64  `mapstructure:"tick"`
	Depth       int64  `mapstructure:"depth"`
}

// SimulationConfig drives the simulate command
type SimulationConfig struct {
	Seed           int64    `mapstructure:"seed"`
	Trades         int      `mapstructure:"trades"`
	TradesFile     string   `mapstructure:"trades_file"`
	MaxTradeAmount int64    `mapstructure:"max_trade_amount"`
	Orders         int      `mapstructure:"orders"`
	MaxOrderAmount int64    `mapstructure:"max_order_amount"`
	Depositors     []string `mapstructure:"depositors"`
	Traders        []string `mapstructure:"traders"`
	Balance        int64    `mapstructure:"balance"`
	Pace           string   `mapstructure:"pace"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	Users   []int  `mapstructure:"users"`
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Engine:  EngineConfig{Address: "trailstop"},
		Storage: StorageConfig{Driver: "buntdb", Path: DefaultStoragePath},
		Markets: []MarketConfig{
			{ID: "ETH/USDC", Token0: "ETH", Token1: "USDC", TickSpacing: tick.Spacing, Depth: 1_000},
		},
		Simulation: SimulationConfig{
			Seed:           1,
			Trades:         2_000,
			MaxTradeAmount: 400_000,
			Orders:         50,
			MaxOrderAmount: 100_000,
			Depositors:     []string{"alice", "bob", "carol"},
			Traders:        []string{"dave", "erin"},
			Balance:        1_000_000_000,
			Pace:           "0s",
		},
		Metrics: MetricsConfig{Address: ":9090"},
	}
}

// setDefaults registers every scalar key so that TRAILSTOP_* variables
// override them, e.g. TRAILSTOP_STORAGE_DRIVER
func setDefaults(v *viper.Viper, config *Config) {
	v.SetDefault("engine.address", config.Engine.Address)
	v.SetDefault("storage.driver", config.Storage.Driver)
	v.SetDefault("storage.path", config.Storage.Path)
	v.SetDefault("markets", marketMaps(config.Markets))
	v.SetDefault("simulation.seed", config.Simulation.Seed)
	v.SetDefault("simulation.trades", config.Simulation.Trades)
	v.SetDefault("simulation.trades_file", config.Simulation.TradesFile)
	v.SetDefault("simulation.max_trade_amount", config.Simulation.MaxTradeAmount)
	v.SetDefault("simulation.orders", config.Simulation.Orders)
	v.SetDefault("simulation.max_order_amount", config.Simulation.MaxOrderAmount)
	v.SetDefault("simulation.depositors", config.Simulation.Depositors)
	v.SetDefault("simulation.traders", config.Simulation.Traders)
	v.SetDefault("simulation.balance", config.Simulation.Balance)
	v.SetDefault("simulation.pace", config.Simulation.Pace)
	v.SetDefault("telegram.enabled", config.Telegram.Enabled)
	v.SetDefault("telegram.token", config.Telegram.Token)
	v.SetDefault("telegram.users", config.Telegram.Users)
	v.SetDefault("metrics.enabled", config.Metrics.Enabled)
	v.SetDefault("metrics.address", config.Metrics.Address)
}

// marketMaps spells the market list with its configuration keys, so that it is
// written back to files the way it is read
func marketMaps(markets []MarketConfig) []map[string]any {
	out := make([]map[string]any, 0, len(markets))
	for _, market := range markets {
		out = append(out, map[string]any{
			"id":           market.ID,
			"token0":       market.Token0,
			"token1":       market.Token1,
			"tick_spacing": market.TickSpacing,
			"tick":         market.Tick,
			"depth":        market.Depth,
		})
	}
	return out
}

// Load reads the configuration file at path, when given, on top of the
// defaults, then applies TRAILSTOP_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveDefault writes the default configuration to path
func SaveDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create configuration directory: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetConfigFile(path)
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("could not save default configuration: %w", err)
	}
	return nil
}

// Validate checks the market list and the storage driver
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "buntdb", "sqlite", "memory":
	default:
		return fmt.Errorf("storage driver %q: %w", c.Storage.Driver, ErrInvalidConfig)
	}

	if len(c.Markets) == 0 {
		return fmt.Errorf("no markets: %w", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Markets))
	for _, market := range c.Markets {
		if market.ID == "" || market.Token0 == "" || market.Token1 == "" {
			return fmt.Errorf("market %q: id and tokens are required: %w", market.ID, ErrInvalidConfig)
		}
		if seen[market.ID] {
			return fmt.Errorf("market %q declared twice: %w", market.ID, ErrInvalidConfig)
		}
		if market.Depth <= 0 {
			return fmt.Errorf("market %q: depth must be positive: %w", market.ID, ErrInvalidConfig)
		}
		seen[market.ID] = true
	}

	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("telegram enabled without token: %w", ErrInvalidConfig)
	}
	return nil
}

// Market converts a market definition into the engine's market context
func (m MarketConfig) Market() core.Market {
	spacing := m.TickSpacing
	if spacing == 0 {
		spacing = tick.Spacing
	}

	return core.Market{
		ID:          core.MarketID(m.ID),
		Token0:      core.Asset(m.Token0),
		Token1:      core.Asset(m.Token1),
		TickSpacing: spacing,
	}
}
