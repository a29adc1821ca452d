// Package config loads and validates simulation run configuration from
// YAML or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete simulation configuration
type Config struct {
	Accounts   []AccountConfig  `json:"accounts" yaml:"accounts"`
	Strategies []StrategyConfig `json:"strategies" yaml:"strategies"`
	Fees       FeesConfig       `json:"fees" yaml:"fees"`
	Risk       RiskConfig       `json:"risk" yaml:"risk"`
	Feed       FeedConfig       `json:"feed" yaml:"feed"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID             string  `json:"id" yaml:"id"`
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
}

// StrategyConfig contains strategy selection and parameters
type StrategyConfig struct {
	Type     string  `json:"type" yaml:"type"` // "grid" or "ma_cross"
	Account  string  `json:"account" yaml:"account"`
	Symbol   string  `json:"symbol" yaml:"symbol"`
	Quantity float64 `json:"quantity" yaml:"quantity"`

	// Grid parameters
	ProfitTarget float64 `json:"profit_target,omitempty" yaml:"profit_target,omitempty"`
	SellTimeout  string  `json:"sell_timeout,omitempty" yaml:"sell_timeout,omitempty"` // e.g. "30s", "5m"

	// MA cross parameters
	FastPeriod int `json:"fast_period,omitempty" yaml:"fast_period,omitempty"`
	SlowPeriod int `json:"slow_period,omitempty" yaml:"slow_period,omitempty"`
}

// ParseSellTimeout converts the sell_timeout string to a time.Duration
func (sc StrategyConfig) ParseSellTimeout() (time.Duration, error) {
	if sc.SellTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(sc.SellTimeout)
}

// FeesConfig contains transaction cost parameters
type FeesConfig struct {
	CommissionRate float64 `json:"commission_rate" yaml:"commission_rate"`
	MinCommission  float64 `json:"min_commission" yaml:"min_commission"`
	SlippageRate   float64 `json:"slippage_rate" yaml:"slippage_rate"`
}

// RiskConfig contains pre-trade check parameters
type RiskConfig struct {
	// MaxPositionRatio caps a single symbol's cost basis as a fraction of
	// total capital. Zero disables the cap.
	MaxPositionRatio float64 `json:"max_position_ratio" yaml:"max_position_ratio"`
}

// FeedConfig describes the scripted market data replayed into the engine
type FeedConfig struct {
	Steps []PriceStep `json:"steps" yaml:"steps"`
}

// PriceStep represents one scripted price update
type PriceStep struct {
	Symbol string  `json:"symbol" yaml:"symbol"`
	Price  float64 `json:"price" yaml:"price"`
	Delay  string  `json:"delay,omitempty" yaml:"delay,omitempty"` // e.g. "1s", "30m"
}

// ParseDuration converts the delay string to time.Duration
func (ps PriceStep) ParseDuration() (time.Duration, error) {
	if ps.Delay == "" {
		return 0, nil
	}
	return time.ParseDuration(ps.Delay)
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	FillsFile  string `json:"fills_file,omitempty" yaml:"fills_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account is required")
	}
	ids := make(map[string]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		if a.ID == "" {
			return fmt.Errorf("account id is required")
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate account id: %s", a.ID)
		}
		ids[a.ID] = true
		if a.InitialCapital <= 0 {
			return fmt.Errorf("account %s: initial_capital must be positive", a.ID)
		}
	}

	for i, s := range c.Strategies {
		if !ids[s.Account] {
			return fmt.Errorf("strategy %d: unknown account: %s", i, s.Account)
		}
		if s.Symbol == "" {
			return fmt.Errorf("strategy %d: symbol is required", i)
		}
		if s.Quantity <= 0 {
			return fmt.Errorf("strategy %d: quantity must be positive", i)
		}
		switch s.Type {
		case "grid":
			if s.ProfitTarget <= 0 {
				return fmt.Errorf("strategy %d: profit_target must be positive", i)
			}
			if _, err := s.ParseSellTimeout(); err != nil {
				return fmt.Errorf("strategy %d: invalid sell_timeout: %w", i, err)
			}
		case "ma_cross":
			if s.FastPeriod <= 0 || s.SlowPeriod <= 0 {
				return fmt.Errorf("strategy %d: ma periods must be positive", i)
			}
			if s.FastPeriod >= s.SlowPeriod {
				return fmt.Errorf("strategy %d: fast_period must be less than slow_period", i)
			}
		default:
			return fmt.Errorf("strategy %d: unknown type: %s", i, s.Type)
		}
	}

	if c.Fees.CommissionRate < 0 || c.Fees.MinCommission < 0 || c.Fees.SlippageRate < 0 {
		return fmt.Errorf("fee rates must not be negative")
	}
	if c.Risk.MaxPositionRatio < 0 || c.Risk.MaxPositionRatio > 1 {
		return fmt.Errorf("risk.max_position_ratio must be between 0 and 1")
	}

	for i, ps := range c.Feed.Steps {
		if ps.Symbol == "" {
			return fmt.Errorf("feed step %d: symbol is required", i)
		}
		if ps.Price <= 0 {
			return fmt.Errorf("feed step %d: price must be positive", i)
		}
		if _, err := ps.ParseDuration(); err != nil {
			return fmt.Errorf("feed step %d: invalid delay: %w", i, err)
		}
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.FillsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal fills_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Accounts: []AccountConfig{
			{ID: "SIM-001", InitialCapital: 100000},
		},
		Strategies: []StrategyConfig{
			{
				Type:         "grid",
				Account:      "SIM-001",
				Symbol:       "600000",
				Quantity:     100,
				ProfitTarget: 0.003,
				SellTimeout:  "5m",
			},
		},
		Fees: FeesConfig{
			CommissionRate: 0.0003,
			MinCommission:  5.0,
			SlippageRate:   0.001,
		},
		Risk: RiskConfig{
			MaxPositionRatio: 0.3,
		},
		Feed: FeedConfig{
			Steps: []PriceStep{
				{Symbol: "600000", Price: 10.00},
				{Symbol: "600000", Price: 10.02, Delay: "1s"},
				{Symbol: "600000", Price: 10.06, Delay: "1s"},
			},
		},
		Journal: JournalConfig{
			Type:       "csv",
			FillsFile:  "./fills.csv",
			EquityFile: "./equity.csv",
		},
	}
}
