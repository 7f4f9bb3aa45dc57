// Package config holds the explicit configuration object passed into
// each component at construction. Updates never mutate a shared map in
// place: every With* operation returns a deep-copied new version.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete trading configuration.
type Config struct {
	System     System              `json:"system" yaml:"system"`
	Weights    map[string]float64  `json:"strategy_weights" yaml:"strategy_weights"`
	Strategies map[string]Strategy `json:"strategy_params" yaml:"strategy_params"`
	Risk       Risk                `json:"risk_management" yaml:"risk_management"`
	Execution  Execution           `json:"execution" yaml:"execution"`
	Backtest   Backtest            `json:"backtest" yaml:"backtest"`
	Journal    Journal             `json:"journal" yaml:"journal"`
}

// System contains instrument and loop parameters.
type System struct {
	Symbol          string  `json:"symbol" yaml:"symbol"`
	BaseAsset       string  `json:"base_asset" yaml:"base_asset"`
	QuoteAsset      string  `json:"quote_asset" yaml:"quote_asset"`
	CheckInterval   string  `json:"check_interval" yaml:"check_interval"`
	SignalThreshold float64 `json:"signal_threshold" yaml:"signal_threshold"`
	LogLevel        string  `json:"log_level" yaml:"log_level"`
}

// Interval converts the check interval string to a duration.
func (s System) Interval() (time.Duration, error) {
	if s.CheckInterval == "" {
		return 5 * time.Minute, nil
	}
	return time.ParseDuration(s.CheckInterval)
}

// Strategy contains one producer's enablement flag and its named
// parameters.
type Strategy struct {
	Enabled bool               `json:"enabled" yaml:"enabled"`
	Params  map[string]float64 `json:"params" yaml:"params"`
}

// Param returns a named parameter, falling back to the documented
// default when the parameter is not configured.
func (s Strategy) Param(name string, def float64) float64 {
	if v, ok := s.Params[name]; ok {
		return v
	}
	return def
}

// Risk contains the risk governor parameters.
type Risk struct {
	MaxPositionPercent  float64 `json:"max_position_percent" yaml:"max_position_percent"`
	MaxDailyLossPercent float64 `json:"max_daily_loss_percent" yaml:"max_daily_loss_percent"`
	StopLossPercent     float64 `json:"stop_loss_percent" yaml:"stop_loss_percent"`
	TakeProfitRatio     float64 `json:"take_profit_ratio" yaml:"take_profit_ratio"`
}

// Execution contains order gating parameters.
type Execution struct {
	MinOrderInterval string `json:"min_order_interval" yaml:"min_order_interval"`
}

// Interval converts the minimum order interval to a duration.
func (e Execution) Interval() (time.Duration, error) {
	if e.MinOrderInterval == "" {
		return time.Minute, nil
	}
	return time.ParseDuration(e.MinOrderInterval)
}

// Backtest contains simulation parameters.
type Backtest struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	CommissionRate float64 `json:"commission_rate" yaml:"commission_rate"`
	Timeframe      string  `json:"timeframe" yaml:"timeframe"`
}

// Journal contains journaling parameters.
type Journal struct {
	Type       string `json:"type" yaml:"type"` // "csv" or "sqlite"
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	OrdersFile string `json:"orders_file,omitempty" yaml:"orders_file,omitempty"`
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML first, JSON
// fallback).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (format chosen by
// extension).
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

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.System.Symbol == "" {
		return fmt.Errorf("system.symbol is required")
	}
	if c.System.BaseAsset == "" || c.System.QuoteAsset == "" {
		return fmt.Errorf("system base_asset and quote_asset are required")
	}
	if _, err := c.System.Interval(); err != nil {
		return fmt.Errorf("system.check_interval: %w", err)
	}
	if c.System.SignalThreshold < 0 || c.System.SignalThreshold > 1 {
		return fmt.Errorf("system.signal_threshold must be in [0,1]")
	}
	if c.Risk.MaxPositionPercent <= 0 || c.Risk.MaxPositionPercent > 100 {
		return fmt.Errorf("risk_management.max_position_percent must be in (0,100]")
	}
	if c.Risk.MaxDailyLossPercent <= 0 || c.Risk.MaxDailyLossPercent > 100 {
		return fmt.Errorf("risk_management.max_daily_loss_percent must be in (0,100]")
	}
	if c.Risk.StopLossPercent <= 0 || c.Risk.StopLossPercent >= 100 {
		return fmt.Errorf("risk_management.stop_loss_percent must be in (0,100)")
	}
	if c.Risk.TakeProfitRatio <= 0 {
		return fmt.Errorf("risk_management.take_profit_ratio must be positive")
	}
	if _, err := c.Execution.Interval(); err != nil {
		return fmt.Errorf("execution.min_order_interval: %w", err)
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive")
	}
	if c.Backtest.CommissionRate < 0 || c.Backtest.CommissionRate >= 1 {
		return fmt.Errorf("backtest.commission_rate must be in [0,1)")
	}
	for name, w := range c.Weights {
		if w < 0 {
			return fmt.Errorf("strategy_weights.%s must not be negative", name)
		}
	}
	if c.Journal.Type != "" && c.Journal.Type != "csv" && c.Journal.Type != "sqlite" {
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path required for SQLite type")
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Weights = make(map[string]float64, len(c.Weights))
	for k, v := range c.Weights {
		out.Weights[k] = v
	}
	out.Strategies = make(map[string]Strategy, len(c.Strategies))
	for k, v := range c.Strategies {
		params := make(map[string]float64, len(v.Params))
		for pk, pv := range v.Params {
			params[pk] = pv
		}
		out.Strategies[k] = Strategy{Enabled: v.Enabled, Params: params}
	}
	return &out
}

// WithRisk returns a new version with replaced risk parameters.
func (c *Config) WithRisk(r Risk) *Config {
	out := c.Clone()
	out.Risk = r
	return out
}

// WithWeights returns a new version with replaced strategy weights.
func (c *Config) WithWeights(weights map[string]float64) *Config {
	out := c.Clone()
	out.Weights = make(map[string]float64, len(weights))
	for k, v := range weights {
		out.Weights[k] = v
	}
	return out
}

// WithStrategyEnabled returns a new version with one producer enabled
// or disabled. Unknown names create a bare entry so the flag sticks.
func (c *Config) WithStrategyEnabled(name string, enabled bool) *Config {
	out := c.Clone()
	s := out.Strategies[name]
	s.Enabled = enabled
	if s.Params == nil {
		s.Params = make(map[string]float64)
	}
	out.Strategies[name] = s
	return out
}

// WithStrategyParams returns a new version with one producer's
// parameters merged over its existing ones.
func (c *Config) WithStrategyParams(name string, params map[string]float64) *Config {
	out := c.Clone()
	s := out.Strategies[name]
	if s.Params == nil {
		s.Params = make(map[string]float64, len(params))
	}
	for k, v := range params {
		s.Params[k] = v
	}
	out.Strategies[name] = s
	return out
}

// Default returns a configuration with the documented defaults.
func Default() *Config {
	return &Config{
		System: System{
			Symbol:          "DOGE-USDT",
			BaseAsset:       "DOGE",
			QuoteAsset:      "USDT",
			CheckInterval:   "5m",
			SignalThreshold: 0.3,
			LogLevel:        "info",
		},
		Weights: map[string]float64{
			"bollinger":      0.35,
			"breakout":       0.30,
			"multitimeframe": 0.25,
			"sentiment":      0.10,
		},
		Strategies: map[string]Strategy{
			"bollinger": {
				Enabled: true,
				Params: map[string]float64{
					"period":         20,
					"std_dev":        2.0,
					"buy_threshold":  0.3,
					"sell_threshold": 0.7,
				},
			},
			"breakout": {
				Enabled: true,
				Params: map[string]float64{
					"atr_period":      14,
					"volume_factor":   1.5,
					"breakout_factor": 1.5,
				},
			},
			"multitimeframe": {
				Enabled: true,
				Params: map[string]float64{
					"daily_sma_fast": 50,
					"daily_sma_slow": 200,
					"rsi_period":     14,
					"rsi_overbought": 70,
					"rsi_oversold":   35,
				},
			},
			"sentiment": {
				Enabled: true,
				Params: map[string]float64{
					"positive_threshold": 0.6,
					"negative_threshold": -0.4,
					"influence_factor":   1.5,
				},
			},
		},
		Risk: Risk{
			MaxPositionPercent:  5.0,
			MaxDailyLossPercent: 3.0,
			StopLossPercent:     5.0,
			TakeProfitRatio:     2.0,
		},
		Execution: Execution{
			MinOrderInterval: "60s",
		},
		Backtest: Backtest{
			InitialCapital: 1000,
			CommissionRate: 0.001,
			Timeframe:      "1H",
		},
		Journal: Journal{
			Type:       "csv",
			OrdersFile: "./orders.csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
	}
}
