// Package strategyconfig is the YAML run configuration for a backtest: the
// selection and timing parameters plus the execution assumptions.
package strategyconfig

import (
	"github.com/wonny/csquant/internal/backtest"
	"github.com/wonny/csquant/internal/execution"
)

// Config is the full run configuration.
type Config struct {
	Meta      Meta             `yaml:"meta" json:"meta"`
	Backtest  BacktestConfig   `yaml:"backtest" json:"backtest"`
	Execution execution.Config `yaml:"execution" json:"execution"`
}

// Meta identifies a strategy configuration.
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// BacktestConfig holds the simulator parameters.
type BacktestConfig struct {
	TopK               int    `yaml:"top_k" json:"top_k"`
	ShiftDays          int    `yaml:"shift_days" json:"shift_days"`
	TradingDaysPerYear int    `yaml:"trading_days_per_year" json:"trading_days_per_year"`
	RebalanceFrequency string `yaml:"rebalance_frequency" json:"rebalance_frequency"`
	ExitMode           string `yaml:"exit_mode" json:"exit_mode"`
	ExitHorizonDays    int    `yaml:"exit_horizon_days,omitempty" json:"exit_horizon_days,omitempty"`
}

// Default returns the configuration used when no YAML file is supplied.
func Default() *Config {
	return &Config{
		Meta: Meta{StrategyID: "adhoc", Version: "0"},
		Backtest: BacktestConfig{
			TopK:               20,
			ShiftDays:          1,
			TradingDaysPerYear: 244,
			RebalanceFrequency: rebalanceDaily,
			ExitMode:           string(backtest.ExitModeRebalance),
		},
		Execution: execution.Config{
			CostModel:  execution.CostModelConfig{Name: "bps"},
			ExitPolicy: execution.ExitPolicyConfig{Price: "strict", Fallback: "ffill"},
		},
	}
}

const rebalanceDaily = "D"

// SimulatorConfig converts the backtest section into the simulator's
// configuration.
func (c *Config) SimulatorConfig() backtest.Config {
	return backtest.Config{
		TopK:            c.Backtest.TopK,
		ShiftDays:       c.Backtest.ShiftDays,
		ExitMode:        backtest.ExitMode(c.Backtest.ExitMode),
		ExitHorizonDays: c.Backtest.ExitHorizonDays,
	}
}

// ExecutionDefaults returns the fallback execution values applied when the
// YAML omits them.
func ExecutionDefaults() execution.Defaults {
	return execution.Defaults{
		CostBps:      15,
		ExitPrice:    execution.ExitStrict,
		ExitFallback: execution.FallbackFfill,
	}
}

// BuildExecutionModel constructs the execution model from the configuration.
func (c *Config) BuildExecutionModel() (execution.Model, error) {
	return execution.Build(c.Execution, ExecutionDefaults())
}
