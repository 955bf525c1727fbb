package strategyconfig

import (
	"fmt"

	"github.com/wonny/csquant/internal/backtest"
)

// Validate checks the configuration invariants that do not need a panel to
// verify. Execution-model names are validated by execution.Build.
func Validate(cfg *Config) error {
	bt := cfg.Backtest
	if bt.TopK <= 0 {
		return fmt.Errorf("backtest.top_k must be positive, got %d", bt.TopK)
	}
	if bt.ShiftDays < 0 {
		return fmt.Errorf("backtest.shift_days must be non-negative, got %d", bt.ShiftDays)
	}
	if bt.TradingDaysPerYear <= 0 {
		return fmt.Errorf("backtest.trading_days_per_year must be positive, got %d", bt.TradingDaysPerYear)
	}
	switch backtest.ExitMode(bt.ExitMode) {
	case backtest.ExitModeRebalance:
	case backtest.ExitModeLabelHorizon:
		if bt.ExitHorizonDays <= 0 {
			return fmt.Errorf("backtest.exit_horizon_days is required for exit_mode=label_horizon")
		}
	default:
		return fmt.Errorf("backtest.exit_mode must be one of: rebalance, label_horizon")
	}
	return nil
}
