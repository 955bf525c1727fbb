package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/csquant/internal/backtest"
	"github.com/wonny/csquant/internal/metrics"
	"github.com/wonny/csquant/internal/rebalance"
	"github.com/wonny/csquant/internal/store"
	"github.com/wonny/csquant/pkg/config"
	"github.com/wonny/csquant/pkg/database"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Portfolio backtesting",
	Long: `Simulates a top-K score portfolio over the observation panel.

The simulator walks the rebalance schedule, resolves entry and exit
prices on the trade-date calendar, applies the configured cost model
and reports per-period and aggregate performance.

Example:
  go run ./cmd/csquant backtest run --panel panel.csv
  go run ./cmd/csquant backtest run --config strategy.yaml --from 2023-01-01 --save`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a backtest",
		Long: `Runs a backtest with the configured strategy.

Flags:
  --from   panel start date (YYYY-MM-DD, database loads only)
  --to     panel end date (YYYY-MM-DD, database loads only)
  --save   persist the run to the database

Example:
  go run ./cmd/csquant backtest run --panel panel.csv
  go run ./cmd/csquant backtest run --config strategy.yaml --save`,
		RunE: runBacktest,
	}

	// Flags
	backtestFrom string
	backtestTo   string
	backtestSave bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	backtestRunCmd.Flags().StringVar(&backtestFrom, "from", "", "panel start date (YYYY-MM-DD)")
	backtestRunCmd.Flags().StringVar(&backtestTo, "to", "", "panel end date (YYYY-MM-DD)")
	backtestRunCmd.Flags().BoolVar(&backtestSave, "save", false, "persist the run to the database")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== csquant Backtest ===")

	cfg, log, err := initRuntime()
	if err != nil {
		return err
	}

	strategy, hash, err := loadStrategy()
	if err != nil {
		return err
	}

	obs, err := loadObservations(cmd.Context(), cfg, backtestFrom, backtestTo)
	if err != nil {
		return err
	}

	calendar := obs.Calendar()
	rebalanceDates, err := rebalance.Dates(calendar.Dates(), strategy.Backtest.RebalanceFrequency)
	if err != nil {
		return err
	}

	exec, err := strategy.BuildExecutionModel()
	if err != nil {
		return fmt.Errorf("build execution model: %w", err)
	}
	log.WithFields(exec.Describe()).Debug("Execution model")

	fmt.Println()
	PrintKeyValue("Strategy", fmt.Sprintf("%s v%s (%s)", strategy.Meta.StrategyID, strategy.Meta.Version, hash[:12]), 12)
	PrintKeyValue("Panel", fmt.Sprintf("%d dates × %d instruments", calendar.Len(), len(obs.Instruments())), 12)
	PrintKeyValue("Rebalances", fmt.Sprintf("%d (%s)", len(rebalanceDates), strategy.Backtest.RebalanceFrequency), 12)
	PrintKeyValue("Execution", fmt.Sprintf("cost=%s exit=%s/%s", exec.Cost.Kind, exec.Exit.Price, exec.Exit.Fallback), 12)
	fmt.Println()

	sim, err := backtest.NewSimulator(exec, strategy.SimulatorConfig(), log)
	if err != nil {
		return err
	}

	result, err := sim.Run(obs, rebalanceDates)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	summary := metrics.Summarize(result.Periods, strategy.Backtest.TradingDaysPerYear)
	printSummary(summary)

	if backtestSave {
		id, err := saveRun(cmd, cfg, strategy.Meta.StrategyID, hash, summary, result)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Run saved (id=%d)\n", id)
	}

	return nil
}

func printSummary(s metrics.Summary) {
	fmt.Println("📊 Performance")
	PrintSeparator()
	PrintKeyValue("Periods", fmt.Sprintf("%d", s.Periods), 14)
	PrintKeyValue("Total Return", formatPct(s.TotalReturn), 14)
	PrintKeyValue("Ann. Return", formatPct(s.AnnReturn), 14)
	PrintKeyValue("Ann. Vol", formatPct(s.AnnVol), 14)
	PrintKeyValue("Sharpe", formatFloat(s.Sharpe, 2), 14)
	PrintKeyValue("Max Drawdown", formatPct(s.MaxDrawdown), 14)
	PrintKeyValue("Avg Turnover", formatFloat(s.AvgTurnover, 3), 14)
	PrintKeyValue("Avg Cost Drag", formatPct(s.AvgCostDrag), 14)
	PrintSeparator()
}

func saveRun(cmd *cobra.Command, cfg *config.Config, strategyID, hash string, summary metrics.Summary, result *backtest.Result) (int64, error) {
	db, err := database.New(cfg)
	if err != nil {
		return 0, fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := store.NewRunRepository(db.Pool)
	return repo.SaveRun(cmd.Context(), &store.Run{
		StrategyID: strategyID,
		ConfigHash: hash,
		Stats:      summary,
		Periods:    result.Periods,
	})
}
