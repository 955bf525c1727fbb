package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/csquant/internal/metrics"
	"github.com/wonny/csquant/internal/rebalance"
)

// icCmd represents the ic command
var icCmd = &cobra.Command{
	Use:   "ic",
	Short: "Signal diagnostics",
	Long: `Computes daily rank information coefficients between scores and
realized targets, plus a naive turnover estimate over the rebalance
schedule.

The panel needs target values for the IC series; rows without one are
skipped.

Example:
  go run ./cmd/csquant ic --panel panel.csv
  go run ./cmd/csquant ic --from 2023-01-01 --to 2023-12-31`,
	RunE: runIC,
}

var (
	icFrom string
	icTo   string
)

func init() {
	rootCmd.AddCommand(icCmd)

	icCmd.Flags().StringVar(&icFrom, "from", "", "panel start date (YYYY-MM-DD)")
	icCmd.Flags().StringVar(&icTo, "to", "", "panel end date (YYYY-MM-DD)")
}

func runIC(cmd *cobra.Command, args []string) error {
	fmt.Println("=== csquant Signal Diagnostics ===")

	cfg, _, err := initRuntime()
	if err != nil {
		return err
	}

	strategy, _, err := loadStrategy()
	if err != nil {
		return err
	}

	obs, err := loadObservations(cmd.Context(), cfg, icFrom, icTo)
	if err != nil {
		return err
	}

	series := metrics.DailyICSeries(obs)
	summary := metrics.SummarizeIC(series)

	fmt.Println()
	fmt.Println("📈 Rank IC")
	PrintSeparator()
	PrintKeyValue("Days", fmt.Sprintf("%d", summary.N), 10)
	PrintKeyValue("Mean", formatFloat(summary.Mean, 4), 10)
	PrintKeyValue("Std", formatFloat(summary.Std, 4), 10)
	PrintKeyValue("IR", formatFloat(summary.IR, 3), 10)
	PrintKeyValue("t-stat", formatFloat(summary.TStat, 2), 10)
	PrintSeparator()

	rebalanceDates, err := rebalance.Dates(obs.Calendar().Dates(), strategy.Backtest.RebalanceFrequency)
	if err != nil {
		return err
	}

	turnover := metrics.EstimateTurnover(obs, strategy.Backtest.TopK, rebalanceDates)
	if len(turnover) > 0 {
		sum := 0.0
		for _, p := range turnover {
			sum += p.Value
		}
		fmt.Println()
		fmt.Println("🔄 Naive Turnover")
		PrintSeparator()
		PrintKeyValue("Rebalances", fmt.Sprintf("%d", len(turnover)), 10)
		PrintKeyValue("Mean", formatFloat(sum/float64(len(turnover)), 3), 10)
		PrintSeparator()
	}

	return nil
}
