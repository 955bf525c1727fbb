package commands

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/csquant/internal/grid"
	"github.com/wonny/csquant/internal/rebalance"
)

// gridCmd represents the grid command
var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Parameter grid sweep",
	Long: `Runs the backtest for every top-K × cost combination and reports
per-combination statistics.

Example:
  go run ./cmd/csquant grid run --panel panel.csv --top-k 10,20,50 --cost-bps 0,5,15
  go run ./cmd/csquant grid run --panel panel.csv --out sweep.csv`,
}

var (
	gridRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the sweep",
		RunE:  runGrid,
	}

	// Flags
	gridTopK    string
	gridCostBps string
	gridWorkers int
	gridOut     string
	gridFrom    string
	gridTo      string
)

func init() {
	rootCmd.AddCommand(gridCmd)
	gridCmd.AddCommand(gridRunCmd)

	gridRunCmd.Flags().StringVar(&gridTopK, "top-k", "10,20,50", "comma-separated portfolio sizes")
	gridRunCmd.Flags().StringVar(&gridCostBps, "cost-bps", "0,5,15", "comma-separated per-side costs in bps")
	gridRunCmd.Flags().IntVar(&gridWorkers, "workers", 4, "parallel workers")
	gridRunCmd.Flags().StringVar(&gridOut, "out", "", "write results to a CSV file")
	gridRunCmd.Flags().StringVar(&gridFrom, "from", "", "panel start date (YYYY-MM-DD)")
	gridRunCmd.Flags().StringVar(&gridTo, "to", "", "panel end date (YYYY-MM-DD)")
}

func runGrid(cmd *cobra.Command, args []string) error {
	fmt.Println("=== csquant Grid Sweep ===")

	cfg, log, err := initRuntime()
	if err != nil {
		return err
	}

	strategy, _, err := loadStrategy()
	if err != nil {
		return err
	}

	topK, err := parseIntList(gridTopK)
	if err != nil {
		return fmt.Errorf("invalid --top-k: %w", err)
	}
	costBps, err := parseFloatList(gridCostBps)
	if err != nil {
		return fmt.Errorf("invalid --cost-bps: %w", err)
	}

	obs, err := loadObservations(cmd.Context(), cfg, gridFrom, gridTo)
	if err != nil {
		return err
	}

	rebalanceDates, err := rebalance.Dates(obs.Calendar().Dates(), strategy.Backtest.RebalanceFrequency)
	if err != nil {
		return err
	}

	fmt.Printf("\n%d combinations, %d workers\n\n", len(topK)*len(costBps), gridWorkers)

	rows := grid.Run(obs, rebalanceDates, strategy, grid.Spec{
		TopK:    topK,
		CostBps: costBps,
		Workers: gridWorkers,
	}, log)

	printGridRows(rows)

	if gridOut != "" {
		if err := writeGridCSV(gridOut, rows); err != nil {
			return fmt.Errorf("write %s: %w", gridOut, err)
		}
		fmt.Printf("\n✅ Results written to %s\n", gridOut)
	}

	return nil
}

func printGridRows(rows []grid.Row) {
	fmt.Printf("%-24s  %6s  %8s  %-9s  %8s  %8s  %8s\n",
		"run", "top_k", "cost_bps", "status", "sharpe", "ann_ret", "max_dd")
	PrintSeparator()
	for _, row := range rows {
		fmt.Printf("%-24s  %6d  %8.1f  %-9s  %8s  %8s  %8s\n",
			row.RunName, row.TopK, row.CostBps, row.Status,
			formatFloat(row.Stats.Sharpe, 2),
			formatFloat(row.Stats.AnnReturn, 4),
			formatFloat(row.Stats.MaxDrawdown, 4))
	}
}

func writeGridCSV(path string, rows []grid.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"run_name", "top_k", "cost_bps", "status", "error",
		"periods", "total_return", "ann_return", "ann_vol",
		"sharpe", "max_drawdown", "avg_turnover", "avg_cost_drag",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.RunName,
			strconv.Itoa(row.TopK),
			strconv.FormatFloat(row.CostBps, 'f', -1, 64),
			row.Status,
			row.Error,
			strconv.Itoa(row.Stats.Periods),
			csvFloat(row.Stats.TotalReturn),
			csvFloat(row.Stats.AnnReturn),
			csvFloat(row.Stats.AnnVol),
			csvFloat(row.Stats.Sharpe),
			csvFloat(row.Stats.MaxDrawdown),
			csvFloat(row.Stats.AvgTurnover),
			csvFloat(row.Stats.AvgCostDrag),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	return w.Error()
}

// csvFloat leaves undefined statistics as empty cells.
func csvFloat(v float64) string {
	s := formatFloat(v, 6)
	if s == "n/a" {
		return ""
	}
	return s
}
