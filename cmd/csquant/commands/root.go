package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	panelFile    string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "csquant",
	Short: "Cross-sectional strategy research toolkit",
	Long: `csquant - cross-sectional strategy research CLI

Backtests top-K score portfolios over a trade-date panel, computes
signal diagnostics, sweeps parameter grids and serves stored results.

Usage:
  go run ./cmd/csquant [command]

Examples:
  go run ./cmd/csquant backtest run --panel panel.csv
  go run ./cmd/csquant ic --panel panel.csv
  go run ./cmd/csquant grid run --panel panel.csv --top-k 10,20,50
  go run ./cmd/csquant api`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "config", "", "strategy YAML file (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&panelFile, "panel", "", "observation panel CSV (default: load from database)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
