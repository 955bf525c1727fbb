package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/csquant/internal/external/tushare"
	"github.com/wonny/csquant/internal/scheduler"
	"github.com/wonny/csquant/internal/scheduler/jobs"
	"github.com/wonny/csquant/internal/store"
	"github.com/wonny/csquant/pkg/database"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Scheduled jobs",
	Long: `Starts the job scheduler or runs a job once.

Registered jobs:
- panel_refresh: weekday evenings (provider bars into the panel)

Example:
  go run ./cmd/csquant scheduler start
  go run ./cmd/csquant scheduler refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerRefreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "Run the panel refresh once",
		RunE:  runRefresh,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRefreshCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== csquant Scheduler ===")

	cfg, log, err := initRuntime()
	if err != nil {
		return err
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	client := tushare.New(cfg, log)
	panelRepo := store.NewPanelRepository(db.Pool)

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewPanelRefreshJob(client, panelRepo, log)); err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.JobNames() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	fmt.Println("=== csquant Panel Refresh ===")

	cfg, log, err := initRuntime()
	if err != nil {
		return err
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	client := tushare.New(cfg, log)
	panelRepo := store.NewPanelRepository(db.Pool)

	job := jobs.NewPanelRefreshJob(client, panelRepo, log)
	if err := job.Run(cmd.Context()); err != nil {
		return fmt.Errorf("panel refresh failed: %w", err)
	}

	fmt.Println("✅ Panel refresh completed")
	return nil
}
