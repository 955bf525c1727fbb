package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/csquant/internal/api"
	"github.com/wonny/csquant/internal/api/handlers"
	"github.com/wonny/csquant/internal/store"
	"github.com/wonny/csquant/pkg/database"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server over stored backtest runs.

Endpoints:
  GET  /health                        - Health check
  GET  /api/runs                      - Recent runs
  GET  /api/runs/latest               - Latest run with periods
  GET  /api/runs/latest/series/{kind} - Per-period series (net, gross, turnover)

Example:
  go run ./cmd/csquant api
  go run ./cmd/csquant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default: PORT env)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== csquant API Server ===")

	cfg, log, err := initRuntime()
	if err != nil {
		return err
	}

	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Connected to database")

	runRepo := store.NewRunRepository(db.Pool)
	runHandler := handlers.NewRunHandler(runRepo, log)

	router := api.NewRouter(runHandler, log)
	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/runs")
	fmt.Println("  GET  /api/runs/latest")
	fmt.Println("  GET  /api/runs/latest/series/{net|gross|turnover}")
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
