package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/csquant/internal/panel"
	"github.com/wonny/csquant/internal/store"
	"github.com/wonny/csquant/internal/strategyconfig"
	"github.com/wonny/csquant/pkg/config"
	"github.com/wonny/csquant/pkg/database"
	"github.com/wonny/csquant/pkg/logger"
)

// initRuntime loads the environment configuration and builds the logger.
func initRuntime() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)
	return cfg, log, nil
}

// loadStrategy reads the strategy YAML named by --config, or falls back to
// the built-in defaults. The returned hash identifies the configuration.
func loadStrategy() (*strategyconfig.Config, string, error) {
	var cfg *strategyconfig.Config

	if strategyFile != "" {
		loaded, _, err := strategyconfig.Load(strategyFile)
		if err != nil {
			return nil, "", fmt.Errorf("load strategy config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = strategyconfig.Default()
	}

	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return nil, "", fmt.Errorf("hash strategy config: %w", err)
	}

	return cfg, hash, nil
}

// loadObservations reads the panel from the --panel CSV when given, otherwise
// from the database over [from, to].
func loadObservations(ctx context.Context, cfg *config.Config, from, to string) (*panel.ObservationPanel, error) {
	if panelFile != "" {
		obs, err := panel.LoadCSV(panelFile)
		if err != nil {
			return nil, fmt.Errorf("load panel %s: %w", panelFile, err)
		}
		return obs, nil
	}

	fromDate := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	toDate := time.Now().UTC()

	var err error
	if from != "" {
		fromDate, err = time.Parse("2006-01-02", from)
		if err != nil {
			return nil, fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if to != "" {
		toDate, err = time.Parse("2006-01-02", to)
		if err != nil {
			return nil, fmt.Errorf("invalid --to date: %w", err)
		}
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := store.NewPanelRepository(db.Pool)
	obs, err := repo.LoadPanel(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("load panel from database: %w", err)
	}
	return obs, nil
}
