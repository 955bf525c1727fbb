package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/csquant/internal/backtest"
	"github.com/wonny/csquant/internal/metrics"
)

// Run is one persisted backtest run: configuration identity, summary
// statistics and the full period history.
type Run struct {
	ID         int64            `json:"id"`
	StrategyID string           `json:"strategy_id"`
	ConfigHash string           `json:"config_hash"`
	Stats      metrics.Summary  `json:"stats"`
	Periods    []backtest.Period `json:"periods"`
	CreatedAt  time.Time        `json:"created_at"`
}

// RunRepository persists backtest runs.
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a run repository.
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// SaveRun stores a completed backtest run and returns its identifier.
func (r *RunRepository) SaveRun(ctx context.Context, run *Run) (int64, error) {
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal stats: %w", err)
	}
	periodsJSON, err := json.Marshal(run.Periods)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal periods: %w", err)
	}

	query := `
		INSERT INTO backtest.runs (strategy_id, config_hash, stats, periods)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err = r.pool.QueryRow(ctx, query, run.StrategyID, run.ConfigHash, statsJSON, periodsJSON).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	return id, nil
}

// LatestRun returns the most recently saved run, optionally filtered by
// strategy identifier.
func (r *RunRepository) LatestRun(ctx context.Context, strategyID string) (*Run, error) {
	query := `
		SELECT id, strategy_id, config_hash, stats, periods, created_at
		FROM backtest.runs
		WHERE ($1 = '' OR strategy_id = $1)
		ORDER BY created_at DESC
		LIMIT 1
	`

	var run Run
	var statsJSON, periodsJSON []byte

	err := r.pool.QueryRow(ctx, query, strategyID).Scan(
		&run.ID, &run.StrategyID, &run.ConfigHash, &statsJSON, &periodsJSON, &run.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("no backtest runs found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	if err := json.Unmarshal(statsJSON, &run.Stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	if err := json.Unmarshal(periodsJSON, &run.Periods); err != nil {
		return nil, fmt.Errorf("failed to unmarshal periods: %w", err)
	}

	return &run, nil
}

// ListRuns returns recent runs, newest first, without the period payload.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, strategy_id, config_hash, stats, created_at
		FROM backtest.runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var run Run
		var statsJSON []byte
		if err := rows.Scan(&run.ID, &run.StrategyID, &run.ConfigHash, &statsJSON, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := json.Unmarshal(statsJSON, &run.Stats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}
