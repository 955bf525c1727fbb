// Package store persists the tidy observation panel and backtest runs in
// PostgreSQL.
package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/csquant/internal/panel"
)

// PanelRepository loads and refreshes the tidy observation panel.
type PanelRepository struct {
	pool *pgxpool.Pool
}

// NewPanelRepository creates a panel repository.
func NewPanelRepository(pool *pgxpool.Pool) *PanelRepository {
	return &PanelRepository{pool: pool}
}

// LoadPanel loads the observation panel between two dates, inclusive.
func (r *PanelRepository) LoadPanel(ctx context.Context, from, to time.Time) (*panel.ObservationPanel, error) {
	query := `
		SELECT trade_date, instrument, score, price, target, tradable
		FROM data.observations
		WHERE trade_date >= $1 AND trade_date <= $2
		ORDER BY trade_date, instrument
	`

	rows, err := r.pool.Query(ctx, query, panel.Day(from), panel.Day(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var observations []panel.Observation

	for rows.Next() {
		var (
			date     time.Time
			obs      panel.Observation
			score    *float64
			price    *float64
			target   *float64
			tradable *bool
		)
		if err := rows.Scan(&date, &obs.Instrument, &score, &price, &target, &tradable); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		obs.Date = date
		obs.Score = nullableFloat(score)
		obs.Price = nullableFloat(price)
		obs.Target = nullableFloat(target)
		obs.Tradable = tradable
		observations = append(observations, obs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating observations: %w", err)
	}

	if len(observations) == 0 {
		return nil, fmt.Errorf("no observations between %s and %s",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	return panel.NewObservationPanel(observations)
}

// UpsertObservations writes observation rows, replacing existing rows for
// the same (trade_date, instrument) key.
func (r *PanelRepository) UpsertObservations(ctx context.Context, observations []panel.Observation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO data.observations (
			trade_date, instrument, score, price, target, tradable
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (trade_date, instrument) DO UPDATE SET
			score = EXCLUDED.score,
			price = EXCLUDED.price,
			target = EXCLUDED.target,
			tradable = EXCLUDED.tradable,
			updated_at = NOW()
	`

	for _, obs := range observations {
		_, err := tx.Exec(ctx, query,
			panel.Day(obs.Date), obs.Instrument,
			floatOrNil(obs.Score), floatOrNil(obs.Price), floatOrNil(obs.Target),
			obs.Tradable,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert observation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpsertPrices writes provider bars, touching only the price and tradable
// columns so existing prediction scores survive a refresh.
func (r *PanelRepository) UpsertPrices(ctx context.Context, observations []panel.Observation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO data.observations (trade_date, instrument, price, tradable)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (trade_date, instrument) DO UPDATE SET
			price = EXCLUDED.price,
			tradable = EXCLUDED.tradable,
			updated_at = NOW()
	`

	for _, obs := range observations {
		_, err := tx.Exec(ctx, query,
			panel.Day(obs.Date), obs.Instrument, floatOrNil(obs.Price), obs.Tradable,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert price: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LatestTradeDate returns the most recent trade date in storage.
func (r *PanelRepository) LatestTradeDate(ctx context.Context) (time.Time, error) {
	var date time.Time
	err := r.pool.QueryRow(ctx, "SELECT MAX(trade_date) FROM data.observations").Scan(&date)
	if err == pgx.ErrNoRows {
		return time.Time{}, fmt.Errorf("no observations in storage")
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest trade date: %w", err)
	}
	return date, nil
}

// nullableFloat maps a SQL NULL to NaN.
func nullableFloat(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// floatOrNil maps NaN to SQL NULL.
func floatOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
