// Package jobs holds the scheduled job implementations.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/csquant/internal/external/tushare"
	"github.com/wonny/csquant/internal/store"
	"github.com/wonny/csquant/pkg/logger"
)

// PanelRefreshJob pulls the latest daily bars from the provider and upserts
// them into the observation panel. Scores are left to the research pipeline.
type PanelRefreshJob struct {
	client *tushare.Client
	repo   *store.PanelRepository
	logger *logger.Logger

	// Cron expression; weekday evenings after the close by default.
	schedule string
}

// NewPanelRefreshJob creates the refresh job.
func NewPanelRefreshJob(client *tushare.Client, repo *store.PanelRepository, log *logger.Logger) *PanelRefreshJob {
	return &PanelRefreshJob{
		client:   client,
		repo:     repo,
		logger:   log,
		schedule: "0 18 * * 1-5",
	}
}

// Name returns the job name.
func (j *PanelRefreshJob) Name() string {
	return "panel_refresh"
}

// Schedule returns the cron schedule expression.
func (j *PanelRefreshJob) Schedule() string {
	return j.schedule
}

// Run fetches bars for every calendar day after the last stored trade date
// up to today. Days the provider returns no bars for (holidays, weekends)
// are skipped.
func (j *PanelRefreshJob) Run(ctx context.Context) error {
	latest, err := j.repo.LatestTradeDate(ctx)
	if err != nil {
		return fmt.Errorf("resolve latest trade date: %w", err)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	updated := 0
	for date := latest.AddDate(0, 0, 1); !date.After(today); date = date.AddDate(0, 0, 1) {
		bars, err := j.client.DailyBars(ctx, date)
		if err != nil {
			return fmt.Errorf("fetch bars for %s: %w", date.Format("2006-01-02"), err)
		}
		if len(bars) == 0 {
			continue
		}
		if err := j.repo.UpsertPrices(ctx, bars); err != nil {
			return fmt.Errorf("store bars for %s: %w", date.Format("2006-01-02"), err)
		}
		updated++
	}

	j.logger.WithFields(map[string]interface{}{
		"since":        latest.Format("2006-01-02"),
		"days_updated": updated,
	}).Info("Panel refresh completed")

	return nil
}
