// Package grid sweeps backtest parameter combinations. Each combination
// runs in its own worker with its own simulator and carry-forward state;
// the observation panel is shared read-only.
package grid

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wonny/csquant/internal/backtest"
	"github.com/wonny/csquant/internal/execution"
	"github.com/wonny/csquant/internal/metrics"
	"github.com/wonny/csquant/internal/panel"
	"github.com/wonny/csquant/internal/strategyconfig"
	"github.com/wonny/csquant/pkg/logger"
)

// Spec enumerates the parameter grid.
type Spec struct {
	TopK    []int
	CostBps []float64
	Workers int
}

// Row is one grid result: the combination, its status and its statistics.
type Row struct {
	RunName string          `json:"run_name"`
	TopK    int             `json:"top_k"`
	CostBps float64         `json:"cost_bps"`
	Status  string          `json:"status"`
	Error   string          `json:"error,omitempty"`
	Stats   metrics.Summary `json:"stats"`
}

// Statuses reported per combination.
const (
	StatusOK       = "ok"
	StatusNoResult = "no_result"
	StatusError    = "error"
)

// Run executes every TopK × CostBps combination of the base configuration
// and returns one row per combination, ordered by (top_k, cost_bps).
func Run(
	obs *panel.ObservationPanel,
	rebalanceDates []time.Time,
	base *strategyconfig.Config,
	spec Spec,
	log *logger.Logger,
) []Row {
	if log == nil {
		log = logger.NewNop()
	}

	type job struct {
		topK    int
		costBps float64
	}
	jobs := make([]job, 0, len(spec.TopK)*len(spec.CostBps))
	for _, k := range spec.TopK {
		for _, bps := range spec.CostBps {
			jobs = append(jobs, job{topK: k, costBps: bps})
		}
	}

	workers := spec.Workers
	if workers <= 0 {
		workers = 4
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	rows := make([]Row, len(jobs))
	jobCh := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				j := jobs[i]
				rows[i] = runOne(obs, rebalanceDates, base, j.topK, j.costBps)
			}
		}()
	}
	for i := range jobs {
		jobCh <- i
	}
	close(jobCh)
	wg.Wait()

	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].TopK != rows[b].TopK {
			return rows[a].TopK < rows[b].TopK
		}
		return rows[a].CostBps < rows[b].CostBps
	})

	log.WithFields(map[string]interface{}{
		"combinations": len(rows),
		"workers":      workers,
	}).Info("Grid sweep completed")

	return rows
}

// runOne executes a single combination. Failures never abort the sweep.
func runOne(
	obs *panel.ObservationPanel,
	rebalanceDates []time.Time,
	base *strategyconfig.Config,
	topK int,
	costBps float64,
) Row {
	row := Row{
		RunName: runName(base.Meta.StrategyID, topK, costBps),
		TopK:    topK,
		CostBps: costBps,
		Status:  StatusOK,
	}

	cfg := *base
	cfg.Backtest.TopK = topK
	cfg.Execution.CostModel = execution.CostModelConfig{Name: "bps", Bps: &costBps}

	model, err := cfg.BuildExecutionModel()
	if err != nil {
		row.Status = StatusError
		row.Error = err.Error()
		return row
	}

	sim, err := backtest.NewSimulator(model, cfg.SimulatorConfig(), logger.NewNop())
	if err != nil {
		row.Status = StatusError
		row.Error = err.Error()
		return row
	}

	result, err := sim.Run(obs, rebalanceDates)
	if errors.Is(err, backtest.ErrNoResult) {
		row.Status = StatusNoResult
		return row
	}
	if err != nil {
		row.Status = StatusError
		row.Error = err.Error()
		return row
	}

	row.Stats = metrics.Summarize(result.Periods, cfg.Backtest.TradingDaysPerYear)
	return row
}

// runName builds a filesystem-safe identifier for a combination.
func runName(base string, topK int, costBps float64) string {
	costText := strings.ReplaceAll(fmt.Sprintf("%g", costBps), ".", "p")
	return fmt.Sprintf("%s_k%d_bps%s", base, topK, costText)
}
