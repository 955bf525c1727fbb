// Package backtest converts a stream of cross-sectional predictions into a
// bias-free sequence of portfolio periods: top-K selection, entry/exit price
// resolution, turnover and cost accounting.
package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/csquant/internal/execution"
	"github.com/wonny/csquant/internal/panel"
	"github.com/wonny/csquant/pkg/logger"
)

// ExitMode selects how a period's planned exit date is derived.
type ExitMode string

const (
	// ExitModeRebalance closes each period at the next rebalance date.
	ExitModeRebalance ExitMode = "rebalance"
	// ExitModeLabelHorizon closes each period a fixed number of trading days
	// after entry. Periods must not overlap under this mode.
	ExitModeLabelHorizon ExitMode = "label_horizon"
)

// Config holds the simulator parameters for one run.
type Config struct {
	TopK            int
	ShiftDays       int
	ExitMode        ExitMode
	ExitHorizonDays int
}

// Simulator runs the rebalance-period state machine. It owns no cross-run
// state: independent runs may execute in parallel, each with its own panel
// and its own carry-forward accumulator.
type Simulator struct {
	exec   execution.Model
	cfg    Config
	logger *logger.Logger
}

// NewSimulator validates the configuration and creates a simulator.
func NewSimulator(exec execution.Model, cfg Config, log *logger.Logger) (*Simulator, error) {
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", cfg.TopK)
	}
	if cfg.ShiftDays < 0 {
		return nil, fmt.Errorf("shift_days must be non-negative, got %d", cfg.ShiftDays)
	}
	switch cfg.ExitMode {
	case ExitModeRebalance:
	case ExitModeLabelHorizon:
		if cfg.ExitHorizonDays <= 0 {
			return nil, fmt.Errorf("exit_horizon_days is required for exit_mode=label_horizon")
		}
	default:
		return nil, fmt.Errorf("exit_mode must be one of: rebalance, label_horizon")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Simulator{exec: exec, cfg: cfg, logger: log}, nil
}

// carry is the only persistent cross-period state: the previous accepted
// period's holdings and entry prices, threaded through each iteration
// explicitly. nil before the first accepted period.
type carry struct {
	holdings    map[string]struct{}
	entryPrices map[string]float64
	exitIdx     int
}

// Run executes the backtest over the rebalance dates in ascending order.
// It returns ErrNoResult when no period can be accumulated; configuration
// errors (overlapping fixed horizons) are returned as ordinary errors.
func (s *Simulator) Run(obs *panel.ObservationPanel, rebalanceDates []time.Time) (*Result, error) {
	cal := obs.Calendar()
	if cal.Len() < 2 {
		return nil, ErrNoResult
	}

	var periods []Period
	var prev *carry

	for i, rebDate := range rebalanceDates {
		rebIdx, ok := cal.Index(rebDate)
		if !ok {
			continue
		}

		var entryIdx, exitIdx int
		if s.cfg.ExitMode == ExitModeRebalance {
			// The last rebalance date never opens a period: there is no next
			// rebalance to pair the exit with.
			if i >= len(rebalanceDates)-1 {
				break
			}
			nextIdx, ok := cal.Index(rebalanceDates[i+1])
			if !ok {
				continue
			}
			entryIdx = rebIdx + s.cfg.ShiftDays
			exitIdx = nextIdx + s.cfg.ShiftDays
		} else {
			entryIdx = rebIdx + s.cfg.ShiftDays
			exitIdx = entryIdx + s.cfg.ExitHorizonDays
			if prev != nil && entryIdx < prev.exitIdx {
				return nil, fmt.Errorf(
					"exit_mode=label_horizon overlaps with rebalance dates; increase rebalance frequency or use exit_mode=rebalance")
			}
		}
		if entryIdx >= cal.Len() || exitIdx >= cal.Len() || entryIdx >= exitIdx {
			continue
		}

		period, next, ok := s.runPeriod(obs, rebDate, entryIdx, exitIdx, prev)
		if !ok {
			continue
		}
		periods = append(periods, period)
		prev = next
	}

	if len(periods) == 0 {
		s.logger.Warn("Backtest produced no tradable periods")
		return nil, ErrNoResult
	}

	s.logger.WithFields(map[string]interface{}{
		"periods": len(periods),
		"first":   periods[0].EntryDate.Format("2006-01-02"),
		"last":    periods[len(periods)-1].ExitDate.Format("2006-01-02"),
	}).Info("Backtest completed")

	return &Result{Periods: periods}, nil
}

// runPeriod executes SELECT, ENTRY_RESOLVE, EXIT_RESOLVE and SCORE for one
// rebalance date. ok is false when the period is skipped; the carry state is
// only advanced on accepted periods.
func (s *Simulator) runPeriod(
	obs *panel.ObservationPanel,
	rebDate time.Time,
	entryIdx, exitIdx int,
	prev *carry,
) (Period, *carry, bool) {
	cal := obs.Calendar()

	// SELECT: rank the day's observations descending by score.
	holdings := s.selectTopK(obs, rebDate)
	if len(holdings) == 0 {
		return Period{}, nil, false
	}

	// ENTRY_RESOLVE: exact entry-date prices, no fallback.
	entryPrices := make(map[string]float64, len(holdings))
	entered := holdings[:0]
	for _, instrument := range holdings {
		price := obs.Price(instrument, entryIdx)
		if math.IsNaN(price) || math.IsInf(price, 0) {
			continue
		}
		entryPrices[instrument] = price
		entered = append(entered, instrument)
	}
	if len(entered) == 0 {
		return Period{}, nil, false
	}

	// EXIT_RESOLVE: delegate to the exit policy.
	exitPrices, actualExitIdx := s.exec.Exit.ResolveExits(entered, exitIdx, obs)
	final := make([]string, 0, len(entered))
	for _, instrument := range entered {
		if _, ok := exitPrices[instrument]; ok {
			final = append(final, instrument)
		}
	}
	if len(final) == 0 {
		return Period{}, nil, false
	}
	k := len(final)

	// SCORE: equal-weighted mean of simple returns.
	gross := 0.0
	for _, instrument := range final {
		gross += exitPrices[instrument]/entryPrices[instrument] - 1.0
	}
	gross /= float64(k)

	isInitial := prev == nil
	var turnover float64
	if isInitial {
		// Full initial build.
		turnover = 1.0
	} else {
		turnover = s.turnover(prev, final, entryIdx, k, obs)
	}

	cost := s.exec.Cost.Cost(turnover, isInitial, "long")
	net := gross - cost

	period := Period{
		RebalanceDate: rebDate,
		EntryDate:     cal.Date(entryIdx),
		ExitDate:      cal.Date(actualExitIdx),
		EntryIdx:      entryIdx,
		ExitIdx:       actualExitIdx,
		Holdings:      final,
		Gross:         gross,
		Net:           net,
		Turnover:      turnover,
		Cost:          cost,
	}

	next := &carry{
		holdings:    make(map[string]struct{}, k),
		entryPrices: make(map[string]float64, k),
		exitIdx:     actualExitIdx,
	}
	for _, instrument := range final {
		next.holdings[instrument] = struct{}{}
		next.entryPrices[instrument] = entryPrices[instrument]
	}

	s.logger.WithFields(map[string]interface{}{
		"rebalance": rebDate.Format("2006-01-02"),
		"holdings":  k,
		"gross":     gross,
		"net":       net,
		"turnover":  turnover,
	}).Debug("Period accumulated")

	return period, next, true
}

// selectTopK returns the top-K instruments by prediction score on a
// rebalance date. Observations without a finite score are excluded; ties
// keep the panel's stable row order.
func (s *Simulator) selectTopK(obs *panel.ObservationPanel, rebDate time.Time) []string {
	day := obs.At(rebDate)
	ranked := make([]panel.Observation, 0, len(day))
	for _, o := range day {
		if math.IsNaN(o.Score) || math.IsInf(o.Score, 0) {
			continue
		}
		ranked = append(ranked, o)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	k := s.cfg.TopK
	if len(ranked) < k {
		k = len(ranked)
	}
	holdings := make([]string, 0, k)
	for _, o := range ranked[:k] {
		holdings = append(holdings, o.Instrument)
	}
	return holdings
}

// turnover computes the drift-aware half-turnover between the previous and
// current portfolio, falling back to the overlap estimate when drift weights
// are undefined.
func (s *Simulator) turnover(prev *carry, holdings []string, entryIdx, k int, obs *panel.ObservationPanel) float64 {
	if t, ok := driftTurnover(prev, holdings, entryIdx, k, obs); ok {
		return t
	}
	overlap := 0
	for _, instrument := range holdings {
		if _, ok := prev.holdings[instrument]; ok {
			overlap++
		}
	}
	return 1.0 - float64(overlap)/float64(k)
}

// driftTurnover scales the previous equal weights by price movement up to
// the current entry date, renormalizes, and takes half the L1 distance to
// the new equal-weight target over the union of identifiers. ok is false
// when no previous holding survives to the current entry date or the drift
// sum collapses to zero.
func driftTurnover(prev *carry, holdings []string, entryIdx, k int, obs *panel.ObservationPanel) (float64, bool) {
	survivors := make([]string, 0, len(prev.entryPrices))
	for instrument, prevPrice := range prev.entryPrices {
		if math.IsNaN(prevPrice) || math.IsInf(prevPrice, 0) || prevPrice == 0 {
			continue
		}
		current := obs.Price(instrument, entryIdx)
		if math.IsNaN(current) || math.IsInf(current, 0) {
			continue
		}
		survivors = append(survivors, instrument)
	}
	if len(survivors) == 0 {
		return 0, false
	}
	sort.Strings(survivors)

	equal := 1.0 / float64(len(survivors))
	drift := make(map[string]float64, len(survivors))
	driftSum := 0.0
	for _, instrument := range survivors {
		d := equal * (obs.Price(instrument, entryIdx) / prev.entryPrices[instrument])
		drift[instrument] = d
		driftSum += d
	}
	if driftSum <= 0 {
		return 0, false
	}

	target := 1.0 / float64(k)
	union := make(map[string]struct{}, len(survivors)+k)
	for _, instrument := range survivors {
		union[instrument] = struct{}{}
	}
	held := make(map[string]struct{}, k)
	for _, instrument := range holdings {
		union[instrument] = struct{}{}
		held[instrument] = struct{}{}
	}

	ids := make([]string, 0, len(union))
	for instrument := range union {
		ids = append(ids, instrument)
	}
	sort.Strings(ids)

	l1 := 0.0
	for _, instrument := range ids {
		driftWeight := drift[instrument] / driftSum
		targetWeight := 0.0
		if _, ok := held[instrument]; ok {
			targetWeight = target
		}
		l1 += math.Abs(targetWeight - driftWeight)
	}
	return 0.5 * l1, true
}
