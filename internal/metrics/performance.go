// Package metrics reduces backtest period histories and prediction panels
// into summary statistics. All undefined results are NaN, never a fabricated
// zero.
package metrics

import (
	"math"

	"github.com/wonny/csquant/internal/backtest"
)

// Summary is the performance-statistics record of one backtest run.
type Summary struct {
	Periods     int
	TotalReturn float64
	AnnReturn   float64
	AnnVol      float64
	Sharpe      float64
	MaxDrawdown float64
	AvgTurnover float64
	AvgCostDrag float64
}

// NAV returns the net-asset-value path: the cumulative product of
// (1 + net_return) starting at 1.0, one point per period.
func NAV(periods []backtest.Period) []float64 {
	nav := make([]float64, len(periods))
	value := 1.0
	for i, p := range periods {
		value *= 1.0 + p.Net
		nav[i] = value
	}
	return nav
}

// Summarize reduces an ordered period history into summary statistics.
// Annualization uses the trading-day span between the first entry and the
// last exit.
func Summarize(periods []backtest.Period, tradingDaysPerYear int) Summary {
	s := Summary{
		Periods:     len(periods),
		TotalReturn: math.NaN(),
		AnnReturn:   math.NaN(),
		AnnVol:      math.NaN(),
		Sharpe:      math.NaN(),
		MaxDrawdown: math.NaN(),
		AvgTurnover: math.NaN(),
		AvgCostDrag: math.NaN(),
	}
	if len(periods) == 0 {
		return s
	}

	nav := NAV(periods)
	s.TotalReturn = nav[len(nav)-1] - 1.0
	s.MaxDrawdown = maxDrawdown(nav)

	totalDays := periods[len(periods)-1].ExitIdx - periods[0].EntryIdx
	if totalDays > 0 {
		s.AnnReturn = math.Pow(1.0+s.TotalReturn, float64(tradingDaysPerYear)/float64(totalDays)) - 1.0
	}

	holdingSum := 0.0
	for _, p := range periods {
		holdingSum += float64(p.ExitIdx - p.EntryIdx)
	}
	avgHolding := holdingSum / float64(len(periods))
	periodsPerYear := math.NaN()
	if avgHolding > 0 {
		periodsPerYear = float64(tradingDaysPerYear) / avgHolding
	}

	nets := make([]float64, len(periods))
	for i, p := range periods {
		nets[i] = p.Net
	}
	periodVol := sampleStd(nets)
	if isFinite(periodVol) && periodVol > 0 && isFinite(periodsPerYear) {
		s.AnnVol = periodVol * math.Sqrt(periodsPerYear)
		s.Sharpe = mean(nets) / periodVol * math.Sqrt(periodsPerYear)
	}

	turnovers := make([]float64, 0, len(periods))
	for _, p := range periods {
		if isFinite(p.Turnover) {
			turnovers = append(turnovers, p.Turnover)
		}
	}
	if len(turnovers) > 0 {
		s.AvgTurnover = mean(turnovers)
	}

	costs := make([]float64, len(periods))
	for i, p := range periods {
		costs[i] = p.Cost
	}
	s.AvgCostDrag = mean(costs)

	return s
}

// maxDrawdown returns the minimum of NAV/runningMax - 1, a non-positive
// number.
func maxDrawdown(nav []float64) float64 {
	minDrawdown := 0.0
	peak := nav[0]
	for _, value := range nav {
		if value > peak {
			peak = value
		}
		drawdown := value/peak - 1.0
		if drawdown < minDrawdown {
			minDrawdown = drawdown
		}
	}
	return minDrawdown
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStd is the standard deviation with one delta degree of freedom. NaN
// for fewer than two values.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		diff := v - m
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// populationStd is the standard deviation with zero delta degrees of
// freedom.
func populationStd(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		diff := v - m
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values)))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
