package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/csquant/internal/backtest"
	"github.com/wonny/csquant/internal/panel"
)

// ICSummary aggregates a daily information-coefficient series.
type ICSummary struct {
	N     int     `json:"n"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	IR    float64 `json:"ir"`
	TStat float64 `json:"t_stat"`
}

// SpearmanCorr is the rank correlation between two equally long samples,
// with average ranks for ties. NaN for fewer than two points.
func SpearmanCorr(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	return pearson(averageRanks(x), averageRanks(y))
}

// DailyICSeries computes the per-date Spearman correlation between the
// prediction score and the realized target across the panel. Dates with
// fewer than two distinct targets, or an undefined correlation, are absent
// from the output.
func DailyICSeries(obs *panel.ObservationPanel) []backtest.SeriesPoint {
	var out []backtest.SeriesPoint
	for _, date := range obs.Calendar().Dates() {
		var preds, targets []float64
		for _, o := range obs.At(date) {
			if math.IsNaN(o.Target) || math.IsNaN(o.Score) {
				continue
			}
			preds = append(preds, o.Score)
			targets = append(targets, o.Target)
		}
		if distinctCount(targets) < 2 {
			continue
		}
		ic := SpearmanCorr(preds, targets)
		if math.IsNaN(ic) {
			continue
		}
		out = append(out, backtest.SeriesPoint{Date: date, Value: ic})
	}
	return out
}

// SummarizeIC reduces an IC series into mean, population std, information
// ratio and t-statistic.
func SummarizeIC(series []backtest.SeriesPoint) ICSummary {
	s := ICSummary{
		Mean:  math.NaN(),
		Std:   math.NaN(),
		IR:    math.NaN(),
		TStat: math.NaN(),
	}
	values := make([]float64, 0, len(series))
	for _, p := range series {
		if isFinite(p.Value) {
			values = append(values, p.Value)
		}
	}
	s.N = len(values)
	if s.N == 0 {
		return s
	}
	s.Mean = mean(values)
	s.Std = populationStd(values)
	if s.Std > 0 {
		s.IR = s.Mean / s.Std
		s.TStat = s.Mean / (s.Std / math.Sqrt(float64(s.N)))
	}
	return s
}

// EstimateTurnover computes the naive top-K overlap turnover series across
// rebalance dates, straight from the predictions. Dates with fewer than k
// observations are skipped.
func EstimateTurnover(obs *panel.ObservationPanel, k int, rebalanceDates []time.Time) []backtest.SeriesPoint {
	var out []backtest.SeriesPoint
	var prev map[string]struct{}
	for _, date := range rebalanceDates {
		day := obs.At(date)
		if len(day) < k {
			continue
		}
		ranked := make([]panel.Observation, len(day))
		copy(ranked, day)
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

		holdings := make(map[string]struct{}, k)
		for _, o := range ranked[:k] {
			holdings[o.Instrument] = struct{}{}
		}
		if prev != nil {
			overlap := 0
			for instrument := range holdings {
				if _, ok := prev[instrument]; ok {
					overlap++
				}
			}
			out = append(out, backtest.SeriesPoint{
				Date:  panel.Day(date),
				Value: 1.0 - float64(overlap)/float64(k),
			})
		}
		prev = holdings
	}
	return out
}

func distinctCount(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// averageRanks assigns 1-based ranks with ties receiving the average of
// their positions.
func averageRanks(values []float64) []float64 {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[order[j+1]] == values[order[i]] {
			j++
		}
		// Positions i..j share the same value.
		avg := float64(i+j)/2.0 + 1.0
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

func pearson(x, y []float64) float64 {
	mx := mean(x)
	my := mean(y)
	var cov, vx, vy float64
	for i := range x {
		dx := x[i] - mx
		dy := y[i] - my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}
