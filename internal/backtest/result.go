package backtest

import (
	"errors"
	"time"
)

// ErrNoResult reports a run that could not accumulate a single period. It is
// an insufficient-data outcome, not a failure: callers decide whether an
// empty backtest is fatal for their own workflow.
var ErrNoResult = errors.New("backtest: no tradable periods")

// Period is the unit of the backtest: one holding window bounded by an entry
// and a realized exit. Immutable once appended to the period history.
type Period struct {
	RebalanceDate time.Time `json:"rebalance_date"`
	EntryDate     time.Time `json:"entry_date"`
	ExitDate      time.Time `json:"exit_date"`
	EntryIdx      int       `json:"entry_idx"`
	ExitIdx       int       `json:"exit_idx"`

	Holdings []string `json:"holdings"`
	Gross    float64  `json:"gross_return"`
	Net      float64  `json:"net_return"`
	Turnover float64  `json:"turnover"`
	Cost     float64  `json:"cost"`
}

// SeriesPoint is one value of a period time series, indexed by exit date.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Result is the accumulated period history of one simulator run.
type Result struct {
	Periods []Period `json:"periods"`
}

// NetSeries returns the net-return series indexed by exit date.
func (r *Result) NetSeries() []SeriesPoint {
	return r.series(func(p Period) float64 { return p.Net })
}

// GrossSeries returns the gross-return series indexed by exit date.
func (r *Result) GrossSeries() []SeriesPoint {
	return r.series(func(p Period) float64 { return p.Gross })
}

// TurnoverSeries returns the turnover series indexed by exit date.
func (r *Result) TurnoverSeries() []SeriesPoint {
	return r.series(func(p Period) float64 { return p.Turnover })
}

func (r *Result) series(value func(Period) float64) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(r.Periods))
	for _, p := range r.Periods {
		out = append(out, SeriesPoint{Date: p.ExitDate, Value: value(p)})
	}
	return out
}
