// Package rebalance derives rebalance dates from a trading calendar.
package rebalance

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/wonny/csquant/internal/panel"
)

// Frequency tokens accepted by Dates.
const (
	FreqDaily     = "D"
	FreqWeekly    = "W"
	FreqMonthly   = "M"
	FreqQuarterly = "Q"
	FreqYearly    = "Y"
)

// Dates returns the rebalance dates for a calendar and a frequency token.
// Daily (or empty) frequency returns the calendar unchanged; calendar-period
// frequencies emit the last calendar date inside each period. The result is
// always a subset of the calendar, sorted ascending.
func Dates(calendar []time.Time, freq string) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(calendar))
	for _, d := range calendar {
		dates = append(dates, panel.Day(d))
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	token := strings.ToUpper(strings.TrimSpace(freq))
	if token == "" || token == FreqDaily {
		return dates, nil
	}

	keyFn, err := periodKeyFunc(token)
	if err != nil {
		return nil, err
	}

	// Dates are ascending, so the last date seen per period wins.
	lastInPeriod := make(map[string]time.Time)
	for _, d := range dates {
		lastInPeriod[keyFn(d)] = d
	}

	out := make([]time.Time, 0, len(lastInPeriod))
	for _, d := range lastInPeriod {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// periodKeyFunc maps a frequency token to an enclosing-period key function.
func periodKeyFunc(token string) (func(time.Time) string, error) {
	switch token {
	case FreqWeekly:
		return func(d time.Time) string {
			year, week := d.ISOWeek()
			return fmt.Sprintf("%04d-W%02d", year, week)
		}, nil
	case FreqMonthly:
		return func(d time.Time) string {
			return d.Format("2006-01")
		}, nil
	case FreqQuarterly:
		return func(d time.Time) string {
			quarter := (int(d.Month())-1)/3 + 1
			return fmt.Sprintf("%04d-Q%d", d.Year(), quarter)
		}, nil
	case FreqYearly, "A":
		return func(d time.Time) string {
			return d.Format("2006")
		}, nil
	default:
		return nil, fmt.Errorf("unsupported rebalance frequency: %s", token)
	}
}

// EstimateGap returns the median trading-day distance between consecutive
// rebalance dates, counting only pairs where both dates are in the calendar.
// NaN when no usable pair exists.
func EstimateGap(calendar *panel.TradeDatePanel, rebalanceDates []time.Time) float64 {
	if calendar == nil || calendar.Len() < 2 || len(rebalanceDates) < 2 {
		return math.NaN()
	}

	sorted := make([]time.Time, len(rebalanceDates))
	copy(sorted, rebalanceDates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var gaps []float64
	for i := 0; i+1 < len(sorted); i++ {
		start, okStart := calendar.Index(sorted[i])
		end, okEnd := calendar.Index(sorted[i+1])
		if okStart && okEnd {
			gaps = append(gaps, float64(end-start))
		}
	}
	if len(gaps) == 0 {
		return math.NaN()
	}
	return median(gaps)
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
