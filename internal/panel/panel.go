// Package panel holds the tidy observation panel and its derived dense
// tables. The trading-date index is the canonical clock for the whole
// pipeline: shifting a date by N trading days means adding N to its index.
package panel

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Day normalizes a timestamp to a trading-date key (UTC midnight).
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TradeDatePanel is an ordered sequence of distinct trading dates, each
// mapped to a dense integer index 0..N-1. Index order matches chronological
// order.
type TradeDatePanel struct {
	dates []time.Time
	index map[time.Time]int
}

// NewTradeDatePanel builds a calendar from the given dates, sorting and
// de-duplicating them.
func NewTradeDatePanel(dates []time.Time) *TradeDatePanel {
	seen := make(map[time.Time]struct{}, len(dates))
	distinct := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		key := Day(d)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		distinct = append(distinct, key)
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i].Before(distinct[j]) })

	index := make(map[time.Time]int, len(distinct))
	for i, d := range distinct {
		index[d] = i
	}
	return &TradeDatePanel{dates: distinct, index: index}
}

// Len returns the number of trading dates.
func (p *TradeDatePanel) Len() int {
	return len(p.dates)
}

// Date returns the trading date at index i.
func (p *TradeDatePanel) Date(i int) time.Time {
	return p.dates[i]
}

// Index returns the dense index of a date and whether it is in the calendar.
func (p *TradeDatePanel) Index(d time.Time) (int, bool) {
	idx, ok := p.index[Day(d)]
	return idx, ok
}

// Dates returns a copy of the ordered trading dates.
func (p *TradeDatePanel) Dates() []time.Time {
	out := make([]time.Time, len(p.dates))
	copy(out, p.dates)
	return out
}

// Observation is one record of the tidy panel: a prediction score and a
// price for one instrument on one trading date. Target carries the realized
// forward return used by IC evaluation; NaN when unknown. Tradable is nil
// when the data source provides no tradability flag.
type Observation struct {
	Date       time.Time
	Instrument string
	Score      float64
	Price      float64
	Target     float64
	Tradable   *bool
}

// ObservationPanel is a collection of observations with at most one record
// per (date, instrument) pair, plus the derived dense tables.
type ObservationPanel struct {
	calendar    *TradeDatePanel
	byDate      map[time.Time][]Observation
	instruments []string

	// Dense date-major tables, one slice per instrument, length == calendar
	// length. Missing prices are NaN.
	prices   map[string][]float64
	tradable map[string][]bool
	hasFlags bool
}

// NewObservationPanel builds a panel from tidy rows. It fails when two rows
// share the same (date, instrument) key.
func NewObservationPanel(rows []Observation) (*ObservationPanel, error) {
	dates := make([]time.Time, 0, len(rows))
	for _, r := range rows {
		dates = append(dates, r.Date)
	}
	calendar := NewTradeDatePanel(dates)

	byDate := make(map[time.Time][]Observation, calendar.Len())
	seen := make(map[string]struct{}, len(rows))
	instrumentSet := make(map[string]struct{})
	hasFlags := false
	for _, r := range rows {
		key := Day(r.Date)
		dupKey := key.Format("2006-01-02") + "|" + r.Instrument
		if _, ok := seen[dupKey]; ok {
			return nil, fmt.Errorf("duplicate observation for %s on %s", r.Instrument, key.Format("2006-01-02"))
		}
		seen[dupKey] = struct{}{}
		r.Date = key
		byDate[key] = append(byDate[key], r)
		instrumentSet[r.Instrument] = struct{}{}
		if r.Tradable != nil {
			hasFlags = true
		}
	}

	instruments := make([]string, 0, len(instrumentSet))
	for code := range instrumentSet {
		instruments = append(instruments, code)
	}
	sort.Strings(instruments)

	p := &ObservationPanel{
		calendar:    calendar,
		byDate:      byDate,
		instruments: instruments,
		prices:      make(map[string][]float64, len(instruments)),
		hasFlags:    hasFlags,
	}
	if hasFlags {
		p.tradable = make(map[string][]bool, len(instruments))
	}

	n := calendar.Len()
	for _, code := range instruments {
		prices := make([]float64, n)
		for i := range prices {
			prices[i] = math.NaN()
		}
		p.prices[code] = prices
		if hasFlags {
			flags := make([]bool, n)
			for i := range flags {
				// A missing record carries no flag; absence never blocks an
				// exit on its own, the finite-price check does.
				flags[i] = true
			}
			p.tradable[code] = flags
		}
	}
	for date, obs := range byDate {
		idx, _ := calendar.Index(date)
		for _, r := range obs {
			p.prices[r.Instrument][idx] = r.Price
			if hasFlags && r.Tradable != nil {
				p.tradable[r.Instrument][idx] = *r.Tradable
			}
		}
	}

	return p, nil
}

// Calendar returns the trading-date panel derived from the observations.
func (p *ObservationPanel) Calendar() *TradeDatePanel {
	return p.calendar
}

// Instruments returns the sorted distinct instrument identifiers.
func (p *ObservationPanel) Instruments() []string {
	out := make([]string, len(p.instruments))
	copy(out, p.instruments)
	return out
}

// At returns the observations recorded on a trading date.
func (p *ObservationPanel) At(date time.Time) []Observation {
	return p.byDate[Day(date)]
}

// Price returns the price of an instrument at a calendar index. NaN when the
// instrument has no record on that date.
func (p *ObservationPanel) Price(instrument string, idx int) float64 {
	series, ok := p.prices[instrument]
	if !ok || idx < 0 || idx >= len(series) {
		return math.NaN()
	}
	return series[idx]
}

// HasTradableFlags reports whether any observation carried a tradability
// flag.
func (p *ObservationPanel) HasTradableFlags() bool {
	return p.hasFlags
}

// Tradable reports whether an instrument is tradable at a calendar index.
// Always true when the panel carries no tradability flags.
func (p *ObservationPanel) Tradable(instrument string, idx int) bool {
	if !p.hasFlags {
		return true
	}
	series, ok := p.tradable[instrument]
	if !ok || idx < 0 || idx >= len(series) {
		return true
	}
	return series[idx]
}
