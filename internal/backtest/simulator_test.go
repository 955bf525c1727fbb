package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/csquant/internal/execution"
	"github.com/wonny/csquant/internal/panel"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func mustPanel(t *testing.T, rows []panel.Observation) *panel.ObservationPanel {
	t.Helper()
	p, err := panel.NewObservationPanel(rows)
	require.NoError(t, err)
	return p
}

func noCostModel() execution.Model {
	return execution.Model{
		Cost: execution.NoCost(),
		Exit: execution.ExitPolicy{Price: execution.ExitStrict, Fallback: execution.FallbackNone},
	}
}

// singleSeries builds a panel with one instrument A whose price walks the
// given values on consecutive dates, with a constant positive score.
func singleSeries(t *testing.T, prices []float64) *panel.ObservationPanel {
	t.Helper()
	rows := make([]panel.Observation, 0, len(prices))
	for i, price := range prices {
		rows = append(rows, panel.Observation{
			Date: day(i + 1), Instrument: "A", Score: 1.0, Price: price, Target: math.NaN(),
		})
	}
	return mustPanel(t, rows)
}

func TestNewSimulatorValidation(t *testing.T) {
	exec := noCostModel()

	_, err := NewSimulator(exec, Config{TopK: 0, ExitMode: ExitModeRebalance}, nil)
	require.Error(t, err)

	_, err = NewSimulator(exec, Config{TopK: 1, ShiftDays: -1, ExitMode: ExitModeRebalance}, nil)
	require.Error(t, err)

	_, err = NewSimulator(exec, Config{TopK: 1, ExitMode: ExitModeLabelHorizon}, nil)
	require.Error(t, err)

	_, err = NewSimulator(exec, Config{TopK: 1, ExitMode: "hold"}, nil)
	require.Error(t, err)
}

func TestRunSingleInstrument(t *testing.T) {
	prices := []float64{100, 102, 104, 106, 108, 110}
	obs := singleSeries(t, prices)
	dates := obs.Calendar().Dates()

	sim, err := NewSimulator(noCostModel(), Config{TopK: 1, ShiftDays: 1, ExitMode: ExitModeRebalance}, nil)
	require.NoError(t, err)

	result, err := sim.Run(obs, dates)
	require.NoError(t, err)

	// Rebalance i opens entry i+1 / exit i+2; the last date never opens a
	// period and entry 5 / exit 6 is out of range.
	require.Len(t, result.Periods, 4)
	for i, p := range result.Periods {
		expected := prices[i+2]/prices[i+1] - 1.0
		assert.InDelta(t, expected, p.Gross, 1e-12, "period %d", i)
		assert.Equal(t, p.Gross, p.Net, "no cost model: net equals gross")
		assert.Equal(t, []string{"A"}, p.Holdings)
		assert.Equal(t, i+1, p.EntryIdx)
		assert.Equal(t, i+2, p.ExitIdx)
	}

	// Initial build is full turnover; a single surviving name stays put.
	assert.Equal(t, 1.0, result.Periods[0].Turnover)
	for _, p := range result.Periods[1:] {
		assert.InDelta(t, 0.0, p.Turnover, 1e-12)
	}
}

func TestRunAlternatingHoldings(t *testing.T) {
	// A and B swap the top score every day; prices stay flat so the whole
	// net return is the cost drag.
	var rows []panel.Observation
	for i := 0; i < 6; i++ {
		scoreA, scoreB := 1.0, 2.0
		if i%2 == 0 {
			scoreA, scoreB = 2.0, 1.0
		}
		rows = append(rows,
			panel.Observation{Date: day(i + 1), Instrument: "A", Score: scoreA, Price: 100, Target: math.NaN()},
			panel.Observation{Date: day(i + 1), Instrument: "B", Score: scoreB, Price: 100, Target: math.NaN()},
		)
	}
	obs := mustPanel(t, rows)

	exec := execution.Model{
		Cost: execution.BpsCost(10, true),
		Exit: execution.ExitPolicy{Price: execution.ExitStrict, Fallback: execution.FallbackNone},
	}
	sim, err := NewSimulator(exec, Config{TopK: 1, ShiftDays: 0, ExitMode: ExitModeRebalance}, nil)
	require.NoError(t, err)

	result, err := sim.Run(obs, obs.Calendar().Dates())
	require.NoError(t, err)
	require.Len(t, result.Periods, 5)

	first := result.Periods[0]
	assert.Equal(t, []string{"A"}, first.Holdings)
	assert.Equal(t, 1.0, first.Turnover)
	// Initial build pays the entry leg once
	assert.InDelta(t, 0.001, first.Cost, 1e-12)

	for i, p := range result.Periods[1:] {
		assert.InDelta(t, 1.0, p.Turnover, 1e-12, "full swap every period")
		assert.InDelta(t, 0.002, p.Cost, 1e-12, "round trip on full turnover")
		assert.InDelta(t, 0.0, p.Gross, 1e-12)
		assert.InDelta(t, -p.Cost, p.Net, 1e-12, "period %d", i+1)
	}
}

func TestRunTurnoverBounds(t *testing.T) {
	// Drifting prices and a churning top-2 portfolio: turnover must stay
	// within [0, 1].
	var rows []panel.Observation
	names := []string{"A", "B", "C", "D"}
	pricesBase := []float64{100, 50, 200, 10}
	for i := 0; i < 8; i++ {
		for j, name := range names {
			rows = append(rows, panel.Observation{
				Date:       day(i + 1),
				Instrument: name,
				Score:      float64((i + j) % 4),
				Price:      pricesBase[j] * (1 + 0.03*float64(i)*float64(j+1)),
				Target:     math.NaN(),
			})
		}
	}
	obs := mustPanel(t, rows)

	sim, err := NewSimulator(noCostModel(), Config{TopK: 2, ShiftDays: 1, ExitMode: ExitModeRebalance}, nil)
	require.NoError(t, err)

	result, err := sim.Run(obs, obs.Calendar().Dates())
	require.NoError(t, err)
	require.NotEmpty(t, result.Periods)

	for _, p := range result.Periods {
		assert.GreaterOrEqual(t, p.Turnover, 0.0)
		assert.LessOrEqual(t, p.Turnover, 1.0+1e-12)
	}
}

func TestRunStrictSkipsPeriodWithoutExit(t *testing.T) {
	// A's price disappears on day 3, the exit of the first period.
	rows := []panel.Observation{
		{Date: day(1), Instrument: "A", Score: 1, Price: 100, Target: math.NaN()},
		{Date: day(2), Instrument: "A", Score: 1, Price: 101, Target: math.NaN()},
		{Date: day(3), Instrument: "A", Score: 1, Price: math.NaN(), Target: math.NaN()},
		{Date: day(4), Instrument: "A", Score: 1, Price: 103, Target: math.NaN()},
	}
	obs := mustPanel(t, rows)

	sim, err := NewSimulator(noCostModel(), Config{TopK: 1, ShiftDays: 0, ExitMode: ExitModeRebalance}, nil)
	require.NoError(t, err)

	result, err := sim.Run(obs, obs.Calendar().Dates())
	require.NoError(t, err)

	// Period 1→2 survives... period 2→3 has no exit price, period 3→4 has
	// no entry price. Only the surviving periods accumulate.
	for _, p := range result.Periods {
		assert.False(t, math.IsNaN(p.Gross))
	}
	require.Len(t, result.Periods, 1)
	assert.Equal(t, 0, result.Periods[0].EntryIdx)
	assert.Equal(t, 1, result.Periods[0].ExitIdx)
}

func TestRunRebalanceDatesOutsideCalendar(t *testing.T) {
	obs := singleSeries(t, []float64{100, 101, 102, 103})
	dates := obs.Calendar().Dates()

	// An off-calendar date opens no period itself and voids the pairing of
	// the rebalance before it.
	withGap := []time.Time{dates[0], day(20), dates[1], dates[2], dates[3]}

	sim, err := NewSimulator(noCostModel(), Config{TopK: 1, ShiftDays: 0, ExitMode: ExitModeRebalance}, nil)
	require.NoError(t, err)

	result, err := sim.Run(obs, withGap)
	require.NoError(t, err)
	require.Len(t, result.Periods, 2)
	assert.Equal(t, dates[1], result.Periods[0].RebalanceDate)
}

func TestRunIdempotent(t *testing.T) {
	obs := singleSeries(t, []float64{100, 104, 99, 108, 103, 111})
	dates := obs.Calendar().Dates()

	sim, err := NewSimulator(noCostModel(), Config{TopK: 1, ShiftDays: 1, ExitMode: ExitModeRebalance}, nil)
	require.NoError(t, err)

	first, err := sim.Run(obs, dates)
	require.NoError(t, err)
	second, err := sim.Run(obs, dates)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRunNoResult(t *testing.T) {
	sim, err := NewSimulator(noCostModel(), Config{TopK: 1, ExitMode: ExitModeRebalance}, nil)
	require.NoError(t, err)

	// Calendar too short
	short := singleSeries(t, []float64{100})
	_, err = sim.Run(short, short.Calendar().Dates())
	assert.True(t, errors.Is(err, ErrNoResult))

	// No finite score anywhere: every period skips
	rows := []panel.Observation{
		{Date: day(1), Instrument: "A", Score: math.NaN(), Price: 100, Target: math.NaN()},
		{Date: day(2), Instrument: "A", Score: math.NaN(), Price: 101, Target: math.NaN()},
		{Date: day(3), Instrument: "A", Score: math.NaN(), Price: 102, Target: math.NaN()},
	}
	unscored := mustPanel(t, rows)
	_, err = sim.Run(unscored, unscored.Calendar().Dates())
	assert.True(t, errors.Is(err, ErrNoResult))
}

func TestRunLabelHorizon(t *testing.T) {
	prices := []float64{100, 102, 104, 106, 108, 110}
	obs := singleSeries(t, prices)
	dates := obs.Calendar().Dates()

	sim, err := NewSimulator(noCostModel(), Config{
		TopK: 1, ShiftDays: 0, ExitMode: ExitModeLabelHorizon, ExitHorizonDays: 1,
	}, nil)
	require.NoError(t, err)

	// Every other date: entry 0/2/4, exits 1/3/5, no overlap.
	result, err := sim.Run(obs, []time.Time{dates[0], dates[2], dates[4]})
	require.NoError(t, err)
	require.Len(t, result.Periods, 3)
	for i, p := range result.Periods {
		entry := 2 * i
		assert.Equal(t, entry, p.EntryIdx)
		assert.Equal(t, entry+1, p.ExitIdx)
		assert.InDelta(t, prices[entry+1]/prices[entry]-1.0, p.Gross, 1e-12)
	}
}

func TestRunLabelHorizonOverlap(t *testing.T) {
	obs := singleSeries(t, []float64{100, 102, 104, 106, 108, 110})
	dates := obs.Calendar().Dates()

	sim, err := NewSimulator(noCostModel(), Config{
		TopK: 1, ShiftDays: 0, ExitMode: ExitModeLabelHorizon, ExitHorizonDays: 3,
	}, nil)
	require.NoError(t, err)

	_, err = sim.Run(obs, dates)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoResult))
	assert.Contains(t, err.Error(), "overlap")
}

func TestRunLastRebalanceNeverOpens(t *testing.T) {
	obs := singleSeries(t, []float64{100, 101, 102})
	dates := obs.Calendar().Dates()

	sim, err := NewSimulator(noCostModel(), Config{TopK: 1, ShiftDays: 0, ExitMode: ExitModeRebalance}, nil)
	require.NoError(t, err)

	result, err := sim.Run(obs, dates)
	require.NoError(t, err)
	require.Len(t, result.Periods, 2)
	assert.Equal(t, day(2), result.Periods[1].RebalanceDate)
}

func TestRunDelayAdvancesCarry(t *testing.T) {
	// A has no price on day 3. The period exiting there is delayed to day 4
	// and the day-3 rebalance skips on the entry leg.
	rows := []panel.Observation{
		{Date: day(1), Instrument: "A", Score: 1, Price: 100, Target: math.NaN()},
		{Date: day(2), Instrument: "A", Score: 1, Price: 102, Target: math.NaN()},
		{Date: day(3), Instrument: "A", Score: 1, Price: math.NaN(), Target: math.NaN()},
		{Date: day(4), Instrument: "A", Score: 1, Price: 106, Target: math.NaN()},
	}
	obs := mustPanel(t, rows)

	exec := execution.Model{
		Cost: execution.NoCost(),
		Exit: execution.ExitPolicy{Price: execution.ExitDelay, Fallback: execution.FallbackFfill},
	}
	sim, err := NewSimulator(exec, Config{TopK: 1, ShiftDays: 0, ExitMode: ExitModeRebalance}, nil)
	require.NoError(t, err)

	result, err := sim.Run(obs, obs.Calendar().Dates())
	require.NoError(t, err)
	require.Len(t, result.Periods, 2)

	first := result.Periods[0]
	// Planned exit idx 1 resolves in place; second period's planned exit
	// idx 2 is delayed to idx 3.
	assert.Equal(t, 1, first.ExitIdx)
	second := result.Periods[1]
	assert.Equal(t, 3, second.ExitIdx)
	assert.InDelta(t, 106.0/102.0-1.0, second.Gross, 1e-12)
}
