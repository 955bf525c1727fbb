package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/csquant/internal/backtest"
)

func period(entryIdx, exitIdx int, net, turnover, cost float64) backtest.Period {
	return backtest.Period{
		EntryDate: time.Date(2024, 1, 1+entryIdx, 0, 0, 0, 0, time.UTC),
		ExitDate:  time.Date(2024, 1, 1+exitIdx, 0, 0, 0, 0, time.UTC),
		EntryIdx:  entryIdx,
		ExitIdx:   exitIdx,
		Gross:     net + cost,
		Net:       net,
		Turnover:  turnover,
		Cost:      cost,
	}
}

func TestNAV(t *testing.T) {
	periods := []backtest.Period{
		period(0, 1, 0.10, 1.0, 0),
		period(1, 2, -0.05, 0.2, 0),
	}

	nav := NAV(periods)
	require.Len(t, nav, 2)
	assert.InDelta(t, 1.10, nav[0], 1e-12)
	assert.InDelta(t, 1.045, nav[1], 1e-12)
}

func TestSummarize(t *testing.T) {
	periods := []backtest.Period{
		period(0, 1, 0.10, 1.0, 0.002),
		period(1, 2, -0.05, 0.2, 0.001),
	}

	s := Summarize(periods, 244)

	assert.Equal(t, 2, s.Periods)
	assert.InDelta(t, 0.045, s.TotalReturn, 1e-12)

	// Two one-day periods spanning two trading days
	expectedAnn := math.Pow(1.045, 244.0/2.0) - 1.0
	assert.InDelta(t, expectedAnn, s.AnnReturn, 1e-9)

	expectedStd := math.Sqrt((math.Pow(0.10-0.025, 2) + math.Pow(-0.05-0.025, 2)) / 1.0)
	assert.InDelta(t, expectedStd*math.Sqrt(244), s.AnnVol, 1e-12)
	assert.InDelta(t, 0.025/expectedStd*math.Sqrt(244), s.Sharpe, 1e-12)

	// Peak 1.10, trough 1.045
	assert.InDelta(t, 1.045/1.10-1.0, s.MaxDrawdown, 1e-12)
	assert.InDelta(t, 0.6, s.AvgTurnover, 1e-12)
	assert.InDelta(t, 0.0015, s.AvgCostDrag, 1e-12)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, 244)

	assert.Equal(t, 0, s.Periods)
	assert.True(t, math.IsNaN(s.TotalReturn))
	assert.True(t, math.IsNaN(s.AnnReturn))
	assert.True(t, math.IsNaN(s.AnnVol))
	assert.True(t, math.IsNaN(s.Sharpe))
	assert.True(t, math.IsNaN(s.MaxDrawdown))
	assert.True(t, math.IsNaN(s.AvgTurnover))
	assert.True(t, math.IsNaN(s.AvgCostDrag))
}

func TestSummarizeSinglePeriod(t *testing.T) {
	s := Summarize([]backtest.Period{period(0, 2, 0.04, 1.0, 0)}, 244)

	assert.Equal(t, 1, s.Periods)
	assert.InDelta(t, 0.04, s.TotalReturn, 1e-12)
	// One sample has no dispersion
	assert.True(t, math.IsNaN(s.AnnVol))
	assert.True(t, math.IsNaN(s.Sharpe))
	assert.Equal(t, 0.0, s.MaxDrawdown)
}

func TestSummarizeMonotoneGainHasZeroDrawdown(t *testing.T) {
	periods := []backtest.Period{
		period(0, 1, 0.01, 1.0, 0),
		period(1, 2, 0.02, 0.1, 0),
		period(2, 3, 0.005, 0.1, 0),
	}

	s := Summarize(periods, 244)
	assert.Equal(t, 0.0, s.MaxDrawdown)
}

func TestSummarizeSkipsNaNTurnover(t *testing.T) {
	periods := []backtest.Period{
		period(0, 1, 0.01, math.NaN(), 0),
		period(1, 2, 0.02, 0.4, 0),
	}

	s := Summarize(periods, 244)
	assert.InDelta(t, 0.4, s.AvgTurnover, 1e-12)
}
