package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/csquant/internal/panel"
)

func icDay(d int) time.Time {
	return time.Date(2024, time.February, d, 0, 0, 0, 0, time.UTC)
}

func TestSpearmanCorr(t *testing.T) {
	// Any monotone relation scores 1 regardless of shape
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 8, 9, 100, 1000}
	assert.InDelta(t, 1.0, SpearmanCorr(x, y), 1e-12)

	reversed := []float64{5, 4, 3, 2, 1}
	assert.InDelta(t, -1.0, SpearmanCorr(x, reversed), 1e-12)

	// Ties get average ranks
	tied := SpearmanCorr([]float64{1, 1, 2}, []float64{1, 2, 3})
	assert.False(t, math.IsNaN(tied))
	assert.Less(t, tied, 1.0)

	// Degenerate inputs
	assert.True(t, math.IsNaN(SpearmanCorr([]float64{1}, []float64{2})))
	assert.True(t, math.IsNaN(SpearmanCorr(x, []float64{1, 2})))
	assert.True(t, math.IsNaN(SpearmanCorr([]float64{1, 2, 3}, []float64{7, 7, 7})))
}

func TestDailyICSeries(t *testing.T) {
	rows := []panel.Observation{
		// Perfectly aligned day
		{Date: icDay(1), Instrument: "A", Score: 3, Price: 1, Target: 0.03},
		{Date: icDay(1), Instrument: "B", Score: 2, Price: 1, Target: 0.02},
		{Date: icDay(1), Instrument: "C", Score: 1, Price: 1, Target: 0.01},
		// Inverted day
		{Date: icDay(2), Instrument: "A", Score: 3, Price: 1, Target: -0.03},
		{Date: icDay(2), Instrument: "B", Score: 2, Price: 1, Target: -0.02},
		{Date: icDay(2), Instrument: "C", Score: 1, Price: 1, Target: -0.01},
		// Constant targets: skipped
		{Date: icDay(3), Instrument: "A", Score: 3, Price: 1, Target: 0.01},
		{Date: icDay(3), Instrument: "B", Score: 2, Price: 1, Target: 0.01},
		// Missing targets: skipped
		{Date: icDay(4), Instrument: "A", Score: 3, Price: 1, Target: math.NaN()},
		{Date: icDay(4), Instrument: "B", Score: 2, Price: 1, Target: math.NaN()},
	}
	obs, err := panel.NewObservationPanel(rows)
	require.NoError(t, err)

	series := DailyICSeries(obs)
	require.Len(t, series, 2)
	assert.Equal(t, icDay(1), series[0].Date)
	assert.InDelta(t, 1.0, series[0].Value, 1e-12)
	assert.InDelta(t, -1.0, series[1].Value, 1e-12)
}

func TestSummarizeIC(t *testing.T) {
	series := DailyICSeries(mustICPanel(t))
	s := SummarizeIC(series)

	// Days at +1 and -0.5: mean 0.25, population std 0.75
	require.Equal(t, 2, s.N)
	assert.InDelta(t, 0.25, s.Mean, 1e-12)
	assert.InDelta(t, 0.75, s.Std, 1e-12)
	assert.InDelta(t, 1.0/3.0, s.IR, 1e-12)
	assert.InDelta(t, 0.25/(0.75/math.Sqrt(2)), s.TStat, 1e-12)
}

func mustICPanel(t *testing.T) *panel.ObservationPanel {
	t.Helper()
	rows := []panel.Observation{
		{Date: icDay(1), Instrument: "A", Score: 3, Price: 1, Target: 0.03},
		{Date: icDay(1), Instrument: "B", Score: 2, Price: 1, Target: 0.02},
		{Date: icDay(1), Instrument: "C", Score: 1, Price: 1, Target: 0.01},
		// Score ranks (3,2,1) vs target ranks (1,3,2): rank IC -0.5
		{Date: icDay(2), Instrument: "A", Score: 3, Price: 1, Target: 0.01},
		{Date: icDay(2), Instrument: "B", Score: 2, Price: 1, Target: 0.03},
		{Date: icDay(2), Instrument: "C", Score: 1, Price: 1, Target: 0.02},
	}
	obs, err := panel.NewObservationPanel(rows)
	require.NoError(t, err)
	return obs
}

func TestSummarizeICEmpty(t *testing.T) {
	s := SummarizeIC(nil)

	assert.Equal(t, 0, s.N)
	assert.True(t, math.IsNaN(s.Mean))
	assert.True(t, math.IsNaN(s.Std))
	assert.True(t, math.IsNaN(s.IR))
	assert.True(t, math.IsNaN(s.TStat))
}

func TestEstimateTurnover(t *testing.T) {
	var rows []panel.Observation
	for i := 1; i <= 4; i++ {
		scoreA, scoreB := 1.0, 2.0
		if i%2 == 1 {
			scoreA, scoreB = 2.0, 1.0
		}
		rows = append(rows,
			panel.Observation{Date: icDay(i), Instrument: "A", Score: scoreA, Price: 1, Target: math.NaN()},
			panel.Observation{Date: icDay(i), Instrument: "B", Score: scoreB, Price: 1, Target: math.NaN()},
		)
	}
	obs, err := panel.NewObservationPanel(rows)
	require.NoError(t, err)

	dates := obs.Calendar().Dates()

	// Top-1 swaps every date: full turnover on every pair
	series := EstimateTurnover(obs, 1, dates)
	require.Len(t, series, 3)
	for _, p := range series {
		assert.InDelta(t, 1.0, p.Value, 1e-12)
	}

	// Top-2 always holds both names: no turnover
	series = EstimateTurnover(obs, 2, dates)
	require.Len(t, series, 3)
	for _, p := range series {
		assert.InDelta(t, 0.0, p.Value, 1e-12)
	}

	// Dates with fewer than k observations are skipped
	series = EstimateTurnover(obs, 3, dates)
	assert.Empty(t, series)
}
