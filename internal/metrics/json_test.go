package metrics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryJSONRoundTrip(t *testing.T) {
	original := Summary{
		Periods:     3,
		TotalReturn: 0.12,
		AnnReturn:   0.30,
		AnnVol:      math.NaN(),
		Sharpe:      math.NaN(),
		MaxDrawdown: -0.08,
		AvgTurnover: 0.5,
		AvgCostDrag: 0.001,
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ann_vol":null`)
	assert.Contains(t, string(data), `"total_return":0.12`)

	var decoded Summary
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original.Periods, decoded.Periods)
	assert.Equal(t, original.TotalReturn, decoded.TotalReturn)
	assert.True(t, math.IsNaN(decoded.AnnVol))
	assert.True(t, math.IsNaN(decoded.Sharpe))
	assert.Equal(t, original.MaxDrawdown, decoded.MaxDrawdown)
}
