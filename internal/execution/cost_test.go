package execution

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoCost(t *testing.T) {
	m := NoCost()

	assert.Equal(t, 0.0, m.Cost(1.0, true, "long"))
	assert.Equal(t, 0.0, m.Cost(0.5, false, "long"))
}

func TestBpsCostInitial(t *testing.T) {
	m := BpsCost(15, true)

	// First build pays the entry leg once, regardless of turnover
	assert.InDelta(t, 0.0015, m.Cost(1.0, true, "long"), 1e-12)
	assert.InDelta(t, 0.0015, m.Cost(0.3, true, "long"), 1e-12)
}

func TestBpsCostRoundTrip(t *testing.T) {
	roundTrip := BpsCost(10, true)
	oneWay := BpsCost(10, false)

	// Round trip charges both legs of the rebalanced fraction
	assert.InDelta(t, 2*0.001*0.5, roundTrip.Cost(0.5, false, "long"), 1e-12)
	assert.InDelta(t, 0.001*0.5, oneWay.Cost(0.5, false, "long"), 1e-12)

	// Zero turnover costs nothing
	assert.Equal(t, 0.0, roundTrip.Cost(0.0, false, "long"))
}

func TestBpsCostMonotone(t *testing.T) {
	m := BpsCost(15, true)

	prev := 0.0
	for _, turnover := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		c := m.Cost(turnover, false, "long")
		assert.GreaterOrEqual(t, c, prev)
		prev = c
	}
}

func TestBpsCostDegenerate(t *testing.T) {
	assert.Equal(t, 0.0, BpsCost(0, true).Cost(1.0, false, "long"))
	assert.Equal(t, 0.0, BpsCost(-5, true).Cost(1.0, false, "long"))
	assert.Equal(t, 0.0, BpsCost(math.NaN(), true).Cost(1.0, false, "long"))
}
