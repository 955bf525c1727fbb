// Package execution holds the pluggable backtest execution assumptions:
// the cost model mapping turnover to a return drag, and the exit policy
// mapping a planned exit date to realized exit prices.
package execution

import "math"

// CostModelKind enumerates the closed set of cost models.
type CostModelKind string

const (
	CostModelNone CostModelKind = "none"
	CostModelBps  CostModelKind = "bps"
)

// CostModel is a tagged variant over the cost-model kinds. Immutable once
// built; construction goes through NoCost, BpsCost or BuildCostModel.
type CostModel struct {
	Kind      CostModelKind
	Bps       float64
	RoundTrip bool
}

// NoCost returns the zero-cost model.
func NoCost() CostModel {
	return CostModel{Kind: CostModelNone}
}

// BpsCost returns a basis-points-per-side cost model. With roundTrip the
// cost charges both the exit of old names and the entry of new ones.
func BpsCost(bps float64, roundTrip bool) CostModel {
	return CostModel{Kind: CostModelBps, Bps: bps, RoundTrip: roundTrip}
}

// Cost returns the non-negative return-fraction drag for a period.
// isInitial marks the very first accepted period, where only the entry leg
// is paid. side is reserved for asymmetric fee schedules and is ignored by
// both current models.
func (m CostModel) Cost(turnover float64, isInitial bool, side string) float64 {
	switch m.Kind {
	case CostModelBps:
		if !isFinite(m.Bps) || m.Bps <= 0 {
			return 0.0
		}
		perSide := m.Bps / 10000.0
		if isInitial {
			return perSide
		}
		factor := 1.0
		if m.RoundTrip {
			factor = 2.0
		}
		return factor * perSide * turnover
	default:
		return 0.0
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
