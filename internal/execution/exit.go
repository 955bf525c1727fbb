package execution

import (
	"github.com/wonny/csquant/internal/panel"
)

// ExitPricePolicy selects how a planned exit date maps to a realized exit
// price per instrument.
type ExitPricePolicy string

// ExitFallbackPolicy selects what a delay policy does when no later price
// ever appears.
type ExitFallbackPolicy string

const (
	// ExitStrict uses the price at exactly the planned exit index and drops
	// the instrument when it is missing or non-tradable.
	ExitStrict ExitPricePolicy = "strict"
	// ExitFfill scans backward to the last finite, tradable price at or
	// before the planned exit index.
	ExitFfill ExitPricePolicy = "ffill"
	// ExitDelay scans forward from the planned exit index for the first
	// finite, tradable price.
	ExitDelay ExitPricePolicy = "delay"

	FallbackFfill ExitFallbackPolicy = "ffill"
	FallbackNone  ExitFallbackPolicy = "none"
)

// ExitPolicy resolves per-instrument exit prices around price gaps and
// tradability halts. Immutable configuration, stateless during simulation.
type ExitPolicy struct {
	Price    ExitPricePolicy
	Fallback ExitFallbackPolicy
}

// ResolveExits resolves exit prices for the held instruments at a planned
// calendar index. Instruments without a resolvable price are absent from the
// returned map. The returned index is the realized period exit: it differs
// from the planned one only under the delay policy, where it becomes the
// maximum resolved index across holdings so the next entry is never earlier
// than the latest exit.
func (p ExitPolicy) ResolveExits(
	holdings []string,
	plannedExitIdx int,
	obs *panel.ObservationPanel,
) (map[string]float64, int) {
	exitPrices := make(map[string]float64, len(holdings))
	maxExitIdx := plannedExitIdx

	for _, instrument := range holdings {
		exitIdx, ok := p.resolveExitIdx(instrument, plannedExitIdx, obs)
		if !ok {
			continue
		}
		price := obs.Price(instrument, exitIdx)
		if !isFinite(price) {
			continue
		}
		exitPrices[instrument] = price
		if exitIdx > maxExitIdx {
			maxExitIdx = exitIdx
		}
	}

	if len(exitPrices) == 0 {
		return exitPrices, plannedExitIdx
	}
	if p.Price == ExitDelay {
		return exitPrices, maxExitIdx
	}
	return exitPrices, plannedExitIdx
}

// resolveExitIdx finds the calendar index holding an instrument's exit
// price, or false when no mode can resolve one.
func (p ExitPolicy) resolveExitIdx(
	instrument string,
	plannedExitIdx int,
	obs *panel.ObservationPanel,
) (int, bool) {
	n := obs.Calendar().Len()
	if plannedExitIdx >= n {
		return 0, false
	}

	switch p.Price {
	case ExitStrict:
		if !p.usable(obs, instrument, plannedExitIdx) {
			return 0, false
		}
		return plannedExitIdx, true

	case ExitFfill:
		return p.scanBackward(obs, instrument, plannedExitIdx)

	case ExitDelay:
		for idx := plannedExitIdx; idx < n; idx++ {
			if p.usable(obs, instrument, idx) {
				return idx, true
			}
		}
		if p.Fallback == FallbackFfill {
			return p.scanBackward(obs, instrument, plannedExitIdx)
		}
		return 0, false
	}
	return 0, false
}

func (p ExitPolicy) scanBackward(obs *panel.ObservationPanel, instrument string, fromIdx int) (int, bool) {
	for idx := fromIdx; idx >= 0; idx-- {
		if p.usable(obs, instrument, idx) {
			return idx, true
		}
	}
	return 0, false
}

func (p ExitPolicy) usable(obs *panel.ObservationPanel, instrument string, idx int) bool {
	return isFinite(obs.Price(instrument, idx)) && obs.Tradable(instrument, idx)
}
