package metrics

import (
	"encoding/json"
	"math"
)

// summaryJSON mirrors Summary with pointer floats so that NaN statistics
// round-trip as JSON null instead of failing to encode.
type summaryJSON struct {
	Periods     int      `json:"periods"`
	TotalReturn *float64 `json:"total_return"`
	AnnReturn   *float64 `json:"ann_return"`
	AnnVol      *float64 `json:"ann_vol"`
	Sharpe      *float64 `json:"sharpe"`
	MaxDrawdown *float64 `json:"max_drawdown"`
	AvgTurnover *float64 `json:"avg_turnover"`
	AvgCostDrag *float64 `json:"avg_cost_drag"`
}

// MarshalJSON encodes NaN fields as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryJSON{
		Periods:     s.Periods,
		TotalReturn: jsonFloat(s.TotalReturn),
		AnnReturn:   jsonFloat(s.AnnReturn),
		AnnVol:      jsonFloat(s.AnnVol),
		Sharpe:      jsonFloat(s.Sharpe),
		MaxDrawdown: jsonFloat(s.MaxDrawdown),
		AvgTurnover: jsonFloat(s.AvgTurnover),
		AvgCostDrag: jsonFloat(s.AvgCostDrag),
	})
}

// UnmarshalJSON decodes null fields as NaN.
func (s *Summary) UnmarshalJSON(data []byte) error {
	var raw summaryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Periods = raw.Periods
	s.TotalReturn = floatOrNaN(raw.TotalReturn)
	s.AnnReturn = floatOrNaN(raw.AnnReturn)
	s.AnnVol = floatOrNaN(raw.AnnVol)
	s.Sharpe = floatOrNaN(raw.Sharpe)
	s.MaxDrawdown = floatOrNaN(raw.MaxDrawdown)
	s.AvgTurnover = floatOrNaN(raw.AvgTurnover)
	s.AvgCostDrag = floatOrNaN(raw.AvgCostDrag)
	return nil
}

func jsonFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func floatOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
