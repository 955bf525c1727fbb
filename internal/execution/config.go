package execution

import (
	"fmt"
	"strings"
)

// Model bundles the execution assumptions for one backtest run.
type Model struct {
	Cost CostModel
	Exit ExitPolicy
}

// CostModelConfig is the structured cost-model configuration.
type CostModelConfig struct {
	Name      string   `yaml:"name" json:"name"`
	Bps       *float64 `yaml:"bps,omitempty" json:"bps,omitempty"`
	RoundTrip *bool    `yaml:"round_trip,omitempty" json:"round_trip,omitempty"`
}

// ExitPolicyConfig is the structured exit-policy configuration.
type ExitPolicyConfig struct {
	Price    string `yaml:"price" json:"price"`
	Fallback string `yaml:"fallback" json:"fallback"`
}

// Config is the structured execution-model configuration.
type Config struct {
	CostModel  CostModelConfig  `yaml:"cost_model" json:"cost_model"`
	ExitPolicy ExitPolicyConfig `yaml:"exit_policy" json:"exit_policy"`
}

// Defaults supplies fallback values for fields the configuration omits.
type Defaults struct {
	CostBps      float64
	ExitPrice    ExitPricePolicy
	ExitFallback ExitFallbackPolicy
}

// BuildCostModel constructs a cost model from configuration. Unrecognized
// names are configuration errors.
func BuildCostModel(cfg CostModelConfig, defaultBps float64) (CostModel, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	switch name {
	case "", "bps", "bp", "basis":
		bps := defaultBps
		if cfg.Bps != nil {
			bps = *cfg.Bps
		}
		roundTrip := true
		if cfg.RoundTrip != nil {
			roundTrip = *cfg.RoundTrip
		}
		return BpsCost(bps, roundTrip), nil
	case "none", "zero", "off":
		return NoCost(), nil
	default:
		return CostModel{}, fmt.Errorf("unsupported cost model: %s", name)
	}
}

// BuildExitPolicy constructs an exit policy from configuration.
func BuildExitPolicy(cfg ExitPolicyConfig, defaults Defaults) (ExitPolicy, error) {
	price := ExitPricePolicy(strings.ToLower(strings.TrimSpace(cfg.Price)))
	if price == "" {
		price = defaults.ExitPrice
	}
	switch price {
	case ExitStrict, ExitFfill, ExitDelay:
	default:
		return ExitPolicy{}, fmt.Errorf("exit_policy.price must be one of: strict, ffill, delay")
	}

	fallback := ExitFallbackPolicy(strings.ToLower(strings.TrimSpace(cfg.Fallback)))
	if fallback == "" {
		fallback = defaults.ExitFallback
	}
	switch fallback {
	case FallbackFfill, FallbackNone:
	default:
		return ExitPolicy{}, fmt.Errorf("exit_policy.fallback must be one of: ffill, none")
	}

	return ExitPolicy{Price: price, Fallback: fallback}, nil
}

// Build constructs the full execution model from configuration, falling back
// to defaults for omitted values.
func Build(cfg Config, defaults Defaults) (Model, error) {
	cost, err := BuildCostModel(cfg.CostModel, defaults.CostBps)
	if err != nil {
		return Model{}, err
	}
	exit, err := BuildExitPolicy(cfg.ExitPolicy, defaults)
	if err != nil {
		return Model{}, err
	}
	return Model{Cost: cost, Exit: exit}, nil
}

// Describe returns a serializable description of the model for run
// snapshots.
func (m Model) Describe() map[string]interface{} {
	cost := map[string]interface{}{"name": string(m.Cost.Kind)}
	if m.Cost.Kind == CostModelBps {
		cost["bps"] = m.Cost.Bps
		cost["round_trip"] = m.Cost.RoundTrip
	}
	return map[string]interface{}{
		"cost_model": cost,
		"exit_policy": map[string]interface{}{
			"price":    string(m.Exit.Price),
			"fallback": string(m.Exit.Fallback),
		},
	}
}
