package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestBuildCostModel(t *testing.T) {
	// Empty name falls back to bps with the default rate
	m, err := BuildCostModel(CostModelConfig{}, 15)
	require.NoError(t, err)
	assert.Equal(t, CostModelBps, m.Kind)
	assert.Equal(t, 15.0, m.Bps)
	assert.True(t, m.RoundTrip)

	// Explicit values win
	m, err = BuildCostModel(CostModelConfig{Name: "bps", Bps: floatPtr(5), RoundTrip: boolPtr(false)}, 15)
	require.NoError(t, err)
	assert.Equal(t, 5.0, m.Bps)
	assert.False(t, m.RoundTrip)

	// Aliases
	for _, name := range []string{"bp", "basis", "BPS"} {
		m, err = BuildCostModel(CostModelConfig{Name: name}, 15)
		require.NoError(t, err)
		assert.Equal(t, CostModelBps, m.Kind)
	}
	for _, name := range []string{"none", "zero", "off"} {
		m, err = BuildCostModel(CostModelConfig{Name: name}, 15)
		require.NoError(t, err)
		assert.Equal(t, CostModelNone, m.Kind)
	}

	_, err = BuildCostModel(CostModelConfig{Name: "quadratic"}, 15)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported cost model")
}

func TestBuildExitPolicy(t *testing.T) {
	defaults := Defaults{ExitPrice: ExitStrict, ExitFallback: FallbackFfill}

	// Omitted fields fall back to defaults
	p, err := BuildExitPolicy(ExitPolicyConfig{}, defaults)
	require.NoError(t, err)
	assert.Equal(t, ExitStrict, p.Price)
	assert.Equal(t, FallbackFfill, p.Fallback)

	p, err = BuildExitPolicy(ExitPolicyConfig{Price: "Delay", Fallback: "none"}, defaults)
	require.NoError(t, err)
	assert.Equal(t, ExitDelay, p.Price)
	assert.Equal(t, FallbackNone, p.Fallback)

	_, err = BuildExitPolicy(ExitPolicyConfig{Price: "limit"}, defaults)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit_policy.price")

	_, err = BuildExitPolicy(ExitPolicyConfig{Fallback: "retry"}, defaults)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit_policy.fallback")
}

func TestBuild(t *testing.T) {
	defaults := Defaults{CostBps: 15, ExitPrice: ExitStrict, ExitFallback: FallbackFfill}

	m, err := Build(Config{
		CostModel:  CostModelConfig{Name: "none"},
		ExitPolicy: ExitPolicyConfig{Price: "ffill"},
	}, defaults)
	require.NoError(t, err)
	assert.Equal(t, CostModelNone, m.Cost.Kind)
	assert.Equal(t, ExitFfill, m.Exit.Price)

	desc := m.Describe()
	assert.Equal(t, "none", desc["cost_model"].(map[string]interface{})["name"])
}
