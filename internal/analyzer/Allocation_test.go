package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yieldsplit/ysa/internal/config"
	"github.com/yieldsplit/ysa/internal/types"
)

func TestAllocationSumsToOne(t *testing.T) {
	params := config.DefaultScoringParameters

	tests := []struct {
		name string
		in   AllocationInput
	}{
		{
			name: "balanced signals",
			in:   AllocationInput{PTDiscount: 0.02, APY7d: 0.0816, APY30d: 0.08, MaturityDays: 90, Sensitivity: 5},
		},
		{
			name: "strong trend",
			in:   AllocationInput{PTDiscount: 0.01, APY7d: 0.12, APY30d: 0.08, MaturityDays: 45, Sensitivity: 5},
		},
		{
			name: "deep discount no trend",
			in:   AllocationInput{PTDiscount: 0.14, APY7d: 0.08, APY30d: 0.08, MaturityDays: 200, Sensitivity: 5},
		},
		{
			name: "no signal at all",
			in:   AllocationInput{PTDiscount: 0, APY7d: 0, APY30d: 0, MaturityDays: 90, Sensitivity: 5},
		},
		{
			name: "negative discount clamped",
			in:   AllocationInput{PTDiscount: -0.05, APY7d: 0.09, APY30d: 0.08, MaturityDays: 90, Sensitivity: 5},
		},
	}

	risk := RiskInput{MaxDrawdown: 0.1, Volatility: 0.08, Profile: types.RiskModerate}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := CalculateBaseAllocation(tt.in)
			assert.InDelta(t, 1.0, base.PT+base.YT, 1e-9)
			assert.GreaterOrEqual(t, base.PT, 0.0)
			assert.GreaterOrEqual(t, base.YT, 0.0)

			adjusted := CalculateRiskAdjustedAllocation(tt.in, risk, params)
			assert.InDelta(t, 1.0, adjusted.PT+adjusted.YT, 1e-9)
			assert.GreaterOrEqual(t, adjusted.PT, 0.0)
			assert.GreaterOrEqual(t, adjusted.YT, 0.0)

			// Risk adjustment only ever shifts weight toward PT.
			assert.GreaterOrEqual(t, adjusted.PT, base.PT-1e-9)
		})
	}
}

func TestZeroTrendAllocatesFullyToPT(t *testing.T) {
	// No 30d baseline means no YT signal.
	in := AllocationInput{PTDiscount: 0.05, APY7d: 0.10, APY30d: 0, MaturityDays: 90, Sensitivity: 5}
	alloc := CalculateBaseAllocation(in)
	assert.Equal(t, 1.0, alloc.PT)
	assert.Equal(t, 0.0, alloc.YT)
	assert.Equal(t, RationaleFavorPT, alloc.Rationale)

	// Declining APY floors the trend at zero.
	in = AllocationInput{PTDiscount: 0.05, APY7d: 0.06, APY30d: 0.08, MaturityDays: 90, Sensitivity: 5}
	alloc = CalculateBaseAllocation(in)
	assert.Equal(t, 1.0, alloc.PT)
	assert.Equal(t, 0.0, alloc.YT)
}

func TestNoSignalFallsBackToPT(t *testing.T) {
	in := AllocationInput{PTDiscount: 0, APY7d: 0.08, APY30d: 0.08, MaturityDays: 0, Sensitivity: 5}
	alloc := CalculateBaseAllocation(in)
	assert.Equal(t, 1.0, alloc.PT)
	assert.Equal(t, RationaleNoSignal, alloc.Rationale)
}

func TestRiskSuppressedRationale(t *testing.T) {
	params := config.DefaultScoringParameters

	// Saturated drawdown and volatility zero the risk factor; with no PT
	// signal the split would be undefined without the fallback.
	in := AllocationInput{PTDiscount: 0, APY7d: 0.12, APY30d: 0.08, MaturityDays: 90, Sensitivity: 5}
	risk := RiskInput{MaxDrawdown: 0.5, Volatility: 0.5, Profile: types.RiskAggressive}

	alloc := CalculateRiskAdjustedAllocation(in, risk, params)
	require.Equal(t, 0.0, alloc.RiskFactor)
	assert.Equal(t, 1.0, alloc.PT)
	assert.Equal(t, RationaleRiskSuppressed, alloc.Rationale)
}

func TestRiskFactorMonotonicity(t *testing.T) {
	params := config.DefaultScoringParameters

	base := RiskInput{MaxDrawdown: 0.05, Volatility: 0.05, Profile: types.RiskModerate}
	baseFactor := RiskFactor(base, params)

	t.Run("higher drawdown never raises the factor", func(t *testing.T) {
		prev := baseFactor
		for _, mdd := range []float64{0.10, 0.20, 0.30, 0.50} {
			in := base
			in.MaxDrawdown = mdd
			f := RiskFactor(in, params)
			assert.LessOrEqual(t, f, prev+1e-12)
			prev = f
		}
	})

	t.Run("higher volatility never raises the factor", func(t *testing.T) {
		prev := baseFactor
		for _, vol := range []float64{0.10, 0.20, 0.25, 0.40} {
			in := base
			in.Volatility = vol
			f := RiskFactor(in, params)
			assert.LessOrEqual(t, f, prev+1e-12)
			prev = f
		}
	})

	t.Run("profile ordering", func(t *testing.T) {
		conservative := base
		conservative.Profile = types.RiskConservative
		aggressive := base
		aggressive.Profile = types.RiskAggressive

		assert.Less(t, RiskFactor(conservative, params), RiskFactor(base, params))
		assert.Greater(t, RiskFactor(aggressive, params), RiskFactor(base, params))
	})

	t.Run("always within unit interval", func(t *testing.T) {
		extreme := RiskInput{MaxDrawdown: 10, Volatility: 10, Profile: types.RiskAggressive}
		f := RiskFactor(extreme, params)
		assert.GreaterOrEqual(t, f, 0.0)
		assert.LessOrEqual(t, f, 1.0)
	})
}
