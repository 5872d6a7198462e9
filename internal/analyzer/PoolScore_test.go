package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/yieldsplit/ysa/internal/config"
	"github.com/yieldsplit/ysa/internal/types"
)

func scoringPool(ptPrice, apy7d, apy30d, tvl float64, daysToMaturity int) types.Pool {
	now := time.Now().UTC()
	return types.Pool{
		Address:    common.HexToAddress("0x00000000000000000000000000000000000000a1"),
		Underlying: types.Token{Symbol: "sUSDe", Decimals: 18},
		Maturity:   now.Add(time.Duration(daysToMaturity) * 24 * time.Hour),
		TvlUSD:     tvl,
		APY7d:      apy7d,
		APY30d:     apy30d,
		PTPrice:    ptPrice,
	}
}

func TestSubScoresClampedToUnitInterval(t *testing.T) {
	params := config.DefaultScoringParameters
	now := time.Now().UTC()

	tests := []struct {
		name string
		pool types.Pool
	}{
		{"typical", scoringPool(0.98, 0.0816, 0.08, 5_000_000, 90)},
		{"deep discount long maturity", scoringPool(0.50, 0.30, 0.08, 500_000_000, 700)},
		{"premium pt", scoringPool(1.10, 0.08, 0.08, 1_000_000, 90)},
		{"declining apy", scoringPool(0.97, 0.04, 0.08, 1_000_000, 90)},
		{"zero everything", scoringPool(1.0, 0, 0, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := CalculateSubScores(tt.pool, params, now)
			for name, v := range map[string]float64{
				"discount":    sub.Discount,
				"trend":       sub.Trend,
				"maturityFit": sub.MaturityFit,
				"liquidity":   sub.Liquidity,
			} {
				assert.GreaterOrEqual(t, v, 0.0, name)
				assert.LessOrEqual(t, v, 1.0, name)
				assert.False(t, math.IsNaN(v), name)
			}
		})
	}
}

func TestLiquiditySubScoreZeroAtTinyTVL(t *testing.T) {
	params := config.DefaultScoringParameters
	now := time.Now().UTC()

	for _, tvl := range []float64{0, 0.5, 1} {
		pool := scoringPool(0.98, 0.09, 0.08, tvl, 90)
		sub := CalculateSubScores(pool, params, now)
		assert.Equal(t, 0.0, sub.Liquidity, "tvl=%f", tvl)
	}
}

func TestTrendSubScoreZeroWithoutBaseline(t *testing.T) {
	params := config.DefaultScoringParameters
	pool := scoringPool(0.98, 0.12, 0, 5_000_000, 90)
	sub := CalculateSubScores(pool, params, time.Now().UTC())
	assert.Equal(t, 0.0, sub.Trend)
}

func TestMaturityFitPeaksAtConfiguredDays(t *testing.T) {
	params := config.DefaultScoringParameters
	now := time.Now().UTC()

	atPeak := CalculateSubScores(scoringPool(0.98, 0.08, 0.08, 5_000_000, 120), params, now)
	assert.InDelta(t, 1.0, atPeak.MaturityFit, 0.01)

	expiringNow := CalculateSubScores(scoringPool(0.98, 0.08, 0.08, 5_000_000, 0), params, now)
	assert.InDelta(t, 0.0, expiringNow.MaturityFit, 0.01)

	doublePeak := CalculateSubScores(scoringPool(0.98, 0.08, 0.08, 5_000_000, 240), params, now)
	assert.InDelta(t, 0.0, doublePeak.MaturityFit, 0.01)
}

func TestConfidenceWithinBounds(t *testing.T) {
	params := config.DefaultScoringParameters

	tests := []struct {
		name       string
		sub        SubScores
		riskFactor float64
	}{
		{"all maxed", SubScores{1, 1, 1, 1}, 1},
		{"all zero", SubScores{}, 0},
		{"risk factor above one clamped", SubScores{0.5, 0.5, 0.5, 0.5}, 7},
		{"negative risk factor clamped", SubScores{0.5, 0.5, 0.5, 0.5}, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := CalculateConfidence(tt.sub, tt.riskFactor, params)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 100.0)
		})
	}
}

func TestConfidenceNaNGuard(t *testing.T) {
	params := config.DefaultScoringParameters
	score := CalculateConfidence(SubScores{Discount: math.NaN()}, 0.5, params)
	assert.Equal(t, 0.0, score)
}

func TestConfidenceFullSignalIsHundred(t *testing.T) {
	params := config.DefaultScoringParameters
	score := CalculateConfidence(SubScores{1, 1, 1, 1}, 1, params)
	assert.InDelta(t, 100.0, score, 1e-9)
}
