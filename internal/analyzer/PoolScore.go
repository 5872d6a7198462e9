/*

This file contains the functions turning one pool's market metrics into
normalized sub-scores and a single 0-100 confidence score.

*/

package analyzer

import (
	"math"
	"time"

	"github.com/yieldsplit/ysa/internal/logger"
	"github.com/yieldsplit/ysa/internal/types"
)

var scoreLogger = logger.GetForComponent("pool_scorer")

// SubScores are the dimensionless per-dimension scores for a pool, each
// clamped to [0,1].
type SubScores struct {
	Discount    float64 `json:"discount"`
	Trend       float64 `json:"trend"`
	MaturityFit float64 `json:"maturity_fit"`
	Liquidity   float64 `json:"liquidity"`
}

// CalculateSubScores computes the four market sub-scores for a pool.
// Deterministic, no side effects; out-of-range numeric inputs are clamped,
// never rejected.
func CalculateSubScores(pool types.Pool, params types.ScoringParameters, now time.Time) SubScores {
	sub := SubScores{
		Discount:    discountSubScore(pool.PTDiscount(), params.DiscountCap),
		Trend:       trendSubScore(pool.APY7d, pool.APY30d, params.TrendCap),
		MaturityFit: maturityFitSubScore(pool.DaysToMaturity(now), params.MaturityPeakDays),
		Liquidity:   liquiditySubScore(pool.TvlUSD, params.LiquidityCapUSD),
	}

	scoreLogger.Debug().
		Str("pool", pool.Address.Hex()).
		Str("underlying", pool.Underlying.Symbol).
		Float64("discount", sub.Discount).
		Float64("trend", sub.Trend).
		Float64("maturityFit", sub.MaturityFit).
		Float64("liquidity", sub.Liquidity).
		Msg("Sub-scores calculated")

	return sub
}

// CalculateConfidence combines the sub-scores and the risk factor from the
// allocation model into the composite 0-100 score.
func CalculateConfidence(sub SubScores, riskFactor float64, params types.ScoringParameters) float64 {
	riskFactor = clamp01(riskFactor)

	score := params.DiscountWeight*sub.Discount +
		params.TrendWeight*sub.Trend +
		params.RiskWeight*riskFactor +
		params.MaturityWeight*sub.MaturityFit +
		params.LiquidityWeight*sub.Liquidity

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return math.Min(math.Max(score, 0), 100)
}

// discountSubScore saturates at the discount cap. A PT trading at a
// premium (negative discount) scores zero.
func discountSubScore(discount, cap float64) float64 {
	if cap <= 0 {
		return 0
	}
	return clamp01(discount / cap)
}

// trendSubScore rewards 7d APY running above the 30d trailing average.
// Zero when the 30d average is zero (no baseline to compare against).
func trendSubScore(apy7d, apy30d, cap float64) float64 {
	if apy30d == 0 || cap <= 0 {
		return 0
	}
	uplift := (apy7d - apy30d) / apy30d
	if uplift < 0 {
		uplift = 0
	}
	return clamp01(uplift / cap)
}

// maturityFitSubScore peaks at the configured day count and decays
// linearly to zero at 0 and at twice the peak.
func maturityFitSubScore(daysToMaturity, peakDays float64) float64 {
	if peakDays <= 0 {
		return 0
	}
	return clamp01(1 - math.Abs(daysToMaturity-peakDays)/peakDays)
}

// liquiditySubScore log-scales TVL against the cap. Non-positive TVL (and
// TVL at or below $1, where the log is non-positive) scores zero.
func liquiditySubScore(tvlUSD, capUSD float64) float64 {
	if tvlUSD <= 1 || capUSD <= 1 {
		return 0
	}
	return clamp01(math.Log(tvlUSD) / math.Log(capUSD))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
