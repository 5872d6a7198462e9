/*

This file contains the portfolio recommender: it fans the suggester out
across every pool matching each wallet asset, picks the best PT/YT/overall
pool per asset, and aggregates the portfolio-level summary.

*/

package strategy

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yieldsplit/ysa/internal/logger"
	"github.com/yieldsplit/ysa/internal/types"
)

var recommendLogger = logger.GetForComponent("portfolio_recommender")

// costBasisFactor produces the synthetic cost basis placeholder. Not real
// acquisition history.
var costBasisFactor = decimal.RequireFromString("0.95")

// Recommend builds per-asset recommendations and the portfolio summary.
// Assets with no matching pool are skipped, never an error; an empty pool
// list yields an empty result.
func Recommend(assets []types.WalletAsset, pools []types.Pool, profile types.RiskProfile, params types.ScoringParameters, now time.Time) ([]types.PoolRecommendation, types.RecommendationSummary) {
	recommendations := make([]types.PoolRecommendation, 0, len(assets))

	for _, asset := range assets {
		rec, ok := recommendForAsset(asset, pools, profile, params, now)
		if !ok {
			recommendLogger.Debug().
				Str("asset", asset.Token.Symbol).
				Msg("No matching pools for asset, skipping")
			continue
		}
		recommendations = append(recommendations, rec)
	}

	summary := summarize(recommendations, pools, profile, params, now)

	recommendLogger.Info().
		Int("assets", len(assets)).
		Int("pools", len(pools)).
		Int("recommendations", len(recommendations)).
		Float64("bestOverallAPY", summary.BestOverallAPY).
		Msg("Portfolio recommendations computed")

	return recommendations, summary
}

func recommendForAsset(asset types.WalletAsset, pools []types.Pool, profile types.RiskProfile, params types.ScoringParameters, now time.Time) (types.PoolRecommendation, bool) {
	var rated []types.RatedPool
	for _, pool := range pools {
		if !symbolsMatch(pool.Underlying.Symbol, asset.Token.Symbol) {
			continue
		}
		suggestion, err := Suggest(pool, profile, params, now)
		if err != nil {
			recommendLogger.Debug().
				Str("pool", pool.Address.Hex()).
				Err(err).
				Msg("Skipping pool for asset")
			continue
		}
		rated = append(rated, types.RatedPool{Pool: pool, Suggestion: suggestion})
	}

	if len(rated) == 0 {
		return types.PoolRecommendation{}, false
	}

	bestPT := rated[0]
	bestYT := rated[0]
	bestOverall := rated[0]
	for _, rp := range rated[1:] {
		if rp.Suggestion.Allocation.PT > bestPT.Suggestion.Allocation.PT {
			bestPT = rp
		}
		if rp.Suggestion.Allocation.YT > bestYT.Suggestion.Allocation.YT {
			bestYT = rp
		}
		if rp.Suggestion.Confidence > bestOverall.Suggestion.Confidence {
			bestOverall = rp
		}
	}

	alternatives := make([]types.RatedPool, 0, len(rated))
	for _, rp := range rated {
		if rp.Pool.Address == bestPT.Pool.Address || rp.Pool.Address == bestYT.Pool.Address {
			continue
		}
		alternatives = append(alternatives, rp)
	}
	sort.Slice(alternatives, func(i, j int) bool {
		return alternatives[i].Suggestion.Confidence > alternatives[j].Suggestion.Confidence
	})
	if len(alternatives) > params.AlternativesCap {
		alternatives = alternatives[:params.AlternativesCap]
	}

	suggestion := applyRiskOverlay(bestOverall.Suggestion, profile, params)

	return types.PoolRecommendation{
		AssetSymbol:        asset.Token.Symbol,
		AssetValueUSD:      asset.ValueUSD,
		BestPT:             bestPT,
		BestYT:             bestYT,
		BestOverall:        bestOverall,
		Alternatives:       alternatives,
		Suggestion:         suggestion,
		SyntheticCostBasis: asset.ValueUSD.Mul(costBasisFactor),
	}, true
}

// applyRiskOverlay rewrites only type and allocation, once per asset, after
// the suggester has run. Reasoning and confidence stay untouched.
func applyRiskOverlay(suggestion types.StrategySuggestion, profile types.RiskProfile, params types.ScoringParameters) types.StrategySuggestion {
	switch {
	case profile == types.RiskConservative && suggestion.Type == types.StrategyYT:
		suggestion.Type = types.StrategySplit
		suggestion.Allocation = types.AllocationSplit{
			PT: params.ConservativeOverlayPT,
			YT: 100 - params.ConservativeOverlayPT,
		}
	case profile == types.RiskAggressive && suggestion.Type == types.StrategyPT:
		suggestion.Type = types.StrategySplit
		suggestion.Allocation = types.AllocationSplit{
			PT: params.AggressiveOverlayPT,
			YT: 100 - params.AggressiveOverlayPT,
		}
	}
	return suggestion
}

// symbolsMatch compares case-insensitively and accepts containment either
// way, so "sUSDe" matches pools listed under "SUSDE" or "sUSDe (Sep)".
func symbolsMatch(poolSymbol, assetSymbol string) bool {
	p := strings.ToLower(strings.TrimSpace(poolSymbol))
	a := strings.ToLower(strings.TrimSpace(assetSymbol))
	if p == "" || a == "" {
		return false
	}
	return p == a || strings.Contains(p, a) || strings.Contains(a, p)
}

func summarize(recommendations []types.PoolRecommendation, pools []types.Pool, profile types.RiskProfile, params types.ScoringParameters, now time.Time) types.RecommendationSummary {
	summary := types.RecommendationSummary{
		TotalOpportunities:  len(recommendations),
		TotalPotentialValue: decimal.Zero,
	}

	for _, rec := range recommendations {
		if rec.Suggestion.ExpectedAPY > summary.BestOverallAPY {
			summary.BestOverallAPY = rec.Suggestion.ExpectedAPY
		}
		summary.TotalPotentialValue = summary.TotalPotentialValue.Add(rec.AssetValueUSD)
	}

	summary.TopPools = rankPools(pools, profile, params, now)
	return summary
}

// rankPools rates every pool on confidence alone, independent of asset
// matching, and returns the top slice.
func rankPools(pools []types.Pool, profile types.RiskProfile, params types.ScoringParameters, now time.Time) []types.RatedPool {
	rated := make([]types.RatedPool, 0, len(pools))
	for _, pool := range pools {
		suggestion, err := Suggest(pool, profile, params, now)
		if err != nil {
			continue
		}
		rated = append(rated, types.RatedPool{Pool: pool, Suggestion: suggestion})
	}

	sort.Slice(rated, func(i, j int) bool {
		return rated[i].Suggestion.Confidence > rated[j].Suggestion.Confidence
	})

	if len(rated) > params.TopPoolsCap {
		rated = rated[:params.TopPoolsCap]
	}
	return rated
}
