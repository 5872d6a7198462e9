/*

This file contains the suggester: one pool plus one risk profile in, one
typed strategy suggestion out.

*/

package strategy

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/yieldsplit/ysa/internal/analyzer"
	"github.com/yieldsplit/ysa/internal/logger"
	"github.com/yieldsplit/ysa/internal/types"
)

var (
	ErrPoolExpired     = errors.New("pool has reached maturity")
	ErrInvalidPoolData = errors.New("invalid pool data")
)

var suggestLogger = logger.GetForComponent("strategy_suggester")

// Daily price history is assumed for the volatility proxy.
const historyAnnualizationFactor = 365

// Suggest computes a typed strategy suggestion for one pool under one risk
// profile. Risk inputs (drawdown, volatility) are derived from the pool's
// price history when present, otherwise the configured defaults apply.
func Suggest(pool types.Pool, profile types.RiskProfile, params types.ScoringParameters, now time.Time) (types.StrategySuggestion, error) {
	if err := validatePool(pool, now); err != nil {
		return types.StrategySuggestion{}, err
	}

	risk := riskInputsForPool(pool, profile, params)

	in := analyzer.AllocationInput{
		PTDiscount:   pool.PTDiscount(),
		APY7d:        pool.APY7d,
		APY30d:       pool.APY30d,
		MaturityDays: pool.DaysToMaturity(now),
		Sensitivity:  params.DefaultSensitivity,
	}

	alloc := analyzer.CalculateRiskAdjustedAllocation(in, risk, params)
	sub := analyzer.CalculateSubScores(pool, params, now)
	confidence := analyzer.CalculateConfidence(sub, alloc.RiskFactor, params)

	split := toIntegerSplit(alloc)
	suggestionType := classify(split, params.SplitThresholdPct)

	suggestion := types.StrategySuggestion{
		Type:        suggestionType,
		Allocation:  split,
		ExpectedAPY: alloc.PT*pool.ImpliedYield + alloc.YT*pool.APY,
		Confidence:  confidence,
		RiskLevel:   profile,
		Reasoning:   alloc.Rationale,
		ActionItems: actionItems(pool, suggestionType, split),
	}

	suggestLogger.Debug().
		Str("pool", pool.Address.Hex()).
		Str("underlying", pool.Underlying.Symbol).
		Str("type", string(suggestion.Type)).
		Int("pt", split.PT).
		Int("yt", split.YT).
		Float64("confidence", confidence).
		Msg("Strategy suggestion computed")

	return suggestion, nil
}

func validatePool(pool types.Pool, now time.Time) error {
	if pool.Address == (common.Address{}) {
		return errors.Join(ErrInvalidPoolData, errors.New("pool address is zero"))
	}
	if pool.Underlying.Symbol == "" {
		return errors.Join(ErrInvalidPoolData, errors.New("underlying symbol is empty"))
	}
	if pool.Expired(now) {
		return ErrPoolExpired
	}
	return nil
}

// riskInputsForPool derives drawdown and volatility proxies from price
// history, falling back to the configured defaults when the history is too
// thin.
func riskInputsForPool(pool types.Pool, profile types.RiskProfile, params types.ScoringParameters) analyzer.RiskInput {
	risk := analyzer.RiskInput{
		MaxDrawdown: params.DefaultMaxDrawdown,
		Volatility:  params.DefaultVolatility,
		Profile:     profile,
	}

	if len(pool.PriceHistory) < 2 {
		return risk
	}

	if mdd, err := analyzer.CalculateMaxDrawdown(pool.PriceHistory); err == nil {
		risk.MaxDrawdown = mdd
	}
	if vol, err := analyzer.CalculateVolatility(pool.PriceHistory, historyAnnualizationFactor); err == nil {
		risk.Volatility = vol
	}

	return risk
}

// toIntegerSplit rounds the fractional allocation to integer percentages
// that always sum to exactly 100.
func toIntegerSplit(alloc analyzer.Allocation) types.AllocationSplit {
	pt := int(math.Round(alloc.PT * 100))
	if pt < 0 {
		pt = 0
	}
	if pt > 100 {
		pt = 100
	}
	return types.AllocationSplit{PT: pt, YT: 100 - pt}
}

func classify(split types.AllocationSplit, thresholdPct int) types.StrategyType {
	switch {
	case split.YT < thresholdPct:
		return types.StrategyPT
	case split.PT < thresholdPct:
		return types.StrategyYT
	default:
		return types.StrategySplit
	}
}

// actionItems lists the human-facing next steps for a suggestion. Ordered,
// never used for control flow.
func actionItems(pool types.Pool, t types.StrategyType, split types.AllocationSplit) []string {
	approve := fmt.Sprintf("Approve %s for the mint router", pool.Underlying.Symbol)
	switch t {
	case types.StrategyPT:
		return []string{
			approve,
			fmt.Sprintf("Mint %s-PT with the full amount", pool.Underlying.Symbol),
			fmt.Sprintf("Hold PT to maturity (%s) for the fixed return", pool.Maturity.Format("2006-01-02")),
		}
	case types.StrategyYT:
		return []string{
			approve,
			fmt.Sprintf("Mint %s-YT with the full amount", pool.Underlying.Symbol),
			"Monitor the underlying APY; YT value tracks yield expectations",
		}
	default:
		return []string{
			approve,
			fmt.Sprintf("Mint PT/YT split %d/%d", split.PT, split.YT),
			fmt.Sprintf("Hold PT to maturity (%s); monitor YT against APY", pool.Maturity.Format("2006-01-02")),
		}
	}
}
