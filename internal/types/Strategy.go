/*

Types for strategy suggestions and portfolio-level recommendations.

*/

package types

import "github.com/shopspring/decimal"

// RiskProfile is the user-selected risk preference.
type RiskProfile string

const (
	RiskConservative RiskProfile = "conservative"
	RiskModerate     RiskProfile = "moderate"
	RiskAggressive   RiskProfile = "aggressive"
)

// Factor returns the scalar profile factor used by the risk model.
func (r RiskProfile) Factor() float64 {
	switch r {
	case RiskConservative:
		return 0.4
	case RiskModerate:
		return 0.7
	case RiskAggressive:
		return 1.0
	default:
		return 0.7
	}
}

// Valid reports whether the profile is one of the three known values.
func (r RiskProfile) Valid() bool {
	switch r {
	case RiskConservative, RiskModerate, RiskAggressive:
		return true
	}
	return false
}

// StrategyType classifies a suggestion.
type StrategyType string

const (
	StrategyPT    StrategyType = "PT"
	StrategyYT    StrategyType = "YT"
	StrategySplit StrategyType = "SPLIT"
)

// AllocationSplit is the PT/YT split in integer percentages. PT+YT is
// always 100.
type AllocationSplit struct {
	PT int `json:"pt"`
	YT int `json:"yt"`
}

// StrategySuggestion is the typed output of the suggester for one pool
// under one risk profile.
type StrategySuggestion struct {
	Type        StrategyType    `json:"type"`
	Allocation  AllocationSplit `json:"allocation"`
	ExpectedAPY float64         `json:"expected_apy"`
	Confidence  float64         `json:"confidence"` // 0..100
	RiskLevel   RiskProfile     `json:"risk_level"`
	Reasoning   string          `json:"reasoning"`
	ActionItems []string        `json:"action_items"` // human-facing, not control flow
}

// RatedPool pairs a pool with the suggestion computed for it.
type RatedPool struct {
	Pool       Pool               `json:"pool"`
	Suggestion StrategySuggestion `json:"suggestion"`
}

// PoolRecommendation is the per-asset bundle produced by the recommender.
type PoolRecommendation struct {
	AssetSymbol   string          `json:"asset_symbol"`
	AssetValueUSD decimal.Decimal `json:"asset_value_usd"`

	BestPT       RatedPool   `json:"best_pt"`
	BestYT       RatedPool   `json:"best_yt"`
	BestOverall  RatedPool   `json:"best_overall"`
	Alternatives []RatedPool `json:"alternatives"` // capped, sorted by confidence

	Suggestion StrategySuggestion `json:"suggestion"`

	// SyntheticCostBasis is a placeholder (value x 0.95), not real
	// acquisition history. Do not treat it as an accounting figure.
	SyntheticCostBasis decimal.Decimal `json:"synthetic_cost_basis"`
}

// RecommendationSummary aggregates across all recommended assets.
type RecommendationSummary struct {
	TotalOpportunities  int             `json:"total_opportunities"`
	BestOverallAPY      float64         `json:"best_overall_apy"`
	TotalPotentialValue decimal.Decimal `json:"total_potential_value"`
	TopPools            []RatedPool     `json:"top_pools,omitempty"` // ranked on confidence alone
}
