/*

Default parameters for scoring, allocation, and flow execution. These are
the contract constants of the scoring model; deployments can override the
flow heuristics via environment variables.

*/

package config

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yieldsplit/ysa/internal/types"
)

// DefaultScoringParameters is the baseline scoring configuration. The caps
// and weights define the scoring contract itself: changing them changes
// what a confidence number means, so they are fixed here rather than read
// from the environment.
var DefaultScoringParameters = types.ScoringParameters{
	// A 15% PT discount is treated as a full-strength buy signal; deeper
	// discounts usually mean the market is pricing in a real problem.
	DiscountCap: 0.15,

	// A 10% relative uplift of 7d APY over 30d APY saturates the trend
	// sub-score.
	TrendCap: 0.10,

	// Maturity fit peaks at 120 days and decays linearly to zero at 0 and
	// 240 days. Shorter terms leave little yield to capture, longer terms
	// carry too much rate uncertainty.
	MaturityPeakDays: 120,

	// TVL is log-scaled against a $50M ceiling.
	LiquidityCapUSD: 50_000_000,

	// Composite weights, summing to 100.
	DiscountWeight:  30,
	TrendWeight:     25,
	RiskWeight:      20,
	MaturityWeight:  15,
	LiquidityWeight: 10,

	// Risk normalization: a 30% drawdown or 25% annualized volatility
	// fully suppresses the corresponding risk component.
	DrawdownCap:   0.30,
	VolatilityCap: 0.25,

	// Used when a pool carries no price history.
	DefaultSensitivity: 5.0,
	DefaultMaxDrawdown: 0.10,
	DefaultVolatility:  0.08,

	// A side below 20% collapses the suggestion to pure PT or pure YT.
	SplitThresholdPct: 20,

	AlternativesCap: 3,
	TopPoolsCap:     5,

	// Overlay splits applied after the suggester runs.
	ConservativeOverlayPT: 70,
	AggressiveOverlayPT:   30,
}

// DefaultFlowParameters are the execution heuristics of the flow
// controller. Buffer and delays are hard-coded heuristics rather than
// measured quantities; they can be overridden via env (see General.go).
var DefaultFlowParameters = types.FlowParameters{
	// 2% buffer against conversion output variance when sizing the mint
	// after a swap.
	SlippageBufferFactor: decimal.RequireFromString("0.98"),

	// Pause between a confirmation and the next dependent step, letting
	// node state catch up.
	SettleDelay: 2 * time.Second,

	// Delay before asking the caller to refresh balances after completion.
	RefreshDelay: 3 * time.Second,

	ReceiptPollInterval: 2 * time.Second,
	ReceiptPollTimeout:  5 * time.Minute,
}

// MarketCacheTTL bounds request volume against the market data source.
const MarketCacheTTL = 5 * time.Minute
