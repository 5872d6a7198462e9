/*

Tunable parameters for scoring, allocation, and flow execution. The
defaults live in internal/config; a different set can be supplied per
deployment.

*/

package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScoringParameters holds the caps, weights, and thresholds used by the
// analyzer and the strategy layer.
type ScoringParameters struct {
	// --- Sub-score normalization caps ---
	DiscountCap      float64 `json:"discount_cap"`       // PT discount at which the discount sub-score saturates.
	TrendCap         float64 `json:"trend_cap"`          // Relative 7d-vs-30d APY uplift at which the trend sub-score saturates.
	MaturityPeakDays float64 `json:"maturity_peak_days"` // Days-to-maturity at which the maturity-fit sub-score peaks; decays linearly to 0 at 0 and 2x peak.
	LiquidityCapUSD  float64 `json:"liquidity_cap_usd"`  // TVL at which the liquidity sub-score saturates (log scaled).

	// --- Composite score weights (sum to 100) ---
	DiscountWeight  float64 `json:"discount_weight"`
	TrendWeight     float64 `json:"trend_weight"`
	RiskWeight      float64 `json:"risk_weight"`
	MaturityWeight  float64 `json:"maturity_weight"`
	LiquidityWeight float64 `json:"liquidity_weight"`

	// --- Risk model normalization ---
	DrawdownCap   float64 `json:"drawdown_cap"`   // Max drawdown at which the drawdown penalty saturates.
	VolatilityCap float64 `json:"volatility_cap"` // Annualized volatility at which the volatility penalty saturates.

	// --- Defaults used when a pool carries no price history ---
	DefaultSensitivity float64 `json:"default_sensitivity"` // YT trend sensitivity multiplier.
	DefaultMaxDrawdown float64 `json:"default_max_drawdown"`
	DefaultVolatility  float64 `json:"default_volatility"`

	// --- Strategy classification ---
	SplitThresholdPct int `json:"split_threshold_pct"` // Below this pct on one side the suggestion collapses to pure PT or pure YT.
	AlternativesCap   int `json:"alternatives_cap"`    // Max alternatives returned per asset.
	TopPoolsCap       int `json:"top_pools_cap"`       // Max globally ranked pools in the summary.

	// --- Profile overlay splits (pt/yt integer percentages) ---
	ConservativeOverlayPT int `json:"conservative_overlay_pt"` // Forced PT share when a conservative profile lands on a YT suggestion.
	AggressiveOverlayPT   int `json:"aggressive_overlay_pt"`   // Forced PT share when an aggressive profile lands on a PT suggestion.
}

// FlowParameters holds the execution heuristics of the flow controller.
// The buffer and delays are fixed heuristics, not measured quantities.
type FlowParameters struct {
	SlippageBufferFactor decimal.Decimal `json:"slippage_buffer_factor"` // Applied to the invested amount after a conversion confirms.
	SettleDelay          time.Duration   `json:"settle_delay"`           // Pause between a confirmation and the next step.
	RefreshDelay         time.Duration   `json:"refresh_delay"`          // Delay before the post-completion refresh callback.
	ReceiptPollInterval  time.Duration   `json:"receipt_poll_interval"`
	ReceiptPollTimeout   time.Duration   `json:"receipt_poll_timeout"`
}
