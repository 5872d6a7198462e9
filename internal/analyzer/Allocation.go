/*

This file contains the pure allocation functions turning discount, APY
trend, time-to-maturity, and risk inputs into a PT/YT split.

*/

package analyzer

import (
	"math"

	"github.com/yieldsplit/ysa/internal/types"
)

// Rationale strings surfaced with allocations. The suggester forwards them
// verbatim to the user.
const (
	RationaleNoSignal       = "No valid YT signal; allocating fully to the fixed-rate side."
	RationaleRiskSuppressed = "YT suppressed by risk model; allocating fully to the fixed-rate side."
	RationaleStrongYT       = "Strong YT signal: short-term APY is running well above trend."
	RationaleModerateYT     = "Moderate YT signal: recent APY momentum supports partial yield exposure."
	RationaleFavorPT        = "Market weak, favor PT: the fixed-rate discount dominates the yield signal."
	RationaleBalanced       = "Balanced signals: splitting between fixed and variable exposure."
)

// AllocationInput carries the market inputs of the allocation model.
type AllocationInput struct {
	PTDiscount   float64 // 1 - ptPrice
	APY7d        float64
	APY30d       float64
	MaturityDays float64
	Sensitivity  float64 // multiplier on the APY trend for the YT side
}

// RiskInput carries the risk inputs of the risk-adjusted variant.
type RiskInput struct {
	MaxDrawdown float64 // historical peak-to-trough, 0..1
	Volatility  float64 // annualized, 0..1
	Profile     types.RiskProfile
}

// Allocation is a PT/YT split as fractions. PT+YT is always exactly 1 and
// neither side is ever negative.
type Allocation struct {
	PT         float64
	YT         float64
	RiskFactor float64 // 1.0 for the base variant
	Rationale  string
}

// CalculateBaseAllocation computes the unadjusted PT/YT split from the
// discount and APY trend signals. Pure; never errors, out-of-range inputs
// are clamped.
func CalculateBaseAllocation(in AllocationInput) Allocation {
	ptScore := ptSignal(in.PTDiscount, in.MaturityDays)
	ytScore := ytSignal(in.APY7d, in.APY30d, in.Sensitivity)

	if ptScore+ytScore == 0 {
		return Allocation{PT: 1, YT: 0, RiskFactor: 1, Rationale: RationaleNoSignal}
	}

	pt := ptScore / (ptScore + ytScore)
	return Allocation{
		PT:         pt,
		YT:         1 - pt,
		RiskFactor: 1,
		Rationale:  rationaleForSplit(1 - pt),
	}
}

// CalculateRiskAdjustedAllocation scales the YT side by a risk factor
// derived from drawdown, volatility, and the risk profile. The factor is
// monotonically non-increasing in both drawdown and volatility.
func CalculateRiskAdjustedAllocation(in AllocationInput, risk RiskInput, params types.ScoringParameters) Allocation {
	ptScore := ptSignal(in.PTDiscount, in.MaturityDays)
	ytScore := ytSignal(in.APY7d, in.APY30d, in.Sensitivity)

	riskFactor := RiskFactor(risk, params)
	ytAdjusted := ytScore * riskFactor

	if ptScore+ytAdjusted == 0 {
		return Allocation{PT: 1, YT: 0, RiskFactor: riskFactor, Rationale: RationaleRiskSuppressed}
	}

	pt := ptScore / (ptScore + ytAdjusted)
	return Allocation{
		PT:         pt,
		YT:         1 - pt,
		RiskFactor: riskFactor,
		Rationale:  rationaleForSplit(1 - pt),
	}
}

// RiskFactor computes (1 - normalized drawdown) * (1 - normalized
// volatility) * profile factor, each penalty saturating at its cap.
func RiskFactor(risk RiskInput, params types.ScoringParameters) float64 {
	mddNorm := clamp01(safeDiv(risk.MaxDrawdown, params.DrawdownCap))
	volNorm := clamp01(safeDiv(risk.Volatility, params.VolatilityCap))
	return clamp01((1 - mddNorm) * (1 - volNorm) * risk.Profile.Factor())
}

// ptSignal weights the PT discount by the square root of the remaining
// term in years. A deeper discount with more runway is a stronger fixed
// side.
func ptSignal(discount, maturityDays float64) float64 {
	if math.IsNaN(discount) || discount < 0 {
		discount = 0
	}
	return discount * math.Sqrt(math.Max(maturityDays, 1)/365)
}

// ytSignal is the sensitivity-scaled APY trend, floored at zero. Zero when
// the 30d average is zero.
func ytSignal(apy7d, apy30d, sensitivity float64) float64 {
	if apy30d == 0 {
		return 0
	}
	trend := (apy7d - apy30d) / apy30d
	signal := trend * sensitivity
	if math.IsNaN(signal) || signal < 0 {
		return 0
	}
	return signal
}

func rationaleForSplit(yt float64) string {
	switch {
	case yt > 0.7:
		return RationaleStrongYT
	case yt > 0.4:
		return RationaleModerateYT
	case yt < 0.1:
		return RationaleFavorPT
	default:
		return RationaleBalanced
	}
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
