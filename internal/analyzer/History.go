package analyzer

import (
	"errors"
	"math"
	"sort"

	"github.com/yieldsplit/ysa/internal/types"
)

// ErrInsufficientData indicates that not enough price points were provided
// to derive a statistic (need at least 2 points for 1 return).
var ErrInsufficientData = errors.New("insufficient data points to calculate statistic")

// CalculateVolatility calculates annualized historical volatility from a
// price series using logarithmic returns and standard deviation. Works on a
// chronologically sorted copy; the input slice is never modified, so shared
// (cached) series are safe to pass from concurrent callers. The
// annualizationFactor should match the data frequency (e.g. 365 for daily,
// 8760 for hourly).
func CalculateVolatility(prices []types.PricePoint, annualizationFactor float64) (float64, error) {
	n := len(prices)
	if n < 2 {
		return 0, ErrInsufficientData
	}

	sorted := sortedChronologically(prices)

	logReturns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		current := sorted[i].Price
		previous := sorted[i-1].Price

		// Non-positive prices would break math.Log; skip the pair.
		if previous <= 0 || current <= 0 {
			continue
		}
		logReturns = append(logReturns, math.Log(current/previous))
	}

	numReturns := len(logReturns)
	if numReturns == 0 {
		return 0, ErrInsufficientData
	}

	var sum float64
	for _, r := range logReturns {
		sum += r
	}
	mean := sum / float64(numReturns)

	var sumSqDiff float64
	for _, r := range logReturns {
		sumSqDiff += math.Pow(r-mean, 2)
	}
	variance := sumSqDiff / float64(numReturns)
	stdDev := math.Sqrt(variance)

	return stdDev * math.Sqrt(annualizationFactor), nil
}

// CalculateMaxDrawdown returns the largest peak-to-trough decline in the
// series as a fraction of the peak (0..1). Works on a chronologically
// sorted copy; the input slice is never modified.
func CalculateMaxDrawdown(prices []types.PricePoint) (float64, error) {
	if len(prices) < 2 {
		return 0, ErrInsufficientData
	}

	sorted := sortedChronologically(prices)

	peak := 0.0
	maxDrawdown := 0.0
	for _, p := range sorted {
		if p.Price <= 0 {
			continue
		}
		if p.Price > peak {
			peak = p.Price
			continue
		}
		if peak > 0 {
			drawdown := (peak - p.Price) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return maxDrawdown, nil
}

// sortedChronologically returns a sorted copy. Price histories arrive on
// cached pools shared across request goroutines, so sorting in place would
// race.
func sortedChronologically(prices []types.PricePoint) []types.PricePoint {
	sorted := make([]types.PricePoint, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}
