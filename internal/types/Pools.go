/*

Canonical pool type for a yield-tokenization market. Everything downstream
(scoring, allocation, recommendation, execution) operates on this shape
only; the ingestion adapter in datafetcher folds the provider's legacy and
structured wire formats into it.

*/

package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Pool struct {
	Address    common.Address `json:"address"` // market contract, used as the pool ID
	ChainID    int64          `json:"chain_id"`
	Underlying Token          `json:"underlying"` // yield-bearing asset, e.g. sUSDe
	PT         Token          `json:"pt"`         // principal token
	YT         Token          `json:"yt"`         // yield token
	SY         Token          `json:"sy"`         // wrapped underlying used by the protocol

	Maturity time.Time `json:"maturity"`

	TvlUSD       float64 `json:"tvl_usd"`
	APY          float64 `json:"apy"`           // trailing underlying APY
	APY7d        float64 `json:"apy_7d"`        // 7-day trailing average
	APY30d       float64 `json:"apy_30d"`       // 30-day trailing average
	ImpliedYield float64 `json:"implied_yield"` // yield embedded in the PT discount
	PTPrice      float64 `json:"pt_price"`      // fraction of par, 0..1
	YTPrice      float64 `json:"yt_price"`

	// Historical underlying prices, optional. Used to derive drawdown and
	// volatility proxies for the risk model when present.
	PriceHistory []PricePoint `json:"price_history,omitempty"`
}

// PTDiscount returns the discount of PT to par.
func (p Pool) PTDiscount() float64 {
	return 1 - p.PTPrice
}

// DaysToMaturity returns the number of days until maturity, never negative.
func (p Pool) DaysToMaturity(now time.Time) float64 {
	days := p.Maturity.Sub(now).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}

// Expired reports whether the pool's maturity has passed.
func (p Pool) Expired(now time.Time) bool {
	return p.Maturity.Before(now)
}
