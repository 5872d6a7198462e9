/*

Canonical token and wallet-asset types. Wallet assets are immutable
snapshots of a portfolio fetch; a fresh fetch supersedes them, they are
never mutated in place.

*/

package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`   // e.g. "sUSDe"
	Decimals int            `json:"decimals"` // e.g. 18
}

// WalletAsset is one holding from a portfolio snapshot.
type WalletAsset struct {
	Token      Token           `json:"token"`
	RawBalance *big.Int        `json:"raw_balance"` // smallest unit
	Balance    decimal.Decimal `json:"balance"`     // decimal-adjusted
	ValueUSD   decimal.Decimal `json:"value_usd"`
	FetchedAt  time.Time       `json:"fetched_at"`
}

// PricePoint holds one historical price observation for a pool's underlying.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}
