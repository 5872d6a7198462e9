package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PoolSettings are per-pool advanced settings kept in the preference store.
// Best-effort persistence; not required for correctness of the core.
type PoolSettings struct {
	PoolAddress   common.Address `json:"pool_address"`
	Wallet        common.Address `json:"wallet"`
	ProfitTakePct float64        `json:"profit_take_pct"` // e.g. 20.0 for +20%
	LossCutPct    float64        `json:"loss_cut_pct"`    // e.g. 10.0 for -10%
	UpdatedAt     time.Time      `json:"updated_at"`
}
