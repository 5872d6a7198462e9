package state

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/yieldsplit/ysa/internal/types"
)

// ErrSettingsNotFound indicates no settings row exists for the key.
var ErrSettingsNotFound = errors.New("no settings found for wallet and pool")

// SavePoolSettings upserts the per-pool settings for a wallet.
func SavePoolSettings(settings types.PoolSettings) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO pool_settings (wallet, pool_address, profit_take_pct, loss_cut_pct, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wallet, pool_address) DO UPDATE SET
			profit_take_pct = EXCLUDED.profit_take_pct,
			loss_cut_pct = EXCLUDED.loss_cut_pct,
			updated_at = EXCLUDED.updated_at;
	`

	_, err := DB.Exec(query,
		strings.ToLower(settings.Wallet.Hex()),
		strings.ToLower(settings.PoolAddress.Hex()),
		settings.ProfitTakePct,
		settings.LossCutPct,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save pool settings: %w", err)
	}

	log.Debug().
		Str("wallet", settings.Wallet.Hex()).
		Str("pool", settings.PoolAddress.Hex()).
		Float64("profitTakePct", settings.ProfitTakePct).
		Float64("lossCutPct", settings.LossCutPct).
		Msg("Saved pool settings")

	return nil
}

// GetPoolSettings fetches the settings for a wallet and pool. Returns
// ErrSettingsNotFound when none exist.
func GetPoolSettings(wallet, pool common.Address) (types.PoolSettings, error) {
	if DB == nil {
		return types.PoolSettings{}, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT profit_take_pct, loss_cut_pct, updated_at
		FROM pool_settings
		WHERE wallet = $1 AND pool_address = $2;
	`

	settings := types.PoolSettings{Wallet: wallet, PoolAddress: pool}
	err := DB.QueryRow(query, strings.ToLower(wallet.Hex()), strings.ToLower(pool.Hex())).
		Scan(&settings.ProfitTakePct, &settings.LossCutPct, &settings.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.PoolSettings{}, ErrSettingsNotFound
	}
	if err != nil {
		return types.PoolSettings{}, fmt.Errorf("failed to query pool settings: %w", err)
	}

	return settings, nil
}
