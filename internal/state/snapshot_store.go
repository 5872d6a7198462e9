package state

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/yieldsplit/ysa/internal/types"
)

// RecommendationSnapshot is one persisted recommendation run for a wallet.
type RecommendationSnapshot struct {
	SnapshotID      int64                       `json:"snapshot_id"`
	Wallet          common.Address              `json:"wallet"`
	RiskProfile     types.RiskProfile           `json:"risk_profile"`
	CreatedAt       time.Time                   `json:"created_at"`
	Recommendations []types.PoolRecommendation  `json:"recommendations"`
	Summary         types.RecommendationSummary `json:"summary"`
}

// SaveRecommendationSnapshot persists one recommendation run. Best effort:
// callers log the error and carry on.
func SaveRecommendationSnapshot(wallet common.Address, profile types.RiskProfile, recommendations []types.PoolRecommendation, summary types.RecommendationSummary) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	recommendationsJSON, err := json.Marshal(recommendations)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		INSERT INTO recommendation_snapshots (wallet, risk_profile, created_at, recommendations, summary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(query,
		strings.ToLower(wallet.Hex()),
		string(profile),
		time.Now().UTC(),
		recommendationsJSON,
		summaryJSON,
	).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("failed to save recommendation snapshot: %w", err)
	}

	log.Debug().
		Int64("snapshotID", snapshotID).
		Str("wallet", wallet.Hex()).
		Int("recommendations", len(recommendations)).
		Msg("Saved recommendation snapshot")

	return snapshotID, nil
}

// GetRecentSnapshots returns the most recent snapshots for a wallet, newest
// first.
func GetRecentSnapshots(wallet common.Address, limit int) ([]RecommendationSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT snapshot_id, risk_profile, created_at, recommendations, summary
		FROM recommendation_snapshots
		WHERE wallet = $1
		ORDER BY created_at DESC
		LIMIT $2;
	`

	rows, err := DB.Query(query, strings.ToLower(wallet.Hex()), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendation snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []RecommendationSnapshot
	for rows.Next() {
		var (
			snapshot            RecommendationSnapshot
			profile             string
			recommendationsJSON []byte
			summaryJSON         []byte
		)
		if err := rows.Scan(&snapshot.SnapshotID, &profile, &snapshot.CreatedAt, &recommendationsJSON, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snapshot.Wallet = wallet
		snapshot.RiskProfile = types.RiskProfile(profile)

		if err := json.Unmarshal(recommendationsJSON, &snapshot.Recommendations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recommendations for snapshot %d: %w", snapshot.SnapshotID, err)
		}
		if err := json.Unmarshal(summaryJSON, &snapshot.Summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary for snapshot %d: %w", snapshot.SnapshotID, err)
		}

		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}

	return snapshots, nil
}
