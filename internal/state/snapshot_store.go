// ./internal/state/snapshot_store.go
package state

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/insuredfi/rewardengine/internal/types"
)

// PoolSnapshot is one periodic capture of a pool's aggregates, taken by the
// engine's maintenance loop for the dashboard and for post-hoc analysis.
type PoolSnapshot struct {
	PoolID       types.PoolID `json:"pool_id"`
	Name         string       `json:"name"`
	Status       string       `json:"status"`
	TotalStaked  string       `json:"total_staked"`
	BaseAPYBP    uint64       `json:"base_apy_bp"`
	RiskFactorBP uint64       `json:"risk_factor_bp"`
	TakenAt      time.Time    `json:"taken_at"`
}

// SnapshotStore adapts the package-level snapshot persistence functions to
// the engine's persister interface.
type SnapshotStore struct{}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

func (s *SnapshotStore) SavePoolSnapshot(p *types.RewardPool) error {
	return SavePoolSnapshot(p)
}

// SavePoolSnapshot persists one snapshot row per pool.
func SavePoolSnapshot(p *types.RewardPool) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO pool_snapshots (pool_id, name, status, total_staked, base_apy_bp, risk_factor_bp)
		VALUES ($1, $2, $3, $4, $5, $6);`

	_, err := DB.Exec(stmt,
		uint64(p.ID), p.Name, string(p.Status), p.TotalStaked.String(),
		p.BaseAPY, p.RiskAdjustmentFactor,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pool snapshot: %w", err)
	}

	log.Debug().Uint64("pool", uint64(p.ID)).Msg("Pool snapshot persisted")
	return nil
}

// LoadLatestPoolSnapshots returns the most recent snapshot per pool.
func LoadLatestPoolSnapshots() ([]PoolSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT DISTINCT ON (pool_id)
			pool_id, name, status, total_staked, base_apy_bp, risk_factor_bp, taken_at
		FROM pool_snapshots
		ORDER BY pool_id, taken_at DESC;`

	rows, err := DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool snapshots: %w", err)
	}
	defer rows.Close()

	var out []PoolSnapshot
	for rows.Next() {
		var (
			s      PoolSnapshot
			poolID uint64
		)
		if err := rows.Scan(&poolID, &s.Name, &s.Status, &s.TotalStaked, &s.BaseAPYBP, &s.RiskFactorBP, &s.TakenAt); err != nil {
			return nil, fmt.Errorf("failed to scan pool snapshot: %w", err)
		}
		s.PoolID = types.PoolID(poolID)
		out = append(out, s)
	}
	return out, rows.Err()
}
