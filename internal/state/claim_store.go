// ./internal/state/claim_store.go
package state

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/insuredfi/rewardengine/internal/types"
)

// ClaimStore adapts the package-level claim persistence functions to the
// engine's persister interface.
type ClaimStore struct{}

func NewClaimStore() *ClaimStore {
	return &ClaimStore{}
}

func (s *ClaimStore) SaveClaimRecord(rec types.ClaimRecord) error {
	return SaveClaimRecord(rec)
}

// SaveClaimRecord appends one immutable claim history row.
func SaveClaimRecord(rec types.ClaimRecord) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO claim_history (claimer, pool_id, denom, amount, claimed_at)
		VALUES ($1, $2, $3, $4, $5);`

	_, err := DB.Exec(stmt,
		rec.Claimer, uint64(rec.PoolID), rec.Denom, rec.Amount.String(),
		time.Unix(rec.Timestamp, 0).UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert claim record: %w", err)
	}

	log.Debug().
		Str("claimer", rec.Claimer).
		Uint64("pool", uint64(rec.PoolID)).
		Str("denom", rec.Denom).
		Str("amount", rec.Amount.String()).
		Msg("Claim record persisted")
	return nil
}

// LoadClaimHistory returns the most recent claim rows for (claimer, pool),
// newest first.
func LoadClaimHistory(claimer string, pool types.PoolID, limit int) ([]types.ClaimRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT claimer, pool_id, denom, amount, claimed_at
		FROM claim_history
		WHERE claimer = $1 AND pool_id = $2
		ORDER BY claimed_at DESC
		LIMIT $3;`

	rows, err := DB.Query(query, claimer, uint64(pool), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query claim history: %w", err)
	}
	defer rows.Close()

	var out []types.ClaimRecord
	for rows.Next() {
		var (
			rec       types.ClaimRecord
			poolID    uint64
			amountStr string
			claimedAt time.Time
		)
		if err := rows.Scan(&rec.Claimer, &poolID, &rec.Denom, &amountStr, &claimedAt); err != nil {
			return nil, fmt.Errorf("failed to scan claim record: %w", err)
		}
		amount, ok := sdkmath.NewIntFromString(amountStr)
		if !ok {
			return nil, fmt.Errorf("invalid amount %q in claim history", amountStr)
		}
		rec.PoolID = types.PoolID(poolID)
		rec.Amount = amount
		rec.Timestamp = claimedAt.Unix()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LoadPoolClaims returns the most recent claim rows across a whole pool.
func LoadPoolClaims(pool types.PoolID, limit int) ([]types.ClaimRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT claimer, pool_id, denom, amount, claimed_at
		FROM claim_history
		WHERE pool_id = $1
		ORDER BY claimed_at DESC
		LIMIT $2;`

	rows, err := DB.Query(query, uint64(pool), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool claims: %w", err)
	}
	defer rows.Close()

	var out []types.ClaimRecord
	for rows.Next() {
		var (
			rec       types.ClaimRecord
			poolID    uint64
			amountStr string
			claimedAt time.Time
		)
		if err := rows.Scan(&rec.Claimer, &poolID, &rec.Denom, &amountStr, &claimedAt); err != nil {
			return nil, fmt.Errorf("failed to scan claim record: %w", err)
		}
		amount, ok := sdkmath.NewIntFromString(amountStr)
		if !ok {
			return nil, fmt.Errorf("invalid amount %q in claim history", amountStr)
		}
		rec.PoolID = types.PoolID(poolID)
		rec.Amount = amount
		rec.Timestamp = claimedAt.Unix()
		out = append(out, rec)
	}
	return out, rows.Err()
}
