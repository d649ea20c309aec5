/*

This is the custom type for reward pools which contains all the state needed
for accrual: the staking aggregate, yield parameters and the per-token reward
ledgers the pool distributes from.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

type PoolID uint64

// PoolStatus is the lifecycle state of a reward pool. Closed is terminal:
// no further stakes are accepted but existing stakers may still unstake
// and claim.
type PoolStatus string

const (
	PoolActive PoolStatus = "ACTIVE"
	PoolPaused PoolStatus = "PAUSED"
	PoolClosed PoolStatus = "CLOSED"
)

type RewardPool struct {
	ID                   PoolID      `json:"id"`
	Name                 string      `json:"name"`
	TotalStaked          sdkmath.Int `json:"total_staked"`           // Sum of all live position amounts (smallest unit)
	RewardTokens         []string    `json:"reward_tokens"`          // Denoms with a registered ledger
	BaseAPY              uint64      `json:"base_apy"`               // Basis points
	RiskAdjustmentFactor uint64      `json:"risk_adjustment_factor"` // Basis points, lower = higher risk premium
	Status               PoolStatus  `json:"status"`
	MinStake             sdkmath.Int `json:"min_stake"`
	LockPeriod           int64       `json:"lock_period"` // Seconds
}

// RewardTokenLedger tracks one reward denom inside a pool. TotalDistributed
// never exceeds TotalAllocated, and TotalAllocated never exceeds the escrowed
// balance held by the EscrowAccountant for the same (pool, denom).
type RewardTokenLedger struct {
	PoolID           PoolID      `json:"pool_id"`
	Denom            string      `json:"denom"`
	EmissionRate     sdkmath.Int `json:"emission_rate"` // Smallest units per second
	TotalAllocated   sdkmath.Int `json:"total_allocated"`
	TotalDistributed sdkmath.Int `json:"total_distributed"`
	Active           bool        `json:"active"`
}
