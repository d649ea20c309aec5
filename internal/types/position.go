/*

This file contains the stake position type. A position is keyed by
(staker, pool) and carries everything accrual needs: the live amount, the
timestamps the time-weighted formula reads, and the performance multiplier
written by the yield adjuster.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// BasisPoints is the fixed-point denominator used for every percentage-like
// quantity in the engine. 10000 = 100% = 1x.
const BasisPoints = 10_000

// DefaultMultiplierBP is the neutral performance multiplier (1x).
const DefaultMultiplierBP = BasisPoints

type StakePosition struct {
	Staker    string      `json:"staker"`
	PoolID    PoolID      `json:"pool_id"`
	Amount    sdkmath.Int `json:"amount"`
	StakeTime int64       `json:"stake_time"`      // Unix seconds of first stake
	LastClaim int64       `json:"last_claim_time"` // Unix seconds of last settlement

	// PerformanceMultiplier is in basis points (10000 = 1x). Only the yield
	// adjuster writes it; the stake ledger only reads it.
	PerformanceMultiplier uint64 `json:"performance_multiplier"`

	// Accrued holds rewards that were settled (stake top-up, partial unstake)
	// but not yet paid out, per reward denom. Settling before the amount
	// changes is what keeps a larger amount from retroactively earning
	// past-period rewards.
	Accrued map[string]sdkmath.Int `json:"accrued"`
}

// AccruedFor returns the settled-but-unclaimed balance for denom, zero if none.
func (p *StakePosition) AccruedFor(denom string) sdkmath.Int {
	if p.Accrued == nil {
		return sdkmath.ZeroInt()
	}
	if v, ok := p.Accrued[denom]; ok {
		return v
	}
	return sdkmath.ZeroInt()
}

// HasResidualRewards reports whether any settled rewards remain unpaid.
// A fully unstaked position is retained until this drains to zero.
func (p *StakePosition) HasResidualRewards() bool {
	for _, v := range p.Accrued {
		if v.IsPositive() {
			return true
		}
	}
	return false
}
