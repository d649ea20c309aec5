/*

This file contains the staker- and beneficiary-facing operations. Each one
runs to completion before the next begins (the host serializes calls), and
each either fully commits or fully fails: the components defer their writes
until after every check and external payout has succeeded.

*/

package engine

import (
	sdkmath "cosmossdk.io/math"

	"github.com/insuredfi/rewardengine/internal/events"
	"github.com/insuredfi/rewardengine/internal/types"
)

// Stake creates or tops up a stake position.
func (e *Engine) Stake(staker string, pool types.PoolID, amount sdkmath.Int) error {
	if err := e.ledger.Stake(staker, pool, amount); err != nil {
		return err
	}
	e.emit(events.Event{
		Type:      events.EventStake,
		Actor:     staker,
		PoolID:    pool,
		Amount:    amount,
		Timestamp: e.clock.Now(),
	})
	return nil
}

// Unstake reduces a position after the lock period has elapsed.
func (e *Engine) Unstake(staker string, pool types.PoolID, amount sdkmath.Int) error {
	if err := e.ledger.Unstake(staker, pool, amount); err != nil {
		return err
	}
	e.emit(events.Event{
		Type:      events.EventUnstake,
		Actor:     staker,
		PoolID:    pool,
		Amount:    amount,
		Timestamp: e.clock.Now(),
	})
	return nil
}

// EmergencyUnstake fully exits a position regardless of lock state and
// returns the amount after penalty.
func (e *Engine) EmergencyUnstake(staker string, pool types.PoolID) (sdkmath.Int, error) {
	returned, penalty, err := e.ledger.EmergencyUnstake(staker, pool)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	e.emit(events.Event{
		Type:      events.EventEmergencyOut,
		Actor:     staker,
		PoolID:    pool,
		Amount:    returned,
		NewState:  "penalty:" + penalty.String(),
		Timestamp: e.clock.Now(),
	})
	return returned, nil
}

// PendingRewards is a pure read of what a claim would pay right now.
func (e *Engine) PendingRewards(staker string, pool types.PoolID, denom string) (sdkmath.Int, error) {
	return e.ledger.PendingRewards(staker, pool, denom)
}

// ClaimRewards settles and pays out pending rewards for one denom. A zero
// claim returns zero without mutating state, so a client retry after an
// unacknowledged success simply receives zero.
func (e *Engine) ClaimRewards(staker string, pool types.PoolID, denom string) (sdkmath.Int, error) {
	rec, err := e.ledger.ClaimRewards(staker, pool, denom)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if rec.Amount.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	e.persistClaim(rec)
	e.emit(events.Event{
		Type:      events.EventClaim,
		Actor:     staker,
		PoolID:    pool,
		Denom:     denom,
		Amount:    rec.Amount,
		Timestamp: rec.Timestamp,
	})
	return rec.Amount, nil
}

// ClaimableVested is a pure read of the releasable vested amount.
func (e *Engine) ClaimableVested(beneficiary string, pool types.PoolID) (sdkmath.Int, error) {
	return e.vesting.Claimable(beneficiary, pool)
}

// ClaimVested releases the currently claimable vested amount.
func (e *Engine) ClaimVested(beneficiary string, pool types.PoolID, denom string) (sdkmath.Int, error) {
	rec, err := e.vesting.Claim(beneficiary, pool, denom)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	e.persistClaim(rec)
	e.emit(events.Event{
		Type:      events.EventVestingClaim,
		Actor:     beneficiary,
		PoolID:    pool,
		Denom:     denom,
		Amount:    rec.Amount,
		Timestamp: rec.Timestamp,
	})
	return rec.Amount, nil
}

// RiskAdjustedAPY is a pure read of the pool's risk-adjusted APY in basis
// points.
func (e *Engine) RiskAdjustedAPY(pool types.PoolID) (uint64, error) {
	return e.registry.RiskAdjustedAPY(pool)
}
