/*

This file contains the admin-gated operations. Authentication of the actor is
the host's concern; authorization runs through the registry's admin record on
every call here.

*/

package engine

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/insuredfi/rewardengine/internal/events"
	"github.com/insuredfi/rewardengine/internal/types"
)

// SetPaused flips the global pause switch.
func (e *Engine) SetPaused(actor string, paused bool) error {
	prev := e.registry.Paused()
	if err := e.registry.SetPaused(actor, paused); err != nil {
		return err
	}
	e.emit(events.Event{
		Type:      events.EventPauseToggled,
		Actor:     actor,
		PrevState: fmt.Sprintf("paused=%t", prev),
		NewState:  fmt.Sprintf("paused=%t", paused),
		Timestamp: e.clock.Now(),
	})
	return nil
}

// CreatePool registers a new reward pool.
func (e *Engine) CreatePool(actor, name string, baseAPY, riskFactor uint64, minStake sdkmath.Int, lockPeriod int64) (types.PoolID, error) {
	id, err := e.registry.CreatePool(actor, name, baseAPY, riskFactor, minStake, lockPeriod)
	if err != nil {
		return 0, err
	}
	e.emit(events.Event{
		Type:      events.EventPoolCreated,
		Actor:     actor,
		PoolID:    id,
		NewState:  string(types.PoolActive),
		Timestamp: e.clock.Now(),
	})
	return id, nil
}

// RecordEscrowDeposit registers reward tokens deposited into the pool's
// escrow. The deposit itself happens outside the engine; this records it so
// allocations can draw on it. When an escrow verifier is configured, the
// on-chain escrow balance must cover the running total before the record
// lands.
func (e *Engine) RecordEscrowDeposit(actor string, pool types.PoolID, denom string, amount sdkmath.Int) error {
	if err := e.registry.RequireAdmin(actor); err != nil {
		return err
	}
	if _, err := e.registry.GetPool(pool); err != nil {
		return err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: deposit must be positive", types.ErrInvalidParameter)
	}
	if e.verifier != nil {
		required := e.escrow.EscrowedBalance(pool, denom).Add(amount)
		if err := e.verifier.VerifyFunding(context.Background(), denom, required); err != nil {
			return err
		}
	}
	return e.escrow.RecordEscrow(pool, denom, amount)
}

// AddRewardToken attaches a reward-token ledger to a pool. The emission rate
// is validated by the emission controller and the full allocation must
// already be escrowed. A failed registration releases the escrow reservation,
// so the call mutates nothing on any failure path.
func (e *Engine) AddRewardToken(actor string, pool types.PoolID, denom string, emissionRate, totalAllocated sdkmath.Int) error {
	if err := e.registry.RequireAdmin(actor); err != nil {
		return err
	}
	if _, err := e.registry.GetPool(pool); err != nil {
		return err
	}
	if err := e.emission.ValidateEmissionRate(emissionRate, pool); err != nil {
		return err
	}
	if totalAllocated.IsNil() || !totalAllocated.IsPositive() {
		return fmt.Errorf("%w: total allocation must be positive", types.ErrInvalidParameter)
	}
	if err := e.escrow.RecordAllocation(pool, denom, totalAllocated); err != nil {
		return err
	}
	if err := e.registry.RegisterRewardToken(pool, denom, emissionRate, totalAllocated); err != nil {
		if rbErr := e.escrow.ReleaseAllocation(pool, denom, totalAllocated); rbErr != nil {
			return fmt.Errorf("allocation rollback failed: %v: %w", rbErr, err)
		}
		return err
	}

	e.emit(events.Event{
		Type:      events.EventTokenAdded,
		Actor:     actor,
		PoolID:    pool,
		Denom:     denom,
		Amount:    totalAllocated,
		Timestamp: e.clock.Now(),
	})
	return nil
}

// UpdatePoolStatus transitions the pool lifecycle; Closed is terminal.
func (e *Engine) UpdatePoolStatus(actor string, pool types.PoolID, status types.PoolStatus) error {
	p, err := e.registry.GetPool(pool)
	if err != nil {
		return err
	}
	prev := p.Status
	if err := e.registry.UpdatePoolStatus(actor, pool, status); err != nil {
		return err
	}
	e.emit(events.Event{
		Type:      events.EventPoolStatus,
		Actor:     actor,
		PoolID:    pool,
		PrevState: string(prev),
		NewState:  string(status),
		Timestamp: e.clock.Now(),
	})
	return nil
}

// UpdatePerformanceMetrics overwrites a pool's health metrics.
func (e *Engine) UpdatePerformanceMetrics(actor string, pool types.PoolID, utilization, claimRatio, volatility, counterpartyRisk uint64) error {
	if err := e.registry.RequireAdmin(actor); err != nil {
		return err
	}
	if _, err := e.registry.GetPool(pool); err != nil {
		return err
	}
	if err := e.yield.UpdateMetrics(pool, utilization, claimRatio, volatility, counterpartyRisk); err != nil {
		return err
	}
	e.emit(events.Event{
		Type:      events.EventMetricsUpdated,
		Actor:     actor,
		PoolID:    pool,
		Timestamp: e.clock.Now(),
	})
	return nil
}

// ApplyPerformanceBonus recomputes the multiplier from stored metrics and
// writes it into the staker's position.
func (e *Engine) ApplyPerformanceBonus(actor, staker string, pool types.PoolID) (uint64, error) {
	if err := e.registry.RequireAdmin(actor); err != nil {
		return 0, err
	}
	multiplier, err := e.yield.ApplyBonus(staker, pool)
	if err != nil {
		return 0, err
	}
	e.emit(events.Event{
		Type:      events.EventBonusApplied,
		Actor:     actor,
		PoolID:    pool,
		NewState:  fmt.Sprintf("multiplier=%d", multiplier),
		Timestamp: e.clock.Now(),
	})
	return multiplier, nil
}

// CreateVestingSchedule registers a vesting schedule backed by escrowed
// funds.
func (e *Engine) CreateVestingSchedule(actor, beneficiary string, pool types.PoolID, denom string, totalAmount sdkmath.Int, cliffDuration, vestingDuration int64, curve types.VestingCurve) error {
	if err := e.registry.RequireAdmin(actor); err != nil {
		return err
	}
	if err := e.vesting.CreateSchedule(beneficiary, pool, denom, totalAmount, cliffDuration, vestingDuration, curve); err != nil {
		return err
	}
	e.emit(events.Event{
		Type:      events.EventVestingCreated,
		Actor:     actor,
		PoolID:    pool,
		Denom:     denom,
		Amount:    totalAmount,
		Timestamp: e.clock.Now(),
	})
	return nil
}

// AdjustEmissionRate applies the inflation cap to a ledger's emission rate.
func (e *Engine) AdjustEmissionRate(actor string, pool types.PoolID, denom string) (sdkmath.Int, error) {
	if err := e.registry.RequireAdmin(actor); err != nil {
		return sdkmath.ZeroInt(), err
	}
	rate, err := e.emission.AdjustEmissionRate(pool, denom)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	e.emit(events.Event{
		Type:      events.EventEmissionAdjust,
		Actor:     actor,
		PoolID:    pool,
		Denom:     denom,
		Amount:    rate,
		Timestamp: e.clock.Now(),
	})
	return rate, nil
}

// BatchDistribute pushes rewards to up to the configured maximum number of
// recipients in one admin call. The total is validated against the ledger
// allocation and the escrow counters before any payout executes, so a
// balance failure cannot strike partway through.
func (e *Engine) BatchDistribute(actor string, pool types.PoolID, denom string, recipients []string, amounts []sdkmath.Int) error {
	if err := e.registry.RequireAdmin(actor); err != nil {
		return err
	}
	if len(recipients) != len(amounts) {
		return fmt.Errorf("%w: %d recipients, %d amounts", types.ErrInvalidParameter, len(recipients), len(amounts))
	}
	if len(recipients) == 0 || len(recipients) > e.params.MaxBatchRecipients {
		return fmt.Errorf("%w: batch size %d outside [1, %d]", types.ErrInvalidParameter, len(recipients), e.params.MaxBatchRecipients)
	}
	tokenLedger, err := e.registry.Ledger(pool, denom)
	if err != nil {
		return err
	}

	total := sdkmath.ZeroInt()
	for i, amount := range amounts {
		if amount.IsNil() || !amount.IsPositive() {
			return fmt.Errorf("%w: amount for recipient %s must be positive", types.ErrInvalidParameter, recipients[i])
		}
		total = total.Add(amount)
	}
	if tokenLedger.TotalDistributed.Add(total).GT(tokenLedger.TotalAllocated) {
		return fmt.Errorf("%w: batch total %s exceeds ledger allocation", types.ErrInsufficientRewardBalance, total.String())
	}
	if total.GT(e.escrow.Available(pool, denom)) {
		return fmt.Errorf("%w: batch total %s exceeds available escrow", types.ErrInsufficientRewardBalance, total.String())
	}

	now := e.clock.Now()
	for i, recipient := range recipients {
		if err := e.escrow.AuthorizePayout(pool, denom, recipient, amounts[i]); err != nil {
			return fmt.Errorf("batch aborted at recipient %s: %w", recipient, err)
		}
		if err := e.registry.RecordDistribution(pool, denom, amounts[i]); err != nil {
			return err
		}
		e.persistClaim(types.ClaimRecord{
			Claimer:   recipient,
			PoolID:    pool,
			Denom:     denom,
			Amount:    amounts[i],
			Timestamp: now,
		})
	}

	e.emit(events.Event{
		Type:      events.EventBatchDistribute,
		Actor:     actor,
		PoolID:    pool,
		Denom:     denom,
		Amount:    total,
		Timestamp: now,
	})
	return nil
}
