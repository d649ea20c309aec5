/*

This file contains the stake ledger: the exclusive owner of stake positions,
keyed by (staker, pool). It computes time-weighted accrual since the last
settlement and enforces the ordering rule the whole engine's correctness
rests on: pending rewards are settled before a position's amount changes, so
a larger amount never retroactively earns past-period rewards.

*/

package ledger

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/insuredfi/rewardengine/internal/fixedpoint"
	"github.com/insuredfi/rewardengine/internal/logger"
	"github.com/insuredfi/rewardengine/internal/registry"
	"github.com/insuredfi/rewardengine/internal/types"
)

// PayoutAuthorizer is the escrow accountant's payout surface. Every reward
// that leaves the engine goes through it.
type PayoutAuthorizer interface {
	AuthorizePayout(pool types.PoolID, denom, to string, amount sdkmath.Int) error
}

type posKey struct {
	staker string
	pool   types.PoolID
}

type Ledger struct {
	logger   zerolog.Logger
	params   types.EngineParameters
	clock    types.Clock
	registry *registry.Registry
	escrow   PayoutAuthorizer

	positions map[posKey]*types.StakePosition
	history   map[posKey][]types.ClaimRecord
}

func NewLedger(params types.EngineParameters, clock types.Clock, reg *registry.Registry, escrow PayoutAuthorizer) *Ledger {
	return &Ledger{
		logger:    logger.GetForComponent("stake_ledger"),
		params:    params,
		clock:     clock,
		registry:  reg,
		escrow:    escrow,
		positions: make(map[posKey]*types.StakePosition),
		history:   make(map[posKey][]types.ClaimRecord),
	}
}

// Position returns the stake position or ErrStakeNotFound.
func (l *Ledger) Position(staker string, pool types.PoolID) (*types.StakePosition, error) {
	p, ok := l.positions[posKey{staker: staker, pool: pool}]
	if !ok {
		return nil, fmt.Errorf("%w: staker %s pool %d", types.ErrStakeNotFound, staker, pool)
	}
	return p, nil
}

// Positions returns every live position in the pool.
func (l *Ledger) Positions(pool types.PoolID) []*types.StakePosition {
	var out []*types.StakePosition
	for k, p := range l.positions {
		if k.pool == pool {
			out = append(out, p)
		}
	}
	return out
}

// ClaimHistory returns the append-only claim records for (staker, pool).
func (l *Ledger) ClaimHistory(staker string, pool types.PoolID) []types.ClaimRecord {
	return l.history[posKey{staker: staker, pool: pool}]
}

// Stake creates or tops up a position. The minimum stake is checked only at
// position creation; a top-up first settles accrued rewards so the larger
// amount starts a fresh accrual window.
func (l *Ledger) Stake(staker string, pool types.PoolID, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: stake amount must be positive", types.ErrInvalidParameter)
	}
	if err := l.registry.RequireNotPaused(); err != nil {
		return err
	}
	p, err := l.registry.GetPool(pool)
	if err != nil {
		return err
	}
	switch p.Status {
	case types.PoolActive:
	case types.PoolClosed:
		return fmt.Errorf("%w: %d", types.ErrPoolClosed, pool)
	default:
		return fmt.Errorf("%w: %d", types.ErrPoolPaused, pool)
	}

	now := l.clock.Now()
	k := posKey{staker: staker, pool: pool}
	pos, exists := l.positions[k]
	if !exists {
		if amount.LT(p.MinStake) {
			return fmt.Errorf("%w: %s < %s", types.ErrBelowMinimumStake, amount.String(), p.MinStake.String())
		}
		pos = &types.StakePosition{
			Staker:                staker,
			PoolID:                pool,
			Amount:                sdkmath.ZeroInt(),
			StakeTime:             now,
			LastClaim:             now,
			PerformanceMultiplier: types.DefaultMultiplierBP,
		}
		l.positions[k] = pos
	} else {
		// Settle before the amount changes.
		if err := l.settle(pos, p, now); err != nil {
			return err
		}
	}

	pos.Amount = pos.Amount.Add(amount)
	if err := l.registry.AddStaked(pool, amount); err != nil {
		return err
	}

	l.logger.Info().
		Str("staker", staker).
		Uint64("pool", uint64(pool)).
		Str("amount", amount.String()).
		Str("position", pos.Amount.String()).
		Msg("Stake recorded")
	return nil
}

// Unstake reduces a position after the lock period. Pending rewards are
// settled first; the position record is dropped once both the amount and all
// settled reward buckets are zero.
func (l *Ledger) Unstake(staker string, pool types.PoolID, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: unstake amount must be positive", types.ErrInvalidParameter)
	}
	pos, err := l.Position(staker, pool)
	if err != nil {
		return err
	}
	p, err := l.registry.GetPool(pool)
	if err != nil {
		return err
	}
	if amount.GT(pos.Amount) {
		return fmt.Errorf("%w: %s > %s", types.ErrInsufficientStake, amount.String(), pos.Amount.String())
	}

	now := l.clock.Now()
	if now-pos.StakeTime < p.LockPeriod {
		return fmt.Errorf("%w: %d seconds remaining", types.ErrLockPeriodNotMet, pos.StakeTime+p.LockPeriod-now)
	}

	if err := l.settle(pos, p, now); err != nil {
		return err
	}

	pos.Amount = pos.Amount.Sub(amount)
	if err := l.registry.SubStaked(pool, amount); err != nil {
		return err
	}
	l.maybeRemove(staker, pool, pos)

	l.logger.Info().
		Str("staker", staker).
		Uint64("pool", uint64(pool)).
		Str("amount", amount.String()).
		Str("remaining", pos.Amount.String()).
		Msg("Unstake recorded")
	return nil
}

// EmergencyUnstake fully exits a position regardless of lock state. The
// penalty decays linearly from the configured maximum at stake time to zero
// at the end of the lock period; forfeited value stays with the pool.
// Unclaimed accrual is forfeited along with the penalty.
func (l *Ledger) EmergencyUnstake(staker string, pool types.PoolID) (returned, penalty sdkmath.Int, err error) {
	pos, err := l.Position(staker, pool)
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), err
	}
	p, err := l.registry.GetPool(pool)
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), err
	}

	now := l.clock.Now()
	penaltyBP := l.earlyPenaltyBP(pos.StakeTime, p.LockPeriod, now)
	penalty, err = fixedpoint.ApplyBP(pos.Amount, penaltyBP)
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), err
	}
	returned = pos.Amount.Sub(penalty)

	if err := l.registry.SubStaked(pool, pos.Amount); err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), err
	}
	delete(l.positions, posKey{staker: staker, pool: pool})

	l.logger.Warn().
		Str("staker", staker).
		Uint64("pool", uint64(pool)).
		Str("returned", returned.String()).
		Str("penalty", penalty.String()).
		Uint64("penaltyBP", penaltyBP).
		Msg("Emergency unstake")
	return returned, penalty, nil
}

// PendingRewards computes, without mutating state, what a claim of denom
// would pay right now: the settled bucket plus live accrual since the last
// settlement.
func (l *Ledger) PendingRewards(staker string, pool types.PoolID, denom string) (sdkmath.Int, error) {
	pos, err := l.Position(staker, pool)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	p, err := l.registry.GetPool(pool)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if _, err := l.registry.Ledger(pool, denom); err != nil {
		return sdkmath.ZeroInt(), err
	}

	live, err := l.liveAccrual(pos, p, l.clock.Now())
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return pos.AccruedFor(denom).Add(live), nil
}

// ClaimRewards settles and pays out the pending rewards for one denom.
// A claim that computes to zero returns a zero record and mutates nothing,
// so a retried claim after success is harmless. All state writes happen only
// after the escrow accountant has authorized and executed the payout.
func (l *Ledger) ClaimRewards(staker string, pool types.PoolID, denom string) (types.ClaimRecord, error) {
	pos, err := l.Position(staker, pool)
	if err != nil {
		return types.ClaimRecord{}, err
	}
	p, err := l.registry.GetPool(pool)
	if err != nil {
		return types.ClaimRecord{}, err
	}
	tokenLedger, err := l.registry.Ledger(pool, denom)
	if err != nil {
		return types.ClaimRecord{}, err
	}
	if !tokenLedger.Active {
		return types.ClaimRecord{}, fmt.Errorf("%w: denom %s pool %d", types.ErrTokenNotRegistered, denom, pool)
	}

	now := l.clock.Now()
	live, err := l.liveAccrual(pos, p, now)
	if err != nil {
		return types.ClaimRecord{}, err
	}
	total := pos.AccruedFor(denom).Add(live)

	record := types.ClaimRecord{
		Claimer:   staker,
		PoolID:    pool,
		Denom:     denom,
		Amount:    total,
		Timestamp: now,
	}
	if total.IsZero() {
		return record, nil
	}

	// The staking ledger's own allocation must cover the claim before the
	// escrow counters move, so a failure here leaves no partial mutation.
	if tokenLedger.TotalDistributed.Add(total).GT(tokenLedger.TotalAllocated) {
		return types.ClaimRecord{}, fmt.Errorf("%w: claim %s exceeds ledger allocation", types.ErrInsufficientRewardBalance, total.String())
	}
	if err := l.escrow.AuthorizePayout(pool, denom, staker, total); err != nil {
		return types.ClaimRecord{}, err
	}
	if err := l.registry.RecordDistribution(pool, denom, total); err != nil {
		return types.ClaimRecord{}, err
	}

	// Settle the live window for every registered denom, then drain the
	// claimed denom's bucket.
	if err := l.settle(pos, p, now); err != nil {
		return types.ClaimRecord{}, err
	}
	pos.Accrued[denom] = sdkmath.ZeroInt()
	l.maybeRemove(staker, pool, pos)

	k := posKey{staker: staker, pool: pool}
	l.history[k] = append(l.history[k], record)

	l.logger.Info().
		Str("staker", staker).
		Uint64("pool", uint64(pool)).
		Str("denom", denom).
		Str("amount", total.String()).
		Msg("Rewards claimed")
	return record, nil
}

// SetPerformanceMultiplier writes a position's multiplier. The yield adjuster
// is the only caller; accrual up to now is settled first so the new
// multiplier applies only to future accrual.
func (l *Ledger) SetPerformanceMultiplier(staker string, pool types.PoolID, multiplierBP uint64) error {
	pos, err := l.Position(staker, pool)
	if err != nil {
		return err
	}
	p, err := l.registry.GetPool(pool)
	if err != nil {
		return err
	}
	if err := l.settle(pos, p, l.clock.Now()); err != nil {
		return err
	}
	pos.PerformanceMultiplier = multiplierBP
	return nil
}

// settle folds the live accrual window into every registered denom's settled
// bucket and restarts the window at now.
func (l *Ledger) settle(pos *types.StakePosition, p *types.RewardPool, now int64) error {
	live, err := l.liveAccrual(pos, p, now)
	if err != nil {
		return err
	}
	if pos.Accrued == nil {
		pos.Accrued = make(map[string]sdkmath.Int)
	}
	if live.IsPositive() {
		for _, denom := range p.RewardTokens {
			pos.Accrued[denom] = pos.AccruedFor(denom).Add(live)
		}
	}
	pos.LastClaim = now
	return nil
}

// liveAccrual computes the unsettled reward for the current window:
//
//	base  = amount * base_apy * elapsed / (seconds_per_year * 10000)
//	risk  = base * (20000 - risk_factor) / 10000
//	final = risk * performance_multiplier / 10000
//
// with floor rounding at every step and elapsed clamped to >= 0.
func (l *Ledger) liveAccrual(pos *types.StakePosition, p *types.RewardPool, now int64) (sdkmath.Int, error) {
	elapsed := now - pos.LastClaim
	if elapsed <= 0 || pos.Amount.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	numerator := sdkmath.NewIntFromUint64(p.BaseAPY).Mul(sdkmath.NewInt(elapsed))
	denominator := sdkmath.NewInt(types.SecondsPerYear).Mul(sdkmath.NewInt(types.BasisPoints))
	base, err := fixedpoint.MulDiv(pos.Amount, numerator, denominator)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	inverse := l.params.MaxRiskFactorBP - p.RiskAdjustmentFactor
	riskAdjusted, err := fixedpoint.MulDivU(base, inverse, types.BasisPoints)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	return fixedpoint.MulDivU(riskAdjusted, pos.PerformanceMultiplier, types.BasisPoints)
}

// earlyPenaltyBP is the emergency-exit penalty for the current instant,
// linear from the configured maximum down to zero across the lock period.
func (l *Ledger) earlyPenaltyBP(stakeTime, lockPeriod, now int64) uint64 {
	elapsed := now - stakeTime
	if lockPeriod <= 0 || elapsed >= lockPeriod {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := uint64(lockPeriod - elapsed)
	return l.params.MaxEarlyPenaltyBP * remaining / uint64(lockPeriod)
}

// maybeRemove drops a position once it holds neither stake nor settled
// rewards.
func (l *Ledger) maybeRemove(staker string, pool types.PoolID, pos *types.StakePosition) {
	if pos.Amount.IsZero() && !pos.HasResidualRewards() {
		delete(l.positions, posKey{staker: staker, pool: pool})
	}
}
