/*

This file contains the vesting engine: the exclusive owner of vesting
schedules, keyed by (beneficiary, pool). Vesting is independent of staking
accrual; the two share only the fixed-point helpers and the escrow
accountant. Releasable amounts are monotone in time for every curve, and
schedules are retained after full claim for audit.

*/

package vesting

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/insuredfi/rewardengine/internal/fixedpoint"
	"github.com/insuredfi/rewardengine/internal/logger"
	"github.com/insuredfi/rewardengine/internal/registry"
	"github.com/insuredfi/rewardengine/internal/types"
)

// EscrowAccountant is the subset of the escrow surface vesting needs:
// reserving the schedule total at creation and paying claims out.
type EscrowAccountant interface {
	RecordAllocation(pool types.PoolID, denom string, amount sdkmath.Int) error
	AuthorizePayout(pool types.PoolID, denom, to string, amount sdkmath.Int) error
}

type schedKey struct {
	beneficiary string
	pool        types.PoolID
}

type Engine struct {
	logger    zerolog.Logger
	clock     types.Clock
	registry  *registry.Registry
	escrow    EscrowAccountant
	schedules map[schedKey]*types.VestingSchedule
}

func NewEngine(clock types.Clock, reg *registry.Registry, escrow EscrowAccountant) *Engine {
	return &Engine{
		logger:    logger.GetForComponent("vesting_engine"),
		clock:     clock,
		registry:  reg,
		escrow:    escrow,
		schedules: make(map[schedKey]*types.VestingSchedule),
	}
}

// CreateSchedule registers a new vesting schedule. The full total must
// already be escrowed for (pool, denom); the reservation happens here so a
// later claim can never find the pot empty.
func (e *Engine) CreateSchedule(beneficiary string, pool types.PoolID, denom string, totalAmount sdkmath.Int, cliffDuration, vestingDuration int64, curve types.VestingCurve) error {
	if beneficiary == "" || denom == "" {
		return fmt.Errorf("%w: beneficiary and denom are required", types.ErrInvalidParameter)
	}
	if totalAmount.IsNil() || !totalAmount.IsPositive() {
		return fmt.Errorf("%w: total amount must be positive", types.ErrInvalidParameter)
	}
	if vestingDuration <= 0 || cliffDuration < 0 || cliffDuration > vestingDuration {
		return fmt.Errorf("%w: need vesting_duration >= cliff_duration >= 0 and vesting_duration > 0", types.ErrInvalidParameter)
	}
	switch curve {
	case types.CurveLinear, types.CurveStepped, types.CurveExponential:
	default:
		return fmt.Errorf("%w: unknown vesting curve %q", types.ErrInvalidParameter, curve)
	}
	if _, err := e.registry.GetPool(pool); err != nil {
		return err
	}

	k := schedKey{beneficiary: beneficiary, pool: pool}
	if _, exists := e.schedules[k]; exists {
		return fmt.Errorf("%w: schedule already exists for %s pool %d", types.ErrInvalidParameter, beneficiary, pool)
	}

	if err := e.escrow.RecordAllocation(pool, denom, totalAmount); err != nil {
		return err
	}

	e.schedules[k] = &types.VestingSchedule{
		Beneficiary:     beneficiary,
		PoolID:          pool,
		Denom:           denom,
		CliffDuration:   cliffDuration,
		VestingDuration: vestingDuration,
		Curve:           curve,
		StartTime:       e.clock.Now(),
		TotalAmount:     totalAmount,
		ClaimedAmount:   sdkmath.ZeroInt(),
	}

	e.logger.Info().
		Str("beneficiary", beneficiary).
		Uint64("pool", uint64(pool)).
		Str("denom", denom).
		Str("total", totalAmount.String()).
		Str("curve", string(curve)).
		Int64("cliff", cliffDuration).
		Int64("duration", vestingDuration).
		Msg("Vesting schedule created")
	return nil
}

// Schedule returns the vesting schedule or ErrVestingNotFound.
func (e *Engine) Schedule(beneficiary string, pool types.PoolID) (*types.VestingSchedule, error) {
	s, ok := e.schedules[schedKey{beneficiary: beneficiary, pool: pool}]
	if !ok {
		return nil, fmt.Errorf("%w: %s pool %d", types.ErrVestingNotFound, beneficiary, pool)
	}
	return s, nil
}

// Claimable computes, without mutating state, the amount releasable right
// now: zero inside the cliff, curve(now) minus already-claimed while
// vesting, and the full remainder once the window has elapsed.
func (e *Engine) Claimable(beneficiary string, pool types.PoolID) (sdkmath.Int, error) {
	s, err := e.Schedule(beneficiary, pool)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return e.claimableAt(s, e.clock.Now())
}

func (e *Engine) claimableAt(s *types.VestingSchedule, now int64) (sdkmath.Int, error) {
	if s.InCliffAt(now) {
		return sdkmath.ZeroInt(), nil
	}
	if s.FullyVestedAt(now) {
		return s.TotalAmount.Sub(s.ClaimedAmount), nil
	}

	vested, err := vestedAmount(s, now)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	claimable := vested.Sub(s.ClaimedAmount)
	if claimable.IsNegative() {
		claimable = sdkmath.ZeroInt()
	}
	return claimable, nil
}

// vestedAmount evaluates the release curve at now, floor-rounded to the
// smallest token unit. Elapsed is measured from start_time; every curve
// starts at 0 and reaches the full total exactly at vesting_duration.
func vestedAmount(s *types.VestingSchedule, now int64) (sdkmath.Int, error) {
	elapsed := now - s.StartTime
	if elapsed < 0 {
		elapsed = 0
	}

	switch s.Curve {
	case types.CurveLinear:
		return fixedpoint.MulDiv(s.TotalAmount, sdkmath.NewInt(elapsed), sdkmath.NewInt(s.VestingDuration))

	case types.CurveStepped:
		// 25% per completed quarter of the window, never interpolating
		// inside a quarter.
		quarterLen := s.VestingDuration / 4
		if quarterLen == 0 {
			return s.TotalAmount, nil
		}
		completed := elapsed / quarterLen
		if completed > 4 {
			completed = 4
		}
		return fixedpoint.MulDiv(s.TotalAmount, sdkmath.NewInt(completed), sdkmath.NewInt(4))

	case types.CurveExponential:
		// Accelerating release: fraction = (elapsed/duration)^2, evaluated
		// in basis points.
		progressBP, err := fixedpoint.MulDiv(sdkmath.NewInt(elapsed), sdkmath.NewInt(types.BasisPoints), sdkmath.NewInt(s.VestingDuration))
		if err != nil {
			return sdkmath.ZeroInt(), err
		}
		squaredBP, err := fixedpoint.MulDiv(progressBP, progressBP, sdkmath.NewInt(types.BasisPoints))
		if err != nil {
			return sdkmath.ZeroInt(), err
		}
		return fixedpoint.MulDiv(s.TotalAmount, squaredBP, sdkmath.NewInt(types.BasisPoints))

	default:
		return sdkmath.ZeroInt(), fmt.Errorf("%w: unknown vesting curve %q", types.ErrInvalidParameter, s.Curve)
	}
}

// Claim releases the claimable amount through the escrow accountant and
// advances claimed_amount. Fails with ErrNothingToClaim when nothing is
// releasable; schedule state moves only after the payout succeeds.
func (e *Engine) Claim(beneficiary string, pool types.PoolID, denom string) (types.ClaimRecord, error) {
	s, err := e.Schedule(beneficiary, pool)
	if err != nil {
		return types.ClaimRecord{}, err
	}
	if denom != s.Denom {
		return types.ClaimRecord{}, fmt.Errorf("%w: schedule pays %s, not %s", types.ErrInvalidParameter, s.Denom, denom)
	}

	now := e.clock.Now()
	claimable, err := e.claimableAt(s, now)
	if err != nil {
		return types.ClaimRecord{}, err
	}
	if claimable.IsZero() {
		return types.ClaimRecord{}, fmt.Errorf("%w: %s pool %d", types.ErrNothingToClaim, beneficiary, pool)
	}

	if err := e.escrow.AuthorizePayout(pool, denom, beneficiary, claimable); err != nil {
		return types.ClaimRecord{}, err
	}
	s.ClaimedAmount = s.ClaimedAmount.Add(claimable)

	record := types.ClaimRecord{
		Claimer:   beneficiary,
		PoolID:    pool,
		Denom:     denom,
		Amount:    claimable,
		Timestamp: now,
	}

	e.logger.Info().
		Str("beneficiary", beneficiary).
		Uint64("pool", uint64(pool)).
		Str("denom", denom).
		Str("amount", claimable.String()).
		Str("claimedTotal", s.ClaimedAmount.String()).
		Msg("Vested rewards claimed")
	return record, nil
}
