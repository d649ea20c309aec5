package ledger

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insuredfi/rewardengine/internal/config"
	"github.com/insuredfi/rewardengine/internal/escrow"
	"github.com/insuredfi/rewardengine/internal/registry"
	"github.com/insuredfi/rewardengine/internal/types"
)

const (
	admin  = "insured1adminaddress"
	staker = "insured1staker"
	denom  = "ureward"
)

type recordingTransferrer struct {
	transfers []sdktypes.Coin
	fail      bool
}

func (t *recordingTransferrer) Transfer(to string, coin sdktypes.Coin) error {
	if t.fail {
		return errors.New("node unavailable")
	}
	t.transfers = append(t.transfers, coin)
	return nil
}

type fixture struct {
	ledger   *Ledger
	registry *registry.Registry
	escrow   *escrow.Accountant
	clock    *types.ManualClock
	transfer *recordingTransferrer
}

// newFixture builds a registry, escrow accountant and stake ledger around a
// manual clock, with one pool funded for the given reward allocation.
func newFixture(t *testing.T, baseAPY, riskFactor uint64, lockPeriod int64, allocation int64) (*fixture, types.PoolID) {
	t.Helper()

	clock := &types.ManualClock{Current: 1_700_000_000}
	reg := registry.NewRegistry(config.DefaultEngineParameters)
	require.NoError(t, reg.Initialize(admin))

	tr := &recordingTransferrer{}
	acct := escrow.NewAccountant(tr)
	led := NewLedger(config.DefaultEngineParameters, clock, reg, acct)

	pool, err := reg.CreatePool(admin, "alpha", baseAPY, riskFactor, sdkmath.ZeroInt(), lockPeriod)
	require.NoError(t, err)
	require.NoError(t, acct.RecordEscrow(pool, denom, sdkmath.NewInt(allocation)))
	require.NoError(t, acct.RecordAllocation(pool, denom, sdkmath.NewInt(allocation)))
	require.NoError(t, reg.RegisterRewardToken(pool, denom, sdkmath.NewInt(100), sdkmath.NewInt(allocation)))

	return &fixture{ledger: led, registry: reg, escrow: acct, clock: clock, transfer: tr}, pool
}

func TestBasicAccrualOneYear(t *testing.T) {
	// 10% APY, neutral risk factor, one full year: exactly 10% of the stake.
	f, pool := newFixture(t, 1_000, 10_000, 0, 200_000_000)

	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000_000_000)))
	f.clock.Advance(types.SecondsPerYear)

	pending, err := f.ledger.PendingRewards(staker, pool, denom)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100_000_000), pending)

	rec, err := f.ledger.ClaimRewards(staker, pool, denom)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100_000_000), rec.Amount)

	// The payout went through the escrow accountant and the token ledger.
	assert.Equal(t, sdkmath.NewInt(100_000_000), f.escrow.DistributedBalance(pool, denom))
	l, err := f.registry.Ledger(pool, denom)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100_000_000), l.TotalDistributed)

	// An immediate second claim pays zero without touching state.
	rec, err = f.ledger.ClaimRewards(staker, pool, denom)
	require.NoError(t, err)
	assert.True(t, rec.Amount.IsZero())
	assert.Equal(t, sdkmath.NewInt(100_000_000), f.escrow.DistributedBalance(pool, denom))
}

func TestRiskAdjustedAccrual(t *testing.T) {
	// Risk factor 5000 pays a 1.5x premium: (20000-5000)/10000.
	f, pool := newFixture(t, 1_000, 5_000, 0, 200_000_000)

	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000_000_000)))
	f.clock.Advance(types.SecondsPerYear)

	pending, err := f.ledger.PendingRewards(staker, pool, denom)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(150_000_000), pending)
}

func TestMultiplierScalesAccrual(t *testing.T) {
	f, pool := newFixture(t, 1_000, 10_000, 0, 200_000_000)

	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000_000_000)))
	require.NoError(t, f.ledger.SetPerformanceMultiplier(staker, pool, 15_500))
	f.clock.Advance(types.SecondsPerYear)

	pending, err := f.ledger.PendingRewards(staker, pool, denom)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(155_000_000), pending)
}

func TestTopUpSettlesBeforeAmountChange(t *testing.T) {
	f, pool := newFixture(t, 1_000, 10_000, 0, 200_000_000)

	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000_000_000)))
	f.clock.Advance(types.SecondsPerYear / 2)

	// The top-up settles the half-year window at the old amount; the doubled
	// amount must not retroactively earn anything.
	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000_000_000)))

	pending, err := f.ledger.PendingRewards(staker, pool, denom)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(50_000_000), pending)

	pos, err := f.ledger.Position(staker, pool)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(2_000_000_000), pos.Amount)
	assert.Equal(t, sdkmath.NewInt(50_000_000), pos.AccruedFor(denom))
}

func TestMinStakeOnlyAtCreation(t *testing.T) {
	clock := &types.ManualClock{Current: 1_700_000_000}
	reg := registry.NewRegistry(config.DefaultEngineParameters)
	require.NoError(t, reg.Initialize(admin))
	acct := escrow.NewAccountant(&recordingTransferrer{})
	led := NewLedger(config.DefaultEngineParameters, clock, reg, acct)

	pool, err := reg.CreatePool(admin, "alpha", 1_000, 10_000, sdkmath.NewInt(1_000), 0)
	require.NoError(t, err)

	err = led.Stake(staker, pool, sdkmath.NewInt(999))
	assert.ErrorIs(t, err, types.ErrBelowMinimumStake)

	require.NoError(t, led.Stake(staker, pool, sdkmath.NewInt(1_000)))
	// Top-ups below min_stake are allowed.
	require.NoError(t, led.Stake(staker, pool, sdkmath.OneInt()))
}

func TestUnstakeLockEnforcement(t *testing.T) {
	f, pool := newFixture(t, 1_000, 10_000, 2_592_000, 200_000_000)

	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000)))
	f.clock.Advance(2_591_999)

	err := f.ledger.Unstake(staker, pool, sdkmath.NewInt(1_000))
	assert.ErrorIs(t, err, types.ErrLockPeriodNotMet)

	f.clock.Advance(1)
	require.NoError(t, f.ledger.Unstake(staker, pool, sdkmath.NewInt(1_000)))

	p, err := f.registry.GetPool(pool)
	require.NoError(t, err)
	assert.True(t, p.TotalStaked.IsZero())
}

func TestUnstakeMoreThanStaked(t *testing.T) {
	f, pool := newFixture(t, 1_000, 10_000, 0, 200_000_000)

	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000)))
	err := f.ledger.Unstake(staker, pool, sdkmath.NewInt(1_001))
	assert.ErrorIs(t, err, types.ErrInsufficientStake)
}

func TestEmergencyUnstakeHalfwayPenalty(t *testing.T) {
	// 30-day lock, exit at day 15: penalty 2000 bp * 0.5 = 10%.
	f, pool := newFixture(t, 1_000, 10_000, 2_592_000, 200_000_000)

	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000)))
	f.clock.Advance(1_296_000)

	returned, penalty, err := f.ledger.EmergencyUnstake(staker, pool)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(900), returned)
	assert.Equal(t, sdkmath.NewInt(100), penalty)

	// Position is gone and the pool aggregate is back to zero.
	_, err = f.ledger.Position(staker, pool)
	assert.ErrorIs(t, err, types.ErrStakeNotFound)
	p, err := f.registry.GetPool(pool)
	require.NoError(t, err)
	assert.True(t, p.TotalStaked.IsZero())
}

func TestEmergencyUnstakeAfterLockNoPenalty(t *testing.T) {
	f, pool := newFixture(t, 1_000, 10_000, 2_592_000, 200_000_000)

	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000)))
	f.clock.Advance(2_592_000)

	returned, penalty, err := f.ledger.EmergencyUnstake(staker, pool)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1_000), returned)
	assert.True(t, penalty.IsZero())
}

func TestClaimRollsBackOnFailedTransfer(t *testing.T) {
	f, pool := newFixture(t, 1_000, 10_000, 0, 200_000_000)

	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000_000_000)))
	f.clock.Advance(types.SecondsPerYear)

	f.transfer.fail = true
	_, err := f.ledger.ClaimRewards(staker, pool, denom)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTransferFailed)

	// Nothing moved: counters untouched, rewards still pending in full.
	assert.True(t, f.escrow.DistributedBalance(pool, denom).IsZero())
	l, err := f.registry.Ledger(pool, denom)
	require.NoError(t, err)
	assert.True(t, l.TotalDistributed.IsZero())

	f.transfer.fail = false
	rec, err := f.ledger.ClaimRewards(staker, pool, denom)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100_000_000), rec.Amount)
}

func TestClaimBoundedByAllocation(t *testing.T) {
	// Allocation deliberately smaller than a year of accrual.
	f, pool := newFixture(t, 1_000, 10_000, 0, 50_000_000)

	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000_000_000)))
	f.clock.Advance(types.SecondsPerYear)

	_, err := f.ledger.ClaimRewards(staker, pool, denom)
	assert.ErrorIs(t, err, types.ErrInsufficientRewardBalance)
	assert.True(t, f.escrow.DistributedBalance(pool, denom).IsZero())
}

func TestClaimUnregisteredDenom(t *testing.T) {
	f, pool := newFixture(t, 1_000, 10_000, 0, 200_000_000)

	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000)))
	_, err := f.ledger.PendingRewards(staker, pool, "uother")
	assert.ErrorIs(t, err, types.ErrTokenNotRegistered)
	_, err = f.ledger.ClaimRewards(staker, pool, "uother")
	assert.ErrorIs(t, err, types.ErrTokenNotRegistered)
}

func TestFullUnstakeRetainsPositionUntilRewardsDrain(t *testing.T) {
	f, pool := newFixture(t, 1_000, 10_000, 0, 200_000_000)

	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000_000_000)))
	f.clock.Advance(types.SecondsPerYear)
	require.NoError(t, f.ledger.Unstake(staker, pool, sdkmath.NewInt(1_000_000_000)))

	// Fully unstaked, but the settled rewards keep the position alive.
	pos, err := f.ledger.Position(staker, pool)
	require.NoError(t, err)
	assert.True(t, pos.Amount.IsZero())
	assert.Equal(t, sdkmath.NewInt(100_000_000), pos.AccruedFor(denom))

	rec, err := f.ledger.ClaimRewards(staker, pool, denom)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100_000_000), rec.Amount)

	// Now the record is gone.
	_, err = f.ledger.Position(staker, pool)
	assert.ErrorIs(t, err, types.ErrStakeNotFound)
}

func TestStakeStatusChecks(t *testing.T) {
	f, pool := newFixture(t, 1_000, 10_000, 0, 200_000_000)

	require.NoError(t, f.registry.UpdatePoolStatus(admin, pool, types.PoolPaused))
	err := f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000))
	assert.ErrorIs(t, err, types.ErrPoolPaused)

	require.NoError(t, f.registry.UpdatePoolStatus(admin, pool, types.PoolClosed))
	err = f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000))
	assert.ErrorIs(t, err, types.ErrPoolClosed)
}

func TestUnstakeAllowedWhilePoolPaused(t *testing.T) {
	f, pool := newFixture(t, 1_000, 10_000, 0, 200_000_000)

	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000)))
	require.NoError(t, f.registry.UpdatePoolStatus(admin, pool, types.PoolPaused))

	require.NoError(t, f.ledger.Unstake(staker, pool, sdkmath.NewInt(1_000)))
}

func TestGlobalPauseBlocksStakeOnly(t *testing.T) {
	f, pool := newFixture(t, 1_000, 10_000, 0, 200_000_000)

	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000_000_000)))
	f.clock.Advance(types.SecondsPerYear)

	require.NoError(t, f.registry.SetPaused(admin, true))

	err := f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000))
	assert.ErrorIs(t, err, types.ErrContractPaused)

	// Exits and claims stay open under the global pause.
	rec, err := f.ledger.ClaimRewards(staker, pool, denom)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100_000_000), rec.Amount)
	require.NoError(t, f.ledger.Unstake(staker, pool, sdkmath.NewInt(1_000_000_000)))
}

func TestNoAccrualOnZeroElapsed(t *testing.T) {
	f, pool := newFixture(t, 1_000, 10_000, 0, 200_000_000)

	require.NoError(t, f.ledger.Stake(staker, pool, sdkmath.NewInt(1_000_000_000)))
	pending, err := f.ledger.PendingRewards(staker, pool, denom)
	require.NoError(t, err)
	assert.True(t, pending.IsZero())
}
