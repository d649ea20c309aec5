package vesting

import (
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
	admin       = "insured1adminaddress"
	beneficiary = "insured1beneficiary"
	denom       = "ureward"
)

type okTransferrer struct{}

func (okTransferrer) Transfer(to string, coin sdktypes.Coin) error { return nil }

type fixture struct {
	vesting  *Engine
	escrow   *escrow.Accountant
	clock    *types.ManualClock
	registry *registry.Registry
}

func newFixture(t *testing.T, escrowed int64) (*fixture, types.PoolID) {
	t.Helper()

	clock := &types.ManualClock{Current: 1_700_000_000}
	reg := registry.NewRegistry(config.DefaultEngineParameters)
	require.NoError(t, reg.Initialize(admin))
	acct := escrow.NewAccountant(okTransferrer{})
	eng := NewEngine(clock, reg, acct)

	pool, err := reg.CreatePool(admin, "alpha", 1_000, 10_000, sdkmath.ZeroInt(), 0)
	require.NoError(t, err)
	if escrowed > 0 {
		require.NoError(t, acct.RecordEscrow(pool, denom, sdkmath.NewInt(escrowed)))
	}

	return &fixture{vesting: eng, escrow: acct, clock: clock, registry: reg}, pool
}

func TestCreateScheduleValidation(t *testing.T) {
	f, pool := newFixture(t, 10_000)

	cases := []struct {
		name        string
		beneficiary string
		total       sdkmath.Int
		cliff       int64
		duration    int64
		curve       types.VestingCurve
		wantErr     error
	}{
		{"empty beneficiary", "", sdkmath.NewInt(100), 0, 100, types.CurveLinear, types.ErrInvalidParameter},
		{"zero total", beneficiary, sdkmath.ZeroInt(), 0, 100, types.CurveLinear, types.ErrInvalidParameter},
		{"zero duration", beneficiary, sdkmath.NewInt(100), 0, 0, types.CurveLinear, types.ErrInvalidParameter},
		{"cliff beyond duration", beneficiary, sdkmath.NewInt(100), 101, 100, types.CurveLinear, types.ErrInvalidParameter},
		{"unknown curve", beneficiary, sdkmath.NewInt(100), 0, 100, types.VestingCurve("WEIRD"), types.ErrInvalidParameter},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.vesting.CreateSchedule(tc.beneficiary, pool, denom, tc.total, tc.cliff, tc.duration, tc.curve)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateScheduleRequiresEscrow(t *testing.T) {
	f, pool := newFixture(t, 0)

	err := f.vesting.CreateSchedule(beneficiary, pool, denom, sdkmath.NewInt(100), 0, 100, types.CurveLinear)
	assert.ErrorIs(t, err, types.ErrInsufficientEscrow)

	_, err = f.vesting.Schedule(beneficiary, pool)
	assert.ErrorIs(t, err, types.ErrVestingNotFound)
}

func TestCreateScheduleReservesAllocation(t *testing.T) {
	f, pool := newFixture(t, 10_000)

	require.NoError(t, f.vesting.CreateSchedule(beneficiary, pool, denom, sdkmath.NewInt(4_000), 0, 100, types.CurveLinear))
	assert.Equal(t, sdkmath.NewInt(4_000), f.escrow.AllocatedBalance(pool, denom))

	// One schedule per (beneficiary, pool).
	err := f.vesting.CreateSchedule(beneficiary, pool, denom, sdkmath.NewInt(1_000), 0, 100, types.CurveLinear)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestSteppedVestingQuarters(t *testing.T) {
	f, pool := newFixture(t, 10_000)

	// 4000 over four quarters of 1000 seconds, no cliff.
	require.NoError(t, f.vesting.CreateSchedule(beneficiary, pool, denom, sdkmath.NewInt(4_000), 0, 4_000, types.CurveStepped))

	claimableAt := func(offset int64) sdkmath.Int {
		f.clock.Current = 1_700_000_000 + offset
		c, err := f.vesting.Claimable(beneficiary, pool)
		require.NoError(t, err)
		return c
	}

	assert.True(t, claimableAt(999).IsZero())
	assert.Equal(t, sdkmath.NewInt(1_000), claimableAt(1_000))
	// Mid-quarter: no interpolation.
	assert.Equal(t, sdkmath.NewInt(1_000), claimableAt(1_500))
	assert.Equal(t, sdkmath.NewInt(2_000), claimableAt(2_000))
	assert.Equal(t, sdkmath.NewInt(4_000), claimableAt(4_000))
}

func TestLinearVestingMonotone(t *testing.T) {
	f, pool := newFixture(t, 10_000)
	require.NoError(t, f.vesting.CreateSchedule(beneficiary, pool, denom, sdkmath.NewInt(10_000), 0, 10_000, types.CurveLinear))

	prev := sdkmath.ZeroInt()
	for offset := int64(0); offset <= 10_000; offset += 333 {
		f.clock.Current = 1_700_000_000 + offset
		c, err := f.vesting.Claimable(beneficiary, pool)
		require.NoError(t, err)
		assert.True(t, c.GTE(prev), "claimable decreased at offset %d", offset)
		prev = c
	}
	assert.Equal(t, sdkmath.NewInt(10_000), prev)

	// Linear midpoint releases exactly half.
	f.clock.Current = 1_700_000_000 + 5_000
	c, err := f.vesting.Claimable(beneficiary, pool)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(5_000), c)
}

func TestExponentialVestingAccelerates(t *testing.T) {
	f, pool := newFixture(t, 100_000)
	require.NoError(t, f.vesting.CreateSchedule(beneficiary, pool, denom, sdkmath.NewInt(100_000), 0, 10_000, types.CurveExponential))

	// (elapsed/duration)^2: a quarter of the way in releases 1/16.
	f.clock.Current = 1_700_000_000 + 2_500
	c, err := f.vesting.Claimable(beneficiary, pool)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(6_250), c)

	// Halfway releases a quarter; the curve stays below linear until the end.
	f.clock.Current = 1_700_000_000 + 5_000
	c, err = f.vesting.Claimable(beneficiary, pool)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(25_000), c)

	// Exactly 1 at the end.
	f.clock.Current = 1_700_000_000 + 10_000
	c, err = f.vesting.Claimable(beneficiary, pool)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100_000), c)
}

func TestCliffGatesEveryCurve(t *testing.T) {
	for _, curve := range []types.VestingCurve{types.CurveLinear, types.CurveStepped, types.CurveExponential} {
		t.Run(string(curve), func(t *testing.T) {
			f, pool := newFixture(t, 10_000)
			require.NoError(t, f.vesting.CreateSchedule(beneficiary, pool, denom, sdkmath.NewInt(4_000), 2_000, 4_000, curve))

			f.clock.Current = 1_700_000_000 + 1_999
			c, err := f.vesting.Claimable(beneficiary, pool)
			require.NoError(t, err)
			assert.True(t, c.IsZero())

			_, err = f.vesting.Claim(beneficiary, pool, denom)
			assert.ErrorIs(t, err, types.ErrNothingToClaim)

			// Past the cliff the curve is evaluated from start_time, so the
			// cliff releases everything already vested, not zero.
			f.clock.Current = 1_700_000_000 + 2_000
			c, err = f.vesting.Claimable(beneficiary, pool)
			require.NoError(t, err)
			assert.True(t, c.IsPositive())
		})
	}
}

func TestClaimAdvancesClaimedAmount(t *testing.T) {
	f, pool := newFixture(t, 10_000)
	require.NoError(t, f.vesting.CreateSchedule(beneficiary, pool, denom, sdkmath.NewInt(4_000), 0, 4_000, types.CurveStepped))

	f.clock.Advance(2_000)
	rec, err := f.vesting.Claim(beneficiary, pool, denom)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(2_000), rec.Amount)
	assert.Equal(t, sdkmath.NewInt(2_000), f.escrow.DistributedBalance(pool, denom))

	// Immediately after a claim there is nothing more to release.
	_, err = f.vesting.Claim(beneficiary, pool, denom)
	assert.ErrorIs(t, err, types.ErrNothingToClaim)

	// The remainder arrives at the end of the window.
	f.clock.Advance(2_000)
	rec, err = f.vesting.Claim(beneficiary, pool, denom)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(2_000), rec.Amount)

	// Schedule is retained after full claim.
	s, err := f.vesting.Schedule(beneficiary, pool)
	require.NoError(t, err)
	assert.Equal(t, s.TotalAmount, s.ClaimedAmount)
}

func TestClaimWrongDenom(t *testing.T) {
	f, pool := newFixture(t, 10_000)
	require.NoError(t, f.vesting.CreateSchedule(beneficiary, pool, denom, sdkmath.NewInt(4_000), 0, 4_000, types.CurveLinear))

	f.clock.Advance(2_000)
	_, err := f.vesting.Claim(beneficiary, pool, "uother")
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}
