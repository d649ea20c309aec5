package emission

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insuredfi/rewardengine/internal/config"
	"github.com/insuredfi/rewardengine/internal/registry"
	"github.com/insuredfi/rewardengine/internal/types"
)

const (
	admin = "insured1adminaddress"
	denom = "ureward"
)

func newTestController(t *testing.T) (*Controller, *registry.Registry, *types.ManualClock, types.PoolID) {
	t.Helper()

	clock := &types.ManualClock{Current: 1_700_000_000}
	reg := registry.NewRegistry(config.DefaultEngineParameters)
	require.NoError(t, reg.Initialize(admin))
	c := NewController(config.DefaultEngineParameters, clock, reg)

	pool, err := reg.CreatePool(admin, "alpha", 1_000, 10_000, sdkmath.ZeroInt(), 0)
	require.NoError(t, err)
	return c, reg, clock, pool
}

func TestValidateEmissionRate(t *testing.T) {
	c, _, _, pool := newTestController(t)

	require.NoError(t, c.ValidateEmissionRate(sdkmath.ZeroInt(), pool))
	require.NoError(t, c.ValidateEmissionRate(sdkmath.NewInt(1_000_000_000), pool))

	err := c.ValidateEmissionRate(sdkmath.NewInt(1_000_000_001), pool)
	assert.ErrorIs(t, err, types.ErrEmissionRateExceedsCap)

	err = c.ValidateEmissionRate(sdkmath.NewInt(-1), pool)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestMaxRateForTracksStakedTotal(t *testing.T) {
	c, reg, _, pool := newTestController(t)

	// 315_360_000_000 staked at a 10% annual cap is exactly 1000/second.
	require.NoError(t, reg.AddStaked(pool, sdkmath.NewInt(315_360_000_000)))

	max, err := c.MaxRateFor(pool)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1_000), max)
}

func TestMaxRateForEmptyPool(t *testing.T) {
	c, _, _, pool := newTestController(t)
	max, err := c.MaxRateFor(pool)
	require.NoError(t, err)
	assert.True(t, max.IsZero())
}

func TestAdjustEmissionRateClampsDownward(t *testing.T) {
	c, reg, _, pool := newTestController(t)

	require.NoError(t, reg.AddStaked(pool, sdkmath.NewInt(315_360_000_000)))
	require.NoError(t, reg.RegisterRewardToken(pool, denom, sdkmath.NewInt(5_000), sdkmath.NewInt(1_000_000)))

	rate, err := c.AdjustEmissionRate(pool, denom)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1_000), rate)

	l, err := reg.Ledger(pool, denom)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1_000), l.EmissionRate)
}

func TestAdjustEmissionRateNeverRaises(t *testing.T) {
	c, reg, _, pool := newTestController(t)

	require.NoError(t, reg.AddStaked(pool, sdkmath.NewInt(315_360_000_000)))
	require.NoError(t, reg.RegisterRewardToken(pool, denom, sdkmath.NewInt(10), sdkmath.NewInt(1_000_000)))

	// The cap allows 1000/second, but the configured 10/second stands.
	rate, err := c.AdjustEmissionRate(pool, denom)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(10), rate)
}

func TestAdjustEmissionRateRateLimited(t *testing.T) {
	c, reg, clock, pool := newTestController(t)

	require.NoError(t, reg.RegisterRewardToken(pool, denom, sdkmath.NewInt(10), sdkmath.NewInt(1_000_000)))

	_, err := c.AdjustEmissionRate(pool, denom)
	require.NoError(t, err)

	_, err = c.AdjustEmissionRate(pool, denom)
	assert.ErrorIs(t, err, types.ErrAdjustmentTooSoon)

	clock.Advance(86_399)
	_, err = c.AdjustEmissionRate(pool, denom)
	assert.ErrorIs(t, err, types.ErrAdjustmentTooSoon)

	clock.Advance(1)
	_, err = c.AdjustEmissionRate(pool, denom)
	assert.NoError(t, err)
}

func TestAdjustmentLimitIsPerLedger(t *testing.T) {
	c, reg, _, pool := newTestController(t)

	require.NoError(t, reg.RegisterRewardToken(pool, denom, sdkmath.NewInt(10), sdkmath.NewInt(1_000_000)))
	require.NoError(t, reg.RegisterRewardToken(pool, "ubonus", sdkmath.NewInt(10), sdkmath.NewInt(1_000_000)))

	_, err := c.AdjustEmissionRate(pool, denom)
	require.NoError(t, err)

	// A different denom on the same pool has its own window.
	_, err = c.AdjustEmissionRate(pool, "ubonus")
	assert.NoError(t, err)
}

func TestAdjustEmissionRateUnknownLedger(t *testing.T) {
	c, _, _, pool := newTestController(t)
	_, err := c.AdjustEmissionRate(pool, "unknown")
	assert.ErrorIs(t, err, types.ErrTokenNotRegistered)
}
