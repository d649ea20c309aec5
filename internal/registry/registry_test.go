package registry

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insuredfi/rewardengine/internal/config"
	"github.com/insuredfi/rewardengine/internal/types"
)

const admin = "insured1adminaddress"

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(config.DefaultEngineParameters)
	require.NoError(t, r.Initialize(admin))
	return r
}

func TestInitializeOnce(t *testing.T) {
	r := NewRegistry(config.DefaultEngineParameters)
	require.NoError(t, r.Initialize(admin))

	err := r.Initialize("someone-else")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrAlreadyInitialized)
}

func TestRequireAdminBeforeInitialize(t *testing.T) {
	r := NewRegistry(config.DefaultEngineParameters)
	assert.ErrorIs(t, r.RequireAdmin(admin), types.ErrNotInitialized)
}

func TestRequireAdminRejectsOthers(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.RequireAdmin(admin))
	assert.ErrorIs(t, r.RequireAdmin("insured1stranger"), types.ErrUnauthorized)
}

func TestCreatePoolValidation(t *testing.T) {
	r := newTestRegistry(t)

	cases := []struct {
		name       string
		actor      string
		poolName   string
		baseAPY    uint64
		riskFactor uint64
		minStake   sdkmath.Int
		lockPeriod int64
		wantErr    error
	}{
		{"not admin", "insured1stranger", "alpha", 1000, 10_000, sdkmath.ZeroInt(), 0, types.ErrUnauthorized},
		{"empty name", admin, "", 1000, 10_000, sdkmath.ZeroInt(), 0, types.ErrInvalidParameter},
		{"apy above ceiling", admin, "alpha", 1_000_001, 10_000, sdkmath.ZeroInt(), 0, types.ErrInvalidParameter},
		{"zero risk factor", admin, "alpha", 1000, 0, sdkmath.ZeroInt(), 0, types.ErrInvalidParameter},
		{"risk factor above max", admin, "alpha", 1000, 20_001, sdkmath.ZeroInt(), 0, types.ErrInvalidParameter},
		{"negative min stake", admin, "alpha", 1000, 10_000, sdkmath.NewInt(-1), 0, types.ErrInvalidParameter},
		{"negative lock", admin, "alpha", 1000, 10_000, sdkmath.ZeroInt(), -1, types.ErrInvalidParameter},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.CreatePool(tc.actor, tc.poolName, tc.baseAPY, tc.riskFactor, tc.minStake, tc.lockPeriod)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreatePoolSequentialIDs(t *testing.T) {
	r := newTestRegistry(t)

	id1, err := r.CreatePool(admin, "alpha", 1000, 10_000, sdkmath.ZeroInt(), 0)
	require.NoError(t, err)
	id2, err := r.CreatePool(admin, "beta", 500, 5_000, sdkmath.NewInt(100), 86_400)
	require.NoError(t, err)

	assert.Equal(t, types.PoolID(1), id1)
	assert.Equal(t, types.PoolID(2), id2)

	p, err := r.GetPool(id1)
	require.NoError(t, err)
	assert.Equal(t, "alpha", p.Name)
	assert.Equal(t, types.PoolActive, p.Status)
	assert.True(t, p.TotalStaked.IsZero())
}

func TestGetPoolNotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.GetPool(42)
	assert.ErrorIs(t, err, types.ErrPoolNotFound)
}

func TestRegisterRewardToken(t *testing.T) {
	r := newTestRegistry(t)
	id, err := r.CreatePool(admin, "alpha", 1000, 10_000, sdkmath.ZeroInt(), 0)
	require.NoError(t, err)

	require.NoError(t, r.RegisterRewardToken(id, "ureward", sdkmath.NewInt(100), sdkmath.NewInt(1_000_000)))

	l, err := r.Ledger(id, "ureward")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100), l.EmissionRate)
	assert.True(t, l.TotalDistributed.IsZero())
	assert.True(t, l.Active)

	// Same denom twice is rejected.
	err = r.RegisterRewardToken(id, "ureward", sdkmath.NewInt(100), sdkmath.NewInt(1_000_000))
	assert.ErrorIs(t, err, types.ErrInvalidParameter)

	// Unknown denom lookup.
	_, err = r.Ledger(id, "uother")
	assert.ErrorIs(t, err, types.ErrTokenNotRegistered)
}

func TestRecordDistributionBoundedByAllocation(t *testing.T) {
	r := newTestRegistry(t)
	id, err := r.CreatePool(admin, "alpha", 1000, 10_000, sdkmath.ZeroInt(), 0)
	require.NoError(t, err)
	require.NoError(t, r.RegisterRewardToken(id, "ureward", sdkmath.NewInt(100), sdkmath.NewInt(1_000)))

	require.NoError(t, r.RecordDistribution(id, "ureward", sdkmath.NewInt(600)))
	require.NoError(t, r.RecordDistribution(id, "ureward", sdkmath.NewInt(400)))

	err = r.RecordDistribution(id, "ureward", sdkmath.OneInt())
	assert.ErrorIs(t, err, types.ErrInsufficientRewardBalance)

	l, err := r.Ledger(id, "ureward")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1_000), l.TotalDistributed)
}

func TestRiskAdjustedAPY(t *testing.T) {
	r := newTestRegistry(t)

	cases := []struct {
		name       string
		baseAPY    uint64
		riskFactor uint64
		expected   uint64
	}{
		{"neutral", 1000, 10_000, 1000},
		{"premium", 1000, 5_000, 1500},
		{"discount", 1000, 15_000, 500},
		{"max factor zeroes out", 1000, 20_000, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := r.CreatePool(admin, tc.name, tc.baseAPY, tc.riskFactor, sdkmath.ZeroInt(), 0)
			require.NoError(t, err)
			apy, err := r.RiskAdjustedAPY(id)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, apy)
		})
	}
}

func TestRiskAdjustedAPYClampedToCeiling(t *testing.T) {
	params := config.DefaultEngineParameters
	params.APYCeilingBP = 1_200
	r := NewRegistry(params)
	require.NoError(t, r.Initialize(admin))

	// 1000 bp at factor 5000 computes to 1500, clamped to the 1200 ceiling.
	id, err := r.CreatePool(admin, "alpha", 1000, 5_000, sdkmath.ZeroInt(), 0)
	require.NoError(t, err)
	apy, err := r.RiskAdjustedAPY(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_200), apy)
}

func TestPoolStatusLifecycle(t *testing.T) {
	r := newTestRegistry(t)
	id, err := r.CreatePool(admin, "alpha", 1000, 10_000, sdkmath.ZeroInt(), 0)
	require.NoError(t, err)

	require.NoError(t, r.UpdatePoolStatus(admin, id, types.PoolPaused))
	require.NoError(t, r.UpdatePoolStatus(admin, id, types.PoolActive))
	require.NoError(t, r.UpdatePoolStatus(admin, id, types.PoolClosed))

	// Closed is terminal.
	err = r.UpdatePoolStatus(admin, id, types.PoolActive)
	assert.ErrorIs(t, err, types.ErrPoolClosed)

	err = r.UpdatePoolStatus(admin, id, types.PoolStatus("UNKNOWN"))
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestPausedBlocksPoolCreation(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.SetPaused(admin, true))

	_, err := r.CreatePool(admin, "alpha", 1000, 10_000, sdkmath.ZeroInt(), 0)
	assert.ErrorIs(t, err, types.ErrContractPaused)

	require.NoError(t, r.SetPaused(admin, false))
	_, err = r.CreatePool(admin, "alpha", 1000, 10_000, sdkmath.ZeroInt(), 0)
	assert.NoError(t, err)
}

func TestStakedAggregates(t *testing.T) {
	r := newTestRegistry(t)
	id, err := r.CreatePool(admin, "alpha", 1000, 10_000, sdkmath.ZeroInt(), 0)
	require.NoError(t, err)

	require.NoError(t, r.AddStaked(id, sdkmath.NewInt(500)))
	require.NoError(t, r.SubStaked(id, sdkmath.NewInt(200)))

	p, err := r.GetPool(id)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(300), p.TotalStaked)

	err = r.SubStaked(id, sdkmath.NewInt(301))
	assert.ErrorIs(t, err, types.ErrInsufficientStake)
}
