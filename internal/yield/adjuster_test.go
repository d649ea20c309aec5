package yield

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insuredfi/rewardengine/internal/config"
	"github.com/insuredfi/rewardengine/internal/types"
)

type recordingWriter struct {
	staker     string
	pool       types.PoolID
	multiplier uint64
	calls      int
}

func (w *recordingWriter) SetPerformanceMultiplier(staker string, pool types.PoolID, multiplierBP uint64) error {
	w.staker = staker
	w.pool = pool
	w.multiplier = multiplierBP
	w.calls++
	return nil
}

func newTestAdjuster() (*Adjuster, *recordingWriter, *types.ManualClock) {
	clock := &types.ManualClock{Current: 1_700_000_000}
	w := &recordingWriter{}
	return NewAdjuster(config.DefaultEngineParameters, clock, w), w, clock
}

func TestUpdateMetricsRangeCheck(t *testing.T) {
	a, _, _ := newTestAdjuster()

	err := a.UpdateMetrics(1, 10_001, 0, 0, 0)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)

	require.NoError(t, a.UpdateMetrics(1, 10_000, 0, 0, 0))
	m, err := a.Metrics(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), m.UtilizationRate)
	assert.Equal(t, int64(1_700_000_000), m.UpdatedAt)
}

func TestMetricsUnknownPool(t *testing.T) {
	a, _, _ := newTestAdjuster()
	_, err := a.Metrics(99)
	assert.ErrorIs(t, err, types.ErrPoolNotFound)
}

func TestComposeMultiplierTiers(t *testing.T) {
	a, _, _ := newTestAdjuster()

	cases := []struct {
		name                                   string
		utilization, claim, volatility, cparty uint64
		expected                               uint64
	}{
		// 10000 + 2000 + 1500 + 1000 + 1000 caps out exactly at 15500.
		{"all full bonuses", 9_000, 500, 1_000, 1_000, 15_500},
		{"all half bonuses", 7_000, 1_500, 3_000, 3_000, 12_750},
		{"no bonuses", 5_000, 5_000, 5_000, 5_000, 10_000},
		{"utilization only full", 8_001, 5_000, 5_000, 5_000, 12_000},
		{"utilization boundary not crossed", 8_000, 5_000, 5_000, 5_000, 11_000},
		{"claim ratio boundary", 5_000, 999, 5_000, 5_000, 11_500},
		{"volatility boundary", 5_000, 5_000, 1_999, 5_000, 11_000},
		{"counterparty boundary", 5_000, 5_000, 5_000, 1_999, 11_000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := types.PerformanceMetrics{
				UtilizationRate:  tc.utilization,
				ClaimRatio:       tc.claim,
				VolatilityScore:  tc.volatility,
				CounterpartyRisk: tc.cparty,
			}
			assert.Equal(t, tc.expected, a.ComposeMultiplier(m))
		})
	}
}

func TestComposeMultiplierNeverExceedsCap(t *testing.T) {
	// Inflated per-metric caps must still clamp at the configured bound.
	params := config.DefaultEngineParameters
	params.UtilizationBonusMaxBP = 9_000
	params.ClaimRatioBonusMaxBP = 9_000
	a := NewAdjuster(params, &types.ManualClock{}, &recordingWriter{})

	m := types.PerformanceMetrics{
		UtilizationRate:  9_500,
		ClaimRatio:       100,
		VolatilityScore:  100,
		CounterpartyRisk: 100,
	}
	assert.Equal(t, params.MultiplierCapBP, a.ComposeMultiplier(m))
}

func TestApplyBonusWritesThroughLedger(t *testing.T) {
	a, w, _ := newTestAdjuster()

	require.NoError(t, a.UpdateMetrics(1, 9_000, 500, 1_000, 1_000))
	multiplier, err := a.ApplyBonus("insured1staker", 1)
	require.NoError(t, err)

	assert.Equal(t, uint64(15_500), multiplier)
	assert.Equal(t, 1, w.calls)
	assert.Equal(t, "insured1staker", w.staker)
	assert.Equal(t, types.PoolID(1), w.pool)
	assert.Equal(t, uint64(15_500), w.multiplier)
}

func TestApplyBonusWithoutMetrics(t *testing.T) {
	a, w, _ := newTestAdjuster()
	_, err := a.ApplyBonus("insured1staker", 7)
	assert.ErrorIs(t, err, types.ErrPoolNotFound)
	assert.Zero(t, w.calls)
}
