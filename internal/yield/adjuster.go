/*

This file contains the yield adjuster: it owns the per-pool health metrics and
is the only writer of a position's performance multiplier. Each metric maps to
a tiered, capped bonus; the composed multiplier is bounded by the configured
cap regardless of inputs.

*/

package yield

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/insuredfi/rewardengine/internal/fixedpoint"
	"github.com/insuredfi/rewardengine/internal/logger"
	"github.com/insuredfi/rewardengine/internal/types"
)

// MultiplierWriter is the stake ledger's write surface for multipliers. The
// adjuster writes, the ledger reads; no other component touches the field.
type MultiplierWriter interface {
	SetPerformanceMultiplier(staker string, pool types.PoolID, multiplierBP uint64) error
}

type Adjuster struct {
	logger  zerolog.Logger
	params  types.EngineParameters
	clock   types.Clock
	writer  MultiplierWriter
	metrics map[types.PoolID]types.PerformanceMetrics
}

func NewAdjuster(params types.EngineParameters, clock types.Clock, writer MultiplierWriter) *Adjuster {
	return &Adjuster{
		logger:  logger.GetForComponent("yield_adjuster"),
		params:  params,
		clock:   clock,
		writer:  writer,
		metrics: make(map[types.PoolID]types.PerformanceMetrics),
	}
}

// UpdateMetrics overwrites the stored metrics for a pool. All inputs are
// basis points in [0, 10000]. Staleness is tolerated downstream: the
// last-known value is used until the next update.
func (a *Adjuster) UpdateMetrics(pool types.PoolID, utilization, claimRatio, volatility, counterpartyRisk uint64) error {
	m := types.PerformanceMetrics{
		PoolID:           pool,
		UtilizationRate:  utilization,
		ClaimRatio:       claimRatio,
		VolatilityScore:  volatility,
		CounterpartyRisk: counterpartyRisk,
		UpdatedAt:        a.clock.Now(),
	}
	if !m.InRange() {
		return fmt.Errorf("%w: metrics must be basis points in [0, 10000]", types.ErrInvalidParameter)
	}
	a.metrics[pool] = m

	a.logger.Info().
		Uint64("pool", uint64(pool)).
		Uint64("utilization", utilization).
		Uint64("claimRatio", claimRatio).
		Uint64("volatility", volatility).
		Uint64("counterpartyRisk", counterpartyRisk).
		Msg("Performance metrics updated")
	return nil
}

// Metrics returns the last stored metrics for a pool.
func (a *Adjuster) Metrics(pool types.PoolID) (types.PerformanceMetrics, error) {
	m, ok := a.metrics[pool]
	if !ok {
		return types.PerformanceMetrics{}, fmt.Errorf("%w: no metrics for pool %d", types.ErrPoolNotFound, pool)
	}
	return m, nil
}

// ComposeMultiplier turns a metric set into a basis-point multiplier:
// 10000 plus a tiered bonus per metric, capped at the configured bound.
func (a *Adjuster) ComposeMultiplier(m types.PerformanceMetrics) uint64 {
	multiplier := uint64(types.DefaultMultiplierBP)

	// High utilization earns the full bonus above 80%, half above 60%.
	switch {
	case m.UtilizationRate > 8_000:
		multiplier += a.params.UtilizationBonusMaxBP
	case m.UtilizationRate > 6_000:
		multiplier += a.params.UtilizationBonusMaxBP / 2
	}

	// A low claim ratio means the pool pays out less than it accrues.
	switch {
	case m.ClaimRatio < 1_000:
		multiplier += a.params.ClaimRatioBonusMaxBP
	case m.ClaimRatio < 2_000:
		multiplier += a.params.ClaimRatioBonusMaxBP / 2
	}

	// Low volatility earns the full bonus below 20%, half below 40%.
	switch {
	case m.VolatilityScore < 2_000:
		multiplier += a.params.VolatilityBonusMaxBP
	case m.VolatilityScore < 4_000:
		multiplier += a.params.VolatilityBonusMaxBP / 2
	}

	switch {
	case m.CounterpartyRisk < 2_000:
		multiplier += a.params.CounterpartyBonusMaxBP
	case m.CounterpartyRisk < 4_000:
		multiplier += a.params.CounterpartyBonusMaxBP / 2
	}

	return fixedpoint.ClampU(multiplier, types.DefaultMultiplierBP, a.params.MultiplierCapBP)
}

// ApplyBonus recomputes the multiplier from the pool's stored metrics and
// writes it into the staker's position. Returns the multiplier written.
func (a *Adjuster) ApplyBonus(staker string, pool types.PoolID) (uint64, error) {
	m, err := a.Metrics(pool)
	if err != nil {
		return 0, err
	}
	multiplier := a.ComposeMultiplier(m)
	if err := a.writer.SetPerformanceMultiplier(staker, pool, multiplier); err != nil {
		return 0, err
	}

	a.logger.Info().
		Uint64("pool", uint64(pool)).
		Str("staker", staker).
		Uint64("multiplier", multiplier).
		Msg("Performance bonus applied")
	return multiplier, nil
}
