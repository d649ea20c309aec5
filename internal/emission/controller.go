/*

This file contains the emission controller. It gates every emission-rate
mutation in the registry: a hard per-second ceiling on proposed rates, and a
periodic adjustment that clamps a ledger's rate down to what the annual
inflation cap allows against the pool's staked total. Rates are never raised
automatically.

*/

package emission

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/insuredfi/rewardengine/internal/fixedpoint"
	"github.com/insuredfi/rewardengine/internal/logger"
	"github.com/insuredfi/rewardengine/internal/registry"
	"github.com/insuredfi/rewardengine/internal/types"
)

type adjustmentKey struct {
	pool  types.PoolID
	denom string
}

type Controller struct {
	logger   zerolog.Logger
	params   types.EngineParameters
	clock    types.Clock
	registry *registry.Registry

	lastAdjustment map[adjustmentKey]int64
}

func NewController(params types.EngineParameters, clock types.Clock, reg *registry.Registry) *Controller {
	return &Controller{
		logger:         logger.GetForComponent("emission_controller"),
		params:         params,
		clock:          clock,
		registry:       reg,
		lastAdjustment: make(map[adjustmentKey]int64),
	}
}

// ValidateEmissionRate is the pure check AddRewardToken delegates to.
func (c *Controller) ValidateEmissionRate(proposed sdkmath.Int, pool types.PoolID) error {
	if proposed.IsNil() || proposed.IsNegative() {
		return fmt.Errorf("%w: emission rate must be non-negative", types.ErrInvalidParameter)
	}
	if proposed.GT(c.params.MaxEmissionRate) {
		return fmt.Errorf("%w: %s > %s", types.ErrEmissionRateExceedsCap, proposed.String(), c.params.MaxEmissionRate.String())
	}
	return nil
}

// MaxRateFor computes the inflation-capped per-second emission rate for the
// pool's current staked total: total_staked * cap_bp / 10000 / seconds_per_year.
func (c *Controller) MaxRateFor(pool types.PoolID) (sdkmath.Int, error) {
	p, err := c.registry.GetPool(pool)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	annual, err := fixedpoint.ApplyBP(p.TotalStaked, c.params.InflationCapBP)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return annual.Quo(sdkmath.NewInt(types.SecondsPerYear)), nil
}

// AdjustEmissionRate recomputes the inflation-capped maximum and clamps the
// ledger's emission rate downward if it exceeds it. Rate-limited per
// (pool, denom); fails with ErrAdjustmentTooSoon inside the interval.
// Returns the rate in force after the call.
func (c *Controller) AdjustEmissionRate(pool types.PoolID, denom string) (sdkmath.Int, error) {
	tokenLedger, err := c.registry.Ledger(pool, denom)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	now := c.clock.Now()
	k := adjustmentKey{pool: pool, denom: denom}
	if last, ok := c.lastAdjustment[k]; ok && now-last < c.params.AdjustmentInterval {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d seconds remaining", types.ErrAdjustmentTooSoon, last+c.params.AdjustmentInterval-now)
	}

	maxRate, err := c.MaxRateFor(pool)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	c.lastAdjustment[k] = now
	if tokenLedger.EmissionRate.GT(maxRate) {
		prev := tokenLedger.EmissionRate
		tokenLedger.EmissionRate = maxRate
		c.logger.Info().
			Uint64("pool", uint64(pool)).
			Str("denom", denom).
			Str("from", prev.String()).
			Str("to", maxRate.String()).
			Msg("Emission rate clamped to inflation cap")
	}
	return tokenLedger.EmissionRate, nil
}
