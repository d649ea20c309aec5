/*

This file contains the engine's maintenance loop. Unlike the call-driven
operations, the loop runs on a wall-clock ticker: each cycle re-applies the
inflation cap to every active reward-token ledger and periodically snapshots
pool aggregates to the database for the dashboard.

*/

package engine

import (
	"context"
	"errors"
	"time"

	"github.com/insuredfi/rewardengine/internal/config"
	"github.com/insuredfi/rewardengine/internal/types"
)

// RunLoop starts the maintenance loop with the specified interval. It blocks
// until the context is cancelled.
func (e *Engine) RunLoop(ctx context.Context, interval time.Duration) {
	e.logger.Info().
		Dur("interval", interval).
		Msg("Starting engine maintenance loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run first cycle immediately
	e.cycleCount++
	e.RunCycle()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Maintenance loop stopped by context cancellation")
			return
		case <-ticker.C:
			e.cycleCount++
			e.RunCycle()
		}
	}
}

// RunCycle executes one maintenance pass.
func (e *Engine) RunCycle() {
	cycleLogger := e.logger.With().Int("cycle", e.cycleCount).Logger()
	cycleLogger.Info().Msg("Starting maintenance cycle")

	adjusted := 0
	for _, p := range e.registry.Pools() {
		if p.Status == types.PoolClosed {
			continue
		}
		for _, l := range e.registry.LedgersForPool(p.ID) {
			if !l.Active {
				continue
			}
			rate, err := e.emission.AdjustEmissionRate(p.ID, l.Denom)
			if err != nil {
				// Rate-limited ledgers are simply picked up on a later cycle.
				if errors.Is(err, types.ErrAdjustmentTooSoon) {
					continue
				}
				cycleLogger.Error().Err(err).
					Uint64("pool", uint64(p.ID)).
					Str("denom", l.Denom).
					Msg("Emission adjustment failed")
				continue
			}
			adjusted++
			cycleLogger.Debug().
				Uint64("pool", uint64(p.ID)).
				Str("denom", l.Denom).
				Str("rate", rate.String()).
				Msg("Emission rate adjusted")
		}
	}

	if e.snapshots != nil && config.SnapshotInterval > 0 && uint64(e.cycleCount)%config.SnapshotInterval == 0 {
		for _, p := range e.registry.Pools() {
			if err := e.snapshots.SavePoolSnapshot(p); err != nil {
				cycleLogger.Error().Err(err).
					Uint64("pool", uint64(p.ID)).
					Msg("Failed to persist pool snapshot")
			}
		}
	}

	cycleLogger.Info().
		Int("ledgersAdjusted", adjusted).
		Msg("Maintenance cycle completed")
}
