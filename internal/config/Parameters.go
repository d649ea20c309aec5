/*

This file contains the default parameters for the reward engine.

These values mirror the economics the protocol launched with. Each value has
been chosen to bound the engine's payout exposure; operators can persist an
adjusted set through the parameters store, but the invariant checks in the
components assume the same orders of magnitude.

*/

package config

import (
	sdkmath "cosmossdk.io/math"

	"github.com/insuredfi/rewardengine/internal/types"
)

// DefaultEngineParameters provides the baseline parameter set. It is used and
// persisted on first start if no active parameters are found in the database.
var DefaultEngineParameters = types.EngineParameters{
	APYCeilingBP: 1_000_000, // 10000% APY hard ceiling.
	// Anything above this is assumed to be a misconfiguration, not a market
	// condition. The ceiling is applied after risk adjustment as well, so a
	// low risk factor cannot push the effective APY past it.

	MaxRiskFactorBP: 20_000, // Risk adjustment factor must be in (0, 20000].
	// At 10000 the adjustment is neutral (1x); below 10000 the inverse factor
	// (20000 - f)/10000 pays a risk premium above 1x, above 10000 it discounts.

	MaxEarlyPenaltyBP: 2_000, // 20% penalty for an emergency exit at stake time.
	// Decays linearly to 0 at the end of the lock period. The forfeited value
	// stays with the pool; it is never routed to any individual account.

	MultiplierCapBP: 15_500, // Composed performance multiplier cap (1.55x).

	UtilizationBonusMaxBP:  2_000, // High pool utilization, up to +20%.
	ClaimRatioBonusMaxBP:   1_500, // Low claim ratio, up to +15%.
	VolatilityBonusMaxBP:   1_000, // Low volatility, up to +10%.
	CounterpartyBonusMaxBP: 1_000, // Low counterparty risk, up to +10%.

	MaxEmissionRate: sdkmath.NewInt(1_000_000_000), // Per-second ceiling for any ledger.
	// 1000 tokens/second at 6 decimals. A proposed emission rate above this is
	// rejected outright regardless of pool size.

	InflationCapBP: 1_000, // 10% of total staked per year.
	// The periodic adjustment clamps a ledger's emission rate down to
	// total_staked * cap / seconds-per-year; it never raises a rate.

	AdjustmentInterval: 86_400, // Daily emission adjustments at most.

	MaxBatchRecipients: 100, // Bound on a single admin batch distribution.
}
