/*

This file contains the tunable engine parameters. A versioned copy is
persisted in the database so a restart picks up exactly the parameter set it
was running with; defaults live in internal/config.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

type EngineParameters struct {
	// APYCeilingBP caps any pool's risk-adjusted APY, in basis points.
	APYCeilingBP uint64 `json:"apy_ceiling_bp"`

	// MaxRiskFactorBP is the upper bound (inclusive) for a pool's risk
	// adjustment factor. The factor must also be strictly positive.
	MaxRiskFactorBP uint64 `json:"max_risk_factor_bp"`

	// MaxEarlyPenaltyBP is the penalty charged by an emergency unstake at
	// stake time; it decays linearly to zero over the lock period.
	MaxEarlyPenaltyBP uint64 `json:"max_early_penalty_bp"`

	// MultiplierCapBP bounds the composed performance multiplier.
	MultiplierCapBP uint64 `json:"multiplier_cap_bp"`

	// Performance bonus caps per metric, in basis points of extra multiplier.
	UtilizationBonusMaxBP  uint64 `json:"utilization_bonus_max_bp"`
	ClaimRatioBonusMaxBP   uint64 `json:"claim_ratio_bonus_max_bp"`
	VolatilityBonusMaxBP   uint64 `json:"volatility_bonus_max_bp"`
	CounterpartyBonusMaxBP uint64 `json:"counterparty_bonus_max_bp"`

	// Emission control.
	MaxEmissionRate    sdkmath.Int `json:"max_emission_rate"`
	InflationCapBP     uint64      `json:"inflation_cap_bp"`
	AdjustmentInterval int64       `json:"adjustment_interval"`

	// MaxBatchRecipients bounds a single admin batch distribution.
	MaxBatchRecipients int `json:"max_batch_recipients"`
}

// EmissionConfigView projects the emission-related subset.
func (p EngineParameters) EmissionConfigView() EmissionConfig {
	return EmissionConfig{
		MaxEmissionRate:    p.MaxEmissionRate,
		InflationCapBP:     p.InflationCapBP,
		AdjustmentInterval: p.AdjustmentInterval,
	}
}
