/*

This file contains the global emission configuration: the hard ceiling on any
single ledger's emission rate, the annual inflation cap applied to a pool's
staked total, and the minimum interval between rate adjustments.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// SecondsPerYear is the accrual year used by every APY and inflation formula.
const SecondsPerYear = 31_536_000

type EmissionConfig struct {
	MaxEmissionRate    sdkmath.Int `json:"max_emission_rate"`   // Smallest units per second
	InflationCapBP     uint64      `json:"inflation_cap_bp"`    // Basis points per year
	AdjustmentInterval int64       `json:"adjustment_interval"` // Seconds between adjustments
}
