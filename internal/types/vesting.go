/*

This file contains the vesting schedule type. Vesting is parallel to staking
accrual: a fixed total released over time under a chosen curve, gated by an
optional cliff.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

type VestingCurve string

const (
	CurveLinear      VestingCurve = "LINEAR"
	CurveStepped     VestingCurve = "STEPPED"     // 25% per completed quarter, no interpolation
	CurveExponential VestingCurve = "EXPONENTIAL" // (elapsed/duration)^2, accelerating
)

type VestingSchedule struct {
	Beneficiary string `json:"beneficiary"`
	PoolID      PoolID `json:"pool_id"`
	Denom       string `json:"denom"` // Reward denom the schedule pays out in

	CliffDuration   int64        `json:"cliff_duration"`   // Seconds before anything releases
	VestingDuration int64        `json:"vesting_duration"` // Total window, >= cliff
	Curve           VestingCurve `json:"curve"`
	StartTime       int64        `json:"start_time"`
	TotalAmount     sdkmath.Int  `json:"total_amount"`
	ClaimedAmount   sdkmath.Int  `json:"claimed_amount"`
}

// FullyVestedAt reports whether the whole window has elapsed at now.
func (s *VestingSchedule) FullyVestedAt(now int64) bool {
	return now >= s.StartTime+s.VestingDuration
}

// InCliffAt reports whether the schedule is still inside its cliff at now.
func (s *VestingSchedule) InCliffAt(now int64) bool {
	return now < s.StartTime+s.CliffDuration
}
