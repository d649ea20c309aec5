/*

This file contains the per-pool health metrics the yield adjuster turns into a
performance multiplier. All four fields are basis points in [0, 10000] and are
admin-updated; staleness is tolerated (last-known value is used).

*/

package types

type PerformanceMetrics struct {
	PoolID           PoolID `json:"pool_id"`
	UtilizationRate  uint64 `json:"utilization_rate"`
	ClaimRatio       uint64 `json:"claim_ratio"`
	VolatilityScore  uint64 `json:"volatility_score"`
	CounterpartyRisk uint64 `json:"counterparty_risk"`
	UpdatedAt        int64  `json:"updated_at"`
}

// InRange reports whether every metric is a valid basis-point value.
func (m PerformanceMetrics) InRange() bool {
	return m.UtilizationRate <= BasisPoints &&
		m.ClaimRatio <= BasisPoints &&
		m.VolatilityScore <= BasisPoints &&
		m.CounterpartyRisk <= BasisPoints
}
