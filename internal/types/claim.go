/*

This file contains the immutable claim history record. Entries are append-only
and are never mutated or deleted; they back the audit trail and the web API's
claim history endpoints.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

type ClaimRecord struct {
	Claimer   string      `json:"claimer"`
	PoolID    PoolID      `json:"pool_id"`
	Denom     string      `json:"denom"`
	Amount    sdkmath.Int `json:"amount"`
	Timestamp int64       `json:"timestamp"`
}
