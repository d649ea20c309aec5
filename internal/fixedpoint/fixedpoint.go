/*

This file contains the basis-point arithmetic helpers used by every reward
computation. All ratios are basis points (10000 = 100%). Intermediates run on
math/big so a 256-bit amount multiplied by a basis-point factor cannot wrap;
results that do not fit back into a 256-bit sdkmath.Int fail with
ErrArithmeticOverflow. Rounding is always floor so the engine can only ever
under-pay, never over-pay.

*/

package fixedpoint

import (
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"

	"github.com/insuredfi/rewardengine/internal/types"
)

// sdkmath.Int is backed by a 256-bit big.Int; anything wider cannot be
// represented and must be rejected rather than truncated.
const maxIntBits = 256

// MulDiv computes floor(value * numerator / denominator).
func MulDiv(value sdkmath.Int, numerator, denominator sdkmath.Int) (sdkmath.Int, error) {
	if denominator.IsZero() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: muldiv denominator", types.ErrDivisionByZero)
	}

	product := new(big.Int).Mul(value.BigInt(), numerator.BigInt())
	quotient := new(big.Int).Quo(product, denominator.BigInt())

	if quotient.BitLen() > maxIntBits {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: muldiv result has %d bits", types.ErrArithmeticOverflow, quotient.BitLen())
	}
	return sdkmath.NewIntFromBigInt(quotient), nil
}

// MulDivU is MulDiv with uint64 ratio terms, the common basis-point case.
func MulDivU(value sdkmath.Int, numerator, denominator uint64) (sdkmath.Int, error) {
	return MulDiv(value, sdkmath.NewIntFromUint64(numerator), sdkmath.NewIntFromUint64(denominator))
}

// ApplyBP scales value by a basis-point factor: floor(value * bp / 10000).
func ApplyBP(value sdkmath.Int, bp uint64) (sdkmath.Int, error) {
	return MulDivU(value, bp, types.BasisPoints)
}

// ClampU bounds a basis-point quantity to [lo, hi].
func ClampU(v, lo, hi uint64) uint64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
