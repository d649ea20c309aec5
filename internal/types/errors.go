/*

This file defines the error taxonomy for the reward engine. Every failure that
crosses a component boundary is one of these sentinels, wrapped with context
via fmt.Errorf("%w: ..."), so callers can discriminate with errors.Is.

*/

package types

import "errors"

var (
	// Lifecycle / authorization
	ErrNotInitialized     = errors.New("engine is not initialized")
	ErrAlreadyInitialized = errors.New("engine is already initialized")
	ErrUnauthorized       = errors.New("caller is not the configured admin")
	ErrContractPaused     = errors.New("engine is paused")

	// Input validation
	ErrInvalidParameter = errors.New("parameter is out of range or malformed")

	// Pool state
	ErrPoolNotFound = errors.New("pool not found")
	ErrPoolClosed   = errors.New("pool is closed")
	ErrPoolPaused   = errors.New("pool is not active")

	// Stake state
	ErrStakeNotFound      = errors.New("stake position not found")
	ErrInsufficientStake  = errors.New("unstake amount exceeds staked amount")
	ErrBelowMinimumStake  = errors.New("amount is below the pool minimum stake")
	ErrLockPeriodNotMet   = errors.New("lock period has not elapsed")
	ErrTokenNotRegistered = errors.New("reward token is not registered for pool")

	// Vesting state
	ErrVestingNotFound = errors.New("vesting schedule not found")
	ErrNothingToClaim  = errors.New("nothing is claimable")

	// Escrow / emission
	ErrInsufficientEscrow        = errors.New("escrowed balance does not cover the allocation")
	ErrInsufficientRewardBalance = errors.New("allocated rewards do not cover the payout")
	ErrEmissionRateExceedsCap    = errors.New("emission rate exceeds the configured cap")
	ErrAdjustmentTooSoon         = errors.New("emission adjustment interval has not elapsed")

	// Arithmetic
	ErrArithmeticOverflow = errors.New("intermediate product exceeds representable range")
	ErrDivisionByZero     = errors.New("division by zero")

	// External transfer primitive
	ErrTransferFailed = errors.New("token transfer failed")
)
