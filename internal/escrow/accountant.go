/*

This file contains the escrow accountant: the sole mutator of the per
(pool, denom) escrowed / allocated / distributed counters. Every payout in
the engine, staking or vesting, is routed through AuthorizePayout so reward
tokens can never be spent twice. The conservation invariant

    distributed <= allocated <= escrowed

holds after every operation; a payout that would break it fails before any
counter moves. The external transfer primitive is called exactly once per
successful payout, after the accounting increment; a failed transfer rolls
the increment back so accounting never runs ahead of actual token movement.

*/

package escrow

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"github.com/insuredfi/rewardengine/internal/logger"
	"github.com/insuredfi/rewardengine/internal/types"
)

// Transferrer is the external token-transfer primitive provided by the host
// environment. Implementations must either fully complete or fully fail.
type Transferrer interface {
	Transfer(to string, coin sdktypes.Coin) error
}

type ledgerKey struct {
	pool  types.PoolID
	denom string
}

type ledgerCounters struct {
	escrowed    sdkmath.Int
	allocated   sdkmath.Int
	distributed sdkmath.Int
}

// Accountant owns the escrow counters. All other components must route
// payouts through it.
type Accountant struct {
	logger   zerolog.Logger
	transfer Transferrer
	counters map[ledgerKey]*ledgerCounters
}

func NewAccountant(transfer Transferrer) *Accountant {
	return &Accountant{
		logger:   logger.GetForComponent("escrow_accountant"),
		transfer: transfer,
		counters: make(map[ledgerKey]*ledgerCounters),
	}
}

func (a *Accountant) get(pool types.PoolID, denom string) *ledgerCounters {
	k := ledgerKey{pool: pool, denom: denom}
	c, ok := a.counters[k]
	if !ok {
		c = &ledgerCounters{
			escrowed:    sdkmath.ZeroInt(),
			allocated:   sdkmath.ZeroInt(),
			distributed: sdkmath.ZeroInt(),
		}
		a.counters[k] = c
	}
	return c
}

// RecordEscrow registers a deposit of reward tokens into the pool's escrow.
func (a *Accountant) RecordEscrow(pool types.PoolID, denom string, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: escrow amount must be positive", types.ErrInvalidParameter)
	}
	c := a.get(pool, denom)
	c.escrowed = c.escrowed.Add(amount)

	a.logger.Info().
		Uint64("pool", uint64(pool)).
		Str("denom", denom).
		Str("amount", amount.String()).
		Str("escrowed", c.escrowed.String()).
		Msg("Escrow deposit recorded")
	return nil
}

// RecordAllocation reserves escrowed tokens for future payouts. Fails with
// ErrInsufficientEscrow if the reservation would exceed the escrowed balance.
func (a *Accountant) RecordAllocation(pool types.PoolID, denom string, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: allocation amount must be positive", types.ErrInvalidParameter)
	}
	c := a.get(pool, denom)
	next := c.allocated.Add(amount)
	if next.GT(c.escrowed) {
		return fmt.Errorf("%w: allocation %s exceeds escrowed %s for pool %d denom %s",
			types.ErrInsufficientEscrow, next.String(), c.escrowed.String(), pool, denom)
	}
	c.allocated = next

	a.logger.Info().
		Uint64("pool", uint64(pool)).
		Str("denom", denom).
		Str("amount", amount.String()).
		Str("allocated", c.allocated.String()).
		Msg("Allocation recorded")
	return nil
}

// ReleaseAllocation returns a reservation made by RecordAllocation to the
// escrow headroom. The allocated counter can never drop below distributed.
func (a *Accountant) ReleaseAllocation(pool types.PoolID, denom string, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: release amount must be positive", types.ErrInvalidParameter)
	}
	c := a.get(pool, denom)
	next := c.allocated.Sub(amount)
	if next.LT(c.distributed) {
		return fmt.Errorf("%w: release %s would drop allocated %s below distributed %s for pool %d denom %s",
			types.ErrInvalidParameter, amount.String(), c.allocated.String(), c.distributed.String(), pool, denom)
	}
	c.allocated = next

	a.logger.Info().
		Uint64("pool", uint64(pool)).
		Str("denom", denom).
		Str("amount", amount.String()).
		Str("allocated", c.allocated.String()).
		Msg("Allocation released")
	return nil
}

// AuthorizePayout checks the payout against the unspent allocation,
// increments the distributed counter and invokes the transfer primitive.
// On transfer failure the increment is rolled back and the call fails as a
// unit, leaving no partial mutation.
func (a *Accountant) AuthorizePayout(pool types.PoolID, denom, to string, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: payout amount must be positive", types.ErrInvalidParameter)
	}
	c := a.get(pool, denom)
	available := c.allocated.Sub(c.distributed)
	if amount.GT(available) {
		return fmt.Errorf("%w: payout %s exceeds available %s for pool %d denom %s",
			types.ErrInsufficientRewardBalance, amount.String(), available.String(), pool, denom)
	}

	c.distributed = c.distributed.Add(amount)

	if err := a.transfer.Transfer(to, sdktypes.Coin{Denom: denom, Amount: amount}); err != nil {
		c.distributed = c.distributed.Sub(amount)
		return fmt.Errorf("%w: %v", types.ErrTransferFailed, err)
	}

	a.logger.Info().
		Uint64("pool", uint64(pool)).
		Str("denom", denom).
		Str("to", to).
		Str("amount", amount.String()).
		Str("distributed", c.distributed.String()).
		Msg("Payout authorized and transferred")
	return nil
}

// EscrowedBalance returns the escrowed counter for (pool, denom).
func (a *Accountant) EscrowedBalance(pool types.PoolID, denom string) sdkmath.Int {
	return a.get(pool, denom).escrowed
}

// AllocatedBalance returns the allocated counter for (pool, denom).
func (a *Accountant) AllocatedBalance(pool types.PoolID, denom string) sdkmath.Int {
	return a.get(pool, denom).allocated
}

// DistributedBalance returns the distributed counter for (pool, denom).
func (a *Accountant) DistributedBalance(pool types.PoolID, denom string) sdkmath.Int {
	return a.get(pool, denom).distributed
}

// Available returns allocated minus distributed for (pool, denom).
func (a *Accountant) Available(pool types.PoolID, denom string) sdkmath.Int {
	c := a.get(pool, denom)
	return c.allocated.Sub(c.distributed)
}
