/*

This file contains the transferrer implementations. Actual token movement is
the host contract's primitive; this engine issues the instruction and records
the outcome. The instruction transferrer hands each payout to a persistence
hook for an external executor to pick up; the sim transferrer just logs.

*/

package bank

import (
	sdktypes "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"github.com/insuredfi/rewardengine/internal/logger"
)

// InstructionRecorder persists a payout instruction for the external
// executor. The state package provides the database-backed implementation.
type InstructionRecorder interface {
	RecordPayoutInstruction(to, denom, amount string) error
}

// InstructionTransferrer satisfies the escrow accountant's transfer
// primitive by durably recording the payout instruction. A recording failure
// fails the transfer, which rolls the escrow accounting back.
type InstructionTransferrer struct {
	logger   zerolog.Logger
	recorder InstructionRecorder
}

func NewInstructionTransferrer(recorder InstructionRecorder) *InstructionTransferrer {
	return &InstructionTransferrer{
		logger:   logger.GetForComponent("instruction_transferrer"),
		recorder: recorder,
	}
}

func (t *InstructionTransferrer) Transfer(to string, coin sdktypes.Coin) error {
	if err := t.recorder.RecordPayoutInstruction(to, coin.Denom, coin.Amount.String()); err != nil {
		return err
	}
	t.logger.Info().
		Str("to", to).
		Str("denom", coin.Denom).
		Str("amount", coin.Amount.String()).
		Msg("Payout instruction issued")
	return nil
}

// SimTransferrer logs transfers and always succeeds. Used when the engine
// runs without a database or chain connection.
type SimTransferrer struct {
	logger zerolog.Logger
}

func NewSimTransferrer() *SimTransferrer {
	return &SimTransferrer{logger: logger.GetForComponent("sim_transferrer")}
}

func (t *SimTransferrer) Transfer(to string, coin sdktypes.Coin) error {
	t.logger.Info().
		Str("to", to).
		Str("denom", coin.Denom).
		Str("amount", coin.Amount.String()).
		Msg("Simulated transfer")
	return nil
}
