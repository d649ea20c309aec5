// ./internal/state/payout_store.go
package state

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// PayoutInstruction is one durably recorded transfer for the external
// executor to pick up.
type PayoutInstruction struct {
	ID        int64     `json:"id"`
	Recipient string    `json:"recipient"`
	Denom     string    `json:"denom"`
	Amount    string    `json:"amount"`
	Executed  bool      `json:"executed"`
	CreatedAt time.Time `json:"created_at"`
}

// PayoutRecorder is the database-backed implementation of the bank package's
// instruction recorder.
type PayoutRecorder struct{}

func NewPayoutRecorder() *PayoutRecorder {
	return &PayoutRecorder{}
}

// RecordPayoutInstruction inserts one pending payout row. A failure here
// fails the transfer, which in turn rolls the escrow accounting back.
func (r *PayoutRecorder) RecordPayoutInstruction(to, denom, amount string) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO payout_instructions (recipient, denom, amount)
		VALUES ($1, $2, $3);`

	if _, err := DB.Exec(stmt, to, denom, amount); err != nil {
		return fmt.Errorf("failed to insert payout instruction: %w", err)
	}

	log.Debug().
		Str("recipient", to).
		Str("denom", denom).
		Str("amount", amount).
		Msg("Payout instruction recorded")
	return nil
}

// LoadPendingPayouts returns unexecuted instructions, oldest first.
func LoadPendingPayouts(limit int) ([]PayoutInstruction, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT instruction_id, recipient, denom, amount, executed, created_at
		FROM payout_instructions
		WHERE executed = FALSE
		ORDER BY created_at ASC
		LIMIT $1;`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending payouts: %w", err)
	}
	defer rows.Close()

	var out []PayoutInstruction
	for rows.Next() {
		var p PayoutInstruction
		if err := rows.Scan(&p.ID, &p.Recipient, &p.Denom, &p.Amount, &p.Executed, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payout instruction: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkPayoutExecuted flags an instruction as executed with the tx hash the
// external executor reported.
func MarkPayoutExecuted(id int64, txHash string) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		UPDATE payout_instructions
		SET executed = TRUE, executed_tx = $2
		WHERE instruction_id = $1;`

	res, err := DB.Exec(stmt, id, txHash)
	if err != nil {
		return fmt.Errorf("failed to mark payout executed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("payout instruction %d not found", id)
	}
	return nil
}
