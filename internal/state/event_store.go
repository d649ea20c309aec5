// ./internal/state/event_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/insuredfi/rewardengine/internal/events"
)

// SaveEngineEvent persists one engine event row.
func SaveEngineEvent(ev events.Event) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	var poolID sql.NullInt64
	if ev.PoolID != 0 {
		poolID = sql.NullInt64{Int64: int64(ev.PoolID), Valid: true}
	}
	var denom sql.NullString
	if ev.Denom != "" {
		denom = sql.NullString{String: ev.Denom, Valid: true}
	}
	var amount sql.NullString
	if !ev.Amount.IsNil() {
		amount = sql.NullString{String: ev.Amount.String(), Valid: true}
	}
	var prev, next sql.NullString
	if ev.PrevState != "" {
		prev = sql.NullString{String: ev.PrevState, Valid: true}
	}
	if ev.NewState != "" {
		next = sql.NullString{String: ev.NewState, Valid: true}
	}

	stmt := `
		INSERT INTO engine_events (event_id, event_type, actor, pool_id, denom, amount, prev_state, new_state, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`

	_, err := DB.Exec(stmt,
		ev.ID, string(ev.Type), ev.Actor, poolID, denom, amount, prev, next,
		time.Unix(ev.Timestamp, 0).UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert engine event: %w", err)
	}
	return nil
}

// DBSink is a database-backed event sink. Persistence failures are logged
// and swallowed: the audit row is best-effort, the operation itself already
// committed.
type DBSink struct{}

func NewDBSink() *DBSink {
	return &DBSink{}
}

func (s *DBSink) Emit(ev events.Event) {
	if err := SaveEngineEvent(ev); err != nil {
		log.Error().Err(err).Str("event_id", ev.ID).Str("type", string(ev.Type)).Msg("Failed to persist engine event")
	}
}
