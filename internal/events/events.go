/*

This file contains the event contract the engine emits on every state-changing
operation, for audit and indexer consumption. The engine itself only depends
on the Sink interface; the log-backed sink here is the default, and the state
package provides a database-backed one.

*/

package events

import (
	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insuredfi/rewardengine/internal/logger"
	"github.com/insuredfi/rewardengine/internal/types"
)

type EventType string

const (
	EventPoolCreated     EventType = "POOL_CREATED"
	EventTokenAdded      EventType = "TOKEN_ADDED"
	EventPoolStatus      EventType = "POOL_STATUS"
	EventStake           EventType = "STAKE"
	EventUnstake         EventType = "UNSTAKE"
	EventEmergencyOut    EventType = "EMERGENCY_UNSTAKE"
	EventClaim           EventType = "CLAIM"
	EventVestingCreated  EventType = "VESTING_CREATED"
	EventVestingClaim    EventType = "VESTING_CLAIM"
	EventMetricsUpdated  EventType = "METRICS_UPDATED"
	EventBonusApplied    EventType = "BONUS_APPLIED"
	EventEmissionAdjust  EventType = "EMISSION_ADJUSTED"
	EventPauseToggled    EventType = "PAUSE_TOGGLED"
	EventBatchDistribute EventType = "BATCH_DISTRIBUTED"
)

// Event is constructed with a plain struct literal; every field is optional
// except ID, Type, Actor and Timestamp, which the engine always fills.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	Actor     string       `json:"actor"`
	PoolID    types.PoolID `json:"pool_id,omitempty"`
	Denom     string       `json:"denom,omitempty"`
	Amount    sdkmath.Int  `json:"amount,omitempty"`
	PrevState string       `json:"prev_state,omitempty"`
	NewState  string       `json:"new_state,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// NewID returns a fresh event id.
func NewID() string {
	return uuid.New().String()
}

// Sink receives one event per state-changing operation. Emit must not fail
// the enclosing operation; sinks log and swallow their own errors.
type Sink interface {
	Emit(ev Event)
}

// LogSink writes events to the structured log.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{logger: logger.GetForComponent("event_sink")}
}

func (s *LogSink) Emit(ev Event) {
	entry := s.logger.Info().
		Str("event_id", ev.ID).
		Str("type", string(ev.Type)).
		Str("actor", ev.Actor).
		Int64("timestamp", ev.Timestamp)
	if ev.PoolID != 0 {
		entry = entry.Uint64("pool", uint64(ev.PoolID))
	}
	if ev.Denom != "" {
		entry = entry.Str("denom", ev.Denom)
	}
	if !ev.Amount.IsNil() {
		entry = entry.Str("amount", ev.Amount.String())
	}
	if ev.PrevState != "" || ev.NewState != "" {
		entry = entry.Str("prev", ev.PrevState).Str("new", ev.NewState)
	}
	entry.Msg("Engine event")
}

// MultiSink fans an event out to several sinks.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Emit(ev Event) {
	for _, s := range m.sinks {
		s.Emit(ev)
	}
}
