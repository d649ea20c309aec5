/*

This file contains the reward engine orchestrator: it owns the component
wiring (registry, stake ledger, yield adjuster, vesting engine, emission
controller, escrow accountant) and the injected boundary collaborators
(clock, transfer primitive, event sink, escrow verifier). External calls
enter here; the host processes them strictly one at a time, so ordering of
reads and writes inside a single call is the whole correctness mechanism.

*/

package engine

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/insuredfi/rewardengine/internal/emission"
	"github.com/insuredfi/rewardengine/internal/escrow"
	"github.com/insuredfi/rewardengine/internal/events"
	"github.com/insuredfi/rewardengine/internal/ledger"
	"github.com/insuredfi/rewardengine/internal/logger"
	"github.com/insuredfi/rewardengine/internal/registry"
	"github.com/insuredfi/rewardengine/internal/types"
	"github.com/insuredfi/rewardengine/internal/vesting"
	"github.com/insuredfi/rewardengine/internal/yield"
)

const (
	DEFAULT_CONFIG_NAME    = "default_engine_parameters"
	DEFAULT_CONFIG_VERSION = 1
)

// ClaimPersister durably appends claim records. The state package provides
// the database-backed implementation; a nil persister disables persistence.
type ClaimPersister interface {
	SaveClaimRecord(rec types.ClaimRecord) error
}

// SnapshotPersister durably records periodic pool snapshots taken by the
// maintenance loop. A nil persister disables snapshots.
type SnapshotPersister interface {
	SavePoolSnapshot(p *types.RewardPool) error
}

// EscrowVerifier checks the on-chain escrow account actually holds what the
// accountant is about to record. The bank client provides the live
// implementation; a nil verifier skips the check (sim mode).
type EscrowVerifier interface {
	VerifyFunding(ctx context.Context, denom string, required sdkmath.Int) error
}

// Config holds the dependencies for creating a new Engine instance.
type Config struct {
	Params      types.EngineParameters
	Clock       types.Clock
	Transferrer escrow.Transferrer
	EventSink   events.Sink
	Persister   ClaimPersister    // optional
	Snapshots   SnapshotPersister // optional
	Verifier    EscrowVerifier    // optional
}

type Engine struct {
	logger zerolog.Logger
	params types.EngineParameters
	clock  types.Clock

	registry *registry.Registry
	escrow   *escrow.Accountant
	ledger   *ledger.Ledger
	yield    *yield.Adjuster
	vesting  *vesting.Engine
	emission *emission.Controller

	sink      events.Sink
	persister ClaimPersister
	snapshots SnapshotPersister
	verifier  EscrowVerifier

	cycleCount int
}

// New wires the components together with dependency injection.
func New(cfg Config) (*Engine, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	reg := registry.NewRegistry(cfg.Params)
	acct := escrow.NewAccountant(cfg.Transferrer)
	led := ledger.NewLedger(cfg.Params, cfg.Clock, reg, acct)
	adj := yield.NewAdjuster(cfg.Params, cfg.Clock, led)
	vst := vesting.NewEngine(cfg.Clock, reg, acct)
	emi := emission.NewController(cfg.Params, cfg.Clock, reg)

	e := &Engine{
		logger:    logger.GetForComponent("reward_engine"),
		params:    cfg.Params,
		clock:     cfg.Clock,
		registry:  reg,
		escrow:    acct,
		ledger:    led,
		yield:     adj,
		vesting:   vst,
		emission:  emi,
		sink:      cfg.EventSink,
		persister: cfg.Persister,
		snapshots: cfg.Snapshots,
		verifier:  cfg.Verifier,
	}

	e.logger.Info().Msg("Reward engine created")
	return e, nil
}

func validateConfig(cfg Config) error {
	if cfg.Clock == nil {
		return fmt.Errorf("clock cannot be nil")
	}
	if cfg.Transferrer == nil {
		return fmt.Errorf("transferrer cannot be nil")
	}
	if cfg.EventSink == nil {
		return fmt.Errorf("event sink cannot be nil")
	}
	if cfg.Params.MaxRiskFactorBP == 0 || cfg.Params.APYCeilingBP == 0 {
		return fmt.Errorf("engine parameters are not populated")
	}
	return nil
}

// Initialize arms the engine with the admin principal. Once only.
func (e *Engine) Initialize(admin string) error {
	return e.registry.Initialize(admin)
}

// Registry exposes read access for the web API.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Escrow exposes the accountant's counters for the web API and tests.
func (e *Engine) Escrow() *escrow.Accountant {
	return e.escrow
}

// Ledger exposes position reads for the web API.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// Vesting exposes schedule reads for the web API.
func (e *Engine) Vesting() *vesting.Engine {
	return e.vesting
}

func (e *Engine) emit(ev events.Event) {
	if ev.ID == "" {
		ev.ID = events.NewID()
	}
	e.sink.Emit(ev)
}

func (e *Engine) persistClaim(rec types.ClaimRecord) {
	if e.persister == nil {
		return
	}
	if err := e.persister.SaveClaimRecord(rec); err != nil {
		e.logger.Error().Err(err).
			Str("claimer", rec.Claimer).
			Uint64("pool", uint64(rec.PoolID)).
			Msg("Failed to persist claim record")
	}
}
