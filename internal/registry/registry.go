/*

This file contains the pool registry: the exclusive owner of reward pools and
their per-token reward ledgers, plus the engine-wide admin record. The
registry is constructed uninitialized and armed exactly once with
Initialize(admin); every admin-gated operation in the engine funnels through
RequireAdmin here.

*/

package registry

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/insuredfi/rewardengine/internal/fixedpoint"
	"github.com/insuredfi/rewardengine/internal/logger"
	"github.com/insuredfi/rewardengine/internal/types"
)

type ledgerKey struct {
	pool  types.PoolID
	denom string
}

type Registry struct {
	logger zerolog.Logger
	params types.EngineParameters

	initialized bool
	admin       string
	paused      bool

	nextPoolID types.PoolID
	pools      map[types.PoolID]*types.RewardPool
	ledgers    map[ledgerKey]*types.RewardTokenLedger
}

func NewRegistry(params types.EngineParameters) *Registry {
	return &Registry{
		logger:     logger.GetForComponent("pool_registry"),
		params:     params,
		nextPoolID: 1,
		pools:      make(map[types.PoolID]*types.RewardPool),
		ledgers:    make(map[ledgerKey]*types.RewardTokenLedger),
	}
}

// Initialize arms the registry with the admin principal. It can only succeed
// once; any further call fails with ErrAlreadyInitialized.
func (r *Registry) Initialize(admin string) error {
	if r.initialized {
		return fmt.Errorf("%w: admin already set", types.ErrAlreadyInitialized)
	}
	if admin == "" {
		return fmt.Errorf("%w: admin address is empty", types.ErrInvalidParameter)
	}
	r.initialized = true
	r.admin = admin
	r.logger.Info().Str("admin", admin).Msg("Registry initialized")
	return nil
}

// RequireAdmin verifies the caller is the configured admin. The actual
// authentication of the actor string is the host's concern; this is the
// authorization gate.
func (r *Registry) RequireAdmin(actor string) error {
	if !r.initialized {
		return types.ErrNotInitialized
	}
	if actor != r.admin {
		return fmt.Errorf("%w: %s", types.ErrUnauthorized, actor)
	}
	return nil
}

// RequireNotPaused fails when the global pause switch is on.
func (r *Registry) RequireNotPaused() error {
	if r.paused {
		return types.ErrContractPaused
	}
	return nil
}

// SetPaused flips the global pause switch. Paused blocks stake and pool
// creation; unstake and claim always remain available.
func (r *Registry) SetPaused(actor string, paused bool) error {
	if err := r.RequireAdmin(actor); err != nil {
		return err
	}
	r.paused = paused
	r.logger.Warn().Bool("paused", paused).Msg("Global pause switch updated")
	return nil
}

// Paused reports the global pause switch.
func (r *Registry) Paused() bool {
	return r.paused
}

// Params returns the engine parameters the registry was built with.
func (r *Registry) Params() types.EngineParameters {
	return r.params
}

// CreatePool registers a new reward pool and returns its id. Pool ids are
// sequential and never reused.
func (r *Registry) CreatePool(actor, name string, baseAPY, riskFactor uint64, minStake sdkmath.Int, lockPeriod int64) (types.PoolID, error) {
	if err := r.RequireAdmin(actor); err != nil {
		return 0, err
	}
	if err := r.RequireNotPaused(); err != nil {
		return 0, err
	}
	if name == "" {
		return 0, fmt.Errorf("%w: pool name is empty", types.ErrInvalidParameter)
	}
	if baseAPY > r.params.APYCeilingBP {
		return 0, fmt.Errorf("%w: base apy %d exceeds ceiling %d", types.ErrInvalidParameter, baseAPY, r.params.APYCeilingBP)
	}
	if riskFactor == 0 || riskFactor > r.params.MaxRiskFactorBP {
		return 0, fmt.Errorf("%w: risk factor %d outside (0, %d]", types.ErrInvalidParameter, riskFactor, r.params.MaxRiskFactorBP)
	}
	if minStake.IsNil() || minStake.IsNegative() {
		return 0, fmt.Errorf("%w: min stake must be non-negative", types.ErrInvalidParameter)
	}
	if lockPeriod < 0 {
		return 0, fmt.Errorf("%w: lock period must be non-negative", types.ErrInvalidParameter)
	}

	id := r.nextPoolID
	r.nextPoolID++
	r.pools[id] = &types.RewardPool{
		ID:                   id,
		Name:                 name,
		TotalStaked:          sdkmath.ZeroInt(),
		BaseAPY:              baseAPY,
		RiskAdjustmentFactor: riskFactor,
		Status:               types.PoolActive,
		MinStake:             minStake,
		LockPeriod:           lockPeriod,
	}

	r.logger.Info().
		Uint64("pool", uint64(id)).
		Str("name", name).
		Uint64("baseAPY", baseAPY).
		Uint64("riskFactor", riskFactor).
		Msg("Pool created")
	return id, nil
}

// GetPool returns the pool record or ErrPoolNotFound.
func (r *Registry) GetPool(id types.PoolID) (*types.RewardPool, error) {
	p, ok := r.pools[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", types.ErrPoolNotFound, id)
	}
	return p, nil
}

// Pools returns all pool records, for snapshots and the web API.
func (r *Registry) Pools() []*types.RewardPool {
	out := make([]*types.RewardPool, 0, len(r.pools))
	for _, p := range r.pools {
		out = append(out, p)
	}
	return out
}

// RegisterRewardToken attaches a reward-token ledger to an open pool. The
// emission-rate and escrow checks are the caller's responsibility (the engine
// delegates them to the emission controller and escrow accountant before
// calling in here).
func (r *Registry) RegisterRewardToken(id types.PoolID, denom string, emissionRate, totalAllocated sdkmath.Int) error {
	p, err := r.GetPool(id)
	if err != nil {
		return err
	}
	if p.Status == types.PoolClosed {
		return fmt.Errorf("%w: %d", types.ErrPoolClosed, id)
	}
	if denom == "" {
		return fmt.Errorf("%w: denom is empty", types.ErrInvalidParameter)
	}
	k := ledgerKey{pool: id, denom: denom}
	if _, exists := r.ledgers[k]; exists {
		return fmt.Errorf("%w: denom %s already registered for pool %d", types.ErrInvalidParameter, denom, id)
	}

	r.ledgers[k] = &types.RewardTokenLedger{
		PoolID:           id,
		Denom:            denom,
		EmissionRate:     emissionRate,
		TotalAllocated:   totalAllocated,
		TotalDistributed: sdkmath.ZeroInt(),
		Active:           true,
	}
	p.RewardTokens = append(p.RewardTokens, denom)

	r.logger.Info().
		Uint64("pool", uint64(id)).
		Str("denom", denom).
		Str("emissionRate", emissionRate.String()).
		Str("allocated", totalAllocated.String()).
		Msg("Reward token registered")
	return nil
}

// Ledger returns the reward-token ledger for (pool, denom).
func (r *Registry) Ledger(id types.PoolID, denom string) (*types.RewardTokenLedger, error) {
	if _, err := r.GetPool(id); err != nil {
		return nil, err
	}
	l, ok := r.ledgers[ledgerKey{pool: id, denom: denom}]
	if !ok {
		return nil, fmt.Errorf("%w: denom %s pool %d", types.ErrTokenNotRegistered, denom, id)
	}
	return l, nil
}

// LedgersForPool returns every reward-token ledger registered on the pool.
func (r *Registry) LedgersForPool(id types.PoolID) []*types.RewardTokenLedger {
	var out []*types.RewardTokenLedger
	for k, l := range r.ledgers {
		if k.pool == id {
			out = append(out, l)
		}
	}
	return out
}

// RecordDistribution advances the ledger's distributed counter after the
// escrow accountant has authorized the matching payout.
func (r *Registry) RecordDistribution(id types.PoolID, denom string, amount sdkmath.Int) error {
	l, err := r.Ledger(id, denom)
	if err != nil {
		return err
	}
	next := l.TotalDistributed.Add(amount)
	if next.GT(l.TotalAllocated) {
		return fmt.Errorf("%w: distribution %s exceeds allocated %s", types.ErrInsufficientRewardBalance, next.String(), l.TotalAllocated.String())
	}
	l.TotalDistributed = next
	return nil
}

// RiskAdjustedAPY returns base_apy * (20000 - risk_factor) / 10000, clamped
// to the APY ceiling. Pure read.
func (r *Registry) RiskAdjustedAPY(id types.PoolID) (uint64, error) {
	p, err := r.GetPool(id)
	if err != nil {
		return 0, err
	}
	inverse := r.params.MaxRiskFactorBP - p.RiskAdjustmentFactor
	adjusted, err := fixedpoint.MulDivU(sdkmath.NewIntFromUint64(p.BaseAPY), inverse, types.BasisPoints)
	if err != nil {
		return 0, err
	}
	apy := adjusted.Uint64()
	if apy > r.params.APYCeilingBP {
		apy = r.params.APYCeilingBP
	}
	return apy, nil
}

// UpdatePoolStatus transitions the pool lifecycle. Closed is terminal.
func (r *Registry) UpdatePoolStatus(actor string, id types.PoolID, status types.PoolStatus) error {
	if err := r.RequireAdmin(actor); err != nil {
		return err
	}
	p, err := r.GetPool(id)
	if err != nil {
		return err
	}
	switch status {
	case types.PoolActive, types.PoolPaused, types.PoolClosed:
	default:
		return fmt.Errorf("%w: unknown pool status %q", types.ErrInvalidParameter, status)
	}
	if p.Status == types.PoolClosed {
		return fmt.Errorf("%w: %d", types.ErrPoolClosed, id)
	}

	prev := p.Status
	p.Status = status
	r.logger.Info().
		Uint64("pool", uint64(id)).
		Str("from", string(prev)).
		Str("to", string(status)).
		Msg("Pool status updated")
	return nil
}

// AddStaked and SubStaked keep the pool aggregate in sync with the stake
// ledger's position mutations. Only the stake ledger calls them.

func (r *Registry) AddStaked(id types.PoolID, amount sdkmath.Int) error {
	p, err := r.GetPool(id)
	if err != nil {
		return err
	}
	p.TotalStaked = p.TotalStaked.Add(amount)
	return nil
}

func (r *Registry) SubStaked(id types.PoolID, amount sdkmath.Int) error {
	p, err := r.GetPool(id)
	if err != nil {
		return err
	}
	if amount.GT(p.TotalStaked) {
		return fmt.Errorf("%w: unstake %s exceeds pool total %s", types.ErrInsufficientStake, amount.String(), p.TotalStaked.String())
	}
	p.TotalStaked = p.TotalStaked.Sub(amount)
	return nil
}
