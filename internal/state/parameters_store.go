// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/insuredfi/rewardengine/internal/types"
)

// SaveEngineParameters saves a new version of engine parameters, optionally
// activating it (and deactivating the previously active row) in the same
// transaction.
func SaveEngineParameters(params types.EngineParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE engine_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
		INSERT INTO engine_parameters (
			version, config_name, is_active, activated_at, created_at,
			apy_ceiling_bp, max_risk_factor_bp, max_early_penalty_bp, multiplier_cap_bp,
			utilization_bonus_max_bp, claim_ratio_bonus_max_bp, volatility_bonus_max_bp, counterparty_bonus_max_bp,
			max_emission_rate, inflation_cap_bp, adjustment_interval, max_batch_recipients
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17
		) RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		version, configName, makeActive, currentTime, currentTime,
		params.APYCeilingBP, params.MaxRiskFactorBP, params.MaxEarlyPenaltyBP, params.MultiplierCapBP,
		params.UtilizationBonusMaxBP, params.ClaimRatioBonusMaxBP, params.VolatilityBonusMaxBP, params.CounterpartyBonusMaxBP,
		params.MaxEmissionRate.String(), params.InflationCapBP, params.AdjustmentInterval, params.MaxBatchRecipients,
	).Scan(&paramsID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert engine parameters: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved engine parameters")
	return paramsID, nil
}

// LoadActiveEngineParameters loads the currently active engine parameters.
func LoadActiveEngineParameters(configName string) (*types.EngineParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT
			apy_ceiling_bp, max_risk_factor_bp, max_early_penalty_bp, multiplier_cap_bp,
			utilization_bonus_max_bp, claim_ratio_bonus_max_bp, volatility_bonus_max_bp, counterparty_bonus_max_bp,
			max_emission_rate, inflation_cap_bp, adjustment_interval, max_batch_recipients
		FROM engine_parameters
		WHERE config_name = $1 AND is_active = TRUE
		ORDER BY activated_at DESC
		LIMIT 1;`

	var (
		p               types.EngineParameters
		maxEmissionRate string
	)
	err := DB.QueryRow(query, configName).Scan(
		&p.APYCeilingBP, &p.MaxRiskFactorBP, &p.MaxEarlyPenaltyBP, &p.MultiplierCapBP,
		&p.UtilizationBonusMaxBP, &p.ClaimRatioBonusMaxBP, &p.VolatilityBonusMaxBP, &p.CounterpartyBonusMaxBP,
		&maxEmissionRate, &p.InflationCapBP, &p.AdjustmentInterval, &p.MaxBatchRecipients,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no active engine parameters for config %s", configName)
		}
		return nil, fmt.Errorf("failed to load active engine parameters: %w", err)
	}

	rate, ok := sdkmath.NewIntFromString(maxEmissionRate)
	if !ok {
		return nil, fmt.Errorf("invalid max_emission_rate %q in engine parameters", maxEmissionRate)
	}
	p.MaxEmissionRate = rate

	return &p, nil
}
