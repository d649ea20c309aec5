// ./internal/state/db.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// TestDBConnection verifies the database connection is alive.
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return DB.Ping()
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS claim_history (
			claim_id BIGSERIAL PRIMARY KEY,
			claimer VARCHAR(128) NOT NULL,
			pool_id BIGINT NOT NULL,
			denom VARCHAR(128) NOT NULL,
			amount NUMERIC(78, 0) NOT NULL,
			claimed_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_claim_history_claimer_pool ON claim_history(claimer, pool_id, claimed_at DESC);
		CREATE INDEX IF NOT EXISTS idx_claim_history_pool ON claim_history(pool_id, claimed_at DESC);

		CREATE TABLE IF NOT EXISTS engine_events (
			event_id UUID PRIMARY KEY,
			event_type VARCHAR(64) NOT NULL,
			actor VARCHAR(128) NOT NULL,
			pool_id BIGINT,
			denom VARCHAR(128),
			amount NUMERIC(78, 0),
			prev_state VARCHAR(64),
			new_state VARCHAR(64),
			occurred_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_engine_events_type_time ON engine_events(event_type, occurred_at DESC);
		CREATE INDEX IF NOT EXISTS idx_engine_events_pool_time ON engine_events(pool_id, occurred_at DESC);

		CREATE TABLE IF NOT EXISTS payout_instructions (
			instruction_id BIGSERIAL PRIMARY KEY,
			recipient VARCHAR(128) NOT NULL,
			denom VARCHAR(128) NOT NULL,
			amount NUMERIC(78, 0) NOT NULL,
			executed BOOLEAN NOT NULL DEFAULT FALSE,
			executed_tx VARCHAR(128),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_payout_instructions_pending ON payout_instructions(executed, created_at);

		CREATE TABLE IF NOT EXISTS pool_snapshots (
			snapshot_id BIGSERIAL PRIMARY KEY,
			pool_id BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			status VARCHAR(16) NOT NULL,
			total_staked NUMERIC(78, 0) NOT NULL,
			base_apy_bp BIGINT NOT NULL,
			risk_factor_bp BIGINT NOT NULL,
			taken_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_pool_snapshots_pool_time ON pool_snapshots(pool_id, taken_at DESC);

		CREATE TABLE IF NOT EXISTS engine_parameters (
			params_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			apy_ceiling_bp BIGINT NOT NULL,
			max_risk_factor_bp BIGINT NOT NULL,
			max_early_penalty_bp BIGINT NOT NULL,
			multiplier_cap_bp BIGINT NOT NULL,
			utilization_bonus_max_bp BIGINT NOT NULL,
			claim_ratio_bonus_max_bp BIGINT NOT NULL,
			volatility_bonus_max_bp BIGINT NOT NULL,
			counterparty_bonus_max_bp BIGINT NOT NULL,
			max_emission_rate NUMERIC(78, 0) NOT NULL,
			inflation_cap_bp BIGINT NOT NULL,
			adjustment_interval BIGINT NOT NULL,
			max_batch_recipients INTEGER NOT NULL,
			CONSTRAINT uq_engine_parameters_config_version UNIQUE (config_name, version)
		);
		CREATE INDEX IF NOT EXISTS idx_engine_parameters_config_active ON engine_parameters(config_name, is_active, activated_at DESC);
	`
	if _, err := DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	log.Info().Msg("Database schema ensured")
	return nil
}
