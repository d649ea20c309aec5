package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// AdminAddress is the only principal allowed to call admin operations.
	AdminAddress string

	// EscrowAddress is the on-chain account holding deposited reward tokens.
	// The bank client verifies escrow funding against its balances.
	EscrowAddress string

	// NodeGRPC is the gRPC endpoint of the chain node used for balance
	// verification. Optional in sim mode.
	NodeGRPC string

	// ChainID is the chain ID of the target network.
	ChainID string

	// SnapshotInterval is the number of maintenance cycles between pool
	// snapshot writes.
	SnapshotInterval uint64
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars. Admin and escrow addresses are required; the chain
// endpoint is only required when the engine runs in live mode.
func LoadConfig(live bool) error {
	log.Info().Msg("Loading engine configuration from environment variables...")

	var err error

	AdminAddress, err = getEnv("ENGINE_ADMIN_ADDRESS")
	if err != nil {
		return err
	}

	EscrowAddress, err = getEnv("ENGINE_ESCROW_ADDRESS")
	if err != nil {
		return err
	}

	if live {
		NodeGRPC, err = getEnv("NODE_GRPC")
		if err != nil {
			return err
		}
		ChainID, err = getEnv("CHAIN_ID")
		if err != nil {
			return err
		}
	} else {
		NodeGRPC = os.Getenv("NODE_GRPC")
		ChainID = os.Getenv("CHAIN_ID")
	}

	SnapshotInterval = getEnvAsUint64OrDefault("ENGINE_SNAPSHOT_INTERVAL", 6)

	log.Debug().
		Str("AdminAddress", AdminAddress).
		Str("EscrowAddress", EscrowAddress).
		Str("ChainID", ChainID).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64OrDefault retrieves an environment variable as a uint64,
// falling back to def when unset or invalid.
func getEnvAsUint64OrDefault(key string, def uint64) uint64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return def
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Msg("Invalid uint64 environment variable, using default")
		return def
	}
	return value
}
