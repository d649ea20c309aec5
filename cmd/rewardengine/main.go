package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/insuredfi/rewardengine/internal/bank"
	"github.com/insuredfi/rewardengine/internal/config"
	"github.com/insuredfi/rewardengine/internal/engine"
	"github.com/insuredfi/rewardengine/internal/escrow"
	"github.com/insuredfi/rewardengine/internal/events"
	"github.com/insuredfi/rewardengine/internal/logger"
	"github.com/insuredfi/rewardengine/internal/state"
	"github.com/insuredfi/rewardengine/internal/types"
	"github.com/insuredfi/rewardengine/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	LOOP_INTERVAL = 10 * time.Minute
)

// main is the entry point for the reward distribution engine.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	engineMode := os.Getenv("ENGINE_MODE")
	live := engineMode == "live"

	// Load configuration from environment variables
	if err := config.LoadConfig(live); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Str("mode", engineMode).Msg("Reward engine starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load Engine Parameters
	params, err := state.LoadActiveEngineParameters(engine.DEFAULT_CONFIG_NAME)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active engine parameters, using defaults and saving.")
		defaultParams := config.DefaultEngineParameters
		if _, err := state.SaveEngineParameters(defaultParams, engine.DEFAULT_CONFIG_NAME, engine.DEFAULT_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default engine parameters.")
		}
		params = &defaultParams
	}
	log.Info().Msg("Engine parameters loaded successfully.")

	// --- 2. Transfer Primitive Selection (with Safety Switch) ---
	var (
		transferrer escrow.Transferrer
		verifier    engine.EscrowVerifier
	)
	if live {
		log.Warn().Msg("Initializing engine in LIVE mode. Payout instructions will be recorded for execution.")

		grpcClient, err := bank.Dial(config.NodeGRPC)
		if err != nil {
			log.Fatal().Err(err).Msg("gRPC connection error")
		}
		defer grpcClient.Close()
		log.Info().Str("endpoint", config.NodeGRPC).Msg("gRPC connected")

		bankClient, err := bank.NewClient(grpcClient, config.EscrowAddress)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize bank client")
		}
		verifier = bankClient

		transferrer = bank.NewInstructionTransferrer(state.NewPayoutRecorder())
	} else {
		log.Warn().Msg("ENGINE_MODE is not 'live'. Running in simulation mode; payouts are logged, not recorded.")
		transferrer = bank.NewSimTransferrer()
	}

	// --- 3. Create Engine Instance with Dependency Injection ---
	engineConfig := engine.Config{
		Params:      *params,
		Clock:       types.SystemClock{},
		Transferrer: transferrer,
		EventSink:   events.NewMultiSink(events.NewLogSink(), state.NewDBSink()),
		Persister:   state.NewClaimStore(),
		Snapshots:   state.NewSnapshotStore(),
		Verifier:    verifier,
	}

	eng, err := engine.New(engineConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine instance")
	}

	if err := eng.Initialize(config.AdminAddress); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize engine admin")
	}
	log.Info().Str("admin", config.AdminAddress).Msg("Engine instance created successfully")

	// --- 4. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(eng, webPort)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting engine web API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Start Maintenance Loop ---
	log.Info().Str("interval", LOOP_INTERVAL.String()).Msg("Starting engine maintenance loop")

	ctx := context.Background()
	eng.RunLoop(ctx, LOOP_INTERVAL)
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
