package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/insuredfi/rewardengine/internal/engine"
	"github.com/insuredfi/rewardengine/internal/logger"
	"github.com/insuredfi/rewardengine/internal/state"
	"github.com/insuredfi/rewardengine/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes read-only engine and database state over HTTP.
type WebServer struct {
	router *mux.Router
	engine *engine.Engine
	port   string
}

// NewWebServer creates a new web server instance
func NewWebServer(eng *engine.Engine, port string) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		engine: eng,
		port:   port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/pools", ws.handleGetPools).Methods("GET")
	api.HandleFunc("/pools/{id}", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/pools/{id}/positions", ws.handleGetPositions).Methods("GET")
	api.HandleFunc("/pools/{id}/claims", ws.handleGetPoolClaims).Methods("GET")
	api.HandleFunc("/pools/{id}/escrow/{denom}", ws.handleGetEscrow).Methods("GET")
	api.HandleFunc("/snapshots", ws.handleGetSnapshots).Methods("GET")
	api.HandleFunc("/payouts/pending", ws.handleGetPendingPayouts).Methods("GET")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "reward-distribution-engine",
			"version": "1.0.0",
		},
		"engine_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"paused":           ws.engine.Registry().Paused(),
			"pool_count":       len(ws.engine.Registry().Pools()),
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetPools returns all pools with their risk-adjusted APY
func (ws *WebServer) handleGetPools(w http.ResponseWriter, r *http.Request) {
	pools := ws.engine.Registry().Pools()

	out := make([]map[string]interface{}, 0, len(pools))
	for _, p := range pools {
		apy, err := ws.engine.RiskAdjustedAPY(p.ID)
		if err != nil {
			webLogger.Error().Err(err).Uint64("pool", uint64(p.ID)).Msg("Failed to compute risk-adjusted APY")
			ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to compute pool APY")
			return
		}
		out = append(out, ws.poolResponse(p, apy))
	}

	response := map[string]interface{}{
		"pools": out,
		"count": len(out),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPool returns a single pool with its reward-token ledgers
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolID(w, r)
	if !ok {
		return
	}

	p, err := ws.engine.Registry().GetPool(id)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Pool not found")
		return
	}
	apy, err := ws.engine.RiskAdjustedAPY(id)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to compute pool APY")
		return
	}

	ledgers := ws.engine.Registry().LedgersForPool(id)
	ledgerOut := make([]map[string]interface{}, 0, len(ledgers))
	for _, l := range ledgers {
		ledgerOut = append(ledgerOut, map[string]interface{}{
			"denom":             l.Denom,
			"emission_rate":     l.EmissionRate.String(),
			"total_allocated":   l.TotalAllocated.String(),
			"total_distributed": l.TotalDistributed.String(),
			"active":            l.Active,
		})
	}

	response := ws.poolResponse(p, apy)
	response["reward_tokens"] = ledgerOut

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPositions returns all stake positions in a pool
func (ws *WebServer) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolID(w, r)
	if !ok {
		return
	}
	if _, err := ws.engine.Registry().GetPool(id); err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Pool not found")
		return
	}

	positions := ws.engine.Ledger().Positions(id)
	out := make([]map[string]interface{}, 0, len(positions))
	for _, pos := range positions {
		out = append(out, map[string]interface{}{
			"staker":                 pos.Staker,
			"amount":                 pos.Amount.String(),
			"stake_time":             pos.StakeTime,
			"last_claim":             pos.LastClaim,
			"performance_multiplier": pos.PerformanceMultiplier,
		})
	}

	response := map[string]interface{}{
		"pool_id":   uint64(id),
		"positions": out,
		"count":     len(out),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPoolClaims returns recent claim records for a pool
func (ws *WebServer) handleGetPoolClaims(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolID(w, r)
	if !ok {
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}

	claims, err := state.LoadPoolClaims(id, limit)
	if err != nil {
		webLogger.Error().Err(err).Uint64("pool", uint64(id)).Msg("Failed to load pool claims")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve claims")
		return
	}

	response := map[string]interface{}{
		"pool_id": uint64(id),
		"claims":  claims,
		"count":   len(claims),
		"limit":   limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetEscrow returns the escrow counters for (pool, denom)
func (ws *WebServer) handleGetEscrow(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolID(w, r)
	if !ok {
		return
	}
	denom := mux.Vars(r)["denom"]

	acct := ws.engine.Escrow()
	response := map[string]interface{}{
		"pool_id":     uint64(id),
		"denom":       denom,
		"escrowed":    acct.EscrowedBalance(id, denom).String(),
		"allocated":   acct.AllocatedBalance(id, denom).String(),
		"distributed": acct.DistributedBalance(id, denom).String(),
		"available":   acct.Available(id, denom).String(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetSnapshots returns the latest persisted snapshot per pool
func (ws *WebServer) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := state.LoadLatestPoolSnapshots()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to load pool snapshots")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve snapshots")
		return
	}

	response := map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPendingPayouts returns payout instructions awaiting execution
func (ws *WebServer) handleGetPendingPayouts(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}

	payouts, err := state.LoadPendingPayouts(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to load pending payouts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve pending payouts")
		return
	}

	response := map[string]interface{}{
		"payouts": payouts,
		"count":   len(payouts),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

func (ws *WebServer) poolResponse(p *types.RewardPool, apy uint64) map[string]interface{} {
	return map[string]interface{}{
		"id":                   uint64(p.ID),
		"name":                 p.Name,
		"status":               string(p.Status),
		"total_staked":         p.TotalStaked.String(),
		"base_apy_bp":          p.BaseAPY,
		"risk_factor_bp":       p.RiskAdjustmentFactor,
		"risk_adjusted_apy_bp": apy,
		"min_stake":            p.MinStake.String(),
		"lock_period":          p.LockPeriod,
	}
}

func (ws *WebServer) poolID(w http.ResponseWriter, r *http.Request) (types.PoolID, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid pool ID")
		return 0, false
	}
	return types.PoolID(id), true
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		webLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rww *responseWriterWrapper) WriteHeader(statusCode int) {
	rww.statusCode = statusCode
	rww.ResponseWriter.WriteHeader(statusCode)
}
