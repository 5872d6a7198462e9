package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/yieldsplit/ysa/internal/datafetcher"
	"github.com/yieldsplit/ysa/internal/flow"
	"github.com/yieldsplit/ysa/internal/logger"
	"github.com/yieldsplit/ysa/internal/state"
	"github.com/yieldsplit/ysa/internal/strategy"
	"github.com/yieldsplit/ysa/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer handles HTTP requests for pool data, recommendations, and
// execution flows.
type WebServer struct {
	router     *mux.Router
	port       string
	markets    *datafetcher.MarketClient
	portfolio  *datafetcher.PortfolioClient
	controller *flow.Controller
	registry   *flow.Registry
	params     types.ScoringParameters
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, markets *datafetcher.MarketClient, portfolio *datafetcher.PortfolioClient, controller *flow.Controller, registry *flow.Registry, params types.ScoringParameters) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:     mux.NewRouter(),
		port:       port,
		markets:    markets,
		portfolio:  portfolio,
		controller: controller,
		registry:   registry,
		params:     params,
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
	api.HandleFunc("/recommendations", ws.handleGetRecommendations).Methods("GET")
	api.HandleFunc("/flows/{id}", ws.handleGetFlow).Methods("GET")
	api.HandleFunc("/execute", ws.handleExecute).Methods("POST")
	api.HandleFunc("/settings/{pool}", ws.handleGetSettings).Methods("GET")
	api.HandleFunc("/settings/{pool}", ws.handlePutSettings).Methods("PUT")
	api.HandleFunc("/snapshots", ws.handleGetSnapshots).Methods("GET")

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

	marketHealthy := true
	if _, err := ws.markets.GetActivePools(r.Context()); err != nil {
		marketHealthy = false
	}

	// The preference store is best effort; only a dead market feed degrades
	// the service.
	overallStatus := "OK"
	statusCode := http.StatusOK
	if !marketHealthy {
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
			"name":    "ysa-yield-split-advisor",
			"version": "1.0.0",
		},
		"checks": map[string]interface{}{
			"database_healthy":   dbHealthy,
			"market_api_healthy": marketHealthy,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetPools returns the active pool set
func (ws *WebServer) handleGetPools(w http.ResponseWriter, r *http.Request) {
	pools, err := ws.markets.GetActivePools(r.Context())
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get active pools")
		ws.writeErrorResponse(w, http.StatusBadGateway, "Failed to retrieve pools")
		return
	}

	response := map[string]interface{}{
		"pools": pools,
		"count": len(pools),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetRecommendations computes recommendations for a wallet
func (ws *WebServer) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	walletStr := r.URL.Query().Get("wallet")
	if !common.IsHexAddress(walletStr) {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid or missing wallet address")
		return
	}
	wallet := common.HexToAddress(walletStr)

	profile := types.RiskModerate
	if profileStr := r.URL.Query().Get("profile"); profileStr != "" {
		profile = types.RiskProfile(profileStr)
		if !profile.Valid() {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid risk profile")
			return
		}
	}

	pools, err := ws.markets.GetActivePools(r.Context())
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get active pools")
		ws.writeErrorResponse(w, http.StatusBadGateway, "Failed to retrieve pools")
		return
	}

	assets, err := ws.portfolio.GetWalletAssets(r.Context(), wallet)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get wallet assets")
		ws.writeErrorResponse(w, http.StatusBadGateway, "Failed to retrieve wallet assets")
		return
	}

	recommendations, summary := strategy.Recommend(assets, pools, profile, ws.params, time.Now().UTC())

	// Snapshot persistence is best effort.
	if state.DB != nil {
		if _, err := state.SaveRecommendationSnapshot(wallet, profile, recommendations, summary); err != nil {
			webLogger.Warn().Err(err).Msg("Failed to persist recommendation snapshot")
		}
	}

	response := map[string]interface{}{
		"wallet":          wallet.Hex(),
		"profile":         profile,
		"recommendations": recommendations,
		"summary":         summary,
		"timestamp":       time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetFlow returns the state of one execution flow
func (ws *WebServer) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	f, ok := ws.registry.Get(vars["id"])
	if !ok {
		ws.writeErrorResponse(w, http.StatusNotFound, "Flow not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, f.Snapshot())
}

type executeRequest struct {
	Wallet string `json:"wallet"`
	Pool   string `json:"pool"`
	Action string `json:"action"` // "invest", "mint", or "redeem"
	Amount string `json:"amount"` // underlying units, decimal string
}

// handleExecute starts an execution flow and returns its ID. The flow runs
// on its own goroutine; progress is read via /api/flows/{id}.
func (ws *WebServer) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !common.IsHexAddress(req.Wallet) {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid wallet address")
		return
	}
	if !common.IsHexAddress(req.Pool) {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid pool address")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Amount must be a positive decimal")
		return
	}

	if req.Action != "invest" && req.Action != "mint" && req.Action != "redeem" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Action must be invest, mint, or redeem")
		return
	}

	pools, err := ws.markets.GetActivePools(r.Context())
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get active pools")
		ws.writeErrorResponse(w, http.StatusBadGateway, "Failed to retrieve pools")
		return
	}

	poolAddr := common.HexToAddress(req.Pool)
	var pool *types.Pool
	for i := range pools {
		if pools[i].Address == poolAddr {
			pool = &pools[i]
			break
		}
	}
	if pool == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Pool not found")
		return
	}

	f, err := ws.registry.Begin(common.HexToAddress(req.Wallet), *pool)
	if err != nil {
		if errors.Is(err, flow.ErrFlowInProgress) {
			ws.writeErrorResponse(w, http.StatusConflict, "A flow is already in progress for this wallet and pool")
			return
		}
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to start flow")
		return
	}

	action := req.Action
	go func() {
		ctx := context.Background()
		var runErr error
		switch action {
		case "invest":
			runErr = ws.controller.Invest(ctx, f, amount)
		case "mint":
			runErr = ws.controller.Mint(ctx, f, amount)
		case "redeem":
			runErr = ws.controller.Redeem(ctx, f, amount)
		}
		if runErr != nil {
			webLogger.Warn().
				Err(runErr).
				Str("flowID", f.ID).
				Str("action", action).
				Msg("Execution flow failed")
		}
	}()

	ws.writeJSONResponse(w, http.StatusAccepted, f.Snapshot())
}

// handleGetSettings returns per-pool settings for a wallet
func (ws *WebServer) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !common.IsHexAddress(vars["pool"]) {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid pool address")
		return
	}
	walletStr := r.URL.Query().Get("wallet")
	if !common.IsHexAddress(walletStr) {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid or missing wallet address")
		return
	}

	settings, err := state.GetPoolSettings(common.HexToAddress(walletStr), common.HexToAddress(vars["pool"]))
	if errors.Is(err, state.ErrSettingsNotFound) {
		ws.writeErrorResponse(w, http.StatusNotFound, "No settings for this wallet and pool")
		return
	}
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get pool settings")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Settings store unavailable")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, settings)
}

type settingsRequest struct {
	Wallet        string  `json:"wallet"`
	ProfitTakePct float64 `json:"profit_take_pct"`
	LossCutPct    float64 `json:"loss_cut_pct"`
}

// handlePutSettings upserts per-pool settings for a wallet
func (ws *WebServer) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !common.IsHexAddress(vars["pool"]) {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid pool address")
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !common.IsHexAddress(req.Wallet) {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid wallet address")
		return
	}
	if req.ProfitTakePct < 0 || req.LossCutPct < 0 {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Thresholds must be non-negative")
		return
	}

	settings := types.PoolSettings{
		PoolAddress:   common.HexToAddress(vars["pool"]),
		Wallet:        common.HexToAddress(req.Wallet),
		ProfitTakePct: req.ProfitTakePct,
		LossCutPct:    req.LossCutPct,
	}

	if err := state.SavePoolSettings(settings); err != nil {
		webLogger.Error().Err(err).Msg("Failed to save pool settings")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Settings store unavailable")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, settings)
}

// handleGetSnapshots returns recent recommendation snapshots for a wallet
func (ws *WebServer) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	walletStr := r.URL.Query().Get("wallet")
	if !common.IsHexAddress(walletStr) {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid or missing wallet address")
		return
	}

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	snapshots, err := state.GetRecentSnapshots(common.HexToAddress(walletStr), limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recommendation snapshots")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Snapshot store unavailable")
		return
	}

	response := map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
		"limit":     limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
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
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		webLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
