package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/yieldsplit/ysa/internal/chain"
	"github.com/yieldsplit/ysa/internal/config"
	"github.com/yieldsplit/ysa/internal/datafetcher"
	"github.com/yieldsplit/ysa/internal/flow"
	"github.com/yieldsplit/ysa/internal/logger"
	"github.com/yieldsplit/ysa/internal/state"
	"github.com/yieldsplit/ysa/internal/web"
)

// main is the entry point for the YSA service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("YSA Yield-Split Advisor Starting...")

	// Initialize the preference store. Best effort: recommendations and
	// execution work without it, settings and snapshots do not.
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Warn().Err(err).Msg("Preference store unavailable, continuing without persistence")
	} else {
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
	}

	// --- 2. Collaborator Clients ---
	dialCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	chainClient, err := chain.Dial(dialCtx, config.NodeRPC)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to chain node")
	}
	defer chainClient.Close()

	markets, err := datafetcher.NewMarketClient(config.MarketAPI, config.ChainID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create market client")
	}
	portfolio := datafetcher.NewPortfolioClient(config.PortfolioAPI)
	pricing := datafetcher.NewPricingClient(config.PricingAPI)

	// --- 3. Flow Controller ---
	registry := flow.NewRegistry()
	events := marketRefreshEvents{markets: markets}
	controller := flow.NewController(
		chainClient,
		pricing,
		config.FlowParameters(),
		events,
		config.ChainID,
		config.RouterAddress,
		config.BridgeToken(),
	)

	// --- 4. Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, markets, portfolio, controller, registry, config.DefaultScoringParameters)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting YSA API server")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Wait for Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutdown signal received, exiting")
}

// marketRefreshEvents invalidates the market cache when a flow finishes so
// the delayed refresh re-reads post-trade state.
type marketRefreshEvents struct {
	flow.NopEvents
	markets *datafetcher.MarketClient
}

func (e marketRefreshEvents) RefreshRequested(flowID string) {
	log.Debug().Str("flowID", flowID).Msg("Refreshing market data after flow completion")
	e.markets.Invalidate()
}

func mustAtoi(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
