package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables. Populated at
// startup by LoadConfig.
var (
	// MarketAPI serves active pool data for a chain.
	MarketAPI string
	// PortfolioAPI serves wallet balances and positions.
	PortfolioAPI string
	// PricingAPI builds mint/redeem/swap transaction payloads.
	PricingAPI string
	// NodeRPC is the JSON-RPC endpoint of the chain node.
	NodeRPC string
)

// loadEndpointConfig loads endpoint configuration from environment
// variables. Called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	MarketAPI, err = getEnv("MARKET_API")
	if err != nil {
		return err
	}

	PortfolioAPI, err = getEnv("PORTFOLIO_API")
	if err != nil {
		return err
	}

	PricingAPI, err = getEnv("PRICING_API")
	if err != nil {
		return err
	}

	NodeRPC, err = getEnv("NODE_RPC")
	if err != nil {
		return err
	}

	log.Debug().
		Str("MarketAPI", MarketAPI).
		Str("PortfolioAPI", PortfolioAPI).
		Str("PricingAPI", PricingAPI).
		Str("NodeRPC", NodeRPC).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
