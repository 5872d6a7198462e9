package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/yieldsplit/ysa/internal/types"
)

// Application configuration loaded from environment variables. Populated
// at startup by LoadConfig.
var (
	// ChainID is the EVM chain the advisor targets.
	ChainID int64

	// RouterAddress is the conversion router allowances are granted to.
	RouterAddress common.Address

	// Bridge asset used by the invest conversion path when the wallet does
	// not hold the underlying. Usually a stablecoin.
	BridgeAddress  common.Address
	BridgeSymbol   string
	BridgeDecimals int64

	// SettleDelayOverride and RefreshDelayOverride, when set, replace the
	// defaults in DefaultFlowParameters. Zero means "use default".
	SettleDelayOverride  time.Duration
	RefreshDelayOverride time.Duration
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars. Endpoint variables are required; flow overrides are
// optional.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	ChainID, err = getEnvAsInt64("CHAIN_ID")
	if err != nil {
		return err
	}

	routerStr, err := getEnv("ROUTER_ADDRESS")
	if err != nil {
		return err
	}
	if !common.IsHexAddress(routerStr) {
		return errors.New("environment variable ROUTER_ADDRESS is not a valid hex address: " + routerStr)
	}
	RouterAddress = common.HexToAddress(routerStr)

	bridgeStr, err := getEnv("BRIDGE_ADDRESS")
	if err != nil {
		return err
	}
	if !common.IsHexAddress(bridgeStr) {
		return errors.New("environment variable BRIDGE_ADDRESS is not a valid hex address: " + bridgeStr)
	}
	BridgeAddress = common.HexToAddress(bridgeStr)

	BridgeSymbol = getEnvOrDefault("BRIDGE_SYMBOL", "USDC")
	BridgeDecimals, err = getEnvAsInt64OrDefault("BRIDGE_DECIMALS", 6)
	if err != nil {
		return err
	}

	if err := loadEndpointConfig(); err != nil {
		return err
	}

	SettleDelayOverride = getEnvAsDurationOptional("FLOW_SETTLE_DELAY")
	RefreshDelayOverride = getEnvAsDurationOptional("FLOW_REFRESH_DELAY")

	log.Debug().
		Int64("ChainID", ChainID).
		Str("RouterAddress", RouterAddress.Hex()).
		Msg("Configuration loaded successfully.")

	return nil
}

// FlowParameters returns the default flow parameters with any env
// overrides applied.
func FlowParameters() types.FlowParameters {
	params := DefaultFlowParameters
	if SettleDelayOverride > 0 {
		params.SettleDelay = SettleDelayOverride
	}
	if RefreshDelayOverride > 0 {
		params.RefreshDelay = RefreshDelayOverride
	}
	return params
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// BridgeToken returns the configured bridge asset as a token.
func BridgeToken() types.Token {
	return types.Token{
		Address:  BridgeAddress,
		Symbol:   BridgeSymbol,
		Decimals: int(BridgeDecimals),
	}
}

// getEnvOrDefault retrieves a string environment variable with a fallback.
func getEnvOrDefault(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsInt64OrDefault retrieves an optional int64 environment variable.
func getEnvAsInt64OrDefault(key string, fallback int64) (int64, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt64 retrieves an environment variable as an int64. Returns
// error if not set or invalid.
func getEnvAsInt64(key string) (int64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsDurationOptional retrieves an optional duration variable.
// Returns zero when unset or unparseable (logged).
func getEnvAsDurationOptional(key string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return 0
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Msg("Ignoring unparseable duration override")
		return 0
	}
	return value
}
