package datafetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/ethereum/go-ethereum/common"
	"github.com/yieldsplit/ysa/internal/config"
	"github.com/yieldsplit/ysa/internal/logger"
	"github.com/yieldsplit/ysa/internal/types"
)

var marketLogger = logger.GetForComponent("market_retriever")
var ErrInvalidMarketData = errors.New("invalid market data")
var ErrMarketAPIResponse = errors.New("market API response validation failed")

const (
	MARKETS_API_ROUTE = "/v1/markets/active"
	MARKETS_TIMEOUT   = 30 * time.Second

	activePoolsCacheKey = "active_pools"
)

// MarketClient fetches active pools from the market data API. Results are
// cached for config.MarketCacheTTL so repeated recommendation requests do
// not hammer the provider.
type MarketClient struct {
	baseURL string
	chainID int64
	http    *http.Client
	cache   *ristretto.Cache
}

func NewMarketClient(baseURL string, chainID int64) (*MarketClient, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create market cache: %w", err)
	}

	return &MarketClient{
		baseURL: baseURL,
		chainID: chainID,
		http:    &http.Client{Timeout: MARKETS_TIMEOUT},
		cache:   cache,
	}, nil
}

// GetActivePools returns the canonical pool set for the configured chain,
// served from cache when fresh.
func (c *MarketClient) GetActivePools(ctx context.Context) ([]types.Pool, error) {
	if cached, found := c.cache.Get(activePoolsCacheKey); found {
		if pools, ok := cached.([]types.Pool); ok {
			marketLogger.Debug().Int("pools", len(pools)).Msg("Serving active pools from cache")
			return pools, nil
		}
	}

	pools, err := c.fetchActivePools(ctx)
	if err != nil {
		return nil, err
	}

	c.cache.SetWithTTL(activePoolsCacheKey, pools, 1, config.MarketCacheTTL)
	c.cache.Wait()

	return pools, nil
}

// Invalidate drops the cached pool set. Used after execution flows complete
// so the next read reflects post-trade market state.
func (c *MarketClient) Invalidate() {
	c.cache.Del(activePoolsCacheKey)
}

func (c *MarketClient) fetchActivePools(ctx context.Context) ([]types.Pool, error) {
	url := fmt.Sprintf("%s%s?chainId=%d", c.baseURL, MARKETS_API_ROUTE, c.chainID)

	marketLogger.Debug().
		Str("url", url).
		Dur("timeout", MARKETS_TIMEOUT).
		Msg("Making API request for active pools")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build market data request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		marketLogger.Error().Err(err).Str("url", url).Msg("HTTP request failed for market data")
		return nil, fmt.Errorf("market data API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		marketLogger.Error().Int("statusCode", resp.StatusCode).Msg("Market API returned non-200 status")
		return nil, fmt.Errorf("%w: status %d", ErrMarketAPIResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read market data response: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty response body", ErrMarketAPIResponse)
	}

	var wires []poolWire
	if err := json.Unmarshal(body, &wires); err != nil {
		marketLogger.Error().Err(err).Int("bodyLength", len(body)).Msg("Failed to parse market data JSON")
		return nil, fmt.Errorf("failed to parse market data JSON: %w", err)
	}

	pools := make([]types.Pool, 0, len(wires))
	skipped := 0
	for i, w := range wires {
		pool, err := adaptPool(w, c.chainID)
		if err != nil {
			marketLogger.Warn().
				Err(err).
				Int("entryIndex", i).
				Msg("Skipping invalid pool entry")
			skipped++
			continue
		}
		pools = append(pools, pool)
	}

	if len(pools) == 0 {
		marketLogger.Error().
			Int("totalEntries", len(wires)).
			Int("skippedEntries", skipped).
			Msg("No valid pool entries found")
		return nil, fmt.Errorf("%w: no valid pool entries", ErrInvalidMarketData)
	}

	marketLogger.Info().
		Int("totalEntries", len(wires)).
		Int("validEntries", len(pools)).
		Int("skippedEntries", skipped).
		Msg("Retrieved active pools")

	return pools, nil
}

// poolWire accepts both provider shapes: the structured form with nested
// token objects and an RFC3339 maturity, and the older flat form with bare
// address fields and a unix expiry. A non-nil Underlying marks structured.
type poolWire struct {
	Address      string           `json:"address"`
	ChainID      int64            `json:"chain_id"`
	Underlying   *tokenWire       `json:"underlying"`
	PT           *tokenWire       `json:"pt"`
	YT           *tokenWire       `json:"yt"`
	SY           *tokenWire       `json:"sy"`
	Maturity     string           `json:"maturity"`
	TvlUSD       float64          `json:"tvl_usd"`
	APY          float64          `json:"apy"`
	APY7d        float64          `json:"apy_7d"`
	APY30d       float64          `json:"apy_30d"`
	ImpliedYield float64          `json:"implied_yield"`
	PTPrice      float64          `json:"pt_price"`
	YTPrice      float64          `json:"yt_price"`
	PriceHistory []pricePointWire `json:"price_history"`

	// legacy flat fields
	Market             string  `json:"market"`
	UnderlyingSymbol   string  `json:"underlying_symbol"`
	UnderlyingAddress  string  `json:"underlying_address"`
	UnderlyingDecimals int     `json:"underlying_decimals"`
	PTAddress          string  `json:"pt_address"`
	YTAddress          string  `json:"yt_address"`
	SYAddress          string  `json:"sy_address"`
	Expiry             int64   `json:"expiry"`
	Liquidity          float64 `json:"liquidity"`
	UnderlyingAPY      float64 `json:"underlying_apy"`
}

type tokenWire struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

type pricePointWire struct {
	Timestamp int64   `json:"timestamp"` // unix seconds
	Price     float64 `json:"price"`
}

// adaptPool folds either wire shape into the canonical Pool. Entries with
// malformed addresses or a missing maturity are rejected, not patched.
func adaptPool(w poolWire, defaultChainID int64) (types.Pool, error) {
	if w.Underlying != nil {
		return adaptStructuredPool(w, defaultChainID)
	}
	return adaptLegacyPool(w, defaultChainID)
}

func adaptStructuredPool(w poolWire, defaultChainID int64) (types.Pool, error) {
	if !common.IsHexAddress(w.Address) {
		return types.Pool{}, fmt.Errorf("%w: bad pool address %q", ErrInvalidMarketData, w.Address)
	}
	if w.PT == nil || w.YT == nil || w.SY == nil {
		return types.Pool{}, fmt.Errorf("%w: structured pool %s is missing token objects", ErrInvalidMarketData, w.Address)
	}

	maturity, err := time.Parse(time.RFC3339, w.Maturity)
	if err != nil {
		return types.Pool{}, fmt.Errorf("%w: bad maturity %q: %v", ErrInvalidMarketData, w.Maturity, err)
	}

	underlying, err := adaptToken(*w.Underlying)
	if err != nil {
		return types.Pool{}, err
	}
	pt, err := adaptToken(*w.PT)
	if err != nil {
		return types.Pool{}, err
	}
	yt, err := adaptToken(*w.YT)
	if err != nil {
		return types.Pool{}, err
	}
	sy, err := adaptToken(*w.SY)
	if err != nil {
		return types.Pool{}, err
	}

	chainID := w.ChainID
	if chainID == 0 {
		chainID = defaultChainID
	}

	pool := types.Pool{
		Address:      common.HexToAddress(w.Address),
		ChainID:      chainID,
		Underlying:   underlying,
		PT:           pt,
		YT:           yt,
		SY:           sy,
		Maturity:     maturity,
		TvlUSD:       w.TvlUSD,
		APY:          w.APY,
		APY7d:        w.APY7d,
		APY30d:       w.APY30d,
		ImpliedYield: w.ImpliedYield,
		PTPrice:      w.PTPrice,
		YTPrice:      w.YTPrice,
		PriceHistory: adaptPriceHistory(w.PriceHistory),
	}
	return pool, validateAdaptedPool(pool)
}

func adaptLegacyPool(w poolWire, defaultChainID int64) (types.Pool, error) {
	if !common.IsHexAddress(w.Market) {
		return types.Pool{}, fmt.Errorf("%w: bad legacy market address %q", ErrInvalidMarketData, w.Market)
	}
	for _, addr := range []string{w.UnderlyingAddress, w.PTAddress, w.YTAddress, w.SYAddress} {
		if !common.IsHexAddress(addr) {
			return types.Pool{}, fmt.Errorf("%w: bad legacy token address %q for market %s", ErrInvalidMarketData, addr, w.Market)
		}
	}
	if w.Expiry <= 0 {
		return types.Pool{}, fmt.Errorf("%w: legacy market %s has no expiry", ErrInvalidMarketData, w.Market)
	}

	decimals := w.UnderlyingDecimals
	if decimals == 0 {
		decimals = 18
	}

	chainID := w.ChainID
	if chainID == 0 {
		chainID = defaultChainID
	}

	symbol := w.UnderlyingSymbol
	underlying := types.Token{Address: common.HexToAddress(w.UnderlyingAddress), Symbol: symbol, Decimals: decimals}

	pool := types.Pool{
		Address:      common.HexToAddress(w.Market),
		ChainID:      chainID,
		Underlying:   underlying,
		PT:           types.Token{Address: common.HexToAddress(w.PTAddress), Symbol: "PT-" + symbol, Decimals: decimals},
		YT:           types.Token{Address: common.HexToAddress(w.YTAddress), Symbol: "YT-" + symbol, Decimals: decimals},
		SY:           types.Token{Address: common.HexToAddress(w.SYAddress), Symbol: "SY-" + symbol, Decimals: decimals},
		Maturity:     time.Unix(w.Expiry, 0).UTC(),
		TvlUSD:       w.Liquidity,
		APY:          w.UnderlyingAPY,
		APY7d:        w.APY7d,
		APY30d:       w.APY30d,
		ImpliedYield: w.ImpliedYield,
		PTPrice:      w.PTPrice,
		YTPrice:      w.YTPrice,
		PriceHistory: adaptPriceHistory(w.PriceHistory),
	}
	return pool, validateAdaptedPool(pool)
}

func adaptToken(w tokenWire) (types.Token, error) {
	if !common.IsHexAddress(w.Address) {
		return types.Token{}, fmt.Errorf("%w: bad token address %q", ErrInvalidMarketData, w.Address)
	}
	if w.Symbol == "" {
		return types.Token{}, fmt.Errorf("%w: token %s has no symbol", ErrInvalidMarketData, w.Address)
	}
	decimals := w.Decimals
	if decimals == 0 {
		decimals = 18
	}
	return types.Token{Address: common.HexToAddress(w.Address), Symbol: w.Symbol, Decimals: decimals}, nil
}

func adaptPriceHistory(wire []pricePointWire) []types.PricePoint {
	if len(wire) == 0 {
		return nil
	}
	history := make([]types.PricePoint, 0, len(wire))
	for _, p := range wire {
		if p.Timestamp <= 0 || p.Price <= 0 {
			continue
		}
		history = append(history, types.PricePoint{Timestamp: time.Unix(p.Timestamp, 0).UTC(), Price: p.Price})
	}
	return history
}

func validateAdaptedPool(pool types.Pool) error {
	if pool.Underlying.Symbol == "" {
		return fmt.Errorf("%w: pool %s has no underlying symbol", ErrInvalidMarketData, pool.Address.Hex())
	}
	if pool.Maturity.IsZero() {
		return fmt.Errorf("%w: pool %s has no maturity", ErrInvalidMarketData, pool.Address.Hex())
	}
	if pool.PTPrice < 0 || pool.PTPrice > 1 {
		return fmt.Errorf("%w: pool %s pt_price out of range: %f", ErrInvalidMarketData, pool.Address.Hex(), pool.PTPrice)
	}
	return nil
}
