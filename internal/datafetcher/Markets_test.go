package datafetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marketsBody = `[
	{
		"address": "0x0000000000000000000000000000000000001001",
		"chain_id": 1,
		"underlying": {"address": "0x0000000000000000000000000000000000000011", "symbol": "sUSDe", "decimals": 18},
		"pt": {"address": "0x0000000000000000000000000000000000000012", "symbol": "PT-sUSDe", "decimals": 18},
		"yt": {"address": "0x0000000000000000000000000000000000000013", "symbol": "YT-sUSDe", "decimals": 18},
		"sy": {"address": "0x0000000000000000000000000000000000000014", "symbol": "SY-sUSDe", "decimals": 18},
		"maturity": "2026-12-30T00:00:00Z",
		"tvl_usd": 5000000,
		"apy": 0.08,
		"apy_7d": 0.0816,
		"apy_30d": 0.08,
		"implied_yield": 0.10,
		"pt_price": 0.98,
		"yt_price": 0.02
	},
	{
		"market": "0x0000000000000000000000000000000000002001",
		"underlying_symbol": "weETH",
		"underlying_address": "0x0000000000000000000000000000000000000021",
		"pt_address": "0x0000000000000000000000000000000000000022",
		"yt_address": "0x0000000000000000000000000000000000000023",
		"sy_address": "0x0000000000000000000000000000000000000024",
		"expiry": 1782864000,
		"liquidity": 20000000,
		"underlying_apy": 0.04,
		"apy_7d": 0.05,
		"apy_30d": 0.04,
		"implied_yield": 0.06,
		"pt_price": 0.95,
		"yt_price": 0.05
	},
	{
		"market": "not-an-address",
		"expiry": 1782864000
	}
]`

func TestGetActivePoolsAdaptsBothWireShapes(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, MARKETS_API_ROUTE, r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("chainId"))
		w.Write([]byte(marketsBody))
	}))
	defer server.Close()

	client, err := NewMarketClient(server.URL, 1)
	require.NoError(t, err)

	pools, err := client.GetActivePools(context.Background())
	require.NoError(t, err)
	// The malformed third entry is skipped, not fatal.
	require.Len(t, pools, 2)

	structured := pools[0]
	assert.Equal(t, common.HexToAddress("0x0000000000000000000000000000000000001001"), structured.Address)
	assert.Equal(t, "sUSDe", structured.Underlying.Symbol)
	assert.Equal(t, 18, structured.Underlying.Decimals)
	assert.Equal(t, time.Date(2026, 12, 30, 0, 0, 0, 0, time.UTC), structured.Maturity)
	assert.InDelta(t, 0.02, structured.PTDiscount(), 1e-9)

	legacy := pools[1]
	assert.Equal(t, common.HexToAddress("0x0000000000000000000000000000000000002001"), legacy.Address)
	assert.Equal(t, "weETH", legacy.Underlying.Symbol)
	assert.Equal(t, "PT-weETH", legacy.PT.Symbol)
	assert.Equal(t, int64(1), legacy.ChainID) // default chain applied
	assert.Equal(t, time.Unix(1782864000, 0).UTC(), legacy.Maturity)
	assert.Equal(t, 20_000_000.0, legacy.TvlUSD)
	assert.Equal(t, 0.04, legacy.APY)

	assert.Equal(t, int32(1), requests.Load())
}

func TestGetActivePoolsServesFromCache(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(marketsBody))
	}))
	defer server.Close()

	client, err := NewMarketClient(server.URL, 1)
	require.NoError(t, err)

	_, err = client.GetActivePools(context.Background())
	require.NoError(t, err)
	_, err = client.GetActivePools(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), requests.Load())

	client.Invalidate()
	_, err = client.GetActivePools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load())
}

func TestGetActivePoolsRejectsAllInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"market": "bogus", "expiry": 0}]`))
	}))
	defer server.Close()

	client, err := NewMarketClient(server.URL, 1)
	require.NoError(t, err)

	_, err = client.GetActivePools(context.Background())
	assert.ErrorIs(t, err, ErrInvalidMarketData)
}

func TestGetActivePoolsNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewMarketClient(server.URL, 1)
	require.NoError(t, err)

	_, err = client.GetActivePools(context.Background())
	assert.ErrorIs(t, err, ErrMarketAPIResponse)
}

func TestAdaptPoolValidation(t *testing.T) {
	t.Run("structured missing tokens", func(t *testing.T) {
		w := poolWire{
			Address:    "0x0000000000000000000000000000000000001001",
			Underlying: &tokenWire{Address: "0x0000000000000000000000000000000000000011", Symbol: "sUSDe"},
			Maturity:   "2026-12-30T00:00:00Z",
		}
		_, err := adaptPool(w, 1)
		assert.ErrorIs(t, err, ErrInvalidMarketData)
	})

	t.Run("out of range pt price", func(t *testing.T) {
		w := poolWire{
			Market:            "0x0000000000000000000000000000000000002001",
			UnderlyingSymbol:  "weETH",
			UnderlyingAddress: "0x0000000000000000000000000000000000000021",
			PTAddress:         "0x0000000000000000000000000000000000000022",
			YTAddress:         "0x0000000000000000000000000000000000000023",
			SYAddress:         "0x0000000000000000000000000000000000000024",
			Expiry:            1782864000,
			PTPrice:           1.5,
		}
		_, err := adaptPool(w, 1)
		assert.ErrorIs(t, err, ErrInvalidMarketData)
	})

	t.Run("price history filters bad points", func(t *testing.T) {
		history := adaptPriceHistory([]pricePointWire{
			{Timestamp: 1750000000, Price: 1.0},
			{Timestamp: 0, Price: 1.0},
			{Timestamp: 1750086400, Price: -5},
			{Timestamp: 1750172800, Price: 1.02},
		})
		assert.Len(t, history, 2)
	})
}
