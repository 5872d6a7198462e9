package strategy

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yieldsplit/ysa/internal/config"
	"github.com/yieldsplit/ysa/internal/types"
)

var testNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func testPool(symbol string, ptPrice, apy, apy7d, apy30d, impliedYield, tvl float64, daysToMaturity int) types.Pool {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000" + symbolSuffix(symbol))
	return types.Pool{
		Address:      addr,
		ChainID:      1,
		Underlying:   types.Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000011"), Symbol: symbol, Decimals: 18},
		PT:           types.Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000012"), Symbol: "PT-" + symbol, Decimals: 18},
		YT:           types.Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000013"), Symbol: "YT-" + symbol, Decimals: 18},
		SY:           types.Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000014"), Symbol: "SY-" + symbol, Decimals: 18},
		Maturity:     testNow.AddDate(0, 0, daysToMaturity),
		TvlUSD:       tvl,
		APY:          apy,
		APY7d:        apy7d,
		APY30d:       apy30d,
		ImpliedYield: impliedYield,
		PTPrice:      ptPrice,
		YTPrice:      1 - ptPrice,
	}
}

// symbolSuffix keeps pool addresses distinct per symbol in fixtures.
func symbolSuffix(symbol string) string {
	sum := 0
	for _, r := range symbol {
		sum += int(r)
	}
	return []string{"a0", "b1", "c2", "d3", "e4", "f5", "a6", "b7", "c8", "d9"}[sum%10]
}

func TestSuggestRejectsExpiredPool(t *testing.T) {
	pool := testPool("sUSDe", 0.98, 0.08, 0.08, 0.08, 0.10, 5_000_000, -1)
	_, err := Suggest(pool, types.RiskModerate, config.DefaultScoringParameters, testNow)
	assert.ErrorIs(t, err, ErrPoolExpired)
}

func TestSuggestRejectsInvalidPool(t *testing.T) {
	t.Run("zero address", func(t *testing.T) {
		pool := testPool("sUSDe", 0.98, 0.08, 0.08, 0.08, 0.10, 5_000_000, 90)
		pool.Address = common.Address{}
		_, err := Suggest(pool, types.RiskModerate, config.DefaultScoringParameters, testNow)
		assert.ErrorIs(t, err, ErrInvalidPoolData)
	})

	t.Run("empty symbol", func(t *testing.T) {
		pool := testPool("sUSDe", 0.98, 0.08, 0.08, 0.08, 0.10, 5_000_000, 90)
		pool.Underlying.Symbol = ""
		_, err := Suggest(pool, types.RiskModerate, config.DefaultScoringParameters, testNow)
		assert.ErrorIs(t, err, ErrInvalidPoolData)
	})
}

func TestSuggestAllocationSumsTo100(t *testing.T) {
	pools := []types.Pool{
		testPool("sUSDe", 0.98, 0.08, 0.0816, 0.08, 0.10, 5_000_000, 90),
		testPool("weETH", 0.95, 0.04, 0.06, 0.04, 0.07, 20_000_000, 150),
		testPool("USDe", 0.999, 0.12, 0.18, 0.12, 0.05, 1_000_000, 30),
	}
	for _, pool := range pools {
		for _, profile := range []types.RiskProfile{types.RiskConservative, types.RiskModerate, types.RiskAggressive} {
			suggestion, err := Suggest(pool, profile, config.DefaultScoringParameters, testNow)
			require.NoError(t, err)
			assert.Equal(t, 100, suggestion.Allocation.PT+suggestion.Allocation.YT)
			assert.GreaterOrEqual(t, suggestion.Allocation.PT, 0)
			assert.GreaterOrEqual(t, suggestion.Allocation.YT, 0)
		}
	}
}

func TestSuggestClassification(t *testing.T) {
	params := config.DefaultScoringParameters

	t.Run("flat trend collapses to PT", func(t *testing.T) {
		pool := testPool("sUSDe", 0.95, 0.08, 0.08, 0.08, 0.10, 5_000_000, 90)
		suggestion, err := Suggest(pool, types.RiskModerate, params, testNow)
		require.NoError(t, err)
		assert.Equal(t, types.StrategyPT, suggestion.Type)
		assert.Equal(t, 100, suggestion.Allocation.PT)
	})

	t.Run("pure trend collapses to YT", func(t *testing.T) {
		// PT at par carries no discount signal.
		pool := testPool("USDe", 1.0, 0.30, 0.33, 0.30, 0.02, 5_000_000, 90)
		suggestion, err := Suggest(pool, types.RiskModerate, params, testNow)
		require.NoError(t, err)
		assert.Equal(t, types.StrategyYT, suggestion.Type)
		assert.Equal(t, 100, suggestion.Allocation.YT)
	})

	t.Run("mixed signals split", func(t *testing.T) {
		pool := testPool("weETH", 0.98, 0.08, 0.0816, 0.08, 0.10, 5_000_000, 90)
		suggestion, err := Suggest(pool, types.RiskModerate, params, testNow)
		require.NoError(t, err)
		assert.Equal(t, types.StrategySplit, suggestion.Type)
		assert.GreaterOrEqual(t, suggestion.Allocation.PT, params.SplitThresholdPct)
		assert.GreaterOrEqual(t, suggestion.Allocation.YT, params.SplitThresholdPct)
	})
}

func TestSuggestConfidenceAndExpectedAPY(t *testing.T) {
	pool := testPool("sUSDe", 0.98, 0.08, 0.0816, 0.08, 0.10, 5_000_000, 90)
	suggestion, err := Suggest(pool, types.RiskModerate, config.DefaultScoringParameters, testNow)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, suggestion.Confidence, 0.0)
	assert.LessOrEqual(t, suggestion.Confidence, 100.0)

	// Expected APY is a convex blend of the two yields.
	assert.GreaterOrEqual(t, suggestion.ExpectedAPY, min(pool.APY, pool.ImpliedYield)-1e-9)
	assert.LessOrEqual(t, suggestion.ExpectedAPY, max(pool.APY, pool.ImpliedYield)+1e-9)

	assert.NotEmpty(t, suggestion.Reasoning)
	assert.NotEmpty(t, suggestion.ActionItems)
	assert.Equal(t, types.RiskModerate, suggestion.RiskLevel)
}

func TestSuggestUsesPriceHistoryWhenPresent(t *testing.T) {
	quiet := testPool("sUSDe", 0.98, 0.08, 0.0816, 0.08, 0.10, 5_000_000, 90)
	volatile := quiet
	for i := 0; i < 30; i++ {
		price := 1.0
		if i%2 == 1 {
			price = 0.80 // repeated 20% swings
		}
		volatile.PriceHistory = append(volatile.PriceHistory, types.PricePoint{
			Timestamp: testNow.AddDate(0, 0, -30+i),
			Price:     price,
		})
	}

	quietSuggestion, err := Suggest(quiet, types.RiskModerate, config.DefaultScoringParameters, testNow)
	require.NoError(t, err)
	volatileSuggestion, err := Suggest(volatile, types.RiskModerate, config.DefaultScoringParameters, testNow)
	require.NoError(t, err)

	// History-derived risk pushes the volatile pool further toward PT.
	assert.GreaterOrEqual(t, volatileSuggestion.Allocation.PT, quietSuggestion.Allocation.PT)
}
