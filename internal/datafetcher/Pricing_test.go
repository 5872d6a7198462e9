package datafetcher

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMintDecodesPayloadAndApprovals(t *testing.T) {
	market := common.HexToAddress("0x0000000000000000000000000000000000001001")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, MINT_API_ROUTE, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "1000000000000000000000", req["amount"])

		w.Write([]byte(`{
			"tx": {
				"chain_id": 1,
				"to": "0x0000000000000000000000000000000000001001",
				"data": "0xdeadbeef",
				"value": "0",
				"gas": 400000
			},
			"required_approvals": [
				{
					"token": "0x0000000000000000000000000000000000000011",
					"spender": "0x00000000000000000000000000000000000000bb",
					"amount": "1000000000000000000000"
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewPricingClient(server.URL)
	prepared, err := client.BuildMint(context.Background(), MintRequest{
		ChainID:   1,
		Market:    market,
		Receiver:  common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		AmountRaw: mustParseBig(t, "1000000000000000000000"),
	})
	require.NoError(t, err)

	assert.Equal(t, market, prepared.Tx.To)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, prepared.Tx.Data)
	assert.Equal(t, uint64(400000), prepared.Tx.Gas)
	require.Len(t, prepared.RequiredApprovals, 1)
	assert.Equal(t, "1000000000000000000000", prepared.RequiredApprovals[0].Amount.String())
}

func TestBuildSwapRejectsMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad target", `{"tx": {"to": "nope", "data": "0x01"}}`},
		{"empty calldata", `{"tx": {"to": "0x0000000000000000000000000000000000001001", "data": "0x"}}`},
		{"bad approval amount", `{
			"tx": {"to": "0x0000000000000000000000000000000000001001", "data": "0x01"},
			"required_approvals": [{"token": "0x0000000000000000000000000000000000000011", "spender": "0x00000000000000000000000000000000000000bb", "amount": "xyz"}]
		}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewPricingClient(server.URL)
			_, err := client.BuildSwap(context.Background(), SwapRequest{AmountRaw: big.NewInt(1)})
			assert.ErrorIs(t, err, ErrInvalidPricingData)
		})
	}
}

func TestBuildRedeemNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewPricingClient(server.URL)
	_, err := client.BuildRedeem(context.Background(), RedeemRequest{AmountRaw: big.NewInt(1)})
	assert.ErrorIs(t, err, ErrInvalidPricingData)
}

func mustParseBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	return v
}
