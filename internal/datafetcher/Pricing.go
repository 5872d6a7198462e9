package datafetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/yieldsplit/ysa/internal/logger"
	"github.com/yieldsplit/ysa/internal/types"
)

var pricingLogger = logger.GetForComponent("pricing_client")
var ErrInvalidPricingData = errors.New("invalid pricing response")

const (
	MINT_API_ROUTE   = "/v1/sdk/mint"
	REDEEM_API_ROUTE = "/v1/sdk/redeem"
	SWAP_API_ROUTE   = "/v1/sdk/swap"
	PRICING_TIMEOUT  = 30 * time.Second
)

// PricingClient asks the pricing service to build transaction payloads.
// Stateless per call: every build carries the full request and the returned
// payload goes to the chain client unchanged.
type PricingClient struct {
	baseURL string
	http    *http.Client
}

func NewPricingClient(baseURL string) *PricingClient {
	return &PricingClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: PRICING_TIMEOUT},
	}
}

// MintRequest asks for a PT/YT mint of the given underlying amount.
type MintRequest struct {
	ChainID   int64          `json:"chain_id"`
	Market    common.Address `json:"market"`
	Receiver  common.Address `json:"receiver"`
	AmountRaw *big.Int       `json:"-"`
}

// RedeemRequest asks for a redemption back to underlying. UseSY selects the
// wrapped-token path instead of the PT+YT pair.
type RedeemRequest struct {
	ChainID   int64          `json:"chain_id"`
	Market    common.Address `json:"market"`
	Receiver  common.Address `json:"receiver"`
	AmountRaw *big.Int       `json:"-"`
	UseSY     bool           `json:"use_sy"`
}

// SwapRequest asks for a token-for-token conversion through the router.
type SwapRequest struct {
	ChainID   int64          `json:"chain_id"`
	TokenIn   common.Address `json:"token_in"`
	TokenOut  common.Address `json:"token_out"`
	Receiver  common.Address `json:"receiver"`
	AmountRaw *big.Int       `json:"-"`
}

func (c *PricingClient) BuildMint(ctx context.Context, req MintRequest) (types.PreparedTransaction, error) {
	return c.build(ctx, MINT_API_ROUTE, struct {
		MintRequest
		Amount string `json:"amount"`
	}{req, rawAmountString(req.AmountRaw)})
}

func (c *PricingClient) BuildRedeem(ctx context.Context, req RedeemRequest) (types.PreparedTransaction, error) {
	return c.build(ctx, REDEEM_API_ROUTE, struct {
		RedeemRequest
		Amount string `json:"amount"`
	}{req, rawAmountString(req.AmountRaw)})
}

func (c *PricingClient) BuildSwap(ctx context.Context, req SwapRequest) (types.PreparedTransaction, error) {
	return c.build(ctx, SWAP_API_ROUTE, struct {
		SwapRequest
		Amount string `json:"amount"`
	}{req, rawAmountString(req.AmountRaw)})
}

type preparedWire struct {
	Tx                txWire         `json:"tx"`
	RequiredApprovals []approvalWire `json:"required_approvals"`
}

type txWire struct {
	ChainID int64  `json:"chain_id"`
	To      string `json:"to"`
	Data    string `json:"data"`  // 0x-prefixed hex
	Value   string `json:"value"` // base-10 string, optional
	Gas     uint64 `json:"gas"`
}

type approvalWire struct {
	Token   string `json:"token"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

func (c *PricingClient) build(ctx context.Context, route string, payload any) (types.PreparedTransaction, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return types.PreparedTransaction{}, fmt.Errorf("failed to encode pricing request: %w", err)
	}

	url := c.baseURL + route
	pricingLogger.Debug().Str("url", url).Int("bodyLength", len(body)).Msg("Requesting transaction payload")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return types.PreparedTransaction{}, fmt.Errorf("failed to build pricing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		pricingLogger.Error().Err(err).Str("url", url).Msg("Pricing API request failed")
		return types.PreparedTransaction{}, fmt.Errorf("pricing API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.PreparedTransaction{}, fmt.Errorf("failed to read pricing response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		pricingLogger.Error().
			Int("statusCode", resp.StatusCode).
			Str("route", route).
			Msg("Pricing API returned non-200 status")
		return types.PreparedTransaction{}, fmt.Errorf("%w: status %d", ErrInvalidPricingData, resp.StatusCode)
	}

	var wire preparedWire
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return types.PreparedTransaction{}, fmt.Errorf("failed to parse pricing JSON: %w", err)
	}

	prepared, err := adaptPrepared(wire)
	if err != nil {
		return types.PreparedTransaction{}, err
	}

	pricingLogger.Debug().
		Str("route", route).
		Str("to", prepared.Tx.To.Hex()).
		Int("approvals", len(prepared.RequiredApprovals)).
		Msg("Transaction payload built")

	return prepared, nil
}

func adaptPrepared(wire preparedWire) (types.PreparedTransaction, error) {
	if !common.IsHexAddress(wire.Tx.To) {
		return types.PreparedTransaction{}, fmt.Errorf("%w: bad target address %q", ErrInvalidPricingData, wire.Tx.To)
	}

	data, err := hexutil.Decode(wire.Tx.Data)
	if err != nil {
		return types.PreparedTransaction{}, fmt.Errorf("%w: bad calldata: %v", ErrInvalidPricingData, err)
	}
	if len(data) == 0 {
		return types.PreparedTransaction{}, fmt.Errorf("%w: empty calldata", ErrInvalidPricingData)
	}

	var value *big.Int
	if wire.Tx.Value != "" {
		v, ok := new(big.Int).SetString(wire.Tx.Value, 10)
		if !ok {
			return types.PreparedTransaction{}, fmt.Errorf("%w: bad value %q", ErrInvalidPricingData, wire.Tx.Value)
		}
		value = v
	}

	prepared := types.PreparedTransaction{
		Tx: types.PendingTransaction{
			ChainID: wire.Tx.ChainID,
			To:      common.HexToAddress(wire.Tx.To),
			Data:    data,
			Value:   value,
			Gas:     wire.Tx.Gas,
		},
	}

	for _, a := range wire.RequiredApprovals {
		if !common.IsHexAddress(a.Token) || !common.IsHexAddress(a.Spender) {
			return types.PreparedTransaction{}, fmt.Errorf("%w: bad approval addresses token=%q spender=%q", ErrInvalidPricingData, a.Token, a.Spender)
		}
		amount, ok := new(big.Int).SetString(a.Amount, 10)
		if !ok {
			return types.PreparedTransaction{}, fmt.Errorf("%w: bad approval amount %q", ErrInvalidPricingData, a.Amount)
		}
		prepared.RequiredApprovals = append(prepared.RequiredApprovals, types.RequiredApproval{
			Token:   common.HexToAddress(a.Token),
			Spender: common.HexToAddress(a.Spender),
			Amount:  amount,
		})
	}

	return prepared, nil
}

func rawAmountString(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
