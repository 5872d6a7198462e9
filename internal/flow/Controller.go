/*

Transaction flow controller. Drives the invest, mint, and redeem state
machines: every on-chain step is submit then wait-for-receipt, steps are
strictly sequential, and any failure resets the flow to idle with the
failed step surfaced. There is no automatic retry.

*/

package flow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/yieldsplit/ysa/internal/chain"
	"github.com/yieldsplit/ysa/internal/datafetcher"
	"github.com/yieldsplit/ysa/internal/logger"
	"github.com/yieldsplit/ysa/internal/types"
	"github.com/yieldsplit/ysa/internal/utils"
)

var flowLogger = logger.GetForComponent("flow_controller")

var (
	ErrInsufficientBalance = errors.New("insufficient balance for requested amount")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidTokenAddress = errors.New("pool has an invalid token address")
	ErrTransactionReverted = errors.New("transaction reverted on chain")
	ErrNoPreparedPayload   = errors.New("no prepared payload stored for flow")
)

// ChainClient is the chain surface the controller needs. Satisfied by
// chain.Client; tests substitute doubles.
type ChainClient interface {
	SubmitTransaction(ctx context.Context, from common.Address, tx types.PendingTransaction) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash, pollInterval, timeout time.Duration) (types.TxReceipt, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// PricingClient builds transaction payloads. Satisfied by
// datafetcher.PricingClient.
type PricingClient interface {
	BuildMint(ctx context.Context, req datafetcher.MintRequest) (types.PreparedTransaction, error)
	BuildRedeem(ctx context.Context, req datafetcher.RedeemRequest) (types.PreparedTransaction, error)
	BuildSwap(ctx context.Context, req datafetcher.SwapRequest) (types.PreparedTransaction, error)
}

// Controller executes flows against one chain. Bridge is the stablecoin
// used for the conversion path when the wallet lacks the underlying.
type Controller struct {
	chain   ChainClient
	pricing PricingClient
	params  types.FlowParameters
	events  Events
	chainID int64
	router  common.Address
	bridge  types.Token
}

func NewController(chainClient ChainClient, pricing PricingClient, params types.FlowParameters, events Events, chainID int64, router common.Address, bridge types.Token) *Controller {
	if events == nil {
		events = NopEvents{}
	}
	return &Controller{
		chain:   chainClient,
		pricing: pricing,
		params:  params,
		events:  events,
		chainID: chainID,
		router:  router,
		bridge:  bridge,
	}
}

// Invest runs the full invest flow for amount (in underlying units). If the
// wallet already holds enough underlying the conversion steps are skipped
// and the flow goes straight to the mint sequence; otherwise the bridge
// asset is swapped first and the mint amount is reduced by the slippage
// buffer.
func (c *Controller) Invest(ctx context.Context, f *Flow, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return c.fail(f, types.FlowIdle, ErrInvalidAmount)
	}

	underlying := f.Pool.Underlying
	underlyingRaw, err := utils.DecimalToRaw(amount, underlying.Decimals)
	if err != nil {
		return c.fail(f, types.FlowIdle, err)
	}

	// Balance reads happen before the first transition; errors here are
	// validation failures, not step failures.
	underlyingBalance, err := c.chain.BalanceOf(ctx, underlying.Address, f.Wallet)
	if err != nil {
		return c.fail(f, types.FlowIdle, err)
	}

	if underlyingBalance.Cmp(underlyingRaw) >= 0 {
		flowLogger.Info().
			Str("flowID", f.ID).
			Str("amount", amount.String()).
			Msg("Sufficient underlying balance, skipping conversion")
		return c.runMintSequence(ctx, f, amount)
	}

	bridgeRaw, err := utils.DecimalToRaw(amount, c.bridge.Decimals)
	if err != nil {
		return c.fail(f, types.FlowIdle, err)
	}

	bridgeBalance, err := c.chain.BalanceOf(ctx, c.bridge.Address, f.Wallet)
	if err != nil {
		return c.fail(f, types.FlowIdle, err)
	}
	if bridgeBalance.Cmp(bridgeRaw) < 0 {
		return c.fail(f, types.FlowIdle, fmt.Errorf("%w: need %s %s or %s %s",
			ErrInsufficientBalance, amount.String(), underlying.Symbol, amount.String(), c.bridge.Symbol))
	}

	if err := c.runConversion(ctx, f, bridgeRaw); err != nil {
		return err
	}

	// The swap output is not known exactly until settlement; mint with the
	// buffered amount so the payload never exceeds what arrived.
	mintAmount := amount.Mul(c.params.SlippageBufferFactor)

	if err := c.mintSteps(ctx, f, mintAmount, investMintStates); err != nil {
		return err
	}

	return c.complete(f)
}

// runConversion swaps the bridge asset into the underlying:
// checking_allowance, approving/waiting_approval when short, then
// swapping/waiting_swap.
func (c *Controller) runConversion(ctx context.Context, f *Flow, bridgeRaw *big.Int) error {
	c.setState(f, types.FlowCheckingAllowance)

	allowance, err := c.chain.Allowance(ctx, c.bridge.Address, f.Wallet, c.router)
	if err != nil {
		return c.fail(f, types.FlowCheckingAllowance, err)
	}

	if allowance.Cmp(bridgeRaw) < 0 {
		c.setState(f, types.FlowApproving)
		approveTx := types.PendingTransaction{
			ChainID: c.chainID,
			To:      c.bridge.Address,
			Data:    chain.ApprovalCallData(c.router, bridgeRaw),
		}
		hash, err := c.chain.SubmitTransaction(ctx, f.Wallet, approveTx)
		if err != nil {
			return c.fail(f, types.FlowApproving, err)
		}
		f.recordHash(hash)

		c.setState(f, types.FlowWaitingApproval)
		if err := c.awaitReceipt(ctx, f, hash, types.FlowWaitingApproval); err != nil {
			return err
		}
		if err := c.settle(ctx, f, types.FlowWaitingApproval); err != nil {
			return err
		}
	}

	c.setState(f, types.FlowSwapping)
	prepared, err := c.pricing.BuildSwap(ctx, datafetcher.SwapRequest{
		ChainID:   c.chainID,
		TokenIn:   c.bridge.Address,
		TokenOut:  f.Pool.Underlying.Address,
		Receiver:  f.Wallet,
		AmountRaw: bridgeRaw,
	})
	if err != nil {
		return c.fail(f, types.FlowSwapping, err)
	}

	hash, err := c.chain.SubmitTransaction(ctx, f.Wallet, prepared.Tx)
	if err != nil {
		return c.fail(f, types.FlowSwapping, err)
	}
	f.recordHash(hash)

	c.setState(f, types.FlowWaitingSwap)
	if err := c.awaitReceipt(ctx, f, hash, types.FlowWaitingSwap); err != nil {
		return err
	}
	return c.settle(ctx, f, types.FlowWaitingSwap)
}

// setState transitions the flow and notifies listeners.
func (c *Controller) setState(f *Flow, state types.FlowState) {
	f.setState(state)
	flowLogger.Debug().
		Str("flowID", f.ID).
		Str("state", string(state)).
		Msg("Flow state changed")
	c.events.StateChanged(f.ID, state)
}

// fail resets the flow to idle, surfaces the failed step, and returns the
// error for the caller.
func (c *Controller) fail(f *Flow, step types.FlowState, err error) error {
	flowLogger.Error().
		Err(err).
		Str("flowID", f.ID).
		Str("step", string(step)).
		Msg("Flow step failed, resetting to idle")

	f.recordFailure(step, err)
	c.events.StepFailed(f.ID, step, err)
	c.events.StateChanged(f.ID, types.FlowIdle)
	return err
}

// complete marks the flow done and schedules the delayed refresh callback.
func (c *Controller) complete(f *Flow) error {
	c.setState(f, types.FlowComplete)
	c.events.Completed(f.ID)

	flowID := f.ID
	time.AfterFunc(c.params.RefreshDelay, func() {
		c.events.RefreshRequested(flowID)
	})

	flowLogger.Info().Str("flowID", f.ID).Msg("Flow complete")
	return nil
}

// awaitReceipt waits for the hash to confirm; a reverted transaction fails
// the flow at the given step.
func (c *Controller) awaitReceipt(ctx context.Context, f *Flow, hash common.Hash, step types.FlowState) error {
	receipt, err := c.chain.WaitForReceipt(ctx, hash, c.params.ReceiptPollInterval, c.params.ReceiptPollTimeout)
	if err != nil {
		return c.fail(f, step, err)
	}
	if !receipt.Success {
		return c.fail(f, step, fmt.Errorf("%w: %s", ErrTransactionReverted, hash.Hex()))
	}
	return nil
}

// settle pauses after a confirmation so downstream state catches up before
// the next step reads it.
func (c *Controller) settle(ctx context.Context, f *Flow, step types.FlowState) error {
	select {
	case <-ctx.Done():
		return c.fail(f, step, ctx.Err())
	case <-time.After(c.params.SettleDelay):
		return nil
	}
}
