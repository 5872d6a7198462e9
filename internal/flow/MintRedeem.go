/*

Mint and redeem sequences. Mint resolves required approvals automatically
while holding the prepared payload; redeem picks between the PT+YT pair and
the wrapped-token path based on actual balances, failing fast before any
submission when neither covers the amount.

*/

package flow

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/yieldsplit/ysa/internal/chain"
	"github.com/yieldsplit/ysa/internal/datafetcher"
	"github.com/yieldsplit/ysa/internal/types"
	"github.com/yieldsplit/ysa/internal/utils"
)

// mintStates maps the shared mint mechanics onto flow states. The invest
// conversion path runs the whole sequence under executing_purchase; the
// direct path exposes each step.
type mintStates struct {
	Prepare     types.FlowState
	Approve     types.FlowState
	WaitApprove types.FlowState
	Mint        types.FlowState
	WaitMint    types.FlowState
}

var (
	directMintStates = mintStates{
		Prepare:     types.FlowPreparing,
		Approve:     types.FlowApproving,
		WaitApprove: types.FlowWaitingApproval,
		Mint:        types.FlowMinting,
		WaitMint:    types.FlowWaitingMint,
	}
	investMintStates = mintStates{
		Prepare:     types.FlowExecutingPurchase,
		Approve:     types.FlowExecutingPurchase,
		WaitApprove: types.FlowExecutingPurchase,
		Mint:        types.FlowExecutingPurchase,
		WaitMint:    types.FlowExecutingPurchase,
	}
)

// Mint runs the standalone mint flow: validate the pool's token addresses,
// build the payload, resolve approvals, submit, confirm.
func (c *Controller) Mint(ctx context.Context, f *Flow, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return c.fail(f, types.FlowIdle, ErrInvalidAmount)
	}
	return c.runMintSequence(ctx, f, amount)
}

func (c *Controller) runMintSequence(ctx context.Context, f *Flow, amount decimal.Decimal) error {
	if err := validatePoolTokens(f.Pool); err != nil {
		return c.fail(f, types.FlowPreparing, err)
	}
	if err := c.mintSteps(ctx, f, amount, directMintStates); err != nil {
		return err
	}
	return c.complete(f)
}

// mintSteps is the shared mint mechanics: build payload, store it, resolve
// approvals, then submit the stored payload and await confirmation.
func (c *Controller) mintSteps(ctx context.Context, f *Flow, amount decimal.Decimal, states mintStates) error {
	c.transition(f, states.Prepare)

	underlyingRaw, err := utils.DecimalToRaw(amount, f.Pool.Underlying.Decimals)
	if err != nil {
		return c.fail(f, states.Prepare, err)
	}

	prepared, err := c.pricing.BuildMint(ctx, datafetcher.MintRequest{
		ChainID:   c.chainID,
		Market:    f.Pool.Address,
		Receiver:  f.Wallet,
		AmountRaw: underlyingRaw,
	})
	if err != nil {
		return c.fail(f, states.Prepare, err)
	}

	// The payload is held on the flow while approvals resolve so a Reset
	// in between discards it.
	f.storePrepared(prepared)

	if err := c.ensureApprovals(ctx, f, prepared.RequiredApprovals, states); err != nil {
		return err
	}

	payload, ok := f.takePrepared()
	if !ok {
		return c.fail(f, states.Mint, ErrNoPreparedPayload)
	}

	c.transition(f, states.Mint)
	hash, err := c.chain.SubmitTransaction(ctx, f.Wallet, payload.Tx)
	if err != nil {
		return c.fail(f, states.Mint, err)
	}
	f.recordHash(hash)

	c.transition(f, states.WaitMint)
	return c.awaitReceipt(ctx, f, hash, states.WaitMint)
}

// ensureApprovals grants each allowance the pricing service asked for that
// is not already in place, confirming and settling after each grant.
func (c *Controller) ensureApprovals(ctx context.Context, f *Flow, approvals []types.RequiredApproval, states mintStates) error {
	for _, approval := range approvals {
		allowance, err := c.chain.Allowance(ctx, approval.Token, f.Wallet, approval.Spender)
		if err != nil {
			return c.fail(f, states.Approve, err)
		}
		if allowance.Cmp(approval.Amount) >= 0 {
			continue
		}

		c.transition(f, states.Approve)
		approveTx := types.PendingTransaction{
			ChainID: c.chainID,
			To:      approval.Token,
			Data:    chain.ApprovalCallData(approval.Spender, approval.Amount),
		}
		hash, err := c.chain.SubmitTransaction(ctx, f.Wallet, approveTx)
		if err != nil {
			return c.fail(f, states.Approve, err)
		}
		f.recordHash(hash)

		c.transition(f, states.WaitApprove)
		if err := c.awaitReceipt(ctx, f, hash, states.WaitApprove); err != nil {
			return err
		}
		if err := c.settle(ctx, f, states.WaitApprove); err != nil {
			return err
		}
	}
	return nil
}

// Redeem converts position tokens back to underlying. The PT+YT pair path
// is preferred; the wrapped-token path is the fallback. Neither covering
// the amount is a validation failure before anything is submitted.
func (c *Controller) Redeem(ctx context.Context, f *Flow, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return c.fail(f, types.FlowIdle, ErrInvalidAmount)
	}
	if err := validatePoolTokens(f.Pool); err != nil {
		return c.fail(f, types.FlowPreparing, err)
	}
	if f.Pool.SY.Address == (common.Address{}) {
		return c.fail(f, types.FlowPreparing, ErrInvalidTokenAddress)
	}

	ptBalance, err := c.chain.BalanceOf(ctx, f.Pool.PT.Address, f.Wallet)
	if err != nil {
		return c.fail(f, types.FlowPreparing, err)
	}
	ytBalance, err := c.chain.BalanceOf(ctx, f.Pool.YT.Address, f.Wallet)
	if err != nil {
		return c.fail(f, types.FlowPreparing, err)
	}
	syBalance, err := c.chain.BalanceOf(ctx, f.Pool.SY.Address, f.Wallet)
	if err != nil {
		return c.fail(f, types.FlowPreparing, err)
	}

	pairRaw, err := utils.DecimalToRaw(amount, f.Pool.PT.Decimals)
	if err != nil {
		return c.fail(f, types.FlowPreparing, err)
	}
	syRaw, err := utils.DecimalToRaw(amount, f.Pool.SY.Decimals)
	if err != nil {
		return c.fail(f, types.FlowPreparing, err)
	}

	var useSY bool
	var redeemRaw *big.Int
	switch {
	case pairRaw.Cmp(minBig(ptBalance, ytBalance)) <= 0:
		useSY = false
		redeemRaw = pairRaw
	case syRaw.Cmp(syBalance) <= 0:
		useSY = true
		redeemRaw = syRaw
	default:
		return c.fail(f, types.FlowPreparing, fmt.Errorf(
			"%w: redeem %s needs matching PT+YT (have %s/%s) or SY (have %s)",
			ErrInsufficientBalance, amount.String(), ptBalance.String(), ytBalance.String(), syBalance.String()))
	}

	c.transition(f, types.FlowPreparing)
	prepared, err := c.pricing.BuildRedeem(ctx, datafetcher.RedeemRequest{
		ChainID:   c.chainID,
		Market:    f.Pool.Address,
		Receiver:  f.Wallet,
		AmountRaw: redeemRaw,
		UseSY:     useSY,
	})
	if err != nil {
		return c.fail(f, types.FlowPreparing, err)
	}

	if err := c.ensureApprovals(ctx, f, prepared.RequiredApprovals, directMintStates); err != nil {
		return err
	}

	c.transition(f, types.FlowMinting)
	hash, err := c.chain.SubmitTransaction(ctx, f.Wallet, prepared.Tx)
	if err != nil {
		return c.fail(f, types.FlowMinting, err)
	}
	f.recordHash(hash)

	c.transition(f, types.FlowWaitingMint)
	if err := c.awaitReceipt(ctx, f, hash, types.FlowWaitingMint); err != nil {
		return err
	}

	return c.complete(f)
}

// transition moves the flow to state, skipping no-op repeats so listeners
// see each state once.
func (c *Controller) transition(f *Flow, state types.FlowState) {
	if f.State() == state {
		return
	}
	c.setState(f, state)
}

func validatePoolTokens(pool types.Pool) error {
	zero := common.Address{}
	if pool.Underlying.Address == zero {
		return fmt.Errorf("%w: underlying", ErrInvalidTokenAddress)
	}
	if pool.PT.Address == zero {
		return fmt.Errorf("%w: pt", ErrInvalidTokenAddress)
	}
	if pool.YT.Address == zero {
		return fmt.Errorf("%w: yt", ErrInvalidTokenAddress)
	}
	return nil
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
