/*

JSON-RPC chain client. Accepts prepared transaction payloads, submits them
through the node's managed signer, and polls for receipts. Also exposes the
two ERC-20 reads (balance, allowance) the flow controller needs before it
will submit anything. Key custody lives with the node, not here.

*/

package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/yieldsplit/ysa/internal/logger"
	"github.com/yieldsplit/ysa/internal/types"
)

var (
	ErrSubmitFailed    = errors.New("transaction submission failed")
	ErrReceiptTimedOut = errors.New("timed out waiting for transaction receipt")
	ErrCallFailed      = errors.New("contract call failed")
)

var chainLogger = logger.GetForComponent("chain_client")

// ERC-20 function selectors.
var (
	selectorBalanceOf = []byte{0x70, 0xa0, 0x82, 0x31} // balanceOf(address)
	selectorAllowance = []byte{0xdd, 0x62, 0xed, 0x3e} // allowance(address,address)
	selectorApprove   = []byte{0x09, 0x5e, 0xa7, 0xb3} // approve(address,uint256)
)

// Client wraps a JSON-RPC connection to the chain node.
type Client struct {
	rpc *rpc.Client
	eth *ethclient.Client
}

// Dial connects to the node's JSON-RPC endpoint.
func Dial(ctx context.Context, endpoint string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain node %s: %w", endpoint, err)
	}

	chainLogger.Info().Str("endpoint", endpoint).Msg("Chain node connected")
	return &Client{
		rpc: rpcClient,
		eth: ethclient.NewClient(rpcClient),
	}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// SubmitTransaction hands the prepared payload to the node and returns the
// transaction hash once accepted into the pool.
func (c *Client) SubmitTransaction(ctx context.Context, from common.Address, tx types.PendingTransaction) (common.Hash, error) {
	args := map[string]interface{}{
		"from": from,
		"to":   tx.To,
		"data": hexutil.Bytes(tx.Data),
	}
	if tx.Value != nil && tx.Value.Sign() > 0 {
		args["value"] = (*hexutil.Big)(tx.Value)
	}
	if tx.Gas > 0 {
		args["gas"] = hexutil.Uint64(tx.Gas)
	}

	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		chainLogger.Error().
			Err(err).
			Str("to", tx.To.Hex()).
			Msg("Transaction submission rejected by node")
		return common.Hash{}, errors.Join(ErrSubmitFailed, err)
	}

	chainLogger.Info().
		Str("hash", hash.Hex()).
		Str("to", tx.To.Hex()).
		Int("dataLen", len(tx.Data)).
		Msg("Transaction submitted")

	return hash, nil
}

// WaitForReceipt polls the node until the transaction is mined or the
// timeout elapses. A mined-but-reverted transaction returns a receipt with
// Success=false, not an error; transport problems return errors.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash, pollInterval, timeout time.Duration) (types.TxReceipt, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			result := types.TxReceipt{Hash: hash, Success: receipt.Status == 1}
			chainLogger.Info().
				Str("hash", hash.Hex()).
				Bool("success", result.Success).
				Uint64("block", receipt.BlockNumber.Uint64()).
				Msg("Transaction confirmed")
			return result, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return types.TxReceipt{}, fmt.Errorf("receipt lookup failed for %s: %w", hash.Hex(), err)
		}

		if time.Now().After(deadline) {
			return types.TxReceipt{}, fmt.Errorf("%w: %s", ErrReceiptTimedOut, hash.Hex())
		}

		select {
		case <-ctx.Done():
			return types.TxReceipt{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// BalanceOf reads the ERC-20 balance of owner.
func (c *Client) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data := append(append([]byte{}, selectorBalanceOf...), leftPadAddress(owner)...)
	return c.callUint256(ctx, token, data)
}

// Allowance reads the ERC-20 allowance owner has granted spender.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data := append(append([]byte{}, selectorAllowance...), leftPadAddress(owner)...)
	data = append(data, leftPadAddress(spender)...)
	return c.callUint256(ctx, token, data)
}

// ApprovalCallData builds the calldata for approve(spender, amount).
func ApprovalCallData(spender common.Address, amount *big.Int) []byte {
	data := append(append([]byte{}, selectorApprove...), leftPadAddress(spender)...)
	return append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
}

func (c *Client) callUint256(ctx context.Context, to common.Address, data []byte) (*big.Int, error) {
	result, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, errors.Join(ErrCallFailed, err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: empty return data from %s", ErrCallFailed, to.Hex())
	}
	return new(big.Int).SetBytes(result), nil
}

func leftPadAddress(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), 32)
}
