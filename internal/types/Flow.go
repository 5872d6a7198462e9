/*

Types for the transaction execution state machine and the payloads it
hands to the chain client.

*/

package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FlowState is the current step of an execution flow. Exactly one flow is
// active per user action; any failure resets the flow to FlowIdle.
type FlowState string

const (
	FlowIdle              FlowState = "idle"
	FlowCheckingAllowance FlowState = "checking_allowance"
	FlowApproving         FlowState = "approving"
	FlowWaitingApproval   FlowState = "waiting_approval"
	FlowSwapping          FlowState = "swapping"
	FlowWaitingSwap       FlowState = "waiting_swap"
	FlowExecutingPurchase FlowState = "executing_purchase"
	FlowPreparing         FlowState = "preparing"
	FlowMinting           FlowState = "minting"
	FlowWaitingMint       FlowState = "waiting_mint"
	FlowComplete          FlowState = "complete"
)

// Terminal reports whether the state accepts a new Execute call.
func (s FlowState) Terminal() bool {
	return s == FlowIdle || s == FlowComplete
}

// PendingTransaction is an opaque payload produced by the pricing service
// (or built locally for approvals) and handed unchanged to the chain client.
type PendingTransaction struct {
	ChainID int64          `json:"chain_id"`
	To      common.Address `json:"to"`
	Data    []byte         `json:"data"`
	Value   *big.Int       `json:"value,omitempty"`
	Gas     uint64         `json:"gas,omitempty"`
}

// RequiredApproval names a token allowance the pricing service says must be
// in place before its payload can execute.
type RequiredApproval struct {
	Token   common.Address `json:"token"`
	Spender common.Address `json:"spender"`
	Amount  *big.Int       `json:"amount"`
}

// PreparedTransaction is the pricing service's response: the payload plus
// any approvals it requires.
type PreparedTransaction struct {
	Tx                PendingTransaction `json:"tx"`
	RequiredApprovals []RequiredApproval `json:"required_approvals,omitempty"`
}

// TxReceipt is the confirmation outcome for a submitted transaction.
type TxReceipt struct {
	Hash    common.Hash `json:"hash"`
	Success bool        `json:"success"`
}
