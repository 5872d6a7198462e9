/*

Flow instance state. Each user action gets one Flow; the controller drives
it through the state machine and the HTTP layer reads snapshots.

*/

package flow

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/yieldsplit/ysa/internal/types"
)

// Flow is one in-progress or finished execution. All mutation goes through
// the controller; readers take snapshots.
type Flow struct {
	ID     string
	Wallet common.Address
	Pool   types.Pool

	mu           sync.Mutex
	state        types.FlowState
	failedStep   types.FlowState
	lastError    string
	txHashes     []common.Hash
	preparedMint *types.PreparedTransaction
	updatedAt    time.Time
}

// Snapshot is an immutable view of a flow for API consumers.
type Snapshot struct {
	ID         string          `json:"id"`
	Wallet     common.Address  `json:"wallet"`
	Pool       common.Address  `json:"pool"`
	State      types.FlowState `json:"state"`
	FailedStep types.FlowState `json:"failed_step,omitempty"`
	Error      string          `json:"error,omitempty"`
	TxHashes   []common.Hash   `json:"tx_hashes,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func newFlow(wallet common.Address, pool types.Pool) *Flow {
	return &Flow{
		ID:        uuid.NewString(),
		Wallet:    wallet,
		Pool:      pool,
		state:     types.FlowIdle,
		updatedAt: time.Now().UTC(),
	}
}

// State returns the current state.
func (f *Flow) State() types.FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Snapshot returns a copy of the flow's observable state.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	hashes := make([]common.Hash, len(f.txHashes))
	copy(hashes, f.txHashes)

	return Snapshot{
		ID:         f.ID,
		Wallet:     f.Wallet,
		Pool:       f.Pool.Address,
		State:      f.state,
		FailedStep: f.failedStep,
		Error:      f.lastError,
		TxHashes:   hashes,
		UpdatedAt:  f.updatedAt,
	}
}

func (f *Flow) setState(state types.FlowState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	f.updatedAt = time.Now().UTC()
}

func (f *Flow) recordFailure(step types.FlowState, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = types.FlowIdle
	f.failedStep = step
	f.lastError = err.Error()
	f.preparedMint = nil
	f.updatedAt = time.Now().UTC()
}

func (f *Flow) recordHash(hash common.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txHashes = append(f.txHashes, hash)
}

func (f *Flow) storePrepared(prepared types.PreparedTransaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preparedMint = &prepared
}

func (f *Flow) takePrepared() (types.PreparedTransaction, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.preparedMint == nil {
		return types.PreparedTransaction{}, false
	}
	prepared := *f.preparedMint
	f.preparedMint = nil
	return prepared, true
}

// Reset returns the flow to idle and discards any prepared payload.
// Transactions already submitted are unaffected.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = types.FlowIdle
	f.failedStep = ""
	f.lastError = ""
	f.preparedMint = nil
	f.updatedAt = time.Now().UTC()
}
