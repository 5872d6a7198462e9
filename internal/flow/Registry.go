/*

In-memory flow registry. One flow per wallet+pool may be in progress at a
time; Begin rejects a second Execute while the first is non-terminal.

*/

package flow

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/yieldsplit/ysa/internal/types"
)

var ErrFlowInProgress = errors.New("a flow is already in progress for this wallet and pool")

// terminalRetention is how long finished or reset flows stay queryable
// through Get before they are evicted. Keeps the registry bounded in a
// long-running service.
const terminalRetention = time.Hour

type Registry struct {
	mu     sync.Mutex
	flows  map[string]*Flow // by flow ID
	active map[string]*Flow // by wallet+pool key
}

func NewRegistry() *Registry {
	return &Registry{
		flows:  make(map[string]*Flow),
		active: make(map[string]*Flow),
	}
}

// Begin creates a flow for wallet and pool. Returns ErrFlowInProgress when
// an earlier flow for the same pair has not reached a terminal state; a
// finished or reset flow is superseded.
func (r *Registry) Begin(wallet common.Address, pool types.Pool) (*Flow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(time.Now())

	key := activeKey(wallet, pool.Address)
	if existing, ok := r.active[key]; ok {
		state := existing.State()
		// FlowIdle here means either never started or reset after failure;
		// both accept a fresh Execute.
		if !state.Terminal() {
			return nil, ErrFlowInProgress
		}
	}

	f := newFlow(wallet, pool)
	r.flows[f.ID] = f
	r.active[key] = f
	return f, nil
}

// Get returns the flow with the given ID.
func (r *Registry) Get(id string) (*Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[id]
	return f, ok
}

// Snapshots returns a snapshot of every known flow.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Snapshot, 0, len(r.flows))
	for _, f := range r.flows {
		out = append(out, f.Snapshot())
	}
	return out
}

// pruneLocked evicts terminal flows untouched for longer than the
// retention window. Caller holds r.mu.
func (r *Registry) pruneLocked(now time.Time) {
	for id, f := range r.flows {
		snapshot := f.Snapshot()
		if !snapshot.State.Terminal() || now.Sub(snapshot.UpdatedAt) < terminalRetention {
			continue
		}
		delete(r.flows, id)
		key := activeKey(snapshot.Wallet, snapshot.Pool)
		if r.active[key] == f {
			delete(r.active, key)
		}
	}
}

func activeKey(wallet, pool common.Address) string {
	return strings.ToLower(wallet.Hex()) + "/" + strings.ToLower(pool.Hex())
}
