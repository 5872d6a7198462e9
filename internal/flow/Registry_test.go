package flow

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yieldsplit/ysa/internal/types"
)

func TestRegistryRejectsConcurrentFlowForSamePair(t *testing.T) {
	registry := NewRegistry()
	pool := flowTestPool()

	first, err := registry.Begin(testWallet, pool)
	require.NoError(t, err)

	first.setState(types.FlowSwapping)

	_, err = registry.Begin(testWallet, pool)
	assert.ErrorIs(t, err, ErrFlowInProgress)

	// A different wallet is unaffected.
	otherWallet := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	_, err = registry.Begin(otherWallet, pool)
	assert.NoError(t, err)
}

func TestRegistryAllowsNewFlowAfterTerminalState(t *testing.T) {
	registry := NewRegistry()
	pool := flowTestPool()

	first, err := registry.Begin(testWallet, pool)
	require.NoError(t, err)

	t.Run("after completion", func(t *testing.T) {
		first.setState(types.FlowComplete)
		second, err := registry.Begin(testWallet, pool)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("after reset", func(t *testing.T) {
		current, ok := registry.Get(registrySnapshotLatestID(registry, testWallet, pool))
		require.True(t, ok)
		current.setState(types.FlowSwapping)
		current.Reset()

		_, err := registry.Begin(testWallet, pool)
		assert.NoError(t, err)
	})
}

// registrySnapshotLatestID finds the active flow ID for a wallet+pool pair.
func registrySnapshotLatestID(r *Registry, wallet common.Address, pool types.Pool) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.active[activeKey(wallet, pool.Address)]; ok {
		return f.ID
	}
	return ""
}

func TestRegistryGet(t *testing.T) {
	registry := NewRegistry()

	f, err := registry.Begin(testWallet, flowTestPool())
	require.NoError(t, err)

	got, ok := registry.Get(f.ID)
	require.True(t, ok)
	assert.Equal(t, f.ID, got.ID)

	_, ok = registry.Get("nope")
	assert.False(t, ok)

	snapshots := registry.Snapshots()
	assert.Len(t, snapshots, 1)
	assert.Equal(t, types.FlowIdle, snapshots[0].State)
}

func TestRegistryEvictsStaleTerminalFlows(t *testing.T) {
	registry := NewRegistry()
	pool := flowTestPool()

	stale, err := registry.Begin(testWallet, pool)
	require.NoError(t, err)
	stale.setState(types.FlowComplete)
	backdateFlow(stale, 2*terminalRetention)

	recentWallet := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	recent, err := registry.Begin(recentWallet, pool)
	require.NoError(t, err)
	recent.setState(types.FlowComplete)

	// The next Begin prunes stale terminal flows but keeps recent ones.
	otherWallet := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	_, err = registry.Begin(otherWallet, pool)
	require.NoError(t, err)

	_, ok := registry.Get(stale.ID)
	assert.False(t, ok)
	_, ok = registry.Get(recent.ID)
	assert.True(t, ok)

	// An in-progress flow is never evicted, however old.
	running, err := registry.Begin(testWallet, pool)
	require.NoError(t, err)
	running.setState(types.FlowSwapping)
	backdateFlow(running, 2*terminalRetention)

	_, err = registry.Begin(recentWallet, pool)
	require.NoError(t, err)
	_, ok = registry.Get(running.ID)
	assert.True(t, ok)
}

func backdateFlow(f *Flow, age time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedAt = f.updatedAt.Add(-age)
}

func TestFlowResetDiscardsPreparedPayload(t *testing.T) {
	f := newFlow(testWallet, flowTestPool())
	f.storePrepared(types.PreparedTransaction{Tx: types.PendingTransaction{Data: []byte{0x01}}})

	f.Reset()

	_, ok := f.takePrepared()
	assert.False(t, ok)
	assert.Equal(t, types.FlowIdle, f.State())
}
