package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"contract_deployer/internal/domain/entity"
	networkdefinition "contract_deployer/internal/infrastructure/network/definition"
	"contract_deployer/internal/pkg/logger"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCoordinator(t *testing.T, wallet *fakeWallet) *NetworkCoordinator {
	t.Helper()
	coordinator, err := NewNetworkCoordinator(newTestRegistry(t), wallet, newTestLogger(t))
	require.NoError(t, err)
	return coordinator
}

func TestNetworkCoordinator_DefaultSelection(t *testing.T) {
	coordinator := newTestCoordinator(t, &fakeWallet{})

	assert.Equal(t, networkdefinition.ZkSyncSepolia, coordinator.SelectedNetwork())
	assert.Equal(t, entity.NetworkPending, coordinator.Status())
	assert.False(t, coordinator.IsCorrect())
}

func TestNetworkCoordinator_SelectNetwork(t *testing.T) {
	wallet := &fakeWallet{}
	coordinator := newTestCoordinator(t, wallet)

	res, err := coordinator.SelectNetwork(networkdefinition.BaseSepolia.ChainID)
	require.NoError(t, err)
	assert.Equal(t, networkdefinition.BaseSepolia, res.Network)
	assert.Equal(t, entity.NetworkPending, res.Status)
	assert.False(t, res.NeedsSwitch())

	coordinator.ObserveWalletChain(chainPtr(networkdefinition.ArbitrumSepolia.ChainID))
	res, err = coordinator.SelectNetwork(networkdefinition.OptimismSepolia.ChainID)
	require.NoError(t, err)
	assert.Equal(t, entity.NetworkMismatch, res.Status)
	assert.True(t, res.NeedsSwitch())

	res, err = coordinator.SelectNetwork(networkdefinition.ArbitrumSepolia.ChainID)
	require.NoError(t, err)
	assert.Equal(t, entity.NetworkCorrect, res.Status)

	assert.Empty(t, wallet.switches(), "selection must stay local")
}

func TestNetworkCoordinator_SelectUnknownNetwork(t *testing.T) {
	coordinator := newTestCoordinator(t, &fakeWallet{})
	_, err := coordinator.SelectNetwork(networkdefinition.BaseSepolia.ChainID)
	require.NoError(t, err)

	_, err = coordinator.SelectNetwork(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrUnknownNetwork)
	assert.ErrorIs(t, err, entity.ErrValidation)
	assert.Equal(t, networkdefinition.BaseSepolia.ChainID, coordinator.Snapshot().SelectedID)
}

func TestNetworkCoordinator_SelectNetworkByKey(t *testing.T) {
	registry := newTestRegistry(t)
	coordinator := newTestCoordinator(t, &fakeWallet{})

	for _, network := range registry.All() {
		res, err := coordinator.SelectNetworkByKey(network.Key)
		require.NoError(t, err, network.Key)
		assert.Equal(t, network.ChainID, res.Network.ChainID)
	}

	res, err := coordinator.SelectNetworkByKey("  Arbitrum ")
	require.NoError(t, err)
	assert.Equal(t, networkdefinition.ArbitrumSepolia.ChainID, res.Network.ChainID)

	_, err = coordinator.SelectNetworkByKey("polygon")
	assert.ErrorIs(t, err, entity.ErrUnknownNetwork)
	assert.Equal(t, networkdefinition.ArbitrumSepolia.ChainID, coordinator.Snapshot().SelectedID)
}

func TestNetworkCoordinator_ObserveWalletChain(t *testing.T) {
	coordinator := newTestCoordinator(t, &fakeWallet{})

	coordinator.ObserveWalletChain(chainPtr(networkdefinition.ZkSyncSepolia.ChainID))
	assert.True(t, coordinator.IsCorrect())
	assert.Equal(t, entity.NetworkCorrect, coordinator.Status())

	// A chain outside the registry is recorded and reads as a mismatch.
	coordinator.ObserveWalletChain(chainPtr(137))
	snap := coordinator.Snapshot()
	require.NotNil(t, snap.WalletConnectedID)
	assert.Equal(t, uint64(137), *snap.WalletConnectedID)
	assert.Equal(t, entity.NetworkMismatch, coordinator.Status())

	coordinator.ObserveWalletChain(nil)
	assert.False(t, coordinator.IsCorrect())
	assert.Equal(t, entity.NetworkPending, coordinator.Status())
}

func TestNetworkCoordinator_SnapshotIsACopy(t *testing.T) {
	coordinator := newTestCoordinator(t, &fakeWallet{})
	coordinator.ObserveWalletChain(chainPtr(300))

	snap := coordinator.Snapshot()
	*snap.WalletConnectedID = 1
	assert.True(t, coordinator.IsCorrect())
}

func TestNetworkCoordinator_RequestSwitch(t *testing.T) {
	ctx := context.Background()
	arbitrum := networkdefinition.ArbitrumSepolia.ChainID
	zksync := networkdefinition.ZkSyncSepolia.ChainID

	t.Run("wallet not connected", func(t *testing.T) {
		wallet := &fakeWallet{}
		coordinator := newTestCoordinator(t, wallet)
		err := coordinator.RequestSwitch(ctx, arbitrum)
		assert.ErrorIs(t, err, entity.ErrWalletNotConnected)
		assert.Empty(t, wallet.switches())
	})

	t.Run("unknown target", func(t *testing.T) {
		wallet := &fakeWallet{}
		coordinator := newTestCoordinator(t, wallet)
		coordinator.ObserveWalletChain(chainPtr(zksync))
		err := coordinator.RequestSwitch(ctx, 1)
		assert.ErrorIs(t, err, entity.ErrUnknownNetwork)
		assert.Empty(t, wallet.switches())
	})

	t.Run("already on target is a no-op", func(t *testing.T) {
		wallet := &fakeWallet{}
		coordinator := newTestCoordinator(t, wallet)
		coordinator.ObserveWalletChain(chainPtr(zksync))
		require.NoError(t, coordinator.RequestSwitch(ctx, zksync))
		require.NoError(t, coordinator.RequestSwitch(ctx, zksync))
		assert.Empty(t, wallet.switches())
	})

	t.Run("success does not update the wallet chain", func(t *testing.T) {
		wallet := &fakeWallet{}
		coordinator := newTestCoordinator(t, wallet)
		coordinator.ObserveWalletChain(chainPtr(zksync))

		require.NoError(t, coordinator.RequestSwitch(ctx, arbitrum))
		assert.Equal(t, []uint64{arbitrum}, wallet.switches())
		assert.Equal(t, zksync, *coordinator.Snapshot().WalletConnectedID)

		coordinator.ObserveWalletChain(chainPtr(arbitrum))
		assert.Equal(t, arbitrum, *coordinator.Snapshot().WalletConnectedID)
	})

	t.Run("rejection is recorded and leaves state unchanged", func(t *testing.T) {
		wallet := &fakeWallet{switchErr: fmt.Errorf("%w: user rejected the request", entity.ErrWalletRejection)}
		coordinator := newTestCoordinator(t, wallet)
		coordinator.ObserveWalletChain(chainPtr(zksync))
		_, err := coordinator.SelectNetwork(arbitrum)
		require.NoError(t, err)

		err = coordinator.SwitchToSelected(ctx)
		assert.ErrorIs(t, err, entity.ErrWalletRejection)
		snap := coordinator.Snapshot()
		assert.Equal(t, zksync, *snap.WalletConnectedID)
		assert.Equal(t, arbitrum, snap.SelectedID)
		assert.Contains(t, snap.LastSwitchError, "Arbitrum Sepolia")
		assert.Equal(t, entity.NetworkMismatch, coordinator.Status())

		// A later successful switch clears the recorded error.
		wallet.mu.Lock()
		wallet.switchErr = nil
		wallet.mu.Unlock()
		require.NoError(t, coordinator.SwitchToSelected(ctx))
		assert.Empty(t, coordinator.Snapshot().LastSwitchError)
	})

	t.Run("unclassified failure is a provider error", func(t *testing.T) {
		wallet := &fakeWallet{switchErr: errors.New("connection refused")}
		coordinator := newTestCoordinator(t, wallet)
		coordinator.ObserveWalletChain(chainPtr(zksync))

		err := coordinator.RequestSwitch(ctx, arbitrum)
		assert.ErrorIs(t, err, entity.ErrProvider)
		assert.Equal(t, "provider", entity.ErrorKind(err))
		assert.NotEmpty(t, coordinator.Snapshot().LastSwitchError)
	})
}

func TestNetworkCoordinator_Properties(t *testing.T) {
	registry := newTestRegistry(t)
	nop := logger.NewZapAdapter(zap.NewNop())
	networks := registry.All()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("unknown chain ids never become the selection", prop.ForAll(
		func(chainID uint64) bool {
			if _, known := registry.ByChainID(chainID); known {
				return true
			}
			coordinator, err := NewNetworkCoordinator(registry, &fakeWallet{}, nop)
			if err != nil {
				return false
			}
			before := coordinator.Snapshot().SelectedID
			_, err = coordinator.SelectNetwork(chainID)
			_, stillKnown := registry.ByChainID(coordinator.Snapshot().SelectedID)
			return errors.Is(err, entity.ErrUnknownNetwork) && stillKnown && coordinator.Snapshot().SelectedID == before
		},
		gen.UInt64(),
	))

	properties.Property("isCorrect iff connected and on the selected chain", prop.ForAll(
		func(selectedIdx int, walletIdx int, connected bool) bool {
			coordinator, err := NewNetworkCoordinator(registry, &fakeWallet{}, nop)
			if err != nil {
				return false
			}
			selected := networks[selectedIdx].ChainID
			if _, err := coordinator.SelectNetwork(selected); err != nil {
				return false
			}

			// Index len(networks) stands for a chain outside the registry.
			walletChain := uint64(1)
			if walletIdx < len(networks) {
				walletChain = networks[walletIdx].ChainID
			}
			if connected {
				coordinator.ObserveWalletChain(&walletChain)
			} else {
				coordinator.ObserveWalletChain(nil)
			}

			want := connected && walletChain == selected
			return coordinator.IsCorrect() == want && coordinator.Snapshot().IsCorrect() == want
		},
		gen.IntRange(0, len(networks)-1),
		gen.IntRange(0, len(networks)),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
