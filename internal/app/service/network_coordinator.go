package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"contract_deployer/internal/app/port"
	"contract_deployer/internal/domain/entity"
	"contract_deployer/internal/pkg/metrics"
)

// NetworkCoordinator reconciles the network the user selected with the chain the wallet reports.
// One coordinator belongs to one session; it is safe for concurrent use.
type NetworkCoordinator struct {
	registry port.NetworkRegistry
	switcher port.ChainSwitcher
	logger   port.Logger

	mu    sync.Mutex
	state entity.NetworkSelectionState
}

// NewNetworkCoordinator creates a coordinator whose selection starts at the first registry entry.
func NewNetworkCoordinator(registry port.NetworkRegistry, switcher port.ChainSwitcher, logger port.Logger) (*NetworkCoordinator, error) {
	all := registry.All()
	if len(all) == 0 {
		return nil, fmt.Errorf("network registry is empty")
	}
	return &NetworkCoordinator{
		registry: registry,
		switcher: switcher,
		logger:   logger,
		state:    entity.NetworkSelectionState{SelectedID: all[0].ChainID},
	}, nil
}

// SelectNetwork changes the selected network. It never talks to the wallet: when the
// result reports a mismatch the caller decides whether to RequestSwitch.
func (c *NetworkCoordinator) SelectNetwork(chainID uint64) (entity.SelectionResult, error) {
	network, ok := c.registry.ByChainID(chainID)
	if !ok {
		c.logger.Warn("Rejected selection of unknown network", "chain_id", chainID)
		return entity.SelectionResult{}, fmt.Errorf("chain id %d: %w", chainID, entity.ErrUnknownNetwork)
	}

	c.mu.Lock()
	c.state.SelectedID = network.ChainID
	status := c.state.Status()
	c.mu.Unlock()

	c.logger.Debug("Network selected", "network", network.Key, "chain_id", network.ChainID, "status", status)
	return entity.SelectionResult{Network: network, Status: status}, nil
}

// SelectNetworkByKey selects a network by its nickname, e.g. "arbitrum".
func (c *NetworkCoordinator) SelectNetworkByKey(key string) (entity.SelectionResult, error) {
	network, ok := c.registry.ByKey(key)
	if !ok {
		c.logger.Warn("Rejected selection of unknown network key", "key", key)
		return entity.SelectionResult{}, fmt.Errorf("network key %q: %w", key, entity.ErrUnknownNetwork)
	}
	return c.SelectNetwork(network.ChainID)
}

// ObserveWalletChain records the chain the wallet reports. nil means the wallet disconnected.
// Chains outside the registry are kept as-is so the mismatch stays visible.
func (c *NetworkCoordinator) ObserveWalletChain(chainID *uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if chainID == nil {
		if c.state.WalletConnectedID != nil {
			c.logger.Info("Wallet disconnected")
		}
		c.state.WalletConnectedID = nil
		return
	}

	id := *chainID
	if c.state.WalletConnectedID == nil || *c.state.WalletConnectedID != id {
		c.logger.Info("Wallet chain changed", "chain_id", id, "selected_chain_id", c.state.SelectedID)
	}
	c.state.WalletConnectedID = &id
}

// RequestSwitch asks the wallet to move to targetID. The observed wallet chain is only
// updated later through ObserveWalletChain. A failed request is kept as LastSwitchError.
func (c *NetworkCoordinator) RequestSwitch(ctx context.Context, targetID uint64) error {
	network, ok := c.registry.ByChainID(targetID)
	if !ok {
		metrics.SwitchRequestsTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("chain id %d: %w", targetID, entity.ErrUnknownNetwork)
	}

	c.mu.Lock()
	connected := c.state.WalletConnectedID
	c.mu.Unlock()

	if connected == nil {
		metrics.SwitchRequestsTotal.WithLabelValues("not_connected").Inc()
		return entity.ErrWalletNotConnected
	}
	if *connected == targetID {
		metrics.SwitchRequestsTotal.WithLabelValues("noop").Inc()
		c.clearSwitchError()
		return nil
	}

	c.logger.Info("Requesting wallet chain switch", "from_chain_id", *connected, "to_chain_id", targetID, "network", network.Key)
	if err := c.switcher.SwitchChain(ctx, targetID); err != nil {
		classified := classifyWalletError(err)
		c.mu.Lock()
		c.state.LastSwitchError = fmt.Sprintf("switch to %s failed: %v", network.Name, err)
		c.mu.Unlock()

		outcome := "provider_error"
		if errors.Is(classified, entity.ErrWalletRejection) {
			outcome = "rejected"
		}
		metrics.SwitchRequestsTotal.WithLabelValues(outcome).Inc()
		c.logger.Warn("Wallet chain switch failed", "to_chain_id", targetID, "error", err)
		return classified
	}

	metrics.SwitchRequestsTotal.WithLabelValues("ok").Inc()
	c.clearSwitchError()
	return nil
}

// SwitchToSelected asks the wallet to move to the currently selected network.
func (c *NetworkCoordinator) SwitchToSelected(ctx context.Context) error {
	c.mu.Lock()
	target := c.state.SelectedID
	c.mu.Unlock()
	return c.RequestSwitch(ctx, target)
}

func (c *NetworkCoordinator) clearSwitchError() {
	c.mu.Lock()
	c.state.LastSwitchError = ""
	c.mu.Unlock()
}

// IsCorrect is true iff a wallet is connected and on the selected chain.
func (c *NetworkCoordinator) IsCorrect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.IsCorrect()
}

// Status returns pending, correct or mismatch.
func (c *NetworkCoordinator) Status() entity.NetworkStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Status()
}

// Snapshot returns a copy of the selection state.
func (c *NetworkCoordinator) Snapshot() entity.NetworkSelectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.state
	if c.state.WalletConnectedID != nil {
		id := *c.state.WalletConnectedID
		snap.WalletConnectedID = &id
	}
	return snap
}

// SelectedNetwork returns the registry entry of the current selection.
func (c *NetworkCoordinator) SelectedNetwork() entity.Network {
	c.mu.Lock()
	id := c.state.SelectedID
	c.mu.Unlock()
	// SelectedID is only ever set from a registry lookup.
	network, _ := c.registry.ByChainID(id)
	return network
}

// classifyWalletError makes sure a wallet failure carries one of the wallet error kinds.
func classifyWalletError(err error) error {
	if errors.Is(err, entity.ErrWalletRejection) || errors.Is(err, entity.ErrProvider) {
		return err
	}
	return fmt.Errorf("%w: %w", entity.ErrProvider, err)
}
