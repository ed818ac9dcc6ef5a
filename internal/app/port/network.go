package port

import (
	"contract_deployer/internal/domain/entity"
)

// NetworkRegistry is the fixed, process-wide set of deployable networks.
type NetworkRegistry interface {
	// All returns every network in registry order. The first entry is the default selection.
	All() []entity.Network

	// ByChainID returns the network for a chain id, false if it is not registered.
	ByChainID(chainID uint64) (entity.Network, bool)

	// ByKey resolves a short nickname (e.g. "arbitrum") to its network, false if unknown.
	ByKey(key string) (entity.Network, bool)
}

// NetworkGuard exposes the selection state a deployment is checked against.
type NetworkGuard interface {
	Snapshot() entity.NetworkSelectionState
	SelectedNetwork() entity.Network
}
