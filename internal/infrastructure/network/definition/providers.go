package networkdefinition

import (
	"fmt"
	"strings"

	"contract_deployer/internal/app/port"
	"contract_deployer/internal/domain/entity"
)

// NetworkDefinitionProvider is the fixed registry of deployable networks.
// It is built once at startup and never mutated afterwards.
type NetworkDefinitionProvider struct {
	logger    port.Logger
	ordered   []entity.Network
	byChainID map[uint64]entity.Network
	byKey     map[string]entity.Network
}

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	ZkSyncSepolia = entity.Network{
		ChainID:      300,
		Key:          "zksync",
		Name:         "ZKsync Sepolia Testnet",
		NativeSymbol: "ETH",
		RPCEndpoint:  "https://sepolia.era.zksync.dev",
		ExplorerURL:  "https://sepolia.explorer.zksync.io",
	}
	ArbitrumSepolia = entity.Network{
		ChainID:      421614,
		Key:          "arbitrum",
		Name:         "Arbitrum Sepolia",
		NativeSymbol: "ETH",
		RPCEndpoint:  "https://sepolia-rollup.arbitrum.io/rpc",
		ExplorerURL:  "https://sepolia.arbiscan.io",
	}
	OptimismSepolia = entity.Network{
		ChainID:      11155420,
		Key:          "optimism",
		Name:         "OP Sepolia",
		NativeSymbol: "ETH",
		RPCEndpoint:  "https://sepolia.optimism.io",
		ExplorerURL:  "https://sepolia-optimism.etherscan.io",
	}
	BaseSepolia = entity.Network{
		ChainID:      84532,
		Key:          "base",
		Name:         "Base Sepolia",
		NativeSymbol: "ETH",
		RPCEndpoint:  "https://sepolia.base.org",
		ExplorerURL:  "https://sepolia.basescan.org",
	}
	EthereumSepolia = entity.Network{
		ChainID:      11155111,
		Key:          "ethereum",
		Name:         "Sepolia",
		NativeSymbol: "ETH",
		RPCEndpoint:  "https://ethereum-sepolia-rpc.publicnode.com",
		ExplorerURL:  "https://sepolia.etherscan.io",
	}
)

// allKnownDefinitions is in registry order; the first entry is the default selection.
var allKnownDefinitions = []entity.Network{ //nolint:gochecknoglobals
	ZkSyncSepolia,
	ArbitrumSepolia,
	OptimismSepolia,
	BaseSepolia,
	EthereumSepolia,
}

// NewNetworkDefinitionProvider creates the registry, applying RPC endpoint overrides keyed by network key.
// An override for an unknown key is a configuration error.
func NewNetworkDefinitionProvider(log port.Logger, rpcOverrides map[string]string) (*NetworkDefinitionProvider, error) {
	p := &NetworkDefinitionProvider{
		logger:    log,
		ordered:   make([]entity.Network, 0, len(allKnownDefinitions)),
		byChainID: make(map[uint64]entity.Network, len(allKnownDefinitions)),
		byKey:     make(map[string]entity.Network, len(allKnownDefinitions)),
	}

	for _, def := range allKnownDefinitions {
		p.byKey[def.Key] = def
	}
	for key := range rpcOverrides {
		if _, ok := p.byKey[strings.ToLower(key)]; !ok {
			return nil, fmt.Errorf("rpc override for unknown network key %q", key)
		}
	}

	for _, def := range allKnownDefinitions {
		if override := strings.TrimSpace(overrideFor(rpcOverrides, def.Key)); override != "" {
			p.logger.Debug("Overriding RPC endpoint", "network", def.Key, "rpc", override)
			def.RPCEndpoint = override
		}
		p.ordered = append(p.ordered, def)
		p.byChainID[def.ChainID] = def
		p.byKey[def.Key] = def
	}

	p.logger.Info(fmt.Sprintf("NetworkDefinitionProvider initialized. Networks: %d", len(p.ordered)))
	for _, def := range p.ordered {
		p.logger.Debug(fmt.Sprintf("  - Network: %s (key: %s, ChainID: %d)", def.Name, def.Key, def.ChainID))
	}
	return p, nil
}

func overrideFor(overrides map[string]string, key string) string {
	for k, v := range overrides {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// All returns a copy of every network in registry order.
func (p *NetworkDefinitionProvider) All() []entity.Network {
	defsCopy := make([]entity.Network, len(p.ordered))
	copy(defsCopy, p.ordered)
	return defsCopy
}

// ByChainID returns the network registered for chainID.
func (p *NetworkDefinitionProvider) ByChainID(chainID uint64) (entity.Network, bool) {
	def, ok := p.byChainID[chainID]
	return def, ok
}

// ByKey resolves a network nickname, case-insensitively.
func (p *NetworkDefinitionProvider) ByKey(key string) (entity.Network, bool) {
	def, ok := p.byKey[strings.ToLower(strings.TrimSpace(key))]
	return def, ok
}

// Keys returns the nickname of every network in registry order.
func (p *NetworkDefinitionProvider) Keys() []string {
	keys := make([]string, 0, len(p.ordered))
	for _, def := range p.ordered {
		keys = append(keys, def.Key)
	}
	return keys
}

// KnownKeys returns the nickname of every predefined network, before any override is applied.
func KnownKeys() []string {
	keys := make([]string, 0, len(allKnownDefinitions))
	for _, def := range allKnownDefinitions {
		keys = append(keys, def.Key)
	}
	return keys
}
