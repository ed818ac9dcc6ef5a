package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"contract_deployer/internal/app/port"
	"contract_deployer/internal/domain/entity"
	"contract_deployer/internal/infrastructure/configloader"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EVMClientProvider dials and caches one receipt client per network.
type EVMClientProvider struct {
	clients      map[uint64]*EVMClient
	mu           sync.Mutex
	logger       port.Logger
	dialTimeout  time.Duration
	maxRetries   uint
	retryDelay   time.Duration
	pollInterval time.Duration
}

// NewEVMClientProvider creates a new EVMClientProvider.
func NewEVMClientProvider(cfg configloader.RpcClientConfig, logger port.Logger) *EVMClientProvider {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	return &EVMClientProvider{
		clients:      make(map[uint64]*EVMClient),
		logger:       logger,
		dialTimeout:  cfg.DefaultTimeout(),
		maxRetries:   uint(retries),
		retryDelay:   time.Duration(cfg.RetryDelayMs) * time.Millisecond,
		pollInterval: cfg.ReceiptPollInterval(),
	}
}

// GetClient returns the cached client for network, dialing it on first use.
// The endpoint must report the network's chain id.
func (p *EVMClientProvider) GetClient(ctx context.Context, network entity.Network) (*EVMClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, exists := p.clients[network.ChainID]; exists {
		return client, nil
	}

	p.logger.Info("Creating new EVM client", "network", network.Key, "rpc", network.RPCEndpoint)
	ethClient, err := retry.DoWithData(
		func() (*ethclient.Client, error) {
			return p.dial(ctx, network)
		},
		retry.Context(ctx),
		retry.Attempts(p.maxRetries),
		retry.Delay(p.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Warn("Retrying RPC dial", "network", network.Key, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		p.logger.Error("Failed to create EVM client", "network", network.Key, "error", err)
		return nil, fmt.Errorf("%w: failed to create EVM client for %s: %w", entity.ErrProvider, network.Name, err)
	}

	client := NewEVMClient(network, ethClient, p.pollInterval)
	client.close = ethClient.Close
	p.clients[network.ChainID] = client
	p.logger.Info("Successfully created and cached new EVM client", "network", network.Key)
	return client, nil
}

func (p *EVMClientProvider) dial(ctx context.Context, network entity.Network) (*ethclient.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	ethClient, err := ethclient.DialContext(dialCtx, network.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC %s: %w", network.RPCEndpoint, err)
	}
	chainID, err := ethClient.ChainID(dialCtx)
	if err != nil {
		ethClient.Close()
		return nil, fmt.Errorf("failed to read chain id from %s: %w", network.RPCEndpoint, err)
	}
	if chainID.Uint64() != network.ChainID {
		ethClient.Close()
		return nil, retry.Unrecoverable(fmt.Errorf("RPC %s serves chain %d, expected %d", network.RPCEndpoint, chainID.Uint64(), network.ChainID))
	}
	return ethClient, nil
}

// Close closes every cached client.
func (p *EVMClientProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, client := range p.clients {
		client.Close()
		delete(p.clients, id)
	}
}
