package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contract_deployer/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// receiptBackend is the subset of an RPC client needed to follow a transaction.
// *ethclient.Client and the simulated backend client both satisfy it.
type receiptBackend = bind.DeployBackend

// bindPollInterval is the fixed cadence of bind.WaitMinedHash.
const bindPollInterval = time.Second

// EVMClient reads receipts from one network's RPC endpoint.
type EVMClient struct {
	backend      receiptBackend
	network      entity.Network
	pollInterval time.Duration
	close        func()
}

// NewEVMClient wraps an already connected backend for network.
func NewEVMClient(network entity.Network, backend receiptBackend, pollInterval time.Duration) *EVMClient {
	if pollInterval <= 0 {
		pollInterval = bindPollInterval
	}
	return &EVMClient{backend: backend, network: network, pollInterval: pollInterval, close: func() {}}
}

// WaitForReceipt polls for the receipt of txHash until it is available or ctx is done.
// A missing receipt and transient RPC errors both lead to another poll.
func (c *EVMClient) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if c.pollInterval == bindPollInterval {
		receipt, err := bind.WaitMinedHash(ctx, c.backend, txHash)
		if err != nil {
			return nil, fmt.Errorf("waiting for receipt of %s on %s: %w", txHash.Hex(), c.network.Name, err)
		}
		return receipt, nil
	}

	// bind.WaitMinedHash cannot change its interval, so other intervals poll here.
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		receipt, err := c.backend.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return nil, fmt.Errorf("waiting for receipt of %s on %s: %w (last rpc error: %v)", txHash.Hex(), c.network.Name, ctx.Err(), lastErr)
			}
			return nil, fmt.Errorf("waiting for receipt of %s on %s: %w", txHash.Hex(), c.network.Name, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Network returns the network this client reads from.
func (c *EVMClient) Network() entity.Network {
	return c.network
}

// Close releases the underlying connection.
func (c *EVMClient) Close() {
	c.close()
}

// toEntityReceipt keeps the fields the deployment flow depends on.
func toEntityReceipt(r *types.Receipt) entity.Receipt {
	out := entity.Receipt{
		TransactionHash: r.TxHash.Hex(),
		Reverted:        r.Status == types.ReceiptStatusFailed,
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	if r.ContractAddress != (common.Address{}) {
		out.ContractAddress = r.ContractAddress.Hex()
	}
	return out
}
