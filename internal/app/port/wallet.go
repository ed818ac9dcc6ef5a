package port

import (
	"context"

	"contract_deployer/internal/domain/entity"
)

// ChainReader reports the chain the wallet is currently active on.
type ChainReader interface {
	ChainID(ctx context.Context) (uint64, error)
}

// ChainSwitcher asks the wallet to change its active chain.
// Implementations return errors wrapping entity.ErrWalletRejection when the user declines
// or the chain is unsupported, and entity.ErrProvider for transport failures.
type ChainSwitcher interface {
	SwitchChain(ctx context.Context, chainID uint64) error
}

// ContractDeployer submits creation transactions and waits for their receipts.
type ContractDeployer interface {
	// SubmitCreation has the wallet sign and broadcast a contract-creation transaction
	// and returns its hash.
	SubmitCreation(ctx context.Context, req entity.CreationRequest) (string, error)

	// AwaitReceipt blocks until the transaction is included on chainID or ctx is done.
	AwaitReceipt(ctx context.Context, chainID uint64, txHash string) (entity.Receipt, error)
}

// Wallet is the full set of primitives the core needs from a wallet/RPC provider.
type Wallet interface {
	ChainReader
	ChainSwitcher
	ContractDeployer
}
