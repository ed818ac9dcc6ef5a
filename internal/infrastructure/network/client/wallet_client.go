package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"contract_deployer/internal/app/port"
	"contract_deployer/internal/domain/entity"
	"contract_deployer/internal/infrastructure/configloader"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// EIP-1193 provider error codes treated as a user decision rather than a fault.
const (
	codeUserRejected       = 4001
	codeUnauthorized       = 4100
	codeUnrecognizedChain  = 4902
	codeUnsupportedChainID = 4901
)

// WalletClient talks to an external wallet (e.g. Frame) that exposes the EIP-1193 methods over JSON-RPC.
// Receipts are read from the target network's own RPC endpoint.
type WalletClient struct {
	rpc            *rpc.Client
	registry       port.NetworkRegistry
	receipts       *EVMClientProvider
	logger         port.Logger
	callTimeout    time.Duration
	receiptTimeout time.Duration
}

var _ port.Wallet = (*WalletClient)(nil)

// NewWalletClient connects to the wallet endpoint. HTTP endpoints are not contacted until the first call.
func NewWalletClient(
	ctx context.Context,
	endpoint string,
	registry port.NetworkRegistry,
	receipts *EVMClientProvider,
	cfg configloader.RpcClientConfig,
	logger port.Logger,
) (*WalletClient, error) {
	rpcClient, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to wallet endpoint %s: %w", endpoint, err)
	}
	logger.Info("Wallet client initialized", "endpoint", endpoint)
	return &WalletClient{
		rpc:            rpcClient,
		registry:       registry,
		receipts:       receipts,
		logger:         logger,
		callTimeout:    cfg.DefaultTimeout(),
		receiptTimeout: cfg.ReceiptTimeout(),
	}, nil
}

// ChainID returns the chain the wallet is active on.
func (w *WalletClient) ChainID(ctx context.Context) (uint64, error) {
	callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
	defer cancel()

	var id hexutil.Uint64
	if err := w.rpc.CallContext(callCtx, &id, "eth_chainId"); err != nil {
		return 0, classifyRPCError("eth_chainId", err)
	}
	return uint64(id), nil
}

// SwitchChain asks the wallet to change its active chain. The user may decline.
func (w *WalletClient) SwitchChain(ctx context.Context, chainID uint64) error {
	// No call timeout: the request waits on the user.
	param := map[string]string{"chainId": hexutil.EncodeUint64(chainID)}
	if err := w.rpc.CallContext(ctx, nil, "wallet_switchEthereumChain", param); err != nil {
		return classifyRPCError("wallet_switchEthereumChain", err)
	}
	w.logger.Debug("Wallet accepted chain switch", "chain_id", chainID)
	return nil
}

type sendTxArgs struct {
	From    common.Address `json:"from"`
	Data    hexutil.Bytes  `json:"data"`
	ChainID *hexutil.Big   `json:"chainId"`
}

// SubmitCreation has the wallet sign and broadcast a contract-creation transaction.
func (w *WalletClient) SubmitCreation(ctx context.Context, req entity.CreationRequest) (string, error) {
	data, err := hexutil.Decode(req.Data)
	if err != nil {
		return "", fmt.Errorf("%w: creation data is not valid hex: %v", entity.ErrValidation, err)
	}
	args := sendTxArgs{
		From:    common.HexToAddress(req.From),
		Data:    data,
		ChainID: (*hexutil.Big)(new(big.Int).SetUint64(req.ChainID)),
	}

	var hash common.Hash
	if err := w.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return "", classifyRPCError("eth_sendTransaction", err)
	}
	w.logger.Info("Creation transaction broadcast", "chain_id", req.ChainID, "tx_hash", hash.Hex())
	return hash.Hex(), nil
}

// AwaitReceipt waits for the receipt of txHash on chainID, up to the configured receipt timeout.
func (w *WalletClient) AwaitReceipt(ctx context.Context, chainID uint64, txHash string) (entity.Receipt, error) {
	network, ok := w.registry.ByChainID(chainID)
	if !ok {
		return entity.Receipt{}, fmt.Errorf("%w: chain id %d", entity.ErrUnknownNetwork, chainID)
	}
	client, err := w.receipts.GetClient(ctx, network)
	if err != nil {
		return entity.Receipt{}, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, w.receiptTimeout)
	defer cancel()
	receipt, err := client.WaitForReceipt(waitCtx, common.HexToHash(txHash))
	if err != nil {
		return entity.Receipt{}, fmt.Errorf("%w: %w", entity.ErrProvider, err)
	}
	return toEntityReceipt(receipt), nil
}

// Close closes the wallet connection.
func (w *WalletClient) Close() {
	w.rpc.Close()
}

// classifyRPCError maps wallet JSON-RPC failures onto the wallet error kinds.
func classifyRPCError(method string, err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case codeUserRejected, codeUnauthorized, codeUnrecognizedChain, codeUnsupportedChainID:
			return fmt.Errorf("%w: %s: %w", entity.ErrWalletRejection, method, err)
		}
	}
	return fmt.Errorf("%w: %s: %w", entity.ErrProvider, method, err)
}
