package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"contract_deployer/internal/app/port"
	"contract_deployer/internal/domain/entity"
	"contract_deployer/internal/pkg/metrics"
	"contract_deployer/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

// DeploymentController drives contract deployments for one session.
// At most one deployment is deploying or confirming at any time.
type DeploymentController struct {
	guard    port.NetworkGuard
	deployer port.ContractDeployer
	logger   port.Logger
	now      func() time.Time

	mu      sync.Mutex
	session entity.DeploymentSession
}

// NewDeploymentController creates a controller with an idle session.
func NewDeploymentController(guard port.NetworkGuard, deployer port.ContractDeployer, logger port.Logger) *DeploymentController {
	return &DeploymentController{
		guard:    guard,
		deployer: deployer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		session:  entity.DeploymentSession{Status: entity.DeploymentIdle},
	}
}

// Attempt is an accepted deployment that has not been submitted yet.
type Attempt struct {
	controller *DeploymentController
	id         string
	network    entity.Network
	creation   entity.CreationRequest
	started    atomic.Bool
}

// ID returns the session id assigned to the attempt.
func (a *Attempt) ID() string { return a.id }

// Network returns the network the attempt deploys to.
func (a *Attempt) Network() entity.Network { return a.network }

// Begin checks every precondition and, when all hold, replaces the current session with a
// fresh one in Deploying. A rejected request leaves the current session untouched.
func (c *DeploymentController) Begin(req entity.DeployRequest) (*Attempt, error) {
	creation, err := buildCreation(req)
	if err != nil {
		c.reject(err)
		return nil, err
	}

	network := c.guard.SelectedNetwork()
	state := c.guard.Snapshot()
	switch {
	case !state.WalletConnected():
		c.reject(entity.ErrWalletNotConnected)
		return nil, entity.ErrWalletNotConnected
	case !state.IsCorrect() || network.ChainID != state.SelectedID:
		err := fmt.Errorf("%w: wallet on chain %d, selected %s", entity.ErrNetworkMismatch, *state.WalletConnectedID, network)
		c.reject(err)
		return nil, err
	}
	creation.ChainID = network.ChainID

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Status.InFlight() {
		err := fmt.Errorf("%w: session %s is %s", entity.ErrDeploymentInProgress, c.session.ID, c.session.Status)
		c.logger.Warn("Deployment rejected", "reason", entity.ErrorKind(err), "active_session", c.session.ID)
		metrics.DeploymentsTotal.WithLabelValues(entity.ErrorKind(err)).Inc()
		return nil, err
	}

	now := c.now()
	attempt := &Attempt{
		controller: c,
		id:         uuid.NewString(),
		network:    network,
		creation:   creation,
	}
	c.session = entity.DeploymentSession{
		ID:        attempt.id,
		Status:    entity.DeploymentDeploying,
		ChainID:   network.ChainID,
		StartedAt: now,
		UpdatedAt: now,
	}
	c.logger.Info("Deployment accepted", "session_id", attempt.id, "network", network.Key, "from", creation.From)
	return attempt, nil
}

// Run submits the creation transaction and waits for its receipt, recording every
// transition on the controller. It returns the final session. Only the first call does work.
func (a *Attempt) Run(ctx context.Context) entity.DeploymentSession {
	c := a.controller
	if !a.started.CompareAndSwap(false, true) {
		return c.Session()
	}

	txHash, err := c.deployer.SubmitCreation(ctx, a.creation)
	if err != nil {
		if errors.Is(err, entity.ErrWalletRejection) {
			return a.fail(err, "transaction was rejected in the wallet: %v", err)
		}
		return a.fail(err, "failed to submit deployment transaction: %v", err)
	}

	a.update(func(s *entity.DeploymentSession) {
		s.TransactionHash = txHash
		s.Status = entity.DeploymentConfirming
	})
	c.logger.Info("Deployment transaction submitted", "session_id", a.id, "tx_hash", txHash, "explorer", a.network.TxURL(txHash))

	receipt, err := c.deployer.AwaitReceipt(ctx, a.network.ChainID, txHash)
	if err != nil {
		return a.fail(err, "failed to confirm transaction %s: %v", txHash, err)
	}
	if receipt.Reverted {
		return a.fail(nil, "contract creation reverted in block %d", receipt.BlockNumber)
	}
	if receipt.ContractAddress == "" {
		return a.fail(nil, "receipt for %s has no contract address", txHash)
	}

	final := a.update(func(s *entity.DeploymentSession) {
		s.ContractAddress = receipt.ContractAddress
		s.Status = entity.DeploymentSucceeded
	})
	metrics.DeploymentsTotal.WithLabelValues(string(entity.DeploymentSucceeded)).Inc()
	c.logger.Info("Contract deployed", "session_id", a.id, "address", receipt.ContractAddress, "block", receipt.BlockNumber, "explorer", a.network.AddressURL(receipt.ContractAddress))
	return final
}

// Deploy runs Begin and then Run, blocking until the deployment is final.
func (c *DeploymentController) Deploy(ctx context.Context, req entity.DeployRequest) (entity.DeploymentSession, error) {
	attempt, err := c.Begin(req)
	if err != nil {
		return c.Session(), err
	}
	return attempt.Run(ctx), nil
}

// Session returns a snapshot of the current session.
func (c *DeploymentController) Session() entity.DeploymentSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (a *Attempt) update(mutate func(s *entity.DeploymentSession)) entity.DeploymentSession {
	c := a.controller
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.ID != a.id {
		return c.session
	}
	mutate(&c.session)
	c.session.UpdatedAt = c.now()
	return c.session
}

func (a *Attempt) fail(cause error, format string, args ...any) entity.DeploymentSession {
	msg := fmt.Sprintf(format, args...)
	final := a.update(func(s *entity.DeploymentSession) {
		s.Status = entity.DeploymentFailed
		s.ContractAddress = ""
		s.ErrorMessage = msg
	})
	metrics.DeploymentsTotal.WithLabelValues(string(entity.DeploymentFailed)).Inc()
	a.controller.logger.Error("Deployment failed", "session_id", a.id, "reason", entity.ErrorKind(cause), "error", msg)
	return final
}

func (c *DeploymentController) reject(err error) {
	c.logger.Warn("Deployment rejected", "reason", entity.ErrorKind(err), "error", err)
	metrics.DeploymentsTotal.WithLabelValues(entity.ErrorKind(err)).Inc()
}

// buildCreation validates the artifact and sender and assembles the creation payload.
func buildCreation(req entity.DeployRequest) (entity.CreationRequest, error) {
	trimmed := bytes.TrimSpace(req.ABI)
	var entries []jsoniter.RawMessage
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(trimmed, &entries); err != nil {
		return entity.CreationRequest{}, fmt.Errorf("%w: abi must be a JSON array", entity.ErrValidation)
	}
	if len(entries) == 0 {
		return entity.CreationRequest{}, fmt.Errorf("%w: abi is empty", entity.ErrValidation)
	}
	parsed, err := abi.JSON(bytes.NewReader(trimmed))
	if err != nil {
		return entity.CreationRequest{}, fmt.Errorf("%w: abi is malformed: %v", entity.ErrValidation, err)
	}
	// Constructor arguments are not supported; Pack fails when the constructor expects any.
	ctorInput, err := parsed.Pack("")
	if err != nil {
		return entity.CreationRequest{}, fmt.Errorf("%w: constructor arguments are not supported: %v", entity.ErrValidation, err)
	}

	bytecode, err := utils.NormalizeBytecode(req.Bytecode)
	if err != nil {
		return entity.CreationRequest{}, fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}
	data := bytecode
	if len(ctorInput) > 0 {
		data += strings.TrimPrefix(hexutil.Encode(ctorInput), "0x")
	}

	from := strings.TrimSpace(req.DeployerAddress)
	if !common.IsHexAddress(from) {
		return entity.CreationRequest{}, fmt.Errorf("%w: deployer address %q is not a hex address", entity.ErrValidation, req.DeployerAddress)
	}

	return entity.CreationRequest{
		From: common.HexToAddress(from).Hex(),
		Data: data,
		ABI:  append([]byte(nil), trimmed...),
	}, nil
}
