package entity

import (
	"encoding/json"
	"time"
)

// DeploymentStatus is the lifecycle state of a deployment session.
type DeploymentStatus string

const (
	DeploymentIdle       DeploymentStatus = "idle"
	DeploymentDeploying  DeploymentStatus = "deploying"
	DeploymentConfirming DeploymentStatus = "confirming"
	DeploymentSucceeded  DeploymentStatus = "succeeded"
	DeploymentFailed     DeploymentStatus = "failed"
)

// Terminal reports whether no further transition can happen for the session.
func (s DeploymentStatus) Terminal() bool {
	return s == DeploymentSucceeded || s == DeploymentFailed
}

// InFlight reports whether the session still waits on the wallet or the chain.
func (s DeploymentStatus) InFlight() bool {
	return s == DeploymentDeploying || s == DeploymentConfirming
}

// DeploymentSession is an observable snapshot of one deployment attempt.
type DeploymentSession struct {
	ID              string           `json:"id,omitempty"`
	Status          DeploymentStatus `json:"status"`
	ChainID         uint64           `json:"chainId,omitempty"`
	TransactionHash string           `json:"transactionHash,omitempty"`
	ContractAddress string           `json:"contractAddress,omitempty"`
	ErrorMessage    string           `json:"errorMessage,omitempty"`
	StartedAt       time.Time        `json:"startedAt,omitempty"`
	UpdatedAt       time.Time        `json:"updatedAt,omitempty"`
}

// DeployRequest carries the compiled artifact and the sender for a deployment.
type DeployRequest struct {
	ABI             json.RawMessage `json:"abi"`
	Bytecode        string          `json:"bytecode"`
	DeployerAddress string          `json:"deployerAddress"`
}

// CreationRequest is what the wallet is asked to sign and broadcast.
type CreationRequest struct {
	ChainID uint64
	From    string
	// Data is the 0x-prefixed creation payload (bytecode followed by encoded constructor input).
	Data string
	ABI  json.RawMessage
}

// Receipt is the subset of an inclusion receipt the deployment flow depends on.
type Receipt struct {
	TransactionHash string
	BlockNumber     uint64
	// Reverted is true when the receipt status reports an execution failure.
	Reverted bool
	// ContractAddress is empty when the transaction did not create a contract.
	ContractAddress string
}
