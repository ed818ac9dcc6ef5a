package entity

import (
	"fmt"
	"strings"
)

// Network holds the immutable description of a deployable chain.
// This structure is defined at the domain level to be used across application and infrastructure layers.
type Network struct {
	ChainID      uint64 `json:"chainId" yaml:"chainId"`
	Key          string `json:"key" yaml:"key"` // Short nickname used by the selection input channel (e.g. "arbitrum")
	Name         string `json:"name" yaml:"name"`
	NativeSymbol string `json:"nativeSymbol" yaml:"nativeSymbol"`
	RPCEndpoint  string `json:"rpcEndpoint" yaml:"rpcEndpoint"`
	ExplorerURL  string `json:"explorerUrl" yaml:"explorerUrl"`
}

// TxURL builds the block explorer link for a transaction hash.
func (n Network) TxURL(hash string) string {
	return fmt.Sprintf("%s/tx/%s", strings.TrimRight(n.ExplorerURL, "/"), hash)
}

// AddressURL builds the block explorer link for an account or contract address.
func (n Network) AddressURL(address string) string {
	return fmt.Sprintf("%s/address/%s", strings.TrimRight(n.ExplorerURL, "/"), address)
}

// String returns "<name> (<chain id>)".
func (n Network) String() string {
	return fmt.Sprintf("%s (%d)", n.Name, n.ChainID)
}
