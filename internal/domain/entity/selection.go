package entity

// NetworkStatus describes how the wallet chain relates to the selected network.
type NetworkStatus string

const (
	// NetworkPending means no wallet is connected yet.
	NetworkPending NetworkStatus = "pending"
	// NetworkCorrect means the wallet is on the selected chain.
	NetworkCorrect NetworkStatus = "correct"
	// NetworkMismatch means the wallet is connected to a different chain.
	NetworkMismatch NetworkStatus = "mismatch"
)

// NetworkSelectionState is a snapshot of the selected network versus the wallet-connected network.
type NetworkSelectionState struct {
	SelectedID        uint64  `json:"selectedId"`
	WalletConnectedID *uint64 `json:"walletConnectedId,omitempty"`
	LastSwitchError   string  `json:"lastSwitchError,omitempty"`
}

// WalletConnected reports whether a wallet chain is known.
func (s NetworkSelectionState) WalletConnected() bool {
	return s.WalletConnectedID != nil
}

// IsCorrect is true iff a wallet is connected and sits on the selected chain.
func (s NetworkSelectionState) IsCorrect() bool {
	return s.WalletConnectedID != nil && *s.WalletConnectedID == s.SelectedID
}

// Status derives the tri-state network status used for user messaging.
func (s NetworkSelectionState) Status() NetworkStatus {
	switch {
	case s.WalletConnectedID == nil:
		return NetworkPending
	case s.IsCorrect():
		return NetworkCorrect
	default:
		return NetworkMismatch
	}
}

// SelectionResult is returned by a local network selection.
type SelectionResult struct {
	Network Network       `json:"network"`
	Status  NetworkStatus `json:"status"`
}

// NeedsSwitch reports whether the wallet has to be switched to match the selection.
func (r SelectionResult) NeedsSwitch() bool {
	return r.Status == NetworkMismatch
}
