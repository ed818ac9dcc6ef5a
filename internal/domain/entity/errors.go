package entity

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the core. Concrete errors wrap one of these with fmt.Errorf("...: %w").
var (
	ErrValidation      = errors.New("validation error")
	ErrNetworkMismatch = errors.New("wallet is connected to a different network than the selected one")
	ErrWalletRejection = errors.New("wallet rejected the request")
	ErrProvider        = errors.New("provider error")

	ErrWalletNotConnected   = errors.New("wallet is not connected")
	ErrDeploymentInProgress = errors.New("a deployment is already in progress")
	ErrUnknownNetwork       = fmt.Errorf("%w: network is not in the registry", ErrValidation)
	ErrInvalidWeights       = fmt.Errorf("%w: invalid user weights", ErrValidation)
	ErrInvalidMetric        = fmt.Errorf("%w: invalid protocol metric", ErrValidation)
)

// ErrorKind names the kind of err for API responses and metrics labels.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNetworkMismatch):
		return "network_mismatch"
	case errors.Is(err, ErrWalletRejection):
		return "wallet_rejection"
	case errors.Is(err, ErrWalletNotConnected):
		return "wallet_not_connected"
	case errors.Is(err, ErrDeploymentInProgress):
		return "deployment_in_progress"
	case errors.Is(err, ErrProvider):
		return "provider"
	default:
		return "internal"
	}
}
