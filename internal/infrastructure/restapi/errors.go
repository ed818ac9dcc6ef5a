package restapi

import (
	"errors"
	"net/http"

	"contract_deployer/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

var errSessionNotFound = errors.New("session not found or expired")

// APIError is the body of every non-2xx response.
type APIError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, errSessionNotFound) {
		return http.StatusNotFound
	}
	switch entity.ErrorKind(err) {
	case "validation":
		return http.StatusBadRequest
	case "network_mismatch", "deployment_in_progress":
		return http.StatusConflict
	case "wallet_not_connected":
		return http.StatusPreconditionFailed
	case "wallet_rejection":
		return http.StatusForbidden
	case "provider":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	kind := entity.ErrorKind(err)
	if errors.Is(err, errSessionNotFound) {
		kind = "not_found"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), errorResponse{Error: APIError{Kind: kind, Message: err.Error()}})
}
