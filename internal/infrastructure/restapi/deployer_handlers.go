package restapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"contract_deployer/internal/app/port"
	"contract_deployer/internal/app/service"
	"contract_deployer/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// weightParams maps query parameters onto scoring categories.
var weightParams = map[string]entity.Category{
	"scalability":      entity.CategoryScalability,
	"security":         entity.CategorySecurity,
	"decentralization": entity.CategoryDecentralization,
	"costEfficiency":   entity.CategoryCostEfficiency,
	"devExperience":    entity.CategoryDevExperience,
}

func categoryForParam(key string) (entity.Category, bool) {
	if category, ok := weightParams[key]; ok {
		return category, true
	}
	for _, category := range entity.Categories {
		if string(category) == key {
			return category, true
		}
	}
	return "", false
}

// SessionResponse is the observable state of one session.
type SessionResponse struct {
	ID         string                       `json:"id"`
	CreatedAt  time.Time                    `json:"createdAt"`
	Selected   entity.Network               `json:"selectedNetwork"`
	Selection  entity.NetworkSelectionState `json:"selection"`
	Status     entity.NetworkStatus         `json:"networkStatus"`
	IsCorrect  bool                         `json:"isCorrect"`
	Deployment service.DeploymentView       `json:"deployment"`
}

// SelectNetworkResponse is the applied selection. SwitchError is set when the
// wallet did not follow; the selection stands either way.
type SelectNetworkResponse struct {
	entity.SelectionResult
	SwitchError *APIError `json:"switchError,omitempty"`
}

// NetworksResponse lists the registry.
type NetworksResponse struct {
	Networks []entity.Network `json:"networks"`
	Default  string           `json:"default"`
}

type selectNetworkRequest struct {
	ChainID *uint64 `json:"chainId"`
	Key     string  `json:"key"`
	// Switch asks the wallet to follow the new selection when it is on another chain.
	Switch bool `json:"switch"`
}

type chainRequest struct {
	ChainID *uint64 `json:"chainId"`
}

type compileRequest struct {
	Source string `json:"source"`
}

// DeployerHandler serves the deployment and recommendation API.
type DeployerHandler struct {
	registry      port.NetworkRegistry
	sessions      *service.SessionStore
	wallet        port.ChainReader
	compiler      port.Compiler
	engine        *service.RecommendationEngine
	logger        port.Logger
	baseCtx       context.Context
	deployTimeout time.Duration
	inflight      sync.WaitGroup
}

// NewDeployerHandler creates a new DeployerHandler. Deployments started through the API run on
// baseCtx, bounded by deployTimeout, so they outlive the request that started them.
func NewDeployerHandler(
	baseCtx context.Context,
	registry port.NetworkRegistry,
	sessions *service.SessionStore,
	wallet port.ChainReader,
	compiler port.Compiler,
	engine *service.RecommendationEngine,
	deployTimeout time.Duration,
	logger port.Logger,
) *DeployerHandler {
	return &DeployerHandler{
		registry:      registry,
		sessions:      sessions,
		wallet:        wallet,
		compiler:      compiler,
		engine:        engine,
		logger:        logger,
		baseCtx:       baseCtx,
		deployTimeout: deployTimeout,
	}
}

// Wait blocks until every deployment started by the handler has finished.
func (h *DeployerHandler) Wait() {
	h.inflight.Wait()
}

// HealthHandler reports liveness and the number of live sessions.
func (h *DeployerHandler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.sessions.Count()})
}

// ListNetworksHandler returns every deployable network.
func (h *DeployerHandler) ListNetworksHandler(c *gin.Context) {
	networks := h.registry.All()
	c.JSON(http.StatusOK, NetworksResponse{Networks: networks, Default: networks[0].Key})
}

// CreateSessionHandler starts a session, optionally preselecting ?network=<key>.
func (h *DeployerHandler) CreateSessionHandler(c *gin.Context) {
	session, err := h.sessions.Create(c.Query("network"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.sessionResponse(session))
}

// GetSessionHandler returns the session state.
func (h *DeployerHandler) GetSessionHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(session))
}

// DeleteSessionHandler ends a session.
func (h *DeployerHandler) DeleteSessionHandler(c *gin.Context) {
	if _, ok := h.session(c); !ok {
		return
	}
	h.sessions.Delete(c.Param("sessionID"))
	c.Status(http.StatusNoContent)
}

// SelectNetworkHandler changes the selected network by chain id or key. With "switch" set a
// mismatched wallet is asked to follow, and a refusal is reported in the body.
func (h *DeployerHandler) SelectNetworkHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req selectNetworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", entity.ErrValidation, err))
		return
	}

	var (
		res entity.SelectionResult
		err error
	)
	switch {
	case req.ChainID != nil:
		res, err = session.Coordinator.SelectNetwork(*req.ChainID)
	case req.Key != "":
		res, err = session.Coordinator.SelectNetworkByKey(req.Key)
	default:
		err = fmt.Errorf("%w: chainId or key is required", entity.ErrValidation)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := SelectNetworkResponse{SelectionResult: res}
	if req.Switch && res.NeedsSwitch() {
		if err := session.Coordinator.SwitchToSelected(c.Request.Context()); err != nil {
			h.logger.Warn("Wallet did not follow the new selection", "session_id", session.ID, "chain_id", res.Network.ChainID, "error", err)
			resp.SwitchError = &APIError{Kind: entity.ErrorKind(err), Message: err.Error()}
		}
	}
	c.JSON(http.StatusOK, resp)
}

// SwitchNetworkHandler asks the wallet to move to the selected network, or to {"chainId"} when given.
func (h *DeployerHandler) SwitchNetworkHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req chainRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}

	var err error
	if req.ChainID != nil {
		err = session.Coordinator.RequestSwitch(c.Request.Context(), *req.ChainID)
	} else {
		err = session.Coordinator.SwitchToSelected(c.Request.Context())
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(session))
}

// ConnectWalletHandler records a connected wallet. Without {"chainId"} the wallet endpoint is asked.
func (h *DeployerHandler) ConnectWalletHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req chainRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}

	chainID := req.ChainID
	if chainID == nil {
		id, err := h.wallet.ChainID(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		chainID = &id
	}
	session.Coordinator.ObserveWalletChain(chainID)
	c.JSON(http.StatusOK, h.sessionResponse(session))
}

// DisconnectWalletHandler forgets the wallet chain.
func (h *DeployerHandler) DisconnectWalletHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Coordinator.ObserveWalletChain(nil)
	c.JSON(http.StatusOK, h.sessionResponse(session))
}

// WalletChainHandler receives a chainChanged notification from the UI shell.
func (h *DeployerHandler) WalletChainHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req chainRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChainID == nil {
		abortWithError(c, fmt.Errorf("%w: chainId is required", entity.ErrValidation))
		return
	}
	session.Coordinator.ObserveWalletChain(req.ChainID)
	c.JSON(http.StatusOK, h.sessionResponse(session))
}

// CompileHandler proxies {"source"} to the compile service.
func (h *DeployerHandler) CompileHandler(c *gin.Context) {
	var req compileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", entity.ErrValidation, err))
		return
	}
	result, err := h.compiler.Compile(c.Request.Context(), req.Source)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeployHandler checks the preconditions synchronously and runs the deployment in the background.
// The response is 202 with the session in Deploying; poll GET .../deployment for the outcome.
func (h *DeployerHandler) DeployHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req entity.DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", entity.ErrValidation, err))
		return
	}

	attempt, err := session.Controller.Begin(req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		ctx, cancel := context.WithTimeout(h.baseCtx, h.deployTimeout)
		defer cancel()
		final := attempt.Run(ctx)
		h.logger.Info("Deployment finished", "session_id", session.ID, "deployment_id", final.ID, "status", string(final.Status))
	}()

	c.JSON(http.StatusAccepted, service.NewDeploymentView(h.registry, session.Controller.Session()))
}

// GetDeploymentHandler returns the current deployment session with explorer links.
func (h *DeployerHandler) GetDeploymentHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, service.NewDeploymentView(h.registry, session.Controller.Session()))
}

// RecommendHandler ranks candidates for the weights in the query. Each weight may be named by its
// query parameter (costEfficiency) or its category ("Cost Efficiency"). Missing weights default to 5;
// unknown or repeated keys are rejected.
func (h *DeployerHandler) RecommendHandler(c *gin.Context) {
	raw := make(map[string]float64, len(entity.Categories))
	for _, category := range entity.Categories {
		raw[string(category)] = entity.DefaultWeight
	}

	given := make(map[entity.Category]string, len(entity.Categories))
	for key, values := range c.Request.URL.Query() {
		category, ok := categoryForParam(key)
		if !ok {
			abortWithError(c, fmt.Errorf("%w: unknown weight %q", entity.ErrInvalidWeights, key))
			return
		}
		if len(values) != 1 {
			abortWithError(c, fmt.Errorf("%w: %s given more than once", entity.ErrInvalidWeights, key))
			return
		}
		if prev, dup := given[category]; dup {
			abortWithError(c, fmt.Errorf("%w: %s given as both %s and %s", entity.ErrInvalidWeights, category, prev, key))
			return
		}
		given[category] = key

		parsed, err := strconv.ParseFloat(values[0], 64)
		if err != nil {
			abortWithError(c, fmt.Errorf("%w: %s must be a number, got %q", entity.ErrInvalidWeights, key, values[0]))
			return
		}
		raw[string(category)] = parsed
	}

	weights, err := entity.ParseUserWeights(raw)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ranked, err := h.engine.Recommend(weights)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weights": weights, "ranking": ranked})
}

func (h *DeployerHandler) session(c *gin.Context) (*service.Session, bool) {
	id := c.Param("sessionID")
	session, ok := h.sessions.Get(id)
	if !ok {
		abortWithError(c, fmt.Errorf("%w: %s", errSessionNotFound, id))
		return nil, false
	}
	return session, true
}

func (h *DeployerHandler) sessionResponse(session *service.Session) SessionResponse {
	snapshot := session.Coordinator.Snapshot()
	return SessionResponse{
		ID:         session.ID,
		CreatedAt:  session.CreatedAt,
		Selected:   session.Coordinator.SelectedNetwork(),
		Selection:  snapshot,
		Status:     snapshot.Status(),
		IsCorrect:  snapshot.IsCorrect(),
		Deployment: service.NewDeploymentView(h.registry, session.Controller.Session()),
	}
}

// bindOptionalJSON decodes the body when there is one.
func bindOptionalJSON(c *gin.Context, v any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}
	return nil
}
