package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"contract_deployer/internal/app/provider"
	"contract_deployer/internal/app/service"
	"contract_deployer/internal/domain/entity"
	networkdefinition "contract_deployer/internal/infrastructure/network/definition"
	"contract_deployer/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testABI      = `[{"type":"function","name":"count","inputs":[],"outputs":[{"type":"uint256"}],"stateMutability":"view"}]`
	testDeployer = "0x00000000000000000000000000000000000000aa"
	testTxHash   = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
	testContract = "0x00000000000000000000000000000000000000cc"
)

type stubWallet struct {
	mu        sync.Mutex
	chainID   uint64
	switchErr error
	switches  []uint64
}

func (w *stubWallet) ChainID(context.Context) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID, nil
}

func (w *stubWallet) SwitchChain(_ context.Context, chainID uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.switches = append(w.switches, chainID)
	return w.switchErr
}

func (w *stubWallet) SubmitCreation(context.Context, entity.CreationRequest) (string, error) {
	return testTxHash, nil
}

func (w *stubWallet) AwaitReceipt(context.Context, uint64, string) (entity.Receipt, error) {
	return entity.Receipt{TransactionHash: testTxHash, BlockNumber: 7, ContractAddress: testContract}, nil
}

type compilerFunc func(ctx context.Context, source string) (entity.CompileResult, error)

func (f compilerFunc) Compile(ctx context.Context, source string) (entity.CompileResult, error) {
	return f(ctx, source)
}

type testAPI struct {
	router  *gin.Engine
	handler *DeployerHandler
	wallet  *stubWallet
}

func newTestAPI(t *testing.T, compiler compilerFunc) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewZapAdapter(zaptest.NewLogger(t))
	registry, err := networkdefinition.NewNetworkDefinitionProvider(log, nil)
	require.NoError(t, err)

	tables, err := provider.NewMetricTableProvider("", service.DefaultMetricTable(), log)
	require.NoError(t, err)
	engine, err := service.NewRecommendationEngine(tables, registry, log)
	require.NoError(t, err)

	wallet := &stubWallet{chainID: networkdefinition.ArbitrumSepolia.ChainID}
	store := service.NewSessionStore(registry, wallet, log, time.Minute)
	if compiler == nil {
		compiler = func(context.Context, string) (entity.CompileResult, error) {
			return entity.CompileResult{ABI: json.RawMessage(testABI), Bytecode: "0x6080"}, nil
		}
	}

	handler := NewDeployerHandler(context.Background(), registry, store, wallet, compiler, engine, time.Second, log)
	t.Cleanup(handler.Wait)
	return &testAPI{
		router:  SetupRouter(handler, zaptest.NewLogger(t), []string{"http://localhost:3000"}),
		handler: handler,
		wallet:  wallet,
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *testAPI) createSession(t *testing.T, network string) SessionResponse {
	t.Helper()
	path := "/api/v1/sessions"
	if network != "" {
		path += "?network=" + network
	}
	rec := a.do(t, http.MethodPost, path, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[SessionResponse](t, rec)
}

func sessionPath(id, suffix string) string {
	return fmt.Sprintf("/api/v1/sessions/%s%s", id, suffix)
}

func TestListNetworks(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodGet, "/api/v1/networks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[NetworksResponse](t, rec)
	assert.Equal(t, "zksync", resp.Default)
	require.Len(t, resp.Networks, 5)
	assert.Equal(t, networkdefinition.ZkSyncSepolia, resp.Networks[0])
}

func TestSessionLifecycle(t *testing.T) {
	api := newTestAPI(t, nil)

	created := api.createSession(t, "base")
	assert.Equal(t, networkdefinition.BaseSepolia.ChainID, created.Selected.ChainID)
	assert.Equal(t, entity.NetworkPending, created.Status)
	assert.Equal(t, entity.DeploymentIdle, created.Deployment.Status)

	rec := api.do(t, http.MethodGet, sessionPath(created.ID, ""), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[SessionResponse](t, rec).ID)

	rec = api.do(t, http.MethodDelete, sessionPath(created.ID, ""), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, sessionPath(created.ID, ""), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorResponse](t, rec).Error.Kind)

	rec = api.do(t, http.MethodPost, "/api/v1/sessions?network=solana", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode[errorResponse](t, rec).Error.Kind)
}

func TestWalletAndSwitchFlow(t *testing.T) {
	api := newTestAPI(t, nil)
	session := api.createSession(t, "base")

	// Without a body the wallet endpoint is asked for its chain.
	rec := api.do(t, http.MethodPost, sessionPath(session.ID, "/wallet/connect"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state := decode[SessionResponse](t, rec)
	require.NotNil(t, state.Selection.WalletConnectedID)
	assert.Equal(t, networkdefinition.ArbitrumSepolia.ChainID, *state.Selection.WalletConnectedID)
	assert.Equal(t, entity.NetworkMismatch, state.Status)

	rec = api.do(t, http.MethodPost, sessionPath(session.ID, "/switch"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, entity.NetworkMismatch, decode[SessionResponse](t, rec).Status, "a switch is only visible once the wallet reports it")
	assert.Equal(t, []uint64{networkdefinition.BaseSepolia.ChainID}, api.wallet.switches)

	rec = api.do(t, http.MethodPost, sessionPath(session.ID, "/wallet/chain"), map[string]any{"chainId": networkdefinition.BaseSepolia.ChainID})
	require.Equal(t, http.StatusOK, rec.Code)
	state = decode[SessionResponse](t, rec)
	assert.True(t, state.IsCorrect)
	assert.Equal(t, entity.NetworkCorrect, state.Status)

	rec = api.do(t, http.MethodPost, sessionPath(session.ID, "/wallet/chain"), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, sessionPath(session.ID, "/wallet/disconnect"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.NetworkPending, decode[SessionResponse](t, rec).Status)

	rec = api.do(t, http.MethodPost, sessionPath(session.ID, "/switch"), nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, "wallet_not_connected", decode[errorResponse](t, rec).Error.Kind)
}

func TestSelectNetwork(t *testing.T) {
	api := newTestAPI(t, nil)
	session := api.createSession(t, "")

	rec := api.do(t, http.MethodPost, sessionPath(session.ID, "/network"), map[string]any{"key": "optimism"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[entity.SelectionResult](t, rec)
	assert.Equal(t, networkdefinition.OptimismSepolia.ChainID, res.Network.ChainID)
	assert.Equal(t, entity.NetworkPending, res.Status)

	rec = api.do(t, http.MethodPost, sessionPath(session.ID, "/network"), map[string]any{"chainId": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, sessionPath(session.ID, "/network"), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// With switch set, a mismatched wallet is asked to follow the new selection.
	api.do(t, http.MethodPost, sessionPath(session.ID, "/wallet/chain"), map[string]any{"chainId": networkdefinition.ZkSyncSepolia.ChainID})
	rec = api.do(t, http.MethodPost, sessionPath(session.ID, "/network"), map[string]any{"chainId": networkdefinition.EthereumSepolia.ChainID, "switch": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	switched := decode[SelectNetworkResponse](t, rec)
	assert.Equal(t, entity.NetworkMismatch, switched.Status)
	assert.Nil(t, switched.SwitchError)
	assert.Equal(t, []uint64{networkdefinition.EthereumSepolia.ChainID}, api.wallet.switches)
}

func TestSelectNetwork_SwitchRejectedKeepsSelection(t *testing.T) {
	api := newTestAPI(t, nil)
	api.wallet.switchErr = fmt.Errorf("%w: user rejected the request", entity.ErrWalletRejection)
	session := api.createSession(t, "")
	api.do(t, http.MethodPost, sessionPath(session.ID, "/wallet/connect"), nil)

	rec := api.do(t, http.MethodPost, sessionPath(session.ID, "/network"), map[string]any{"key": "base", "switch": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SelectNetworkResponse](t, rec)
	assert.Equal(t, networkdefinition.BaseSepolia.ChainID, resp.Network.ChainID)
	assert.Equal(t, entity.NetworkMismatch, resp.Status)
	require.NotNil(t, resp.SwitchError)
	assert.Equal(t, "wallet_rejection", resp.SwitchError.Kind)
	assert.Equal(t, []uint64{networkdefinition.BaseSepolia.ChainID}, api.wallet.switches)

	rec = api.do(t, http.MethodGet, sessionPath(session.ID, ""), nil)
	state := decode[SessionResponse](t, rec)
	assert.Equal(t, networkdefinition.BaseSepolia.ChainID, state.Selected.ChainID)
	assert.Contains(t, state.Selection.LastSwitchError, "Base Sepolia")
	assert.Equal(t, networkdefinition.ArbitrumSepolia.ChainID, *state.Selection.WalletConnectedID)
}

func TestSwitchRejected(t *testing.T) {
	api := newTestAPI(t, nil)
	api.wallet.switchErr = fmt.Errorf("%w: user rejected the request", entity.ErrWalletRejection)
	session := api.createSession(t, "")
	api.do(t, http.MethodPost, sessionPath(session.ID, "/wallet/connect"), nil)

	rec := api.do(t, http.MethodPost, sessionPath(session.ID, "/switch"), map[string]any{"chainId": networkdefinition.BaseSepolia.ChainID})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "wallet_rejection", decode[errorResponse](t, rec).Error.Kind)

	rec = api.do(t, http.MethodGet, sessionPath(session.ID, ""), nil)
	state := decode[SessionResponse](t, rec)
	assert.Contains(t, state.Selection.LastSwitchError, "Base Sepolia")
	assert.Equal(t, networkdefinition.ArbitrumSepolia.ChainID, *state.Selection.WalletConnectedID)
}

func TestDeploy(t *testing.T) {
	api := newTestAPI(t, nil)
	session := api.createSession(t, "arbitrum")
	request := entity.DeployRequest{ABI: json.RawMessage(testABI), Bytecode: "6080", DeployerAddress: testDeployer}

	rec := api.do(t, http.MethodPost, sessionPath(session.ID, "/deployments"), request)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	api.do(t, http.MethodPost, sessionPath(session.ID, "/wallet/chain"), map[string]any{"chainId": networkdefinition.BaseSepolia.ChainID})
	rec = api.do(t, http.MethodPost, sessionPath(session.ID, "/deployments"), request)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "network_mismatch", decode[errorResponse](t, rec).Error.Kind)

	rec = api.do(t, http.MethodPost, sessionPath(session.ID, "/deployments"), `{"abi":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	api.do(t, http.MethodPost, sessionPath(session.ID, "/wallet/connect"), nil)
	rec = api.do(t, http.MethodPost, sessionPath(session.ID, "/deployments"), request)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	accepted := decode[service.DeploymentView](t, rec)
	assert.NotEmpty(t, accepted.ID)
	assert.Equal(t, networkdefinition.ArbitrumSepolia.ChainID, accepted.ChainID)

	api.handler.Wait()
	rec = api.do(t, http.MethodGet, sessionPath(session.ID, "/deployment"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[service.DeploymentView](t, rec)
	assert.Equal(t, accepted.ID, view.ID)
	assert.Equal(t, entity.DeploymentSucceeded, view.Status)
	assert.Equal(t, "https://sepolia.arbiscan.io/tx/"+testTxHash, view.TransactionURL)
	assert.Equal(t, "https://sepolia.arbiscan.io/address/"+testContract, view.ContractURL)
}

func TestCompile(t *testing.T) {
	api := newTestAPI(t, func(_ context.Context, source string) (entity.CompileResult, error) {
		if source == "broken" {
			return entity.CompileResult{}, fmt.Errorf("%w: compile service returned status 400", entity.ErrProvider)
		}
		return entity.CompileResult{ABI: json.RawMessage(`[]`), Bytecode: "0x00"}, nil
	})

	rec := api.do(t, http.MethodPost, "/api/v1/compile", map[string]string{"source": "contract A {}"})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[entity.CompileResult](t, rec)
	assert.Equal(t, "0x00", result.Bytecode)

	rec = api.do(t, http.MethodPost, "/api/v1/compile", map[string]string{"source": "broken"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "provider", decode[errorResponse](t, rec).Error.Kind)
}

func TestRecommend(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodGet, "/api/v1/recommendations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[struct {
		Weights entity.UserWeights   `json:"weights"`
		Ranking []entity.RankedScore `json:"ranking"`
	}](t, rec)
	assert.Equal(t, entity.DefaultUserWeights(), resp.Weights)
	require.Len(t, resp.Ranking, 5)
	assert.Equal(t, "Arbitrum", resp.Ranking[0].Name)
	assert.Equal(t, "arbitrum", resp.Ranking[0].NetworkKey)
	assert.True(t, resp.Ranking[0].Deployable)

	rec = api.do(t, http.MethodGet, "/api/v1/recommendations?security=10&costEfficiency=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, query := range []string{"scalability=fast", "security=11", "devExperience=0"} {
		rec = api.do(t, http.MethodGet, "/api/v1/recommendations?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestRecommend_WeightKeys(t *testing.T) {
	api := newTestAPI(t, nil)
	type recommendation struct {
		Weights entity.UserWeights   `json:"weights"`
		Ranking []entity.RankedScore `json:"ranking"`
	}

	rec := api.do(t, http.MethodGet, "/api/v1/recommendations?Scalability=10&Cost+Efficiency=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[recommendation](t, rec)
	assert.Equal(t, 10.0, resp.Weights.Scalability)
	assert.Equal(t, 1.0, resp.Weights.CostEfficiency)
	assert.Equal(t, 5.0, resp.Weights.Security)

	rec = api.do(t, http.MethodGet, "/api/v1/recommendations?scalability=10&costEfficiency=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, resp, decode[recommendation](t, rec))

	for _, query := range []string{
		"scalabilty=10",
		"Scalability=10&scalabilty=10",
		"scalability=3&Scalability=4",
		"security=3&security=4",
	} {
		rec = api.do(t, http.MethodGet, "/api/v1/recommendations?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		assert.Equal(t, "validation", decode[errorResponse](t, rec).Error.Kind, query)
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t, nil)
	api.createSession(t, "")

	rec := api.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, rec.Body.String())
}
