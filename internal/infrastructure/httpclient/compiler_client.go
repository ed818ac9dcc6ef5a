package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"contract_deployer/internal/app/port"
	"contract_deployer/internal/domain/entity"
	"contract_deployer/internal/infrastructure/configloader"
	"contract_deployer/internal/pkg/metrics"
	"contract_deployer/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/crypto"
	jsoniter "github.com/json-iterator/go"
	gocache "github.com/patrickmn/go-cache"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxLoggedBody caps how much of an error response ends up in logs and error messages.
const maxLoggedBody = 512

// CompilerClient calls the remote compile service. Results are cached by source hash
// and concurrent compiles of the same source share one request.
type CompilerClient struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
	limiter *rate.Limiter
	cache   *gocache.Cache
	group   singleflight.Group
}

var _ port.Compiler = (*CompilerClient)(nil)

// compileResponse keeps both fields raw so the shape can be checked before use.
type compileResponse struct {
	ABI      jsoniter.RawMessage `json:"abi"`
	Bytecode jsoniter.RawMessage `json:"bytecode"`
}

// NewCompilerClient creates a new instance of CompilerClient.
func NewCompilerClient(cfg configloader.CompilerConfig, logger *zap.Logger) *CompilerClient {
	burst := cfg.BurstLimit
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &CompilerClient{
		client:  &fasthttp.Client{Name: "contract_deployer"},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.RequestTimeout(),
		logger:  logger.Named("CompilerClient"),
		limiter: rate.NewLimiter(limit, burst),
		cache:   gocache.New(cfg.CacheTTL(), cfg.CacheTTL()*2),
	}
}

// Compile returns the ABI and 0x-prefixed bytecode for source.
func (c *CompilerClient) Compile(ctx context.Context, source string) (entity.CompileResult, error) {
	if strings.TrimSpace(source) == "" {
		metrics.CompileRequestsTotal.WithLabelValues("invalid").Inc()
		return entity.CompileResult{}, fmt.Errorf("%w: contract source is empty", entity.ErrValidation)
	}

	key := crypto.Keccak256Hash([]byte(source)).Hex()
	if cached, found := c.cache.Get(key); found {
		metrics.CompileRequestsTotal.WithLabelValues("cached").Inc()
		c.logger.Debug("Compile cache hit", zap.String("sourceHash", key))
		return copyResult(cached.(entity.CompileResult)), nil
	}

	// The shared request has its own deadline; each caller waits on its own ctx.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		result, err := c.compile(callCtx, source)
		if err != nil {
			return entity.CompileResult{}, err
		}
		c.cache.SetDefault(key, result)
		return result, nil
	})

	select {
	case <-ctx.Done():
		metrics.CompileRequestsTotal.WithLabelValues("error").Inc()
		return entity.CompileResult{}, fmt.Errorf("%w: compile abandoned: %w", entity.ErrProvider, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			metrics.CompileRequestsTotal.WithLabelValues("error").Inc()
			return entity.CompileResult{}, res.Err
		}
		if res.Shared {
			c.logger.Debug("Compile result shared with a concurrent request", zap.String("sourceHash", key))
		}
		metrics.CompileRequestsTotal.WithLabelValues("ok").Inc()
		return copyResult(res.Val.(entity.CompileResult)), nil
	}
}

func (c *CompilerClient) compile(ctx context.Context, source string) (entity.CompileResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return entity.CompileResult{}, fmt.Errorf("%w: compile request not sent: %w", entity.ErrProvider, err)
	}

	body, err := json.Marshal(entity.CompileRequest{Source: source})
	if err != nil {
		return entity.CompileResult{}, fmt.Errorf("failed to encode compile request: %w", err)
	}

	requestURL := c.baseURL + "/compile"
	c.logger.Debug("Requesting compilation", zap.String("url", requestURL), zap.Int("sourceBytes", len(source)))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline, ok := ctx.Deadline()
	if !ok || time.Until(deadline) > c.timeout {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		c.logger.Error("Failed to execute compile request", zap.String("url", requestURL), zap.Error(err))
		return entity.CompileResult{}, fmt.Errorf("%w: failed to execute request to %s: %w", entity.ErrProvider, requestURL, err)
	}

	rawBody := resp.Body()
	if status := resp.StatusCode(); status < 200 || status > 299 {
		c.logger.Error("Compile service request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", status),
			zap.ByteString("responseBody", truncate(rawBody)),
		)
		return entity.CompileResult{}, fmt.Errorf("%w: compile service returned status %d: %s", entity.ErrProvider, status, truncate(rawBody))
	}

	result, err := parseCompileResponse(rawBody)
	if err != nil {
		c.logger.Warn("Compile service returned a malformed response",
			zap.String("url", requestURL),
			zap.ByteString("responseBody", truncate(rawBody)),
			zap.Error(err),
		)
		return entity.CompileResult{}, err
	}
	c.logger.Info("Contract compiled", zap.Int("bytecodeBytes", (len(result.Bytecode)-2)/2))
	return result, nil
}

// parseCompileResponse checks that abi is a JSON array and bytecode a non-empty hex string.
func parseCompileResponse(raw []byte) (entity.CompileResult, error) {
	var resp compileResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return entity.CompileResult{}, fmt.Errorf("%w: compile response is not a JSON object: %v", entity.ErrValidation, err)
	}

	abiJSON := bytes.TrimSpace(resp.ABI)
	var abiEntries []jsoniter.RawMessage
	if len(abiJSON) == 0 || abiJSON[0] != '[' || json.Unmarshal(abiJSON, &abiEntries) != nil {
		return entity.CompileResult{}, fmt.Errorf("%w: compile response abi must be an array", entity.ErrValidation)
	}

	var bytecode string
	if len(resp.Bytecode) == 0 || json.Unmarshal(resp.Bytecode, &bytecode) != nil {
		return entity.CompileResult{}, fmt.Errorf("%w: compile response bytecode must be a string", entity.ErrValidation)
	}
	normalized, err := utils.NormalizeBytecode(bytecode)
	if err != nil {
		return entity.CompileResult{}, fmt.Errorf("%w: compile response: %w", entity.ErrValidation, err)
	}

	return entity.CompileResult{
		ABI:      append([]byte(nil), abiJSON...),
		Bytecode: normalized,
	}, nil
}

func copyResult(r entity.CompileResult) entity.CompileResult {
	r.ABI = append([]byte(nil), r.ABI...)
	return r
}

func truncate(body []byte) []byte {
	if len(body) > maxLoggedBody {
		return body[:maxLoggedBody]
	}
	return body
}
