package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"contract_deployer/internal/app/port"
	"contract_deployer/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap/zaptest"
)

type fakeRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcCall struct {
	Method string
	Params []json.RawMessage
}

// fakeRPC is a minimal JSON-RPC 2.0 HTTP endpoint. handle returns either a result or an error.
type fakeRPC struct {
	*httptest.Server

	mu     sync.Mutex
	calls  []rpcCall
	handle func(method string, params []json.RawMessage) (any, *fakeRPCError)
}

func newFakeRPC(t *testing.T, handle func(method string, params []json.RawMessage) (any, *fakeRPCError)) *fakeRPC {
	t.Helper()
	f := &fakeRPC{handle: handle}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeRPC) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls = append(f.calls, rpcCall{Method: req.Method, Params: req.Params})
	f.mu.Unlock()

	result, rpcErr := f.handle(req.Method, req.Params)
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeRPC) callsTo(method string) []rpcCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []rpcCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// receiptJSON is a mined receipt in eth_getTransactionReceipt wire form.
func receiptJSON(txHash common.Hash, contract common.Address, status uint64, block uint64) map[string]any {
	return map[string]any{
		"type":              "0x2",
		"status":            hexutil.EncodeUint64(status),
		"cumulativeGasUsed": "0x5208",
		"logsBloom":         hexutil.Encode(make([]byte, 256)),
		"logs":              []any{},
		"transactionHash":   txHash.Hex(),
		"contractAddress":   contract.Hex(),
		"gasUsed":           "0x5208",
		"effectiveGasPrice": "0x1",
		"blockHash":         common.Hash{0x01}.Hex(),
		"blockNumber":       hexutil.EncodeUint64(block),
		"transactionIndex":  "0x0",
	}
}

func newTestLogger(t *testing.T) port.Logger {
	t.Helper()
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}
