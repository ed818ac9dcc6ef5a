package entity

import "encoding/json"

// CompileRequest is the body sent to the external compile service.
type CompileRequest struct {
	Source string `json:"source"`
}

// CompileResult is a validated compile service response.
// Bytecode is always 0x-prefixed, whatever the service returned.
type CompileResult struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode string          `json:"bytecode"`
}
