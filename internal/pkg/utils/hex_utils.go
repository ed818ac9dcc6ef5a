package utils

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NormalizeHex returns s with a lowercase 0x prefix, accepting input with or without one.
// Surrounding whitespace is dropped.
func NormalizeHex(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	return "0x" + s
}

// NormalizeBytecode normalizes contract bytecode to the 0x-prefixed form and checks it decodes.
// Empty bytecode (with or without a bare prefix) is rejected.
func NormalizeBytecode(bytecode string) (string, error) {
	normalized := NormalizeHex(bytecode)
	if normalized == "0x" {
		return "", fmt.Errorf("bytecode is empty")
	}
	if _, err := hexutil.Decode(normalized); err != nil {
		return "", fmt.Errorf("bytecode is not valid hex: %w", err)
	}
	return normalized, nil
}
