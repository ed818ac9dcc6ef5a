package port

import (
	"context"

	"contract_deployer/internal/domain/entity"
)

// Compiler turns contract source into a validated ABI and bytecode pair.
type Compiler interface {
	Compile(ctx context.Context, source string) (entity.CompileResult, error)
}
