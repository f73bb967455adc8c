// Package nodes is the built-in node-type catalog (§4.2): a set of
// NodeExecutor implementations registered against a Registry at startup,
// grounded in the teacher's pkg/executor strategy-pattern executors but
// rewritten against the descriptor-driven NodeTypeDescriptor /
// nodeexec.ExecutionContext shape.
package nodes

import (
	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/registry"
)

// RegisterBuiltins registers every built-in node type against reg. Called
// once at startup before any workflow is validated or executed.
func RegisterBuiltins(reg *registry.Registry, cfg *config.Config) {
	registerIO(reg)
	registerOperation(reg)
	registerCondition(reg)
	registerExpression(reg)
	registerHTTP(reg, cfg)
	registerState(reg)
	registerCacheWith(reg, cfg)
	registerControlFlow(reg)
	registerResilience(reg, cfg)
	registerTextOps(reg)
}
