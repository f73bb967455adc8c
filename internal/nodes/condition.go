package nodes

import (
	"fmt"

	"github.com/flowkit/engine/internal/nodeexec"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/types"
)

// registerCondition registers the boolean branch node. Grounded on the
// teacher's pkg/executor/condition.go (which folds the branch decision into
// a single passthrough value), generalized here into a true two-output
// branch so the Graph Executor's generic skip-cascade rule (§4.5) applies:
// exactly one of "true"/"false" carries the real value, the other carries
// the Skipped sentinel.
func registerCondition(reg *registry.Registry) {
	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "condition",
		Category:    "control",
		Description: "Evaluates a boolean predicate and routes its input down exactly one of two output branches.",
		Inputs: []types.PortSpec{
			{Name: "value", Type: types.PortAny, ConnectionOnly: true},
			{Name: "predicate", Type: types.PortBoolean, ConnectionOnly: true},
		},
		Outputs: []types.PortSpec{
			{Name: "true", Type: types.PortAny},
			{Name: "false", Type: types.PortAny},
		},
		Provenance: types.Builtin(),
	}, nodeexec.Func(func(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
		predVal, ok := ctx.Input("predicate")
		if !ok {
			return nil, fmt.Errorf("condition node %q: missing predicate input", ctx.NodeID())
		}
		pred, ok := predVal.(bool)
		if !ok {
			return nil, fmt.Errorf("condition node %q: predicate input is not boolean", ctx.NodeID())
		}
		value, _ := ctx.Input("value")
		if pred {
			return nodeexec.Outputs{"true": value, "false": types.Skipped}, nil
		}
		return nodeexec.Outputs{"true": types.Skipped, "false": value}, nil
	}))
}
