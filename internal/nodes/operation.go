package nodes

import (
	"fmt"

	"github.com/flowkit/engine/internal/nodeexec"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/types"
)

// registerOperation registers the binary arithmetic node, grounded on the
// teacher's pkg/executor/operation.go strategy-switch shape.
func registerOperation(reg *registry.Registry) {
	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "operation",
		Category:    "math",
		Description: "Applies a binary arithmetic operation to two numeric inputs.",
		Inputs: []types.PortSpec{
			{Name: "left", Type: types.PortNumber, ConnectionOnly: true},
			{Name: "right", Type: types.PortNumber, ConnectionOnly: true},
			{Name: "op", Type: types.PortText, Default: "add", Widget: types.WidgetCombo, Constraints: map[string]interface{}{
				"enum": []string{"add", "subtract", "multiply", "divide"},
			}},
		},
		Outputs:    []types.PortSpec{{Name: "result", Type: types.PortNumber}},
		Provenance: types.Builtin(),
	}, nodeexec.Func(operationInvoke))
}

func operationInvoke(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
	left, ok := asNumber(ctx, "left")
	if !ok {
		return nil, fmt.Errorf("operation node %q: left input must be a number", ctx.NodeID())
	}
	right, ok := asNumber(ctx, "right")
	if !ok {
		return nil, fmt.Errorf("operation node %q: right input must be a number", ctx.NodeID())
	}
	opVal, _ := ctx.Input("op")
	op, _ := opVal.(string)

	var result float64
	switch op {
	case "add":
		result = left + right
	case "subtract":
		result = left - right
	case "multiply":
		result = left * right
	case "divide":
		if right == 0 {
			return nil, fmt.Errorf("operation node %q: division by zero", ctx.NodeID())
		}
		result = left / right
	default:
		return nil, fmt.Errorf("operation node %q: unknown op %q", ctx.NodeID(), op)
	}
	return nodeexec.Outputs{"result": result}, nil
}

func asNumber(ctx nodeexec.ExecutionContext, port string) (float64, bool) {
	v, ok := ctx.Input(port)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
