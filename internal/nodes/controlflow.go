package nodes

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/flowkit/engine/internal/nodeexec"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/types"
)

// registerControlFlow registers the switch node and the loop marker pair
// (loop_begin/loop_end). The marker nodes' own Invoke is never called in
// practice — the Graph Executor special-cases their node type and drives
// them directly (§4.5, §9) — but they still need descriptors and executors
// registered so validate_workflow recognizes the type and a standalone
// Invoke call (e.g. from a test exercising the registry directly) behaves
// predictably rather than panicking.
func registerControlFlow(reg *registry.Registry) {
	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "switch",
		Category:    "control",
		Description: "Evaluates ordered case expressions against its input and reports the first match.",
		Inputs: []types.PortSpec{
			{Name: "value", Type: types.PortAny, ConnectionOnly: true},
			{Name: "cases", Type: types.PortList, ConnectionOnly: true}, // []string of expr expressions, input available as `input`
		},
		Outputs: []types.PortSpec{
			{Name: "value", Type: types.PortAny},
			{Name: "matched_index", Type: types.PortNumber},
		},
		Provenance: types.Builtin(),
	}, nodeexec.Func(switchInvoke))

	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "loop_begin",
		Category:    "control",
		Description: "Marks the start of a loop body, re-executed once per element of `items` up to MaxIterations.",
		Inputs: []types.PortSpec{
			{Name: "items", Type: types.PortList, ConnectionOnly: true},
			{Name: "count", Type: types.PortNumber},
		},
		Outputs: []types.PortSpec{
			{Name: "item", Type: types.PortAny},
			{Name: "index", Type: types.PortNumber},
		},
		Provenance: types.Builtin(),
	}, nodeexec.Func(func(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
		item, _ := ctx.Input("items")
		return nodeexec.Outputs{"item": item, "index": 0}, nil
	}))

	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "loop_end",
		Category:    "control",
		Description: "Marks the end of a loop body; collects one `value` per iteration into `results`.",
		Inputs: []types.PortSpec{
			{Name: "value", Type: types.PortAny, ConnectionOnly: true},
		},
		Outputs: []types.PortSpec{
			{Name: "results", Type: types.PortList},
		},
		Provenance: types.Builtin(),
	}, nodeexec.Func(func(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
		value, _ := ctx.Input("value")
		return nodeexec.Outputs{"results": []interface{}{value}}, nil
	}))
}

func switchInvoke(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
	value, _ := ctx.Input("value")
	casesVal, _ := ctx.Input("cases")
	cases, _ := casesVal.([]interface{})

	env := map[string]interface{}{"input": value}
	for i, c := range cases {
		src, ok := c.(string)
		if !ok {
			return nil, fmt.Errorf("switch node %q: case %d is not a string expression", ctx.NodeID(), i)
		}
		program, err := expr.Compile(src, expr.Env(env))
		if err != nil {
			return nil, fmt.Errorf("switch node %q: case %d: compile: %w", ctx.NodeID(), i, err)
		}
		out, err := expr.Run(program, env)
		if err != nil {
			continue
		}
		if matched, ok := out.(bool); ok && matched {
			return nodeexec.Outputs{"value": value, "matched_index": float64(i)}, nil
		}
	}
	return nodeexec.Outputs{"value": value, "matched_index": float64(-1)}, nil
}
