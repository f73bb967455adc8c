package nodes

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/flowkit/engine/internal/nodeexec"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/types"
)

// registerExpression registers the user-expression transform node, grounded
// on the teacher's pkg/executor/expression.go and its documented expression
// surface (`input`, arithmetic, comparisons, ternary).
func registerExpression(reg *registry.Registry) {
	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "expression",
		Category:    "transform",
		Description: "Evaluates a user-provided expression against its input.",
		Inputs: []types.PortSpec{
			{Name: "input", Type: types.PortAny, ConnectionOnly: true},
			{Name: "expression", Type: types.PortText, Default: "input", Widget: types.WidgetCode},
		},
		Outputs:    []types.PortSpec{{Name: "result", Type: types.PortAny}},
		Provenance: types.Builtin(),
	}, nodeexec.Func(func(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
		input, _ := ctx.Input("input")
		exprVal, _ := ctx.Input("expression")
		src, _ := exprVal.(string)
		if src == "" {
			return nodeexec.Outputs{"result": input, "warning": "no expression specified"}, nil
		}

		out, err := evalExprSource(src, input)
		if err != nil {
			return nil, fmt.Errorf("expression node %q: %w", ctx.NodeID(), err)
		}
		return nodeexec.Outputs{"result": out}, nil
	}))
}

// evalExprSource compiles and runs an expr-lang expression with `input`
// bound in its environment. Shared by the expression, retry, timeout and
// trycatch nodes.
func evalExprSource(src string, input interface{}) (interface{}, error) {
	env := map[string]interface{}{"input": input}
	program, err := expr.Compile(src, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}
	return out, nil
}
