package nodes

import (
	"fmt"

	"github.com/flowkit/engine/internal/nodeexec"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/types"
)

// registerIO registers the literal-input node types (number, text, boolean)
// and the pass-through output node, grounded on the teacher's
// pkg/executor/input_number.go, input_text.go, input_boolean.go.
func registerIO(reg *registry.Registry) {
	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "input_number",
		Category:    "input",
		Description: "A literal numeric value, editable as a widget.",
		Inputs: []types.PortSpec{
			{Name: "value", Type: types.PortNumber, Default: 0.0, Widget: types.WidgetNumber},
		},
		Outputs:    []types.PortSpec{{Name: "value", Type: types.PortNumber}},
		Provenance: types.Builtin(),
	}, nodeexec.Func(func(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
		v, _ := ctx.Input("value")
		return nodeexec.Outputs{"value": v}, nil
	}))

	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "input_text",
		Category:    "input",
		Description: "A literal text value, editable as a widget.",
		Inputs: []types.PortSpec{
			{Name: "value", Type: types.PortText, Default: "", Widget: types.WidgetText},
		},
		Outputs:    []types.PortSpec{{Name: "value", Type: types.PortText}},
		Provenance: types.Builtin(),
	}, nodeexec.Func(func(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
		v, _ := ctx.Input("value")
		return nodeexec.Outputs{"value": v}, nil
	}))

	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "input_boolean",
		Category:    "input",
		Description: "A literal boolean value, editable as a toggle.",
		Inputs: []types.PortSpec{
			{Name: "value", Type: types.PortBoolean, Default: false, Widget: types.WidgetToggle},
		},
		Outputs:    []types.PortSpec{{Name: "value", Type: types.PortBoolean}},
		Provenance: types.Builtin(),
	}, nodeexec.Func(func(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
		v, _ := ctx.Input("value")
		return nodeexec.Outputs{"value": v}, nil
	}))

	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "output",
		Category:    "output",
		Description: "A terminal node that records its input as the workflow's visible result.",
		Inputs: []types.PortSpec{
			{Name: "value", Type: types.PortAny, ConnectionOnly: true},
		},
		Outputs:    []types.PortSpec{{Name: "value", Type: types.PortAny}},
		Provenance: types.Builtin(),
	}, nodeexec.Func(func(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
		v, ok := ctx.Input("value")
		if !ok {
			return nil, fmt.Errorf("output node %q: no value bound to input", ctx.NodeID())
		}
		return nodeexec.Outputs{"value": v}, nil
	}))
}
