// Package types holds the data structures shared across the graph, registry,
// validator, queue, engine, module and plugin packages. Keeping them in one
// leaf package (mirroring the teacher's pkg/types) avoids import cycles
// between those packages.
package types

// PortType is a tagged discriminator drawn from a closed set (§3). "any" is
// universally compatible with every other port type.
type PortType string

const (
	PortModel        PortType = "model"
	PortImage        PortType = "image"
	PortLatent       PortType = "latent"
	PortText         PortType = "text"
	PortNumber       PortType = "number"
	PortBoolean      PortType = "boolean"
	PortConditioning PortType = "conditioning"
	PortList         PortType = "list"
	PortObject       PortType = "object"
	PortFile         PortType = "file"
	PortAny          PortType = "any"
)

// Compatible reports whether a value produced at a port of type `out` may be
// consumed by a port declared as `in`. "any" is universally compatible on
// either side.
func (in PortType) Compatible(out PortType) bool {
	if in == PortAny || out == PortAny {
		return true
	}
	return in == out
}

// WidgetHint governs UI rendering of a widget-rendered input port.
type WidgetHint string

const (
	WidgetSlider WidgetHint = "slider"
	WidgetCombo  WidgetHint = "combo"
	WidgetToggle WidgetHint = "toggle"
	WidgetText   WidgetHint = "text"
	WidgetNumber WidgetHint = "number"
	WidgetHandle WidgetHint = "handle"
	WidgetCode   WidgetHint = "code"
)

// DisplayMode is the port author's declared rendering preference. "auto"
// defers to the render_as derivation rule in the registry (§4.2).
type DisplayMode string

const (
	DisplayAuto   DisplayMode = "auto"
	DisplayHandle DisplayMode = "handle"
	DisplayWidget DisplayMode = "widget"
)

// RenderAs is the derived, cached outcome of the render_as rule.
type RenderAs string

const (
	RenderHandle RenderAs = "handle"
	RenderWidget RenderAs = "widget"
)

// PortSpec declares one input or output port on a node type.
type PortSpec struct {
	Name           string
	Type           PortType
	Description    string
	Default        interface{}            // only meaningful for input ports
	Widget         WidgetHint             // only meaningful for input ports rendered as widgets
	Display        DisplayMode            // author's declared preference; "" is treated as DisplayAuto
	ConnectionOnly bool                   // true forces render_as=handle regardless of Default
	Constraints    map[string]interface{} // e.g. {"minimum": 0, "maximum": 100, "enum": [...]}

	// RenderAs is computed once at registration time by the registry and
	// cached here; it is never recomputed per request.
	RenderAs RenderAs
}

// Provenance tags where a descriptor came from.
type Provenance string

const builtinProvenance Provenance = "builtin"

// PluginProvenance returns the provenance tag for a descriptor contributed
// by the given plugin id.
func PluginProvenance(pluginID string) Provenance {
	return Provenance("plugin:" + pluginID)
}

// Builtin is the provenance tag for descriptors shipped with the engine.
func Builtin() Provenance { return builtinProvenance }

// Position is the optional display position of a node; carried through
// parsing and serialization but never consulted by the scheduler.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Ref is a reference binding: the value comes from another node's output.
type Ref struct {
	SourceNodeID string
	OutputName   string
}

// Binding is exactly one of a literal value or a Ref. Literal is valid iff
// IsRef is false.
type Binding struct {
	IsRef   bool
	Ref     Ref
	Literal interface{}
}

// LiteralBinding constructs a literal-valued Binding.
func LiteralBinding(v interface{}) Binding { return Binding{Literal: v} }

// RefBinding constructs a reference Binding.
func RefBinding(sourceNodeID, outputName string) Binding {
	return Binding{IsRef: true, Ref: Ref{SourceNodeID: sourceNodeID, OutputName: outputName}}
}

// Node is one instance in a workflow graph (§3).
type Node struct {
	ID       string
	Type     string
	Inputs   map[string]Binding
	Position *Position
	Priority int // default 50
	Metadata map[string]interface{}
}

// DefaultPriority is used when a node omits an explicit priority.
const DefaultPriority = 50

// Edge is a typed data connection between two nodes (§3), denormalized from
// a node's input bindings for fast adjacency queries.
type Edge struct {
	ID           string
	Source       string
	SourceOutput string
	Target       string
	TargetInput  string
}
