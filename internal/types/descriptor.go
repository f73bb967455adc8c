package types

// NodeTypeDescriptor is the Registry's authoritative record for one
// executable node type (§3, §4.2). Descriptors are immutable once
// registered; callers that need to change a port spec must unregister and
// re-register under the same name.
type NodeTypeDescriptor struct {
	Name        string
	Category    string
	Description string
	Inputs      []PortSpec // ordered
	Outputs     []PortSpec // ordered
	Provenance  Provenance

	// inputIndex is built once at registration for O(1) lookup by name.
	inputIndex map[string]int
}

// Finalize derives render_as for every input port and builds the name
// index. Called exactly once by the registry at registration time.
func (d *NodeTypeDescriptor) Finalize() {
	d.inputIndex = make(map[string]int, len(d.Inputs))
	for i := range d.Inputs {
		p := &d.Inputs[i]
		p.RenderAs = deriveRenderAs(*p)
		d.inputIndex[p.Name] = i
	}
}

// deriveRenderAs implements the §4.2 rule verbatim:
//
//	if the port's display mode is auto, it renders as a widget iff the port
//	has a default value AND is not explicitly marked as a connection port,
//	else as a handle.
func deriveRenderAs(p PortSpec) RenderAs {
	mode := p.Display
	if mode == "" {
		mode = DisplayAuto
	}
	switch mode {
	case DisplayHandle:
		return RenderHandle
	case DisplayWidget:
		return RenderWidget
	default: // DisplayAuto
		if p.Default != nil && !p.ConnectionOnly {
			return RenderWidget
		}
		return RenderHandle
	}
}

// InputSpec looks up a declared input port by name.
func (d *NodeTypeDescriptor) InputSpec(name string) (PortSpec, bool) {
	i, ok := d.inputIndex[name]
	if !ok {
		return PortSpec{}, false
	}
	return d.Inputs[i], true
}

// OutputSpec looks up a declared output port by name.
func (d *NodeTypeDescriptor) OutputSpec(name string) (PortSpec, bool) {
	for _, p := range d.Outputs {
		if p.Name == name {
			return p, true
		}
	}
	return PortSpec{}, false
}
