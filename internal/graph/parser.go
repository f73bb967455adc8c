package graph

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flowkit/engine/internal/types"
)

// rawDocument is the top-level shape of a workflow document (§6): nodes and
// edges may each be given as a map keyed by id, or as a list with an
// explicit "id" field on every element. Both normalize to the map form.
type rawDocument struct {
	Nodes json.RawMessage `json:"nodes" yaml:"nodes"`
	Edges json.RawMessage `json:"edges" yaml:"edges"`
}

type rawNode struct {
	ID       string                 `json:"id" yaml:"id"`
	Type     string                 `json:"type" yaml:"type"`
	Inputs   map[string]interface{} `json:"inputs" yaml:"inputs"`
	Position *types.Position        `json:"position,omitempty" yaml:"position,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Priority *int                   `json:"priority,omitempty" yaml:"priority,omitempty"`
}

type rawEdge struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`

	// Canonical (underscored) form, accepted on input and used as the
	// canonical output form (§6).
	SourceOutput string `json:"source_output" yaml:"source_output"`
	TargetInput  string `json:"target_input" yaml:"target_input"`

	// Alternate camelCase form, also accepted on input.
	SourceOutputCamel string `json:"sourceOutput" yaml:"sourceOutput"`
	TargetInputCamel  string `json:"targetInput" yaml:"targetInput"`
}

func (e rawEdge) sourceOutput() string {
	if e.SourceOutput != "" {
		return e.SourceOutput
	}
	return e.SourceOutputCamel
}

func (e rawEdge) targetInput() string {
	if e.TargetInput != "" {
		return e.TargetInput
	}
	return e.TargetInputCamel
}

// refBinding is the shape of a {"$ref": "<node_id>.outputs.<output_name>"}
// input binding (§6).
type refBinding struct {
	Ref string `json:"$ref"`
}

// Format selects how Parse interprets the document bytes.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// Parse normalizes a workflow document (JSON or YAML, map-keyed or
// list-with-id) into a Graph. Returns a *MalformedGraphError wrapped with
// context on any structural problem (§4.1).
func Parse(data []byte, format Format) (*Graph, error) {
	var doc rawDocument
	if format == FormatYAML {
		// yaml.v3 cannot decode into json.RawMessage, so capture the two
		// sections as nodes and re-encode them as YAML for normalization.
		var y struct {
			Nodes yaml.Node `yaml:"nodes"`
			Edges yaml.Node `yaml:"edges"`
		}
		if err := yaml.Unmarshal(data, &y); err != nil {
			return nil, malformed("failed to parse document: %v", err)
		}
		if y.Nodes.Kind != 0 {
			doc.Nodes, _ = yaml.Marshal(&y.Nodes)
		}
		if y.Edges.Kind != 0 {
			doc.Edges, _ = yaml.Marshal(&y.Edges)
		}
	} else if err := unmarshal(data, &doc, format); err != nil {
		return nil, malformed("failed to parse document: %v", err)
	}

	rawNodes, err := normalizeNodes(doc.Nodes, format)
	if err != nil {
		return nil, err
	}
	rawEdges, err := normalizeEdges(doc.Edges, format)
	if err != nil {
		return nil, err
	}

	nodes := make([]types.Node, 0, len(rawNodes))
	for id, rn := range rawNodes {
		if rn.ID != "" && rn.ID != id {
			return nil, malformed("node key %q does not match its id field %q", id, rn.ID)
		}
		n := types.Node{
			ID:       id,
			Type:     rn.Type,
			Position: rn.Position,
			Metadata: rn.Metadata,
			Priority: types.DefaultPriority,
		}
		if rn.Priority != nil {
			n.Priority = *rn.Priority
		}
		n.Inputs, err = parseInputBindings(rn.Inputs)
		if err != nil {
			return nil, malformed("node %q: %v", id, err)
		}
		nodes = append(nodes, n)
	}

	edges := make([]types.Edge, 0, len(rawEdges))
	for id, re := range rawEdges {
		if re.ID != "" && re.ID != id {
			return nil, malformed("edge key %q does not match its id field %q", id, re.ID)
		}
		if re.Source == "" || re.Target == "" {
			return nil, malformed("edge %q missing source or target", id)
		}
		edges = append(edges, types.Edge{
			ID:           id,
			Source:       re.Source,
			SourceOutput: re.sourceOutput(),
			Target:       re.Target,
			TargetInput:  re.targetInput(),
		})
	}

	return New(nodes, edges)
}

func unmarshal(data []byte, v interface{}, format Format) error {
	if format == FormatYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// normalizeNodes accepts either `{"id": {...}}` or `[{"id": "id", ...}]` and
// returns a map keyed by id.
func normalizeNodes(raw json.RawMessage, format Format) (map[string]rawNode, error) {
	if len(raw) == 0 {
		return map[string]rawNode{}, nil
	}

	// Try map form first.
	var asMap map[string]rawNode
	if err := unmarshal(raw, &asMap, format); err == nil {
		for id, n := range asMap {
			n.ID = id
			asMap[id] = n
		}
		return asMap, nil
	}

	var asList []rawNode
	if err := unmarshal(raw, &asList, format); err != nil {
		return nil, malformed("nodes must be a map keyed by id or a list with explicit id fields: %v", err)
	}
	out := make(map[string]rawNode, len(asList))
	for _, n := range asList {
		if n.ID == "" {
			return nil, malformed("node missing id")
		}
		out[n.ID] = n
	}
	return out, nil
}

func normalizeEdges(raw json.RawMessage, format Format) (map[string]rawEdge, error) {
	if len(raw) == 0 {
		return map[string]rawEdge{}, nil
	}

	var asMap map[string]rawEdge
	if err := unmarshal(raw, &asMap, format); err == nil {
		for id, e := range asMap {
			e.ID = id
			asMap[id] = e
		}
		return asMap, nil
	}

	var asList []rawEdge
	if err := unmarshal(raw, &asList, format); err != nil {
		return nil, malformed("edges must be a map keyed by id or a list with explicit id fields: %v", err)
	}
	out := make(map[string]rawEdge, len(asList))
	for _, e := range asList {
		if e.ID == "" {
			return nil, malformed("edge missing id")
		}
		out[e.ID] = e
	}
	return out, nil
}

// parseInputBindings converts a node's raw "inputs" map into typed Bindings,
// recognizing the {"$ref": "node.outputs.port"} reference shape.
func parseInputBindings(raw map[string]interface{}) (map[string]types.Binding, error) {
	out := make(map[string]types.Binding, len(raw))
	for port, v := range raw {
		if m, ok := v.(map[string]interface{}); ok {
			if refRaw, ok := m["$ref"]; ok {
				refStr, ok := refRaw.(string)
				if !ok {
					return nil, fmt.Errorf("input %q has non-string $ref", port)
				}
				nodeID, outputName, err := splitRef(refStr)
				if err != nil {
					return nil, fmt.Errorf("input %q: %w", port, err)
				}
				out[port] = types.RefBinding(nodeID, outputName)
				continue
			}
		}
		out[port] = types.LiteralBinding(v)
	}
	return out, nil
}

// splitRef parses "<node_id>.outputs.<output_name>".
func splitRef(ref string) (nodeID, outputName string, err error) {
	parts := strings.SplitN(ref, ".outputs.", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed $ref %q, expected '<node_id>.outputs.<output_name>'", ref)
	}
	return parts[0], parts[1], nil
}

var _ = refBinding{} // documents the accepted wire shape; parsed ad hoc above
