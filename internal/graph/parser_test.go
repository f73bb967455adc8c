package graph_test

import (
	"testing"

	"github.com/flowkit/engine/internal/graph"
)

func TestParse_JSONMapForm(t *testing.T) {
	doc := []byte(`{
		"nodes": {
			"a": {"type": "input_text", "inputs": {"value": "hi"}},
			"b": {"type": "output", "inputs": {"in": {"$ref": "a.outputs.value"}}}
		},
		"edges": {
			"e1": {"source": "a", "source_output": "value", "target": "b", "target_input": "in"}
		}
	}`)
	g, err := graph.Parse(doc, graph.FormatJSON)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if g.Len() != 2 {
		t.Fatalf("expected 2 nodes, got %d", g.Len())
	}
	node, ok := g.GetNode("b")
	if !ok {
		t.Fatalf("expected node b to exist")
	}
	if !node.Inputs["in"].IsRef || node.Inputs["in"].Ref.SourceNodeID != "a" {
		t.Fatalf("expected b.in to resolve to a $ref binding on a, got %+v", node.Inputs["in"])
	}
}

func TestParse_JSONListFormWithCamelCaseEdgeFields(t *testing.T) {
	doc := []byte(`{
		"nodes": [
			{"id": "a", "type": "input_text"},
			{"id": "b", "type": "output"}
		],
		"edges": [
			{"id": "e1", "source": "a", "sourceOutput": "value", "target": "b", "targetInput": "in"}
		]
	}`)
	g, err := graph.Parse(doc, graph.FormatJSON)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	edges := g.OutEdges("a")
	if len(edges) != 1 || edges[0].SourceOutput != "value" || edges[0].TargetInput != "in" {
		t.Fatalf("expected camelCase edge fields to normalize, got %+v", edges)
	}
}

func TestParse_YAMLForm(t *testing.T) {
	doc := []byte(`
nodes:
  a:
    type: input_text
  b:
    type: output
edges:
  e1:
    source: a
    source_output: value
    target: b
    target_input: in
`)
	g, err := graph.Parse(doc, graph.FormatYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if g.Len() != 2 {
		t.Fatalf("expected 2 nodes from YAML, got %d", g.Len())
	}
}

func TestParse_NodeKeyMismatchWithIDFieldFails(t *testing.T) {
	doc := []byte(`{"nodes": {"a": {"id": "not-a", "type": "input_text"}}, "edges": {}}`)
	if _, err := graph.Parse(doc, graph.FormatJSON); err == nil {
		t.Fatalf("expected a mismatched node key/id to fail parsing")
	}
}

func TestParse_MalformedRefFails(t *testing.T) {
	doc := []byte(`{
		"nodes": {"a": {"type": "output", "inputs": {"in": {"$ref": "not-a-valid-ref"}}}},
		"edges": {}
	}`)
	if _, err := graph.Parse(doc, graph.FormatJSON); err == nil {
		t.Fatalf("expected a malformed $ref to fail parsing")
	}
}

func TestParse_EdgeMissingSourceFails(t *testing.T) {
	doc := []byte(`{
		"nodes": {"a": {"type": "input_text"}, "b": {"type": "output"}},
		"edges": {"e1": {"target": "b", "target_input": "in"}}
	}`)
	if _, err := graph.Parse(doc, graph.FormatJSON); err == nil {
		t.Fatalf("expected an edge missing source to fail parsing")
	}
}
