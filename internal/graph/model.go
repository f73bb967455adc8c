// Package graph is the Graph Model: an immutable-after-parse representation
// of nodes, edges and typed ports (§4.1), plus the Topological Sorter
// (§4.3) used by the executor to detect cycles and establish a
// deterministic run order.
package graph

import (
	"sort"
	"sync"

	"github.com/flowkit/engine/internal/types"
)

// Graph is a parsed, validated workflow. Nodes and edges are keyed by id for
// O(1) lookup; edges are denormalized from node input bindings so adjacency
// queries don't need to re-scan every node's bindings.
type Graph struct {
	nodes map[string]types.Node
	edges map[string]types.Edge

	outByNode map[string][]types.Edge
	inByNode  map[string][]types.Edge

	resultsMu sync.RWMutex
	results   map[string]map[string]interface{} // nodeID -> outputPort -> value, recorded post-execution
}

// New builds a Graph from nodes and edges, checking invariants (i) and (ii)
// from §3: every edge's endpoints must exist, and every reference binding
// must correspond to a denormalized edge. Acyclicity (iii) is deliberately
// NOT checked here — it is validated at execution start by the topological
// sorter, per §4.1.
func New(nodes []types.Node, edges []types.Edge) (*Graph, error) {
	g := &Graph{
		nodes:     make(map[string]types.Node, len(nodes)),
		edges:     make(map[string]types.Edge, len(edges)),
		outByNode: make(map[string][]types.Edge),
		inByNode:  make(map[string][]types.Edge),
		results:   make(map[string]map[string]interface{}),
	}

	for _, n := range nodes {
		if n.ID == "" {
			return nil, malformed("node missing id")
		}
		if _, dup := g.nodes[n.ID]; dup {
			return nil, malformed("duplicate node id %q", n.ID)
		}
		g.nodes[n.ID] = n
	}

	for _, e := range edges {
		if e.ID == "" {
			return nil, malformed("edge missing id")
		}
		if _, ok := g.nodes[e.Source]; !ok {
			return nil, malformed("edge %q references unknown source node %q", e.ID, e.Source)
		}
		if _, ok := g.nodes[e.Target]; !ok {
			return nil, malformed("edge %q references unknown target node %q", e.ID, e.Target)
		}
		g.edges[e.ID] = e
		g.outByNode[e.Source] = append(g.outByNode[e.Source], e)
		g.inByNode[e.Target] = append(g.inByNode[e.Target], e)
	}

	// Invariant (ii): every reference binding must match a denormalized edge.
	for _, n := range g.nodes {
		for portName, b := range n.Inputs {
			if !b.IsRef {
				continue
			}
			if !g.hasEdgeFor(n.ID, portName, b.Ref) {
				return nil, malformed(
					"node %q input %q references %s.%s with no matching edge",
					n.ID, portName, b.Ref.SourceNodeID, b.Ref.OutputName,
				)
			}
		}
	}

	return g, nil
}

func (g *Graph) hasEdgeFor(targetID, targetInput string, ref types.Ref) bool {
	for _, e := range g.inByNode[targetID] {
		if e.TargetInput == targetInput && e.Source == ref.SourceNodeID && e.SourceOutput == ref.OutputName {
			return true
		}
	}
	return false
}

// GetNode returns the node with the given id, or (zero, false).
func (g *Graph) GetNode(id string) (types.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns a stable-ordered snapshot of all nodes (sorted by id).
func (g *Graph) Nodes() []types.Node {
	out := make([]types.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns a stable-ordered snapshot of all edges (sorted by id).
func (g *Graph) Edges() []types.Edge {
	out := make([]types.Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OutEdges returns all edges where nodeID is the source.
func (g *Graph) OutEdges(nodeID string) []types.Edge { return g.outByNode[nodeID] }

// InEdges returns all edges where nodeID is the target.
func (g *Graph) InEdges(nodeID string) []types.Edge { return g.inByNode[nodeID] }

// TerminalNodes returns node ids with no outgoing edges.
func (g *Graph) TerminalNodes() []string {
	terminal := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		if len(g.outByNode[id]) == 0 {
			terminal = append(terminal, id)
		}
	}
	sort.Strings(terminal)
	return terminal
}

// SetNodeOutputs records a node's outputs after execution. This is the only
// mutation the Graph Model permits post-parse (§4.1).
func (g *Graph) SetNodeOutputs(nodeID string, outputs map[string]interface{}) {
	g.resultsMu.Lock()
	defer g.resultsMu.Unlock()
	g.results[nodeID] = outputs
}

// NodeOutputs returns the outputs recorded for a node, or (nil, false) if it
// has not completed yet.
func (g *Graph) NodeOutputs(nodeID string) (map[string]interface{}, bool) {
	g.resultsMu.RLock()
	defer g.resultsMu.RUnlock()
	out, ok := g.results[nodeID]
	return out, ok
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }
