package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/flowkit/engine/internal/types"
)

// loopInfo describes one loop_begin/loop_end pair discovered in a graph: the
// loop_end id and the body — every node on some path from begin to end,
// exclusive of the endpoints themselves.
type loopInfo struct {
	endID string
	body  []string // topological subsequence of r.order
}

// discoverLoops finds every loop_begin node (identified by node type, paired
// to its loop_end via node.Metadata["loop_end"]) and computes its body.
// Malformed pairings (missing/foreign loop_end reference) are reported as
// errors rather than silently ignored, since a dangling loop marker would
// otherwise execute as an ordinary no-op node.
func (r *run) discoverLoops() (map[string]loopInfo, map[string]struct{}, error) {
	loops := make(map[string]loopInfo)
	handled := make(map[string]struct{})

	for _, n := range r.g.Nodes() {
		if n.Type != "loop_begin" {
			continue
		}
		endID, _ := n.Metadata["loop_end"].(string)
		if endID == "" {
			return nil, nil, fmt.Errorf("loop_begin %q has no loop_end metadata", n.ID)
		}
		endNode, ok := r.g.GetNode(endID)
		if !ok || endNode.Type != "loop_end" {
			return nil, nil, fmt.Errorf("loop_begin %q: loop_end %q does not exist or is not a loop_end node", n.ID, endID)
		}

		forward := r.reachableForward(n.ID)
		backward := r.reachableBackward(endID)
		var body []string
		for id := range forward {
			if id == n.ID || id == endID {
				continue
			}
			if _, ok := backward[id]; ok {
				body = append(body, id)
			}
		}
		sort.Strings(body)

		// Restrict to topological order for deterministic per-iteration replay.
		inBody := make(map[string]struct{}, len(body))
		for _, id := range body {
			inBody[id] = struct{}{}
		}
		ordered := make([]string, 0, len(body))
		for _, id := range r.order {
			if _, ok := inBody[id]; ok {
				ordered = append(ordered, id)
			}
		}

		loops[n.ID] = loopInfo{endID: endID, body: ordered}
		handled[endID] = struct{}{}
		for _, id := range ordered {
			handled[id] = struct{}{}
		}
	}
	return loops, handled, nil
}

func (r *run) reachableForward(start string) map[string]struct{} {
	seen := map[string]struct{}{start: {}}
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range r.g.OutEdges(id) {
			if _, ok := seen[e.Target]; !ok {
				seen[e.Target] = struct{}{}
				stack = append(stack, e.Target)
			}
		}
	}
	return seen
}

func (r *run) reachableBackward(start string) map[string]struct{} {
	seen := map[string]struct{}{start: {}}
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range r.g.InEdges(id) {
			if _, ok := seen[e.Source]; !ok {
				seen[e.Source] = struct{}{}
				stack = append(stack, e.Source)
			}
		}
	}
	return seen
}

// runLoop executes a loop_begin task: it re-submits the loop body once per
// iteration (sequentially, in topological order, reusing the same task
// ids across iterations) up to MaxIterations, aggregating each
// iteration's loop_end "value" input into loop_end's "results" output
// (§4.5, §9 — "the scheduler re-runs a node subgraph").
func (r *run) runLoop(ctx context.Context, t *types.Task) (map[string]interface{}, error) {
	r.mu.Lock()
	info, ok := r.loops[t.NodeID]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("loop_begin %q: body not discovered", t.NodeID)
	}

	desc, _ := r.ex.reg.Descriptor(t.NodeType)
	inputs, _, _, err := r.resolveBindings(t, desc)
	if err != nil {
		return nil, err
	}

	n := r.ex.cfg.MaxIterations
	if items, ok := inputs["items"].([]interface{}); ok {
		if len(items) < n || n <= 0 {
			n = len(items)
		}
	} else if count, ok := asInt(inputs["count"]); ok && (count < n || n <= 0) {
		n = count
	}
	if n < 0 {
		n = 0
	}

	items, _ := inputs["items"].([]interface{})
	var results []interface{}
	var lastItem interface{}

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var item interface{}
		if i < len(items) {
			item = items[i]
		}
		lastItem = item
		r.g.SetNodeOutputs(t.NodeID, map[string]interface{}{"item": item, "index": i})

		for _, bodyID := range info.body {
			bodyNode, _ := r.g.GetNode(bodyID)
			bodyTask := &types.Task{ID: bodyID, NodeID: bodyID, NodeType: bodyNode.Type, Bindings: bodyNode.Inputs, Priority: bodyNode.Priority}
			out, err := r.invokeReal(ctx, bodyTask)
			if err != nil {
				return nil, fmt.Errorf("loop %q iteration %d: body node %q: %w", t.NodeID, i, bodyID, err)
			}
			r.g.SetNodeOutputs(bodyID, out)
		}

		endNode, _ := r.g.GetNode(info.endID)
		endInputs, _, _, err := r.resolveBindings(&types.Task{NodeID: info.endID, Bindings: endNode.Inputs}, nil)
		if err != nil {
			return nil, fmt.Errorf("loop %q iteration %d: loop_end %q: %w", t.NodeID, i, info.endID, err)
		}
		results = append(results, endInputs["value"])
	}

	r.g.SetNodeOutputs(t.NodeID, map[string]interface{}{"item": lastItem, "index": n - 1})
	r.g.SetNodeOutputs(info.endID, map[string]interface{}{"results": results})

	return map[string]interface{}{"item": lastItem, "index": n - 1}, nil
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
