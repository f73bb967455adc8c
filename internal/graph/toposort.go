package graph

import (
	"sort"

	"github.com/flowkit/engine/internal/types"
)

// sortableNodes orders node ids deterministically by (priority ascending,
// then id ascending), per §4.3's tie-break rule.
type sortableNodes struct {
	ids        []string
	priorityOf map[string]int
}

func (s sortableNodes) Len() int { return len(s.ids) }
func (s sortableNodes) Less(i, j int) bool {
	pi, pj := s.priorityOf[s.ids[i]], s.priorityOf[s.ids[j]]
	if pi != pj {
		return pi < pj
	}
	return s.ids[i] < s.ids[j]
}
func (s sortableNodes) Swap(i, j int) { s.ids[i], s.ids[j] = s.ids[j], s.ids[i] }

func (g *Graph) priorities() map[string]int {
	p := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		p[id] = n.Priority
	}
	return p
}

func (g *Graph) sortIDs(ids []string) []string {
	sort.Sort(sortableNodes{ids: ids, priorityOf: g.priorities()})
	return ids
}

// TopologicalSortKahn produces a dependency-respecting execution order using
// Kahn's algorithm: repeatedly emit nodes with zero remaining in-degree,
// decrementing successors' in-degree. Ties among simultaneously-ready nodes
// are broken by (priority ascending, then id ascending) so that two runs on
// identical input produce an identical order (§4.3).
func (g *Graph) TopologicalSortKahn() ([]string, error) {
	if len(g.nodes) == 0 {
		return []string{}, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = 0
	}
	for _, e := range g.edges {
		inDegree[e.Target]++
	}

	var ready []string
	for id, d := range inDegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	g.sortIDs(ready)

	order := make([]string, 0, len(g.nodes))
	priorities := g.priorities()

	for len(ready) > 0 {
		// Pop the smallest (priority, id) from the ready set.
		sort.Sort(sortableNodes{ids: ready, priorityOf: priorities})
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		var newlyReady []string
		for _, e := range g.outByNode[current] {
			inDegree[e.Target]--
			if inDegree[e.Target] == 0 {
				newlyReady = append(newlyReady, e.Target)
			}
		}
		ready = append(ready, newlyReady...)
	}

	if len(order) != len(g.nodes) {
		return nil, &CyclicGraphError{Remaining: remaining(g.nodes, order)}
	}
	return order, nil
}

// TopologicalSortDFS produces a dependency-respecting order via reversed DFS
// post-order, per §4.3. Roots and neighbors are visited in descending
// (priority, id) order, so the reversal puts lower (priority, id) first, as
// TopologicalSortKahn does; the two orders agree on the package's test
// graphs, but on some acyclic graphs they differ in the relative position of
// nodes that do not depend on each other.
func (g *Graph) TopologicalSortDFS() ([]string, error) {
	if len(g.nodes) == 0 {
		return []string{}, nil
	}

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		color[id] = white
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	reverseIDs := func(s []string) {
		for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
			s[i], s[j] = s[j], s[i]
		}
	}
	g.sortIDs(ids)
	reverseIDs(ids)

	var order []string
	var cyclic bool
	var visit func(id string)
	visit = func(id string) {
		if cyclic || color[id] != white {
			return
		}
		color[id] = gray
		neighbors := make([]string, 0, len(g.outByNode[id]))
		for _, e := range g.outByNode[id] {
			neighbors = append(neighbors, e.Target)
		}
		g.sortIDs(neighbors)
		reverseIDs(neighbors)
		for _, next := range neighbors {
			if color[next] == gray {
				cyclic = true
				return
			}
			visit(next)
		}
		color[id] = black
		order = append(order, id)
	}

	for _, id := range ids {
		visit(id)
		if cyclic {
			break
		}
	}

	if cyclic || len(order) != len(g.nodes) {
		return nil, &CyclicGraphError{Remaining: remaining(g.nodes, order)}
	}

	// Reverse post-order.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

func remaining(nodes map[string]types.Node, order []string) []string {
	done := make(map[string]bool, len(order))
	for _, id := range order {
		done[id] = true
	}
	var left []string
	for id := range nodes {
		if !done[id] {
			left = append(left, id)
		}
	}
	sort.Strings(left)
	return left
}

// DetectCycles reports whether the graph contains a cycle.
func (g *Graph) DetectCycles() error {
	_, err := g.TopologicalSortKahn()
	return err
}
