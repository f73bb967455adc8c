package graph

import "fmt"

// MalformedGraphError is returned by Parse and New when a workflow document
// cannot be normalized into a Graph: the document cannot be decoded, an id
// is missing or does not match its key, an edge lacks a source or target or
// references a non-existent node, an id is duplicated, or a reference
// binding has no matching edge. Input ports are not checked against the
// node type's declared schema here. It is returned, never panicked,
// so callers can branch on it with errors.As.
type MalformedGraphError struct {
	Reason string
}

func (e *MalformedGraphError) Error() string {
	return fmt.Sprintf("malformed graph: %s", e.Reason)
}

func malformed(format string, args ...interface{}) error {
	return &MalformedGraphError{Reason: fmt.Sprintf(format, args...)}
}

// CyclicGraphError is returned by the topological sorter when the graph
// contains a cycle (§4.3, §7).
type CyclicGraphError struct {
	Remaining []string // node ids that never reached zero in-degree
}

func (e *CyclicGraphError) Error() string {
	return fmt.Sprintf("cyclic graph: %d node(s) involved in a cycle", len(e.Remaining))
}
