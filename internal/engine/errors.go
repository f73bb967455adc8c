package engine

import "fmt"

// UnresolvedReferenceError is returned when a node's input binding names a
// source output that was never recorded — fatal for the execution, triggers
// rollback (§4.5, §7).
type UnresolvedReferenceError struct {
	NodeID     string
	SourceID   string
	OutputName string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference: node %q references %s.outputs.%s, which was never produced",
		e.NodeID, e.SourceID, e.OutputName)
}

// ExecutorFailureError wraps a user-supplied executor's error with the node
// it occurred at, so a failed execution's status can identify the node
// (§7 — "User-visible failure").
type ExecutorFailureError struct {
	NodeID   string
	NodeType string
	Err      error
}

func (e *ExecutorFailureError) Error() string {
	return fmt.Sprintf("node %q (type %s) failed: %v", e.NodeID, e.NodeType, e.Err)
}

func (e *ExecutorFailureError) Unwrap() error { return e.Err }

// RollbackFailureError is logged, never returned to the caller, but kept as
// a typed value so callers inspecting rollback logs can filter on it (§7).
type RollbackFailureError struct {
	NodeID string
	Err    error
}

func (e *RollbackFailureError) Error() string {
	return fmt.Sprintf("rollback of node %q failed: %v", e.NodeID, e.Err)
}

func (e *RollbackFailureError) Unwrap() error { return e.Err }
