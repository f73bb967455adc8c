// Package nodeexec defines the executor contract node types implement
// (§4.2, §9): a polymorphic interface over {invoke, rollback?} plus the
// context executors use to read resolved inputs and engine-owned state.
// It has no dependency on the registry or engine packages, which breaks the
// import cycle between "the thing that calls executors" and "the thing
// executors are defined against".
package nodeexec

import (
	"context"
	"time"
)

// ExecutionContext is what a running node executor sees of the surrounding
// workflow execution. Executors must be pure with respect to their declared
// inputs (§4.2) — any external state they need comes through this context
// or through explicit collaborators (e.g. a model cache) injected at
// construction time, never through hidden globals.
type ExecutionContext interface {
	context.Context

	// NodeID is the id of the node currently being executed.
	NodeID() string

	// Input returns the resolved value bound to the named input port. The
	// bool is false if the port was never bound (the node should fall back
	// to the port's declared default, if any).
	Input(port string) (interface{}, bool)

	// Inputs returns every resolved input as a name->value map.
	Inputs() map[string]interface{}

	// NodeResult returns a previously-completed node's recorded outputs.
	// Used by executors that need to look past their own declared inputs
	// (rare; most should use Input/Inputs).
	NodeResult(nodeID string) (map[string]interface{}, bool)

	// Elapsed returns the time spent so far executing the current node.
	Elapsed() time.Duration
}

// Outputs is a node's result: a mapping from declared output-port name to
// value (§4.2).
type Outputs map[string]interface{}

// InvokeFunc executes a node given its resolved inputs. Async executors are
// honored by simply doing their awaiting inside this function — the queue's
// worker goroutine blocks on the call, which is the Go equivalent of "the
// invoker awaits their result" (§4.2).
type InvokeFunc func(ctx ExecutionContext) (Outputs, error)

// RollbackFunc undoes a completed node's external side effects, given its
// original inputs and recorded outputs (§4.2). Rollback errors are logged
// by the caller and never abort the cascade (§4.5, §7).
type RollbackFunc func(ctx context.Context, inputs map[string]interface{}, outputs Outputs) error

// NodeExecutor is the capability set a registered node type must implement.
type NodeExecutor interface {
	// Invoke runs the node with its resolved inputs.
	Invoke(ctx ExecutionContext) (Outputs, error)

	// Rollback optionally undoes the node's side effects. Returns (nil,
	// false) if this node type has no rollback behavior.
	Rollback() (RollbackFunc, bool)
}

// Func adapts a bare InvokeFunc into a NodeExecutor with no rollback.
type Func InvokeFunc

func (f Func) Invoke(ctx ExecutionContext) (Outputs, error) { return f(ctx) }
func (f Func) Rollback() (RollbackFunc, bool)               { return nil, false }

// WithRollback pairs an InvokeFunc with a RollbackFunc.
type WithRollback struct {
	InvokeFn   InvokeFunc
	RollbackFn RollbackFunc
}

func (w WithRollback) Invoke(ctx ExecutionContext) (Outputs, error) { return w.InvokeFn(ctx) }
func (w WithRollback) Rollback() (RollbackFunc, bool)               { return w.RollbackFn, w.RollbackFn != nil }
