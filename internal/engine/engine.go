// Package engine is the Graph Executor (§4.5): it binds the Graph Model, the
// Node Registry and the Execution Queue together, runs a pre-flight
// topological sort to reject cycles before any task is dispatched, resolves
// cross-node reference bindings as each task becomes ready, propagates
// conditional-branch skips, and drives a reverse-completion-order rollback
// cascade when any task fails.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/graph"
	"github.com/flowkit/engine/internal/logging"
	"github.com/flowkit/engine/internal/nodeexec"
	"github.com/flowkit/engine/internal/queue"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/state"
	"github.com/flowkit/engine/internal/types"
)

// Callbacks mirror the §6 progress event stream: task_start, task_complete,
// task_fail and queue_updated.
type Callbacks struct {
	OnTaskStart    func(*types.Task)
	OnTaskComplete func(*types.Task)
	OnTaskFail     func(*types.Task)
	OnQueueUpdated func(queue.Stats)
}

// Result is the outcome of one Execute call.
type Result struct {
	Completed   bool
	NodeOutputs map[string]map[string]interface{} // nodeID -> outputs
	FailedNodes []string
	RolledBack  []string
	Err         error
}

// Executor binds a Registry to the scheduling machinery. One Executor can
// run many graphs concurrently; all per-run state lives in a run, not here.
type Executor struct {
	reg    *registry.Registry
	cfg    *config.Config
	logger *logging.Logger
}

// New creates an Executor against the given registry and config.
func New(reg *registry.Registry, cfg *config.Config, logger *logging.Logger) *Executor {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	return &Executor{reg: reg, cfg: cfg, logger: logger}
}

// Execute runs every node in g to completion (or failure+rollback), honoring
// priority-ordered parallel dispatch, dependency propagation, conditional
// skip cascades and loop markers (§4.3, §4.5, §9).
func (ex *Executor) Execute(ctx context.Context, g *graph.Graph, cb Callbacks) *Result {
	order, err := g.TopologicalSortKahn()
	if err != nil {
		return &Result{Err: err}
	}
	if len(order) == 0 {
		return &Result{Completed: true, NodeOutputs: map[string]map[string]interface{}{}}
	}

	run := &run{
		ex:    ex,
		g:     g,
		order: order,
	}
	return run.execute(ctx, cb)
}

// run holds the mutable state of one Execute invocation.
type run struct {
	ex    *Executor
	g     *graph.Graph
	order []string

	mu             sync.Mutex
	completionSeq  []string // node ids in completion order, for rollback
	executionCount int

	loops       map[string]loopInfo
	loopHandled map[string]struct{} // body nodes + loop_end ids; their outer Task is a cache read, not an invoke
}

func (r *run) execute(ctx context.Context, cb Callbacks) *Result {
	cfg := r.ex.cfg
	runCtx := state.NewContext(ctx, state.New())
	if cfg.MaxExecutionTime > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, cfg.MaxExecutionTime)
		defer cancel()
	}

	loops, handled, err := r.discoverLoops()
	if err != nil {
		return &Result{Err: err}
	}
	r.loops = loops
	r.loopHandled = handled

	q := queue.New(r.invoke, queue.Callbacks{
		OnStart: cb.OnTaskStart,
		OnComplete: func(t *types.Task) {
			r.mu.Lock()
			r.completionSeq = append(r.completionSeq, t.NodeID)
			r.mu.Unlock()
			if cb.OnTaskComplete != nil {
				cb.OnTaskComplete(t)
			}
		},
		OnFail:  cb.OnTaskFail,
		OnStats: cb.OnQueueUpdated,
	})

	for _, nodeID := range r.order {
		n, _ := r.g.GetNode(nodeID)
		t := &types.Task{
			ID:       n.ID,
			NodeID:   n.ID,
			NodeType: n.Type,
			Bindings: n.Inputs,
			Depends:  dependsOf(r.g, n.ID),
			Priority: n.Priority,
		}
		q.AddTask(t)
	}

	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = 1
	}
	q.Start(runCtx, workers)
	q.WaitUntilComplete(runCtx)

	outputs := make(map[string]map[string]interface{}, len(r.order))
	var failedNodes []string
	for _, nodeID := range r.order {
		t, _ := q.Task(nodeID)
		if t == nil {
			continue
		}
		switch t.State {
		case types.TaskCompleted:
			outputs[nodeID] = t.Result
		case types.TaskFailed:
			failedNodes = append(failedNodes, nodeID)
		}
	}

	if len(failedNodes) == 0 {
		return &Result{Completed: true, NodeOutputs: outputs}
	}

	sort.Strings(failedNodes)
	rolledBack := r.rollback(ctx)

	// Identify the root cause: a task whose failure isn't just a cascade
	// from a dependency (queue.DependencyFailedError), so the reported
	// error points at the node that actually failed and keeps its
	// original message (§7 — failed status must name the node and error).
	firstErr := fmt.Errorf("workflow failed at node(s) %v", failedNodes)
	for _, nodeID := range failedNodes {
		t, _ := q.Task(nodeID)
		if t == nil || t.Err == nil {
			continue
		}
		var depErr *queue.DependencyFailedError
		if errors.As(t.Err, &depErr) {
			continue
		}
		firstErr = t.Err
		break
	}

	return &Result{
		Completed:   false,
		NodeOutputs: outputs,
		FailedNodes: failedNodes,
		RolledBack:  rolledBack,
		Err:         firstErr,
	}
}

// dependsOf returns the distinct set of source node ids a node's reference
// bindings depend on.
func dependsOf(g *graph.Graph, nodeID string) []string {
	n, ok := g.GetNode(nodeID)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var deps []string
	for _, b := range n.Inputs {
		if !b.IsRef {
			continue
		}
		if _, ok := seen[b.Ref.SourceNodeID]; ok {
			continue
		}
		seen[b.Ref.SourceNodeID] = struct{}{}
		deps = append(deps, b.Ref.SourceNodeID)
	}
	sort.Strings(deps)
	return deps
}

// invoke is the queue's InvokeFunc: it resolves a task's bindings against
// already-completed source tasks, applies the conditional-skip cascade rule,
// enforces per-node execution limits, and dispatches to the registered
// executor.
func (r *run) invoke(ctx context.Context, t *types.Task) (map[string]interface{}, error) {
	r.mu.Lock()
	_, isLoopHandled := r.loopHandled[t.NodeID]
	r.mu.Unlock()

	// Loop bodies and their loop_end are driven entirely by runLoop, invoked
	// when the paired loop_begin task runs; by the time their own outer Task
	// becomes ready its final-iteration output is already recorded (§9). The
	// outer queue dispatches this as an ordinary task purely to keep its
	// dependency wiring uniform — runLoop calls invokeReal directly for the
	// same node ids during the nested per-iteration replay.
	if isLoopHandled {
		out, _ := r.g.NodeOutputs(t.NodeID)
		return out, nil
	}
	if t.NodeType == "loop_begin" {
		return r.runLoop(ctx, t)
	}
	return r.invokeReal(ctx, t)
}

// invokeReal resolves bindings, applies the conditional-skip cascade, and
// dispatches to the registered executor. Called for ordinary tasks by
// invoke, and for loop-body tasks directly by runLoop on every iteration.
func (r *run) invokeReal(ctx context.Context, t *types.Task) (map[string]interface{}, error) {
	cfg := r.ex.cfg

	r.mu.Lock()
	r.executionCount++
	if cfg.MaxNodeExecutions > 0 && r.executionCount > cfg.MaxNodeExecutions {
		r.mu.Unlock()
		return nil, fmt.Errorf("node execution limit (%d) exceeded at node %q", cfg.MaxNodeExecutions, t.NodeID)
	}
	r.mu.Unlock()

	desc, ok := r.ex.reg.Descriptor(t.NodeType)
	if !ok {
		return nil, fmt.Errorf("node %q: type %q is not registered", t.NodeID, t.NodeType)
	}
	exec, ok := r.ex.reg.Executor(t.NodeType)
	if !ok {
		return nil, fmt.Errorf("node %q: type %q has no executor", t.NodeID, t.NodeType)
	}

	inputs, refCount, skippedRefs, err := r.resolveBindings(t, desc)
	if err != nil {
		return nil, err
	}

	// §4.5: a task whose every reference binding resolved to the Skipped
	// sentinel is itself on the untaken branch — it completes without
	// invoking its executor, producing Skipped for every declared output,
	// so its own dependents cascade the same way.
	if refCount > 0 && skippedRefs == refCount {
		t.Skipped = true
		out := make(map[string]interface{}, len(desc.Outputs))
		for _, o := range desc.Outputs {
			out[o.Name] = types.Skipped
		}
		r.g.SetNodeOutputs(t.NodeID, out)
		return out, nil
	}

	nodeCtx := execCtx{
		Context: ctx,
		nodeID:  t.NodeID,
		inputs:  inputs,
		g:       r.g,
		start:   time.Now(),
	}

	invokeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.MaxNodeExecutionTime > 0 {
		var tcancel context.CancelFunc
		invokeCtx, tcancel = context.WithTimeout(invokeCtx, cfg.MaxNodeExecutionTime)
		defer tcancel()
	}
	nodeCtx.Context = invokeCtx

	out, err := exec.Invoke(&nodeCtx)
	if err != nil {
		return nil, &ExecutorFailureError{NodeID: t.NodeID, NodeType: t.NodeType, Err: err}
	}

	result := map[string]interface{}(out)
	r.g.SetNodeOutputs(t.NodeID, result)
	return result, nil
}

// resolveBindings resolves every binding on t against completed source
// outputs, applying declared defaults when the source output was Skipped.
func (r *run) resolveBindings(t *types.Task, desc *types.NodeTypeDescriptor) (inputs map[string]interface{}, refCount, skippedRefs int, err error) {
	inputs = make(map[string]interface{}, len(t.Bindings))
	for port, b := range t.Bindings {
		if !b.IsRef {
			inputs[port] = b.Literal
			continue
		}
		refCount++
		srcOutputs, ok := r.g.NodeOutputs(b.Ref.SourceNodeID)
		if !ok {
			return nil, 0, 0, &UnresolvedReferenceError{NodeID: t.NodeID, SourceID: b.Ref.SourceNodeID, OutputName: b.Ref.OutputName}
		}
		val, ok := srcOutputs[b.Ref.OutputName]
		if !ok {
			return nil, 0, 0, &UnresolvedReferenceError{NodeID: t.NodeID, SourceID: b.Ref.SourceNodeID, OutputName: b.Ref.OutputName}
		}
		if types.IsSkipped(val) {
			skippedRefs++
			var defaultVal interface{}
			if desc != nil {
				if spec, ok := desc.InputSpec(port); ok {
					defaultVal = spec.Default
				}
			}
			inputs[port] = defaultVal
			continue
		}
		inputs[port] = val
	}
	return inputs, refCount, skippedRefs, nil
}

// rollback walks completed nodes in reverse completion order, invoking each
// registered rollback function. Rollback errors are logged and never abort
// the cascade (§4.5, §7).
func (r *run) rollback(ctx context.Context) []string {
	r.mu.Lock()
	seq := append([]string(nil), r.completionSeq...)
	r.mu.Unlock()

	var rolledBack []string
	for i := len(seq) - 1; i >= 0; i-- {
		nodeID := seq[i]
		n, ok := r.g.GetNode(nodeID)
		if !ok {
			continue
		}
		exec, ok := r.ex.reg.Executor(n.Type)
		if !ok {
			continue
		}
		rb, ok := exec.Rollback()
		if !ok {
			continue
		}
		outputs, _ := r.g.NodeOutputs(nodeID)
		inputs, _, _, err := r.resolveBindingsForRollback(n)
		if err != nil {
			r.ex.logger.WithNodeID(nodeID).WithError(err).Warn("rollback: could not re-resolve inputs, using empty set")
		}
		if err := rb(ctx, inputs, nodeexec.Outputs(outputs)); err != nil {
			r.ex.logger.WithNodeID(nodeID).WithError(&RollbackFailureError{NodeID: nodeID, Err: err}).Error("rollback failed")
			continue
		}
		rolledBack = append(rolledBack, nodeID)
	}
	return rolledBack
}

func (r *run) resolveBindingsForRollback(n types.Node) (map[string]interface{}, int, int, error) {
	inputs := make(map[string]interface{}, len(n.Inputs))
	for port, b := range n.Inputs {
		if !b.IsRef {
			inputs[port] = b.Literal
			continue
		}
		if out, ok := r.g.NodeOutputs(b.Ref.SourceNodeID); ok {
			inputs[port] = out[b.Ref.OutputName]
		}
	}
	return inputs, 0, 0, nil
}
