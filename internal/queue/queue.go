// Package queue is the Execution Queue (§4.4): a priority-ordered,
// dependency-tracking task graph with a fixed-size worker pool. It owns a
// min-heap of ready tasks, a task-id arena (never object back-pointers,
// per §9), a forward dependency graph for O(1) unblocking of dependents,
// and emits progress callbacks and aggregate stats.
package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/flowkit/engine/internal/types"
)

// InvokeFunc runs one task to completion (or failure). The queue calls this
// from a worker goroutine and blocks on it — an async executor's await
// simply happens inside this call (§4.2, §5).
type InvokeFunc func(ctx context.Context, t *types.Task) (map[string]interface{}, error)

// Stats is the aggregate snapshot emitted on every state transition (§4.4).
type Stats struct {
	Total, Pending, Running, Completed, Failed int
}

// Callbacks are optional hooks the Graph Executor uses to stream progress
// events (§6's task_start/task_complete/task_fail/queue_updated).
type Callbacks struct {
	OnStart    func(*types.Task)
	OnComplete func(*types.Task)
	OnFail     func(*types.Task)
	OnStats    func(Stats)
}

// Queue is safe for concurrent use. All mutable state (task map, forward
// graph, heap, counters) is protected by one coarse lock — the critical
// sections are small and the dominant work happens inside InvokeFunc,
// outside the lock (§4.4, §5).
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	tasks   map[string]*types.Task
	forward map[string][]string // dependency id -> dependent task ids
	ready   readyHeap
	seq     uint64

	total, completedCount, failedCount int

	stopped  bool
	draining bool

	invoke InvokeFunc
	cb     Callbacks

	wg sync.WaitGroup

	allDone   chan struct{}
	allDoneMu sync.Mutex
}

// New creates an empty Queue. Call Start to launch the worker pool.
func New(invoke InvokeFunc, cb Callbacks) *Queue {
	q := &Queue{
		tasks:   make(map[string]*types.Task),
		forward: make(map[string][]string),
		invoke:  invoke,
		cb:      cb,
		allDone: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// AddTask registers a task. If it has no dependencies, or every dependency
// is already Completed, it is pushed onto the ready heap immediately.
// AddTask is idempotent: a second call with an id already present is
// ignored (§8 — "specified by the implementer").
func (q *Queue) AddTask(t *types.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.tasks[t.ID]; exists {
		return
	}

	t.State = types.TaskPending
	q.seq++
	t.SetSeq(q.seq)
	q.tasks[t.ID] = t
	q.total++

	for _, dep := range t.Depends {
		q.forward[dep] = append(q.forward[dep], t.ID)
	}

	if q.allDepsCompleteLocked(t) {
		heap.Push(&q.ready, t)
		q.cond.Signal()
	}
}

func (q *Queue) allDepsCompleteLocked(t *types.Task) bool {
	for _, dep := range t.Depends {
		d, ok := q.tasks[dep]
		if !ok || d.State != types.TaskCompleted {
			return false
		}
	}
	return true
}

// Start launches the fixed-size worker pool. Workers run until Stop is
// called or ctx is cancelled.
func (q *Queue) Start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.workerLoop(ctx)
	}
}

func (q *Queue) workerLoop(ctx context.Context) {
	defer q.wg.Done()
	for {
		task := q.nextTask(ctx)
		if task == nil {
			return
		}
		q.runTask(ctx, task)
	}
}

// nextTask blocks until a ready task is available, the queue is stopped, or
// ctx is cancelled. It never suspends while holding q.mu — sync.Cond.Wait
// releases the lock for the duration of the wait (§5).
func (q *Queue) nextTask(ctx context.Context) *types.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if len(q.ready) > 0 {
			t := heap.Pop(&q.ready).(*types.Task)
			t.State = types.TaskRunning
			return t
		}
		if q.stopped {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		if q.draining && q.noMoreWorkLocked() {
			return nil
		}
		q.cond.Wait()
	}
}

func (q *Queue) noMoreWorkLocked() bool {
	for _, t := range q.tasks {
		if t.State == types.TaskPending || t.State == types.TaskRunning {
			return false
		}
	}
	return true
}

func (q *Queue) runTask(ctx context.Context, t *types.Task) {
	if q.cb.OnStart != nil {
		q.cb.OnStart(t)
	}

	start := time.Now()
	result, err := q.invoke(ctx, t)
	elapsed := time.Since(start)

	q.mu.Lock()
	t.Elapsed = elapsed
	var cascaded []*types.Task
	if err != nil {
		t.State = types.TaskFailed
		t.Err = err
		q.failedCount++
		cascaded = q.failDependentsLocked(t)
	} else {
		t.State = types.TaskCompleted
		t.Result = result
		q.completedCount++
		q.unblockDependentsLocked(t)
	}
	stats := q.statsLocked()
	allDone := q.completedCount+q.failedCount == q.total
	q.mu.Unlock()

	if err != nil {
		if q.cb.OnFail != nil {
			q.cb.OnFail(t)
		}
	} else {
		if q.cb.OnComplete != nil {
			q.cb.OnComplete(t)
		}
	}
	for _, c := range cascaded {
		if q.cb.OnFail != nil {
			q.cb.OnFail(c)
		}
	}
	if q.cb.OnStats != nil {
		q.cb.OnStats(stats)
	}

	q.mu.Lock()
	q.cond.Broadcast()
	q.mu.Unlock()

	if allDone {
		q.signalAllDone()
	}
}

// unblockDependentsLocked pushes every dependent of t onto the ready heap
// once all of its dependencies are Completed. Must be called with q.mu held.
func (q *Queue) unblockDependentsLocked(t *types.Task) {
	for _, depID := range q.forward[t.ID] {
		dep, ok := q.tasks[depID]
		if !ok || dep.State != types.TaskPending {
			continue
		}
		if q.allDepsCompleteLocked(dep) {
			heap.Push(&q.ready, dep)
		}
	}
}

// failDependentsLocked marks every transitive, still-Pending dependent of t
// as Failed (never Running — a task already dispatched to a worker runs to
// its own completion regardless) and returns the full cascaded set so the
// caller can fire OnFail for each after releasing the lock.
func (q *Queue) failDependentsLocked(t *types.Task) []*types.Task {
	var cascaded []*types.Task
	for _, depID := range q.forward[t.ID] {
		dep, ok := q.tasks[depID]
		if !ok || dep.State != types.TaskPending {
			continue
		}
		dep.State = types.TaskFailed
		dep.Err = &DependencyFailedError{TaskID: dep.ID, FailedDependency: t.ID}
		q.failedCount++
		cascaded = append(cascaded, dep)
		cascaded = append(cascaded, q.failDependentsLocked(dep)...)
	}
	return cascaded
}

func (q *Queue) statsLocked() Stats {
	pending, running := 0, 0
	for _, t := range q.tasks {
		switch t.State {
		case types.TaskPending:
			pending++
		case types.TaskRunning:
			running++
		}
	}
	return Stats{
		Total:     q.total,
		Pending:   pending,
		Running:   running,
		Completed: q.completedCount,
		Failed:    q.failedCount,
	}
}

// Stats returns the current aggregate snapshot.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.statsLocked()
}

// Drain stops accepting the notion of new ready work once outstanding tasks
// finish (graceful shutdown, §4.4/§5): workers exit once no task is Pending
// or Running. It does not forcibly interrupt in-flight tasks.
func (q *Queue) Drain() {
	q.mu.Lock()
	q.draining = true
	allDone := q.completedCount+q.failedCount == q.total
	q.cond.Broadcast()
	q.mu.Unlock()
	if allDone {
		q.signalAllDone()
	}
}

// Stop immediately ceases dispatching new tasks and wakes idle workers so
// they exit; tasks already running are allowed to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Wait blocks until every worker goroutine has exited.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// WaitUntilComplete blocks until completed+failed == total, i.e. every task
// that was ever added has reached a terminal state (§5). It also marks the
// queue as draining so idle workers exit once there is truly no more work.
func (q *Queue) WaitUntilComplete(ctx context.Context) {
	q.Drain()
	select {
	case <-q.allDone:
	case <-ctx.Done():
	}
	q.Stop()
	q.Wait()
}

func (q *Queue) signalAllDone() {
	q.allDoneMu.Lock()
	defer q.allDoneMu.Unlock()
	select {
	case <-q.allDone:
		// already closed
	default:
		close(q.allDone)
	}
}

// Task returns the current snapshot of a task by id.
func (q *Queue) Task(id string) (*types.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	return t, ok
}

// Tasks returns every task currently tracked by the queue.
func (q *Queue) Tasks() []*types.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*types.Task, 0, len(q.tasks))
	for _, t := range q.tasks {
		out = append(out, t)
	}
	return out
}
