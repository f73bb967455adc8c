package queue_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/flowkit/engine/internal/queue"
	"github.com/flowkit/engine/internal/types"
)

func newTask(id string, depends ...string) *types.Task {
	return &types.Task{ID: id, NodeID: id, NodeType: "noop", Depends: depends}
}

func TestQueue_RunsLinearChainInDependencyOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string

	invoke := func(ctx context.Context, tk *types.Task) (map[string]interface{}, error) {
		mu.Lock()
		order = append(order, tk.ID)
		mu.Unlock()
		return map[string]interface{}{}, nil
	}

	q := queue.New(invoke, queue.Callbacks{})
	q.Start(context.Background(), 2)

	q.AddTask(newTask("a"))
	q.AddTask(newTask("b", "a"))
	q.AddTask(newTask("c", "b"))

	q.WaitUntilComplete(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("expected strict a,b,c order, got %v", order)
	}
}

func TestQueue_FailurePropagatesToDependents(t *testing.T) {
	invoke := func(ctx context.Context, tk *types.Task) (map[string]interface{}, error) {
		if tk.ID == "a" {
			return nil, errors.New("boom")
		}
		return map[string]interface{}{}, nil
	}

	var failed []string
	var mu sync.Mutex
	q := queue.New(invoke, queue.Callbacks{
		OnFail: func(tk *types.Task) {
			mu.Lock()
			failed = append(failed, tk.ID)
			mu.Unlock()
		},
	})
	q.Start(context.Background(), 2)

	q.AddTask(newTask("a"))
	q.AddTask(newTask("b", "a"))
	q.AddTask(newTask("c", "b"))

	q.WaitUntilComplete(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(failed) != 3 {
		t.Fatalf("expected a, b and c to all fail, got %v", failed)
	}
	bTask, _ := q.Task("b")
	var depErr *queue.DependencyFailedError
	if !errors.As(bTask.Err, &depErr) || depErr.FailedDependency != "a" {
		t.Fatalf("expected b's error to name a as the failed dependency, got %v", bTask.Err)
	}
}

func TestQueue_RunningTaskFinishesDespiteDependencyFailure(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	invoke := func(ctx context.Context, tk *types.Task) (map[string]interface{}, error) {
		if tk.ID == "slow" {
			close(started)
			<-release
			return map[string]interface{}{}, nil
		}
		if tk.ID == "fails" {
			return nil, errors.New("boom")
		}
		return map[string]interface{}{}, nil
	}

	q := queue.New(invoke, queue.Callbacks{})
	q.Start(context.Background(), 2)

	q.AddTask(newTask("slow"))
	<-started // "slow" is now Running, independent of "fails"
	q.AddTask(newTask("fails"))
	q.AddTask(newTask("dependent", "fails"))

	// give the "fails" task a moment to be scheduled and fail, cascading to
	// "dependent", while "slow" is still blocked on release
	time.Sleep(20 * time.Millisecond)
	close(release)

	q.WaitUntilComplete(context.Background())

	slow, _ := q.Task("slow")
	if slow.State != types.TaskCompleted {
		t.Fatalf("expected the already-running task to complete despite the sibling failure, got %s", slow.State)
	}
	dependent, _ := q.Task("dependent")
	if dependent.State != types.TaskFailed {
		t.Fatalf("expected dependent to be failed, got %s", dependent.State)
	}
}

func TestQueue_AddTaskIsIdempotent(t *testing.T) {
	var calls int
	var mu sync.Mutex
	invoke := func(ctx context.Context, tk *types.Task) (map[string]interface{}, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return map[string]interface{}{}, nil
	}
	q := queue.New(invoke, queue.Callbacks{})
	q.Start(context.Background(), 1)

	q.AddTask(newTask("a"))
	q.AddTask(newTask("a"))
	q.WaitUntilComplete(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected exactly one invocation for a duplicate-added task id, got %d", calls)
	}
}

func TestQueue_StatsReflectAggregateCounts(t *testing.T) {
	invoke := func(ctx context.Context, tk *types.Task) (map[string]interface{}, error) {
		if tk.ID == "bad" {
			return nil, fmt.Errorf("fail")
		}
		return map[string]interface{}{}, nil
	}
	q := queue.New(invoke, queue.Callbacks{})
	q.Start(context.Background(), 2)

	q.AddTask(newTask("good"))
	q.AddTask(newTask("bad"))
	q.WaitUntilComplete(context.Background())

	stats := q.Stats()
	if stats.Total != 2 || stats.Completed != 1 || stats.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
