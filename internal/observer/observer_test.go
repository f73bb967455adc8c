package observer_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/engine"
	"github.com/flowkit/engine/internal/graph"
	"github.com/flowkit/engine/internal/logging"
	"github.com/flowkit/engine/internal/nodeexec"
	"github.com/flowkit/engine/internal/observer"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/types"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []observer.Event
}

func (r *recordingObserver) OnEvent(ctx context.Context, event observer.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingObserver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type panicObserver struct{}

func (panicObserver) OnEvent(ctx context.Context, event observer.Event) {
	panic("boom")
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Debug(string) {}
func (l *recordingLogger) Info(string)  {}
func (l *recordingLogger) Warn(string)  {}
func (l *recordingLogger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, msg)
}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}

func echoExecutor() nodeexec.NodeExecutor {
	return nodeexec.Func(func(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
		v, _ := ctx.Input("in")
		return nodeexec.Outputs{"out": v}, nil
	})
}

func newExecutor(t *testing.T) (*engine.Executor, *graph.Graph) {
	t.Helper()
	reg := registry.New()
	reg.MustRegister(types.NodeTypeDescriptor{
		Name:    "echo",
		Inputs:  []types.PortSpec{{Name: "in", Type: types.PortText}},
		Outputs: []types.PortSpec{{Name: "out", Type: types.PortText}},
	}, echoExecutor())

	g, err := graph.New([]types.Node{
		{ID: "a", Type: "echo", Inputs: map[string]types.Binding{"in": types.LiteralBinding("hi")}},
	}, nil)
	if err != nil {
		t.Fatalf("graph.New: %v", err)
	}

	ex := engine.New(reg, config.Default(), logging.New(logging.DefaultConfig()))
	return ex, g
}

func TestDispatcher_FansOutEngineCallbacksToAllObservers(t *testing.T) {
	ex, g := newExecutor(t)

	d := observer.NewDispatcher("exec-1")
	obsA := &recordingObserver{}
	obsB := &recordingObserver{}
	if err := d.Register(obsA); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := d.Register(obsB); err != nil {
		t.Fatalf("Register: %v", err)
	}

	result := ex.Execute(context.Background(), g, d.Callbacks(context.Background()))
	if !result.Completed {
		t.Fatalf("expected completion, got %+v", result)
	}

	if obsA.count() == 0 || obsB.count() != obsA.count() {
		t.Fatalf("expected both observers to see the same non-zero event count, got a=%d b=%d", obsA.count(), obsB.count())
	}
}

func TestDispatcher_PanickingObserverDoesNotAbortExecution(t *testing.T) {
	ex, g := newExecutor(t)

	recLogger := &recordingLogger{}
	d := observer.NewDispatcher("exec-2").WithLogger(recLogger)
	if err := d.Register(panicObserver{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	survivor := &recordingObserver{}
	if err := d.Register(survivor); err != nil {
		t.Fatalf("Register: %v", err)
	}

	result := ex.Execute(context.Background(), g, d.Callbacks(context.Background()))
	if !result.Completed {
		t.Fatalf("expected completion despite a panicking observer, got %+v", result)
	}
	if survivor.count() == 0 {
		t.Fatalf("expected the surviving observer to still receive events")
	}
	if recLogger.count() == 0 {
		t.Fatalf("expected the panic to be logged instead of silently discarded")
	}
}

func TestDispatcher_RegisterNilObserverFails(t *testing.T) {
	d := observer.NewDispatcher("exec-3")
	if err := d.Register(nil); err == nil {
		t.Fatalf("expected registering a nil observer to fail")
	}
}

func TestConsoleObserver_DoesNotPanicOnAnyEventType(t *testing.T) {
	logger := logging.New(logging.DefaultConfig())
	co := observer.NewConsoleObserver(logger)
	for _, et := range []observer.EventType{
		observer.EventWorkflowStart, observer.EventWorkflowEnd,
		observer.EventNodeStart, observer.EventNodeComplete,
		observer.EventNodeFail, observer.EventQueueUpdated,
	} {
		co.OnEvent(context.Background(), observer.Event{Type: et, Err: fmt.Errorf("x")})
	}
}
