package observer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowkit/engine/internal/engine"
	"github.com/flowkit/engine/internal/queue"
	"github.com/flowkit/engine/internal/types"
)

// Dispatcher fans out one workflow execution's progress events to any
// number of registered Observers. The engine itself only knows about
// engine.Callbacks; Dispatcher.Callbacks() is the adapter that turns those
// four function pointers into Event values delivered to every subscriber.
type Dispatcher struct {
	executionID string
	logger      Logger

	mu        sync.RWMutex
	observers []Observer
}

// NewDispatcher creates a Dispatcher tagging every event with executionID.
// The Dispatcher starts with a no-op logger, so observer panics are
// swallowed silently; prefer WithLogger in production wiring.
func NewDispatcher(executionID string) *Dispatcher {
	return &Dispatcher{executionID: executionID, logger: noopLogger{}}
}

// WithLogger sets the Logger used to report a panicking Observer, returning
// the Dispatcher for chaining.
func (d *Dispatcher) WithLogger(l Logger) *Dispatcher {
	if l != nil {
		d.logger = l
	}
	return d
}

type noopLogger struct{}

func (noopLogger) Debug(string) {}
func (noopLogger) Info(string)  {}
func (noopLogger) Warn(string)  {}
func (noopLogger) Error(string) {}

// Register adds an Observer. Safe to call concurrently with dispatch.
func (d *Dispatcher) Register(o Observer) error {
	if o == nil {
		return ErrNilObserver
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, event Event) {
	event.Timestamp = time.Now()
	event.ExecutionID = d.executionID

	d.mu.RLock()
	observers := make([]Observer, len(d.observers))
	copy(observers, d.observers)
	d.mu.RUnlock()

	for _, o := range observers {
		d.safeNotify(ctx, o, event)
	}
}

// safeNotify recovers a panicking Observer so one bad subscriber cannot
// abort the workflow execution whose progress it was merely watching.
func (d *Dispatcher) safeNotify(ctx context.Context, o Observer, event Event) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrObserverPanic, r)
			d.logger.Error(fmt.Sprintf("observer %T panicked on %s event for node %s: %v", o, event.Type, event.NodeID, err))
		}
	}()
	o.OnEvent(ctx, event)
}

// Callbacks returns the engine.Callbacks that, when passed to
// engine.Executor.Execute, deliver every task_start/task_complete/
// task_fail/queue_updated occurrence to this Dispatcher's observers.
func (d *Dispatcher) Callbacks(ctx context.Context) engine.Callbacks {
	return engine.Callbacks{
		OnTaskStart: func(t *types.Task) {
			d.dispatch(ctx, Event{Type: EventNodeStart, NodeID: t.NodeID, NodeType: t.NodeType})
		},
		OnTaskComplete: func(t *types.Task) {
			d.dispatch(ctx, Event{
				Type:     EventNodeComplete,
				NodeID:   t.NodeID,
				NodeType: t.NodeType,
				Elapsed:  t.Elapsed,
				Result:   t.Result,
			})
		},
		OnTaskFail: func(t *types.Task) {
			d.dispatch(ctx, Event{
				Type:     EventNodeFail,
				NodeID:   t.NodeID,
				NodeType: t.NodeType,
				Elapsed:  t.Elapsed,
				Err:      t.Err,
			})
		},
		OnQueueUpdated: func(s queue.Stats) {
			d.dispatch(ctx, Event{
				Type: EventQueueUpdated,
				Metadata: map[string]interface{}{
					"total":     s.Total,
					"pending":   s.Pending,
					"running":   s.Running,
					"completed": s.Completed,
					"failed":    s.Failed,
				},
			})
		},
	}
}
