// Package observer implements the Observer pattern for workflow execution
// monitoring (§6 progress events): library consumers register one or more
// Observers and receive every task_start/task_complete/task_fail/
// queue_updated event, without the engine itself knowing about metrics
// sinks, WebSocket fan-out or console logging.
//
// Adapted from the teacher's pkg/observer (Event/Observer/Logger shapes,
// NoOpObserver/ConsoleObserver defaults) generalized from the teacher's
// closed types.NodeType enum to this module's plain string node types, and
// extended with a Dispatcher that bridges engine.Callbacks to N observers
// at once (the teacher's package defines the Observer contract but not a
// multi-subscriber fan-out).
package observer

import (
	"context"
	"time"
)

// EventType is the kind of execution event reported.
type EventType string

const (
	EventWorkflowStart EventType = "workflow_start"
	EventWorkflowEnd   EventType = "workflow_end"
	EventNodeStart     EventType = "node_start"
	EventNodeComplete  EventType = "node_complete"
	EventNodeFail      EventType = "node_fail"
	EventQueueUpdated  EventType = "queue_updated"
)

// Event carries everything an Observer might want about one occurrence.
type Event struct {
	Type        EventType
	Timestamp   time.Time
	ExecutionID string
	NodeID      string
	NodeType    string
	Elapsed     time.Duration
	Result      map[string]interface{}
	Err         error
	Metadata    map[string]interface{}
}

// Observer receives execution events. OnEvent must not block for long —
// the Dispatcher calls every registered Observer synchronously, on the
// goroutine that produced the event (the engine's queue worker).
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// Logger is the subset of internal/logging.Logger's surface an Observer
// implementation needs, kept separate so this package has no import
// dependency on internal/logging.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}
