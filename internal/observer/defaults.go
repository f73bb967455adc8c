package observer

import (
	"context"
	"fmt"
)

// NoOpObserver ignores every event. Useful as an explicit "no observer
// configured" default, distinguishable from a nil Observer.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}

// ConsoleObserver logs each event through a Logger at a severity derived
// from the event type (start/complete at info/debug, failures at warn).
type ConsoleObserver struct {
	logger Logger
}

// NewConsoleObserver creates a ConsoleObserver writing through logger.
func NewConsoleObserver(logger Logger) *ConsoleObserver {
	return &ConsoleObserver{logger: logger}
}

func (o *ConsoleObserver) OnEvent(ctx context.Context, event Event) {
	msg := fmt.Sprintf("[%s] node=%s type=%s elapsed=%s", event.Type, event.NodeID, event.NodeType, event.Elapsed)
	switch event.Type {
	case EventWorkflowStart, EventNodeStart, EventQueueUpdated:
		o.logger.Info(msg)
	case EventWorkflowEnd, EventNodeComplete:
		o.logger.Debug(msg)
	case EventNodeFail:
		if event.Err != nil {
			msg = fmt.Sprintf("%s err=%v", msg, event.Err)
		}
		o.logger.Warn(msg)
	default:
		o.logger.Info(msg)
	}
}
