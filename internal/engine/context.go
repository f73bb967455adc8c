package engine

import (
	"context"
	"time"

	"github.com/flowkit/engine/internal/graph"
)

// execCtx is the engine's implementation of nodeexec.ExecutionContext.
type execCtx struct {
	context.Context
	nodeID string
	inputs map[string]interface{}
	g      *graph.Graph
	start  time.Time
}

func (c *execCtx) NodeID() string { return c.nodeID }

func (c *execCtx) Input(port string) (interface{}, bool) {
	v, ok := c.inputs[port]
	return v, ok
}

func (c *execCtx) Inputs() map[string]interface{} {
	out := make(map[string]interface{}, len(c.inputs))
	for k, v := range c.inputs {
		out[k] = v
	}
	return out
}

func (c *execCtx) NodeResult(nodeID string) (map[string]interface{}, bool) {
	return c.g.NodeOutputs(nodeID)
}

func (c *execCtx) Elapsed() time.Duration { return time.Since(c.start) }
