// Package ctxkeys centralizes the context.Context keys shared across the
// engine so packages don't collide when stashing request-scoped values.
package ctxkeys

import "context"

type key string

const (
	executionID key = "execution_id"
	workflowID  key = "workflow_id"
)

// WithExecutionID returns a derived context carrying the execution ID.
func WithExecutionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, executionID, id)
}

// ExecutionID extracts the execution ID stashed by WithExecutionID.
// Returns "" if absent.
func ExecutionID(ctx context.Context) string {
	v, _ := ctx.Value(executionID).(string)
	return v
}

// WithWorkflowID returns a derived context carrying the workflow ID.
func WithWorkflowID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, workflowID, id)
}

// WorkflowID extracts the workflow ID stashed by WithWorkflowID.
// Returns "" if absent.
func WorkflowID(ctx context.Context) string {
	v, _ := ctx.Value(workflowID).(string)
	return v
}
