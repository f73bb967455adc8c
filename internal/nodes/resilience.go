package nodes

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/nodeexec"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/types"
)

// registerResilience registers retry, timeout and trycatch nodes, grounded
// on the teacher's pkg/executor/retry.go, timeout.go and trycatch.go. Each
// wraps evaluation of its `expression` input (an expr-lang expression over
// `input`) rather than re-invoking another node — the engine's reference
// graph already gives equivalent composability by wiring the protected
// node's own output through this node.
func registerResilience(reg *registry.Registry, cfg *config.Config) {
	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "retry",
		Category:    "resilience",
		Description: "Re-evaluates its expression against the input up to max_attempts times with backoff, until it stops erroring.",
		Inputs: []types.PortSpec{
			{Name: "input", Type: types.PortAny, ConnectionOnly: true},
			{Name: "expression", Type: types.PortText, Widget: types.WidgetCode},
			{Name: "max_attempts", Type: types.PortNumber, Default: float64(cfg.DefaultMaxAttempts)},
			{Name: "initial_delay_ms", Type: types.PortNumber, Default: float64(cfg.DefaultBackoff.Milliseconds())},
		},
		Outputs: []types.PortSpec{
			{Name: "result", Type: types.PortAny},
			{Name: "attempts", Type: types.PortNumber},
		},
		Provenance: types.Builtin(),
	}, nodeexec.Func(retryInvoke))

	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "timeout",
		Category:    "resilience",
		Description: "Evaluates its expression against the input, failing if it does not return within timeout_ms.",
		Inputs: []types.PortSpec{
			{Name: "input", Type: types.PortAny, ConnectionOnly: true},
			{Name: "expression", Type: types.PortText, Widget: types.WidgetCode},
			{Name: "timeout_ms", Type: types.PortNumber, Default: float64(cfg.MaxNodeExecutionTime.Milliseconds())},
		},
		Outputs:    []types.PortSpec{{Name: "result", Type: types.PortAny}},
		Provenance: types.Builtin(),
	}, nodeexec.Func(timeoutInvoke))

	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "trycatch",
		Category:    "resilience",
		Description: "Evaluates its expression against the input; on error, returns the fallback value instead of failing the node.",
		Inputs: []types.PortSpec{
			{Name: "input", Type: types.PortAny, ConnectionOnly: true},
			{Name: "expression", Type: types.PortText, Widget: types.WidgetCode},
			{Name: "fallback", Type: types.PortAny},
		},
		Outputs: []types.PortSpec{
			{Name: "result", Type: types.PortAny},
			{Name: "recovered", Type: types.PortBoolean},
		},
		Provenance: types.Builtin(),
	}, nodeexec.Func(trycatchInvoke))
}

func retryInvoke(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
	maxAttempts, ok := asNumber(ctx, "max_attempts")
	if !ok || maxAttempts < 1 {
		maxAttempts = 3
	}
	delayMS, _ := asNumber(ctx, "initial_delay_ms")
	delay := time.Duration(delayMS) * time.Millisecond
	if delay <= 0 {
		delay = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= int(maxAttempts); attempt++ {
		result, err := evalExpression(ctx)
		if err == nil {
			return nodeexec.Outputs{"result": result, "attempts": float64(attempt)}, nil
		}
		lastErr = err
		if attempt == int(maxAttempts) {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay = time.Duration(math.Min(float64(delay)*2, float64(30*time.Second)))
	}
	return nil, fmt.Errorf("retry node %q: exhausted %d attempts, last error: %w", ctx.NodeID(), int(maxAttempts), lastErr)
}

func timeoutInvoke(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
	timeoutMS, ok := asNumber(ctx, "timeout_ms")
	if !ok || timeoutMS <= 0 {
		timeoutMS = 30000
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMS)*time.Millisecond)
	defer cancel()

	type outcome struct {
		result interface{}
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := evalExpression(ctx)
		done <- outcome{result, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, fmt.Errorf("timeout node %q: %w", ctx.NodeID(), o.err)
		}
		return nodeexec.Outputs{"result": o.result}, nil
	case <-timeoutCtx.Done():
		return nil, fmt.Errorf("timeout node %q: exceeded %v", ctx.NodeID(), time.Duration(timeoutMS)*time.Millisecond)
	}
}

func trycatchInvoke(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
	result, err := evalExpression(ctx)
	if err != nil {
		fallback, _ := ctx.Input("fallback")
		return nodeexec.Outputs{"result": fallback, "recovered": true}, nil
	}
	return nodeexec.Outputs{"result": result, "recovered": false}, nil
}

func evalExpression(ctx nodeexec.ExecutionContext) (interface{}, error) {
	input, _ := ctx.Input("input")
	exprVal, _ := ctx.Input("expression")
	src, _ := exprVal.(string)
	if src == "" {
		return input, nil
	}
	return evalExprSource(src, input)
}
