package nodes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/nodeexec"
	"github.com/flowkit/engine/internal/nodes"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/state"
	"github.com/flowkit/engine/internal/types"
)

// fakeCtx is a minimal nodeexec.ExecutionContext for exercising a single
// node executor in isolation, without a live graph or queue.
type fakeCtx struct {
	context.Context
	nodeID  string
	inputs  map[string]interface{}
	results map[string]map[string]interface{}
	start   time.Time
}

func newFakeCtx(nodeID string, inputs map[string]interface{}) *fakeCtx {
	return &fakeCtx{
		Context: context.Background(),
		nodeID:  nodeID,
		inputs:  inputs,
		results: map[string]map[string]interface{}{},
		start:   time.Now(),
	}
}

func (c *fakeCtx) withState() *fakeCtx {
	c.Context = state.NewContext(c.Context, state.New())
	return c
}

func (c *fakeCtx) NodeID() string { return c.nodeID }
func (c *fakeCtx) Input(port string) (interface{}, bool) {
	v, ok := c.inputs[port]
	return v, ok
}
func (c *fakeCtx) Inputs() map[string]interface{} { return c.inputs }
func (c *fakeCtx) NodeResult(nodeID string) (map[string]interface{}, bool) {
	r, ok := c.results[nodeID]
	return r, ok
}
func (c *fakeCtx) Elapsed() time.Duration { return time.Since(c.start) }

func builtinRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	nodes.RegisterBuiltins(reg, config.Default())
	return reg
}

func execOf(t *testing.T, reg *registry.Registry, name string) nodeexec.NodeExecutor {
	t.Helper()
	exec, ok := reg.Executor(name)
	if !ok {
		t.Fatalf("expected %q to be registered", name)
	}
	return exec
}

func TestInputNodes_PassThroughBoundValue(t *testing.T) {
	reg := builtinRegistry(t)
	cases := []struct {
		nodeType string
		value    interface{}
	}{
		{"input_number", 3.5},
		{"input_text", "hello"},
		{"input_boolean", true},
	}
	for _, c := range cases {
		out, err := execOf(t, reg, c.nodeType).Invoke(newFakeCtx("n", map[string]interface{}{"value": c.value}))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.nodeType, err)
		}
		if out["value"] != c.value {
			t.Fatalf("%s: expected value %v, got %v", c.nodeType, c.value, out["value"])
		}
	}
}

func TestOutputNode_FailsWithoutBoundValue(t *testing.T) {
	reg := builtinRegistry(t)
	if _, err := execOf(t, reg, "output").Invoke(newFakeCtx("n", map[string]interface{}{})); err == nil {
		t.Fatalf("expected output node to fail when no value is bound")
	}
}

func TestOperationNode_ArithmeticAndDivideByZero(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "operation")

	out, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{"left": 4.0, "right": 2.0, "op": "divide"}))
	if err != nil || out["result"] != 2.0 {
		t.Fatalf("expected 4/2=2, got %v (err=%v)", out["result"], err)
	}

	if _, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{"left": 1.0, "right": 0.0, "op": "divide"})); err == nil {
		t.Fatalf("expected division by zero to error")
	}

	if _, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{"left": 1.0, "right": 2.0, "op": "frobnicate"})); err == nil {
		t.Fatalf("expected an unknown op to error")
	}
}

func TestConditionNode_RoutesExactlyOneBranchAndSkipsTheOther(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "condition")

	out, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{"value": "x", "predicate": true}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["true"] != "x" {
		t.Fatalf("expected true branch to carry the value, got %v", out["true"])
	}
	if !types.IsSkipped(out["false"]) {
		t.Fatalf("expected false branch to carry the Skipped sentinel, got %v", out["false"])
	}

	if _, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{"value": "x"})); err == nil {
		t.Fatalf("expected missing predicate to error")
	}
	if _, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{"value": "x", "predicate": "not-a-bool"})); err == nil {
		t.Fatalf("expected a non-boolean predicate to error")
	}
}

func TestExpressionNode_EvaluatesAgainstInput(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "expression")

	out, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{"input": 4.0, "expression": "input * 2"}))
	if err != nil || out["result"] != 8.0 {
		t.Fatalf("expected input*2=8, got %v (err=%v)", out["result"], err)
	}

	out, err = exec.Invoke(newFakeCtx("n", map[string]interface{}{"input": 4.0, "expression": ""}))
	if err != nil || out["result"] != 4.0 {
		t.Fatalf("expected an empty expression to pass input through, got %v (err=%v)", out["result"], err)
	}

	if _, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{"input": 4.0, "expression": "not valid expr((("})); err == nil {
		t.Fatalf("expected a malformed expression to error")
	}
}

func TestSwitchNode_ReportsFirstMatchingCase(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "switch")

	out, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{
		"value": 5.0,
		"cases": []interface{}{"input < 0", "input < 10", "input < 100"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["matched_index"] != float64(1) {
		t.Fatalf("expected case index 1 to match first, got %v", out["matched_index"])
	}
}

func TestSwitchNode_NoMatchReportsNegativeOne(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "switch")

	out, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{
		"value": 500.0,
		"cases": []interface{}{"input < 0"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["matched_index"] != float64(-1) {
		t.Fatalf("expected -1 when no case matches, got %v", out["matched_index"])
	}
}

func TestRetryNode_ReturnsResultWhenExpressionSucceeds(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "retry")

	out, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{
		"input":            10.0,
		"expression":       "input / 2",
		"max_attempts":     2.0,
		"initial_delay_ms": 1.0,
	}))
	if err != nil || out["result"] != 5.0 {
		t.Fatalf("expected retry to succeed with result 5, got %v (err=%v)", out["result"], err)
	}
}

func TestRetryNode_ExhaustsAttemptsAndFails(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "retry")

	_, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{
		"input":            10.0,
		"expression":       "nonexistent_fn(input)",
		"max_attempts":     2.0,
		"initial_delay_ms": 1.0,
	}))
	if err == nil {
		t.Fatalf("expected retry to fail after exhausting attempts")
	}
}

func TestTrycatchNode_RecoversWithFallback(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "trycatch")

	out, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{
		"input":      10.0,
		"expression": "nonexistent_fn(input)",
		"fallback":   "safe",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["recovered"] != true || out["result"] != "safe" {
		t.Fatalf("expected trycatch to recover with the fallback, got %+v", out)
	}
}

func TestVariableSetAndGet_RoundTripThroughStateManager(t *testing.T) {
	reg := builtinRegistry(t)
	setExec := execOf(t, reg, "variable_set")
	getExec := execOf(t, reg, "variable_get")

	ctx := newFakeCtx("n1", map[string]interface{}{"name": "x", "value": 42.0}).withState()
	if _, err := setExec.Invoke(ctx); err != nil {
		t.Fatalf("variable_set: unexpected error: %v", err)
	}

	getCtx := newFakeCtx("n2", map[string]interface{}{"name": "x"})
	getCtx.Context = ctx.Context // same Manager
	out, err := getExec.Invoke(getCtx)
	if err != nil || out["value"] != 42.0 {
		t.Fatalf("variable_get: expected 42, got %v (err=%v)", out["value"], err)
	}
}

func TestVariableGet_UnsetVariableFails(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "variable_get")
	ctx := newFakeCtx("n", map[string]interface{}{"name": "missing"}).withState()
	if _, err := exec.Invoke(ctx); err == nil {
		t.Fatalf("expected variable_get on an unset name to fail")
	}
}

func TestAccumulatorNode_AddsToRunningTotal(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "accumulator")
	ctx := newFakeCtx("n", map[string]interface{}{"delta": 3.0}).withState()

	out, err := exec.Invoke(ctx)
	if err != nil || out["total"] != 3.0 {
		t.Fatalf("expected total 3, got %v (err=%v)", out["total"], err)
	}
	ctx2 := newFakeCtx("n", map[string]interface{}{"delta": 2.0})
	ctx2.Context = ctx.Context
	out, err = exec.Invoke(ctx2)
	if err != nil || out["total"] != 5.0 {
		t.Fatalf("expected accumulator to carry across invocations to 5, got %v (err=%v)", out["total"], err)
	}
}

func TestCounterNode_DefaultsStepToOne(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "counter")
	ctx := newFakeCtx("n", map[string]interface{}{}).withState()

	out, err := exec.Invoke(ctx)
	if err != nil || out["count"] != 1.0 {
		t.Fatalf("expected count 1 with no step bound, got %v (err=%v)", out["count"], err)
	}
}

func TestCacheNode_MissThenHit(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "cache")
	ctx := newFakeCtx("n", map[string]interface{}{"key": "k", "value": "v", "ttl_seconds": 60.0}).withState()

	out, err := exec.Invoke(ctx)
	if err != nil || out["hit"] != false || out["value"] != "v" {
		t.Fatalf("expected a miss on first call, got %+v (err=%v)", out, err)
	}

	ctx2 := newFakeCtx("n", map[string]interface{}{"key": "k", "value": "other", "ttl_seconds": 60.0})
	ctx2.Context = ctx.Context
	out, err = exec.Invoke(ctx2)
	if err != nil || out["hit"] != true || out["value"] != "v" {
		t.Fatalf("expected a hit returning the originally cached value, got %+v (err=%v)", out, err)
	}
}

func TestHTTPNode_BlockedByZeroTrustDefaults(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "http")

	if _, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{"url": "http://example.com/"})); err == nil {
		t.Fatalf("expected outbound HTTP to be denied under the default zero-trust config")
	}
}

func TestHTTPNode_RejectsMissingURL(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "http")
	if _, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{})); err == nil {
		t.Fatalf("expected a missing url input to error")
	}
}

func TestHTTPNode_RejectsRedirectToDisallowedDomain(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://blocked.invalid/secret", http.StatusFound)
	}))
	defer origin.Close()

	originURL, err := url.Parse(origin.URL)
	if err != nil {
		t.Fatalf("parse origin URL: %v", err)
	}

	cfg := config.Default()
	cfg.AllowHTTP = true
	cfg.AllowLocalhost = true
	cfg.AllowedDomains = []string{originURL.Hostname()}

	reg := registry.New()
	nodes.RegisterBuiltins(reg, cfg)
	exec := execOf(t, reg, "http")

	_, err = exec.Invoke(newFakeCtx("n", map[string]interface{}{"url": origin.URL}))
	if err == nil {
		t.Fatalf("expected the redirect to an unallowlisted domain to be rejected")
	}
}
