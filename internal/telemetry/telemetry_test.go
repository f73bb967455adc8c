package telemetry_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flowkit/engine/internal/telemetry"
)

func TestNewProvider_RecordsAndExposesMetrics(t *testing.T) {
	p, err := telemetry.NewProvider(context.Background(), telemetry.DefaultConfig())
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer p.Shutdown(context.Background())

	p.RecordWorkflowExecution(context.Background(), "wf-1", 10*time.Millisecond, true, 3)
	p.RecordNodeExecution(context.Background(), "node-1", "http", 5*time.Millisecond, false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	p.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected /metrics to respond 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !containsAll(body, "workflow_executions", "node_executions") {
		t.Fatalf("expected recorded metrics in exposition output, got:\n%s", body)
	}
}

func TestNewProvider_SecondInstanceDoesNotPanic(t *testing.T) {
	// A private registry per Provider means creating two in the same
	// process (as happens across table-driven tests) must not panic on a
	// duplicate Prometheus metric registration.
	if _, err := telemetry.NewProvider(context.Background(), telemetry.DefaultConfig()); err != nil {
		t.Fatalf("first NewProvider: %v", err)
	}
	if _, err := telemetry.NewProvider(context.Background(), telemetry.DefaultConfig()); err != nil {
		t.Fatalf("second NewProvider: %v", err)
	}
}

func TestRecordWorkflowExecution_NilMeterIsNoOp(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	cfg.EnableMetrics = false
	p, err := telemetry.NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	// Must not panic even though no meter/instruments were created.
	p.RecordWorkflowExecution(context.Background(), "wf-1", time.Millisecond, true, 1)
	p.RecordNodeExecution(context.Background(), "n", "op", time.Millisecond, true)
}

func containsAll(haystack string, needles ...string) bool {
	for _, n := range needles {
		if !strings.Contains(haystack, n) {
			return false
		}
	}
	return true
}
