// Package telemetry wires OpenTelemetry metrics and tracing, exported via
// Prometheus, for workflow and node execution (§5, §6 metrics endpoint).
// Adapted from the teacher's pkg/telemetry: same Provider/Config shape and
// metric names, generalized from a fixed NodeType enum to the plain string
// node-type names this module uses throughout.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName = "flowkit-workflow-engine"

	metricWorkflowExecutions = "workflow.executions.total"
	metricWorkflowDuration   = "workflow.execution.duration"
	metricWorkflowSuccess    = "workflow.executions.success.total"
	metricWorkflowFailure    = "workflow.executions.failure.total"
	metricNodeExecutions     = "node.executions.total"
	metricNodeDuration       = "node.execution.duration"
	metricNodeSuccess        = "node.executions.success.total"
	metricNodeFailure        = "node.executions.failure.total"
)

// Config configures a Provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	EnableTracing  bool
	EnableMetrics  bool
}

// DefaultConfig returns the production default: tracing and metrics both on.
func DefaultConfig() Config {
	return Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    "development",
		EnableTracing:  true,
		EnableMetrics:  true,
	}
}

// Provider owns the OpenTelemetry meter/tracer providers and every metric
// instrument this engine records against.
type Provider struct {
	mu sync.RWMutex

	meterProvider  *sdkmetric.MeterProvider
	tracerProvider trace.TracerProvider
	meter          metric.Meter
	tracer         trace.Tracer
	registerer     prometheus.Registerer
	gatherer       prometheus.Gatherer

	workflowExecutions metric.Int64Counter
	workflowDuration   metric.Float64Histogram
	workflowSuccess    metric.Int64Counter
	workflowFailure    metric.Int64Counter
	nodeExecutions     metric.Int64Counter
	nodeDuration       metric.Float64Histogram
	nodeSuccess        metric.Int64Counter
	nodeFailure        metric.Int64Counter
}

// NewProvider builds a Provider against a fresh, private Prometheus
// registry (not prometheus.DefaultRegisterer), so creating more than one
// Provider in the same process — or in a test — never panics on a duplicate
// metric registration.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	if cfg.EnableMetrics {
		if err := p.initMetrics(res); err != nil {
			return nil, fmt.Errorf("telemetry: init metrics: %w", err)
		}
	}
	if cfg.EnableTracing {
		p.tracerProvider = otel.GetTracerProvider()
		p.tracer = p.tracerProvider.Tracer(cfg.ServiceName)
	}
	return p, nil
}

func (p *Provider) initMetrics(res *resource.Resource) error {
	reg := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return fmt.Errorf("create prometheus exporter: %w", err)
	}

	p.registerer = reg
	p.gatherer = reg
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	p.meter = p.meterProvider.Meter(serviceName)
	return p.createInstruments()
}

func (p *Provider) createInstruments() error {
	var err error
	if p.workflowExecutions, err = p.meter.Int64Counter(metricWorkflowExecutions,
		metric.WithDescription("Total number of workflow executions")); err != nil {
		return err
	}
	if p.workflowDuration, err = p.meter.Float64Histogram(metricWorkflowDuration,
		metric.WithDescription("Workflow execution duration in milliseconds"), metric.WithUnit("ms")); err != nil {
		return err
	}
	if p.workflowSuccess, err = p.meter.Int64Counter(metricWorkflowSuccess,
		metric.WithDescription("Total number of successful workflow executions")); err != nil {
		return err
	}
	if p.workflowFailure, err = p.meter.Int64Counter(metricWorkflowFailure,
		metric.WithDescription("Total number of failed workflow executions")); err != nil {
		return err
	}
	if p.nodeExecutions, err = p.meter.Int64Counter(metricNodeExecutions,
		metric.WithDescription("Total number of node executions")); err != nil {
		return err
	}
	if p.nodeDuration, err = p.meter.Float64Histogram(metricNodeDuration,
		metric.WithDescription("Node execution duration in milliseconds"), metric.WithUnit("ms")); err != nil {
		return err
	}
	if p.nodeSuccess, err = p.meter.Int64Counter(metricNodeSuccess,
		metric.WithDescription("Total number of successful node executions")); err != nil {
		return err
	}
	if p.nodeFailure, err = p.meter.Int64Counter(metricNodeFailure,
		metric.WithDescription("Total number of failed node executions")); err != nil {
		return err
	}
	return nil
}

// Tracer returns the tracer used to create execution spans.
func (p *Provider) Tracer() trace.Tracer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tracer
}

// RecordWorkflowExecution records one completed Execute call.
func (p *Provider) RecordWorkflowExecution(ctx context.Context, workflowID string, duration time.Duration, success bool, nodesExecuted int) {
	if p.meter == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("workflow.id", workflowID),
		attribute.Int("nodes.executed", nodesExecuted),
	)
	p.workflowExecutions.Add(ctx, 1, attrs)
	p.workflowDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if success {
		p.workflowSuccess.Add(ctx, 1, attrs)
	} else {
		p.workflowFailure.Add(ctx, 1, attrs)
	}
}

// RecordNodeExecution records one node's Invoke call.
func (p *Provider) RecordNodeExecution(ctx context.Context, nodeID, nodeType string, duration time.Duration, success bool) {
	if p.meter == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("node.id", nodeID),
		attribute.String("node.type", nodeType),
	)
	p.nodeExecutions.Add(ctx, 1, attrs)
	p.nodeDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if success {
		p.nodeSuccess.Add(ctx, 1, attrs)
	} else {
		p.nodeFailure.Add(ctx, 1, attrs)
	}
}

// Handler returns the HTTP handler that exposes collected metrics in the
// Prometheus exposition format, for mounting at /metrics (§6).
func (p *Provider) Handler() http.Handler {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// Shutdown flushes and releases the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("telemetry: shutdown meter provider: %w", err)
		}
	}
	return nil
}
