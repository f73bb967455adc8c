package nodes

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/nodeexec"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/security"
	"github.com/flowkit/engine/internal/types"
)

// httpExecutor performs a GET against a bound URL behind the zero-trust
// SSRF guard, reusing one pooled *http.Client across invocations — grounded
// on the teacher's pkg/executor/http.go connection-pooling shape.
type httpExecutor struct {
	cfg    *config.Config
	guard  *security.SSRFGuard
	client *http.Client

	callCount int64
}

func registerHTTP(reg *registry.Registry, cfg *config.Config) {
	guard := security.NewSSRFGuard(cfg)
	e := &httpExecutor{
		cfg:   cfg,
		guard: guard,
		client: &http.Client{
			Timeout: cfg.HTTPTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if cfg.MaxHTTPRedirects > 0 && len(via) >= cfg.MaxHTTPRedirects {
					return fmt.Errorf("too many redirects (max %d)", cfg.MaxHTTPRedirects)
				}
				if err := guard.ValidateURL(req.URL.String()); err != nil {
					return fmt.Errorf("redirect URL validation failed: %w", err)
				}
				return nil
			},
		},
	}

	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "http",
		Category:    "network",
		Description: "Performs an HTTP GET request, subject to the engine's zero-trust network policy.",
		Inputs: []types.PortSpec{
			{Name: "url", Type: types.PortText, ConnectionOnly: true},
		},
		Outputs: []types.PortSpec{
			{Name: "body", Type: types.PortText},
			{Name: "status", Type: types.PortNumber},
		},
		Provenance: types.Builtin(),
	}, nodeexec.Func(e.invoke))
}

func (e *httpExecutor) invoke(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
	if e.cfg.MaxHTTPCallsPerExec > 0 && atomic.AddInt64(&e.callCount, 1) > int64(e.cfg.MaxHTTPCallsPerExec) {
		return nil, fmt.Errorf("http node %q: per-execution call limit (%d) exceeded", ctx.NodeID(), e.cfg.MaxHTTPCallsPerExec)
	}

	urlVal, ok := ctx.Input("url")
	if !ok {
		return nil, fmt.Errorf("http node %q: missing url input", ctx.NodeID())
	}
	rawURL, ok := urlVal.(string)
	if !ok || rawURL == "" {
		return nil, fmt.Errorf("http node %q: url input must be a non-empty string", ctx.NodeID())
	}

	if err := e.guard.ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("http node %q: %w", ctx.NodeID(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("http node %q: building request: %w", ctx.NodeID(), err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http node %q: request failed: %w", ctx.NodeID(), err)
	}
	defer resp.Body.Close()

	var limit int64 = e.cfg.MaxResponseSize
	if limit <= 0 {
		limit = 10 * 1024 * 1024
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("http node %q: reading response: %w", ctx.NodeID(), err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("http node %q: response exceeded max size %d bytes", ctx.NodeID(), limit)
	}

	return nodeexec.Outputs{"body": string(body), "status": float64(resp.StatusCode)}, nil
}
