// Package httpclient builds *http.Client values with connection pooling and
// the engine's zero-trust SSRF policy applied to every redirect hop, not
// just the initial request — grounded on the teacher's pkg/httpclient
// Builder/Client split, condensed to the single concern this engine needs:
// a pooled client for the plugin manager's remote index fetches. Node-authored HTTP
// requests go through internal/nodes' own httpExecutor, which applies the
// same SSRFGuard directly rather than through this package, since that
// executor is a different trust boundary (user workflow input, not
// operator-configured index URLs).
package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/security"
)

// Config controls one built client's transport and redirect behavior.
type Config struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	DisableKeepAlives   bool

	FollowRedirects bool
	MaxRedirects    int
}

// DefaultConfig returns pooling defaults suitable for periodic index
// fetches: a handful of idle connections, short-lived, redirects followed
// but revalidated against the SSRF guard on every hop.
func DefaultConfig() *Config {
	return &Config{
		Timeout:             30 * time.Second,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		MaxConnsPerHost:     8,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		FollowRedirects:     true,
		MaxRedirects:        5,
	}
}

// Builder constructs *http.Client values whose redirect-following is
// constrained by engineCfg's SSRF policy.
type Builder struct {
	guard *security.SSRFGuard
}

// NewBuilder creates a Builder bound to engineCfg's zero-trust settings.
func NewBuilder(engineCfg *config.Config) *Builder {
	return &Builder{guard: security.NewSSRFGuard(engineCfg)}
}

// Build returns a pooled *http.Client configured from cfg. A nil cfg uses
// DefaultConfig.
func (b *Builder) Build(cfg *Config) (*http.Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("httpclient: Timeout must be positive")
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
		DisableKeepAlives:   cfg.DisableKeepAlives,
	}

	client := &http.Client{Timeout: cfg.Timeout, Transport: transport}

	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
		return client, nil
	}

	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 5
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("httpclient: stopped after %d redirects", maxRedirects)
		}
		if err := b.guard.ValidateURL(req.URL.String()); err != nil {
			return fmt.Errorf("httpclient: redirect rejected: %w", err)
		}
		return nil
	}
	return client, nil
}
