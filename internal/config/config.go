// Package config centralizes configuration for every engine subsystem:
// execution limits, HTTP/network zero-trust defaults, the scheduler's
// worker pool, and module/plugin lifecycle timeouts.
package config

import "time"

// Config holds workflow engine configuration. All configuration options are
// centralized here for easy management and validation.
type Config struct {
	// Execution limits
	MaxExecutionTime     time.Duration // Maximum time for entire workflow execution
	MaxNodeExecutionTime time.Duration // Maximum time for a single node execution
	MaxIterations        int           // Default max iterations for loop nodes
	MaxNodeExecutions    int           // Maximum total node executions (0 = unlimited)
	MaxNodes             int
	MaxEdges             int

	// Scheduler
	WorkerCount   int           // Fixed worker pool size for the execution queue
	PollInterval  time.Duration // Not read by internal/queue, which waits on a sync.Cond
	StatsInterval time.Duration // Not read by internal/queue, which emits queue_updated on state changes only

	// HTTP node configuration (zero trust: all network access denied by default)
	HTTPTimeout         time.Duration
	MaxHTTPRedirects    int
	MaxResponseSize     int64
	MaxHTTPCallsPerExec int
	AllowedURLPatterns  []string
	AllowHTTP           bool
	AllowedDomains      []string
	AllowPrivateIPs     bool
	AllowLocalhost      bool
	AllowLinkLocal      bool
	AllowCloudMetadata  bool

	// Cache configuration
	DefaultCacheTTL time.Duration
	MaxCacheSize    int

	// Retry configuration
	DefaultMaxAttempts int
	DefaultBackoff     time.Duration

	// Module & plugin lifecycle
	ModuleLoadTimeout  time.Duration // §4.6 default 30s
	ModuleRetryDelay   time.Duration // §4.6 default 2s
	ModuleMaxRetries   int           // §4.6 default 3
	PluginIndexTTL     time.Duration // §3 PluginIndex cache duration, default ~1h
	PluginIndexTimeout time.Duration // per-fetch HTTP timeout
}

// Default returns a Config with secure, production-ready default values.
func Default() *Config {
	return &Config{
		MaxExecutionTime:     5 * time.Minute,
		MaxNodeExecutionTime: 30 * time.Second,
		MaxIterations:        10000,
		MaxNodeExecutions:    0,
		MaxNodes:             1000,
		MaxEdges:             5000,

		WorkerCount:   4,
		PollInterval:  100 * time.Millisecond,
		StatsInterval: 2 * time.Second,

		HTTPTimeout:         30 * time.Second,
		MaxHTTPRedirects:    10,
		MaxResponseSize:     10 * 1024 * 1024,
		MaxHTTPCallsPerExec: 100,
		AllowedURLPatterns:  nil,
		AllowHTTP:           false,
		AllowedDomains:      nil,
		AllowPrivateIPs:     false,
		AllowLocalhost:      false,
		AllowLinkLocal:      false,
		AllowCloudMetadata:  false,

		DefaultCacheTTL: 1 * time.Hour,
		MaxCacheSize:    1000,

		DefaultMaxAttempts: 3,
		DefaultBackoff:     1 * time.Second,

		ModuleLoadTimeout:  30 * time.Second,
		ModuleRetryDelay:   2 * time.Second,
		ModuleMaxRetries:   3,
		PluginIndexTTL:     1 * time.Hour,
		PluginIndexTimeout: 10 * time.Second,
	}
}

// Development returns a Config with relaxed network restrictions for local work.
func Development() *Config {
	cfg := Default()
	cfg.AllowHTTP = true
	cfg.AllowPrivateIPs = true
	cfg.AllowLocalhost = true
	cfg.MaxExecutionTime = 10 * time.Minute
	return cfg
}

// Production returns a Config with strict zero-trust network defaults.
func Production() *Config {
	cfg := Default()
	cfg.AllowHTTP = false
	cfg.AllowPrivateIPs = false
	cfg.AllowLocalhost = false
	cfg.AllowLinkLocal = false
	cfg.AllowCloudMetadata = false
	return cfg
}

// Clone returns a deep copy so callers can mutate without racing the original.
func (c *Config) Clone() *Config {
	clone := *c
	if c.AllowedURLPatterns != nil {
		clone.AllowedURLPatterns = append([]string(nil), c.AllowedURLPatterns...)
	}
	if c.AllowedDomains != nil {
		clone.AllowedDomains = append([]string(nil), c.AllowedDomains...)
	}
	return &clone
}
