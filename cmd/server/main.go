// Command server starts the workflow engine HTTP API server.
//
// Usage:
//
//	server [flags]
//
// Flags:
//
//	-addr string
//	    Server address (default ":8080")
//	-read-timeout duration
//	    HTTP read timeout (default 30s)
//	-write-timeout duration
//	    HTTP write timeout (default 30s)
//	-max-execution-time duration
//	    Maximum workflow execution time (default 1m)
//	-max-node-executions int
//	    Maximum node executions per workflow (default 10000)
//	-allow-http
//	    Allow HTTP node network access (default false, zero trust)
//	-plugin-index-url string
//	    Primary plugin index URL to refresh from at startup
//	-plugin-install-dir string
//	    Directory plugin repositories are cloned into (default ./plugins)
//
// Example:
//
//	# Start server on default port
//	server
//
//	# Start server on custom port with strict limits
//	server -addr :9090 -max-execution-time 30s -max-node-executions 1000
//
// The server exposes the following endpoints:
//
//	POST   /api/v1/workflow/execute            - Execute a workflow
//	POST   /api/v1/workflow/validate           - Validate a workflow
//	POST   /api/v1/workflow/save               - Save a workflow
//	GET    /api/v1/workflow/list               - List all saved workflows
//	GET    /api/v1/workflow/load/{id}          - Load a workflow by ID
//	DELETE /api/v1/workflow/delete/{id}        - Delete a workflow by ID
//	POST   /api/v1/workflow/execute/{id}       - Execute a workflow by ID
//	GET    /api/v1/plugins                     - List plugin repositories
//	POST   /api/v1/plugins/install             - Install a plugin repository
//	POST   /api/v1/plugins/disable             - Enable/disable a repository
//	POST   /api/v1/plugins/install-missing     - Install plugins for missing node types
//	GET    /api/v1/envcheck                    - Report environment tool capabilities
//	POST   /api/v1/envcheck/install/{name}     - Trigger an installable tool's install path
//	GET    /health                             - Health check
//	GET    /health/live                        - Liveness probe
//	GET    /health/ready                       - Readiness probe
//	GET    /metrics                            - Prometheus metrics
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowkit/engine/internal/api"
	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/envcheck"
	"github.com/flowkit/engine/internal/logging"
	"github.com/flowkit/engine/internal/nodes"
	"github.com/flowkit/engine/internal/plugin"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/storage"
	"github.com/flowkit/engine/internal/telemetry"
)

func main() {
	addr := flag.String("addr", ":8080", "Server address")
	readTimeout := flag.Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	maxExecutionTime := flag.Duration("max-execution-time", 1*time.Minute, "Maximum workflow execution time")
	maxNodeExecutions := flag.Int("max-node-executions", 10000, "Maximum node executions per workflow")
	maxHTTPCalls := flag.Int("max-http-calls", 100, "Maximum HTTP calls per execution")
	maxLoopIterations := flag.Int("max-loop-iterations", 10000, "Maximum loop iterations")
	allowHTTP := flag.Bool("allow-http", false, "Allow HTTP node network access (zero trust by default)")
	pluginIndexURL := flag.String("plugin-index-url", "", "Primary plugin index URL")
	pluginInstallDir := flag.String("plugin-install-dir", "./plugins", "Plugin repository install directory")

	flag.Parse()

	logger := logging.New(logging.DefaultConfig())

	engineCfg := config.Default()
	engineCfg.AllowHTTP = *allowHTTP
	engineCfg.MaxExecutionTime = *maxExecutionTime
	engineCfg.MaxNodeExecutions = *maxNodeExecutions
	engineCfg.MaxHTTPCallsPerExec = *maxHTTPCalls
	engineCfg.MaxIterations = *maxLoopIterations

	reg := registry.New()
	nodes.RegisterBuiltins(reg, engineCfg)

	store := storage.NewInMemoryStore()

	var pluginMgr *plugin.Manager
	if *pluginIndexURL != "" {
		pluginMgr = plugin.NewManager(engineCfg, logger, *pluginIndexURL, nil, *pluginInstallDir)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := pluginMgr.RefreshIndex(ctx); err != nil {
			logger.WithError(err).Warn("initial plugin index refresh failed, continuing without it")
		}
		cancel()
	}

	envReg := envcheck.New()
	envReg.Add(envcheck.GitCheck())
	envReg.Add(envcheck.GoToolchainCheck())
	envReg.Add(envcheck.MediaToolCheck())

	telCtx, telCancel := context.WithTimeout(context.Background(), 10*time.Second)
	tel, err := telemetry.NewProvider(telCtx, telemetry.DefaultConfig())
	telCancel()
	if err != nil {
		logger.WithError(err).Warn("telemetry provider unavailable, metrics disabled")
		tel = nil
	}

	serverCfg := api.Config{
		Address:            *addr,
		ReadTimeout:        *readTimeout,
		WriteTimeout:       *writeTimeout,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 10 * 1024 * 1024,
		EnableCORS:         true,
	}

	srv := api.New(serverCfg, engineCfg, reg, store, pluginMgr, envReg, tel, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		fmt.Printf("Starting workflow engine server on %s\n", *addr)
		fmt.Printf("Health check:     http://localhost%s/health\n", *addr)
		fmt.Printf("Liveness probe:   http://localhost%s/health/live\n", *addr)
		fmt.Printf("Readiness probe:  http://localhost%s/health/ready\n", *addr)
		fmt.Printf("Metrics:          http://localhost%s/metrics\n", *addr)
		fmt.Printf("API endpoint:     http://localhost%s/api/v1/workflow/execute\n", *addr)
		fmt.Println("\nPress Ctrl+C to shutdown")

		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal: %v\n", sig)
		fmt.Println("Shutting down gracefully...")

		ctx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Server stopped")
	}
}
