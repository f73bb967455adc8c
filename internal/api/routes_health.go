package api

import (
	"net/http"
	"time"
)

// handleHealth reports a general liveness/readiness summary in one call,
// mirroring the teacher's pkg/health aggregate endpoint but condensed: this
// module has no dependency checks heavy enough to warrant a separate
// Degraded/Critical rollup, so the response is just a status, the uptime,
// the registered node-type count, and whether the plugin manager, envcheck
// registry and telemetry collaborators are wired in.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"uptime":       time.Since(s.startedAt).String(),
		"node_types":   len(s.reg.List()),
		"plugins_on":   s.pluginMgr != nil,
		"envcheck_on":  s.envReg != nil,
		"telemetry_on": s.telemetry != nil,
	})
}

// handleLiveness answers whether the process is running at all — never
// fails once the handler is reachable.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "alive"})
}

// handleReadiness answers whether the server can actually serve workflow
// execution: it needs a populated registry to do anything useful.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.reg == nil || len(s.reg.List()) == 0 {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not_ready",
			"reason": "node registry is empty",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready"})
}
