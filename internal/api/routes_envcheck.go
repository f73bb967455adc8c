package api

import (
	"net/http"
	"strings"
)

func (s *Server) handleEnvCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.envReg == nil {
		http.Error(w, "environment checks not configured", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"checks": s.envReg.RunAll(r.Context())})
}

func (s *Server) handleEnvCheckInstall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.envReg == nil {
		http.Error(w, "environment checks not configured", http.StatusServiceUnavailable)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/v1/envcheck/install/")
	if name == "" {
		http.Error(w, "check name required", http.StatusBadRequest)
		return
	}
	if err := s.envReg.Trigger(r.Context(), name); err != nil {
		s.writeError(w, "install failed", http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
