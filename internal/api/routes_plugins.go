package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) requirePluginMgr(w http.ResponseWriter) bool {
	if s.pluginMgr == nil {
		http.Error(w, "plugin manager not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) handleListPlugins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requirePluginMgr(w) {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"repositories": s.pluginMgr.ListRepositories()})
}

type installPluginRequest struct {
	GitURL string `json:"git_url"`
}

func (s *Server) handleInstallPlugin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requirePluginMgr(w) {
		return
	}
	var req installPluginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest, err)
		return
	}
	path, err := s.pluginMgr.Install(r.Context(), req.GitURL)
	if err != nil {
		s.writeError(w, "plugin install failed", http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"path":             path,
		"restart_required": s.pluginMgr.RestartRequired(),
	})
}

type disablePluginRequest struct {
	URL      string `json:"url"`
	Disabled bool   `json:"disabled"`
}

func (s *Server) handleDisablePlugin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requirePluginMgr(w) {
		return
	}
	var req disablePluginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest, err)
		return
	}
	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}
	s.pluginMgr.SetDisabled(req.URL, req.Disabled)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

type installMissingNodesRequest struct {
	NodeTypes []string `json:"node_types"`
}

func (s *Server) handleInstallMissingNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requirePluginMgr(w) {
		return
	}
	var req installMissingNodesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest, err)
		return
	}
	installed, failed := s.pluginMgr.InstallMissingNodes(r.Context(), req.NodeTypes)

	failedMessages := make(map[string]string, len(failed))
	for nodeType, err := range failed {
		failedMessages[nodeType] = err.Error()
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"installed":        installed,
		"failed":           failedMessages,
		"restart_required": s.pluginMgr.RestartRequired(),
	})
}
