package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flowkit/engine/internal/engine"
	"github.com/flowkit/engine/internal/graph"
	"github.com/flowkit/engine/internal/storage"
	"github.com/flowkit/engine/internal/validator"
)

// formatFromRequest honors an explicit ?format=yaml query parameter,
// defaulting to JSON — the vast majority of programmatic submissions.
func formatFromRequest(r *http.Request) graph.Format {
	if strings.EqualFold(r.URL.Query().Get("format"), "yaml") {
		return graph.FormatYAML
	}
	return graph.FormatJSON
}

func (s *Server) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, "failed to read request body", http.StatusBadRequest, err)
		return
	}
	format := formatFromRequest(r)
	s.executeDefinition(w, r.Context(), body, format, "")
}

func (s *Server) handleExecuteStoredWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/workflow/execute/")
	if id == "" {
		http.Error(w, "workflow id required", http.StatusBadRequest)
		return
	}
	wf, err := s.store.Load(id)
	if err != nil {
		s.respondStorageError(w, id, err)
		return
	}
	format := graph.FormatJSON
	if wf.Format == "yaml" {
		format = graph.FormatYAML
	}
	s.executeDefinition(w, r.Context(), wf.Definition, format, id)
}

func (s *Server) executeDefinition(w http.ResponseWriter, ctx context.Context, body []byte, format graph.Format, workflowID string) {
	if format == graph.FormatJSON {
		if err := validator.ValidateDocument(body); err != nil {
			s.writeError(w, "workflow document failed schema validation", http.StatusBadRequest, err)
			return
		}
	}
	g, err := graph.Parse(body, format)
	if err != nil {
		s.writeError(w, "failed to parse workflow", http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	result := s.executor.Execute(ctx, g, engine.Callbacks{})
	duration := time.Since(start)

	if s.telemetry != nil {
		s.telemetry.RecordWorkflowExecution(ctx, workflowID, duration, result.Err == nil, len(result.NodeOutputs))
	}

	if result.Err != nil {
		s.writeError(w, "workflow execution failed", http.StatusUnprocessableEntity, result.Err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"node_outputs":    result.NodeOutputs,
		"failed_nodes":    result.FailedNodes,
		"rolled_back":     result.RolledBack,
		"execution_time":  duration.String(),
	})
}

func (s *Server) handleValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, "failed to read request body", http.StatusBadRequest, err)
		return
	}
	format := formatFromRequest(r)

	if format == graph.FormatJSON {
		if err := validator.ValidateDocument(body); err != nil {
			s.writeJSON(w, http.StatusOK, map[string]interface{}{"valid": false, "error": err.Error()})
			return
		}
	}

	g, err := graph.Parse(body, format)
	if err != nil {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"valid": false, "error": err.Error()})
		return
	}

	var resolver validator.PluginResolver
	if s.pluginMgr != nil {
		resolver = s.pluginMgr
	}
	res := validator.Validate(g, s.reg, resolver)
	portErrs := validator.CheckPortTypes(g, s.reg)

	portMessages := make([]string, 0, len(portErrs))
	for _, e := range portErrs {
		portMessages = append(portMessages, e.Error())
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":                 res.Valid && len(portErrs) == 0,
		"missing_nodes":         res.MissingNodes,
		"missing_nodes_plugins": res.MissingNodesPlugins,
		"port_errors":           portMessages,
	})
}

type saveWorkflowRequest struct {
	ID          string          `json:"id,omitempty"` // present => update instead of create
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Format      string          `json:"format"`
	Definition  json.RawMessage `json:"definition"`
}

func (s *Server) handleSaveWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req saveWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest, err)
		return
	}
	if req.Format == "" {
		req.Format = "json"
	}

	if req.ID != "" {
		if err := s.store.Update(req.ID, req.Name, req.Description, req.Definition); err != nil {
			s.respondStorageError(w, req.ID, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "id": req.ID})
		return
	}

	id, err := s.store.Save(req.Name, req.Description, req.Format, req.Definition)
	if err != nil {
		s.writeError(w, "failed to save workflow", http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "id": id})
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"workflows": s.store.List()})
}

func (s *Server) handleLoadWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/workflow/load/")
	if id == "" {
		http.Error(w, "workflow id required", http.StatusBadRequest)
		return
	}
	wf, err := s.store.Load(id)
	if err != nil {
		s.respondStorageError(w, id, err)
		return
	}
	s.writeJSON(w, http.StatusOK, wf)
}

func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/workflow/delete/")
	if id == "" {
		http.Error(w, "workflow id required", http.StatusBadRequest)
		return
	}
	if err := s.store.Delete(id); err != nil {
		s.respondStorageError(w, id, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) respondStorageError(w http.ResponseWriter, id string, err error) {
	var notFound *storage.NotFoundError
	if errors.As(err, &notFound) {
		s.writeError(w, "workflow not found", http.StatusNotFound, err)
		return
	}
	s.writeError(w, "storage operation failed", http.StatusInternalServerError, err)
}
