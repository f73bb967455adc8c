package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowkit/engine/internal/api"
	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/nodes"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := registry.New()
	nodes.RegisterBuiltins(reg, config.Default())
	s := api.New(api.DefaultConfig(), config.Default(), reg, storage.NewInMemoryStore(), nil, nil, nil, nil)
	return httptest.NewServer(s.Handler())
}

func TestHealth_ReportsOK(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReadiness_ReadyWhenRegistryPopulated(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health/ready")
	if err != nil {
		t.Fatalf("GET /health/ready: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestExecuteWorkflow_RunsSimpleGraph(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	body := []byte(`{
		"nodes": [
			{"id": "a", "type": "input_number", "inputs": {"value": 2}},
			{"id": "b", "type": "input_number", "inputs": {"value": 3}},
			{"id": "sum", "type": "operation", "inputs": {
				"left": {"$ref": "a.outputs.value"},
				"right": {"$ref": "b.outputs.value"},
				"op": "add"
			}}
		],
		"edges": [
			{"id": "e1", "source": "a", "source_output": "value", "target": "sum", "target_input": "left"},
			{"id": "e2", "source": "b", "source_output": "value", "target": "sum", "target_input": "right"}
		]
	}`)

	resp, err := http.Post(ts.URL+"/api/v1/workflow/execute", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST execute: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded["success"] != true {
		t.Fatalf("expected success=true, got %v", decoded)
	}
}

func TestExecuteWorkflow_InvalidBodyReturns400(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/workflow/execute", "application/json", bytes.NewReader([]byte("not json")))
	if err != nil {
		t.Fatalf("POST execute: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestValidateWorkflow_ReportsMissingNodeType(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	body := []byte(`{"nodes":[{"id":"a","type":"totally_unknown_type","inputs":{}}],"edges":[]}`)
	resp, err := http.Post(ts.URL+"/api/v1/workflow/validate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST validate: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var decoded struct {
		Valid        bool     `json:"valid"`
		MissingNodes []string `json:"missing_nodes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded.Valid {
		t.Fatalf("expected invalid workflow")
	}
	if len(decoded.MissingNodes) != 1 || decoded.MissingNodes[0] != "totally_unknown_type" {
		t.Fatalf("expected totally_unknown_type reported missing, got %v", decoded.MissingNodes)
	}
}

func TestSaveListLoadDeleteWorkflow_RoundTrips(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	saveBody := []byte(`{"name":"demo","description":"a demo workflow","format":"json","definition":{"nodes":[],"edges":[]}}`)
	resp, err := http.Post(ts.URL+"/api/v1/workflow/save", "application/json", bytes.NewReader(saveBody))
	if err != nil {
		t.Fatalf("POST save: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var saved struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		t.Fatalf("decode save response: %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("expected non-empty id")
	}

	listResp, err := http.Get(ts.URL + "/api/v1/workflow/list")
	if err != nil {
		t.Fatalf("GET list: %v", err)
	}
	defer listResp.Body.Close()
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", listResp.StatusCode)
	}

	loadResp, err := http.Get(ts.URL + "/api/v1/workflow/load/" + saved.ID)
	if err != nil {
		t.Fatalf("GET load: %v", err)
	}
	defer loadResp.Body.Close()
	if loadResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", loadResp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/workflow/delete/"+saved.ID, nil)
	if err != nil {
		t.Fatalf("build delete request: %v", err)
	}
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", delResp.StatusCode)
	}

	loadAgainResp, err := http.Get(ts.URL + "/api/v1/workflow/load/" + saved.ID)
	if err != nil {
		t.Fatalf("GET load after delete: %v", err)
	}
	defer loadAgainResp.Body.Close()
	if loadAgainResp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", loadAgainResp.StatusCode)
	}
}

func TestPluginRoutes_ServiceUnavailableWithoutManager(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/plugins")
	if err != nil {
		t.Fatalf("GET plugins: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestEnvCheckRoute_ServiceUnavailableWithoutRegistry(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/envcheck")
	if err != nil {
		t.Fatalf("GET envcheck: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestMetrics_ExposedWithoutTelemetryProvider(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
