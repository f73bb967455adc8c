package validator_test

import (
	"testing"

	"github.com/flowkit/engine/internal/validator"
)

func TestValidateDocument_AcceptsWellFormedDocument(t *testing.T) {
	body := []byte(`{
		"nodes": [{"id": "a", "type": "input_number", "inputs": {"value": 1}}],
		"edges": [{"source": "a", "target": "b", "target_input": "x"}]
	}`)
	if err := validator.ValidateDocument(body); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateDocument_RejectsNodeMissingType(t *testing.T) {
	body := []byte(`{"nodes": [{"id": "a"}]}`)
	err := validator.ValidateDocument(body)
	if err == nil {
		t.Fatalf("expected a schema error")
	}
	var schemaErr *validator.SchemaError
	if !asSchemaError(err, &schemaErr) {
		t.Fatalf("expected *validator.SchemaError, got %T", err)
	}
	if len(schemaErr.Violations) == 0 {
		t.Fatalf("expected at least one violation")
	}
}

func TestValidateDocument_RejectsEdgeMissingTarget(t *testing.T) {
	body := []byte(`{"nodes": [], "edges": [{"source": "a"}]}`)
	if err := validator.ValidateDocument(body); err == nil {
		t.Fatalf("expected a schema error for edge missing target")
	}
}

func TestValidateDocument_RejectsMissingNodesField(t *testing.T) {
	body := []byte(`{"edges": []}`)
	if err := validator.ValidateDocument(body); err == nil {
		t.Fatalf("expected a schema error for missing nodes field")
	}
}

func TestValidateDocument_RejectsMalformedJSON(t *testing.T) {
	if err := validator.ValidateDocument([]byte("not json")); err == nil {
		t.Fatalf("expected an error for malformed JSON")
	}
}

func asSchemaError(err error, target **validator.SchemaError) bool {
	se, ok := err.(*validator.SchemaError)
	if !ok {
		return false
	}
	*target = se
	return true
}
