package validator

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema is the structural shape of a workflow submission (§6):
// a "nodes" array of {id, type, inputs} and an "edges" array of
// {id, source, target, source_output, target_input}. This runs before
// graph.Parse so a malformed submission is rejected with field-level
// detail rather than the looser error graph.Parse itself produces.
const documentSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["nodes"],
	"properties": {
		"nodes": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "type"],
				"properties": {
					"id":   {"type": "string", "minLength": 1},
					"type": {"type": "string", "minLength": 1},
					"inputs": {"type": "object"}
				}
			}
		},
		"edges": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["source", "target"],
				"properties": {
					"id":            {"type": "string"},
					"source":        {"type": "string", "minLength": 1},
					"target":        {"type": "string", "minLength": 1},
					"source_output": {"type": "string"},
					"target_input":  {"type": "string"},
					"sourceOutput":  {"type": "string"},
					"targetInput":   {"type": "string"}
				}
			}
		}
	}
}`

var documentSchemaLoader = gojsonschema.NewStringLoader(documentSchema)

// SchemaError reports a workflow document's field-level schema violations,
// collected from every failing gojsonschema result.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("workflow document failed schema validation: %v", e.Violations)
}

// ValidateDocument checks that jsonBody conforms to the workflow document
// shape before it is handed to graph.Parse. YAML submissions should be
// converted to an equivalent JSON value by the caller first (graph.Parse
// itself accepts both, but gojsonschema only understands JSON).
func ValidateDocument(jsonBody []byte) error {
	result, err := gojsonschema.Validate(documentSchemaLoader, gojsonschema.NewBytesLoader(jsonBody))
	if err != nil {
		return fmt.Errorf("validator: schema check: %w", err)
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return &SchemaError{Violations: violations}
}
