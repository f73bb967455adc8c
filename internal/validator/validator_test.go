package validator_test

import (
	"testing"

	"github.com/flowkit/engine/internal/graph"
	"github.com/flowkit/engine/internal/nodeexec"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/types"
	"github.com/flowkit/engine/internal/validator"
)

type stubExecutor struct{}

func (stubExecutor) Invoke(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
	return nodeexec.Outputs{}, nil
}
func (stubExecutor) Rollback() (nodeexec.RollbackFunc, bool) { return nil, false }

type stubResolver struct{ urls map[string]string }

func (r stubResolver) FindByNodeType(nodeType string) (string, bool) {
	url, ok := r.urls[nodeType]
	return url, ok
}

func registerTextNode(reg *registry.Registry, name string, outType types.PortType) {
	reg.MustRegister(types.NodeTypeDescriptor{
		Name:    name,
		Inputs:  []types.PortSpec{{Name: "in", Type: types.PortText}},
		Outputs: []types.PortSpec{{Name: "out", Type: outType}},
	}, stubExecutor{})
}

func TestValidate_ReportsMissingNodesAndPluginCandidates(t *testing.T) {
	reg := registry.New()
	registerTextNode(reg, "known", types.PortText)

	g, err := graph.New([]types.Node{
		{ID: "a", Type: "known"},
		{ID: "b", Type: "unknown_type"},
	}, nil)
	if err != nil {
		t.Fatalf("graph.New: %v", err)
	}

	resolver := stubResolver{urls: map[string]string{"unknown_type": "https://example.com/repo"}}
	res := validator.Validate(g, reg, resolver)

	if res.Valid {
		t.Fatalf("expected Valid=false with a missing node type")
	}
	if len(res.MissingNodes) != 1 || res.MissingNodes[0] != "unknown_type" {
		t.Fatalf("expected unknown_type reported missing, got %v", res.MissingNodes)
	}
	if res.MissingNodesPlugins["unknown_type"] != "https://example.com/repo" {
		t.Fatalf("expected a plugin candidate for unknown_type, got %v", res.MissingNodesPlugins)
	}
}

func TestValidate_ValidWhenEveryNodeTypeIsRegistered(t *testing.T) {
	reg := registry.New()
	registerTextNode(reg, "known", types.PortText)

	g, err := graph.New([]types.Node{{ID: "a", Type: "known"}}, nil)
	if err != nil {
		t.Fatalf("graph.New: %v", err)
	}

	res := validator.Validate(g, reg, nil)
	if !res.Valid || len(res.MissingNodes) != 0 {
		t.Fatalf("expected a fully valid result, got %+v", res)
	}
}

func TestCheckPortTypes_FlagsIncompatibleEdge(t *testing.T) {
	reg := registry.New()
	registerTextNode(reg, "producer", types.PortNumber)
	registerTextNode(reg, "consumer", types.PortBoolean)

	g, err := graph.New(
		[]types.Node{{ID: "a", Type: "producer"}, {ID: "b", Type: "consumer"}},
		[]types.Edge{{ID: "e1", Source: "a", SourceOutput: "out", Target: "b", TargetInput: "in"}},
	)
	if err != nil {
		t.Fatalf("graph.New: %v", err)
	}

	errs := validator.CheckPortTypes(g, reg)
	if len(errs) != 1 {
		t.Fatalf("expected exactly one port compatibility error, got %v", errs)
	}
	if _, ok := errs[0].(*validator.PortCompatibilityError); !ok {
		t.Fatalf("expected a *PortCompatibilityError, got %T", errs[0])
	}
}

func TestCheckPortTypes_AnyIsUniversallyCompatible(t *testing.T) {
	reg := registry.New()
	registerTextNode(reg, "producer", types.PortAny)
	registerTextNode(reg, "consumer", types.PortBoolean)

	g, err := graph.New(
		[]types.Node{{ID: "a", Type: "producer"}, {ID: "b", Type: "consumer"}},
		[]types.Edge{{ID: "e1", Source: "a", SourceOutput: "out", Target: "b", TargetInput: "in"}},
	)
	if err != nil {
		t.Fatalf("graph.New: %v", err)
	}

	if errs := validator.CheckPortTypes(g, reg); len(errs) != 0 {
		t.Fatalf("expected no errors when the producer's output type is \"any\", got %v", errs)
	}
}
