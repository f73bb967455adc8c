// Package validator is the Workflow Validator (§4.2, §7): it cross-
// references a parsed graph against the Node Registry, reporting node types
// that have no registered descriptor and, where possible, pairing each
// missing type with an installable plugin repository.
package validator

import (
	"fmt"
	"sort"

	"github.com/flowkit/engine/internal/graph"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/types"
)

// PluginResolver is the minimal capability the validator needs from the
// plugin manager: given a missing node type, name a git URL that
// contributes it. Defined here (not imported from package plugin) so the
// validator never depends on the plugin manager; *plugin.Manager satisfies
// it without either package importing the other.
type PluginResolver interface {
	FindByNodeType(nodeType string) (gitURL string, ok bool)
}

// Result is the validate(workflow) response shape from §6.
type Result struct {
	Valid               bool
	MissingNodes        []string
	MissingNodesPlugins map[string]string // node type -> git url, only for resolvable types
}

// Validate checks that every node type referenced by g is registered in reg.
// If resolver is non-nil, each missing type is looked up for a remediation
// candidate.
func Validate(g *graph.Graph, reg *registry.Registry, resolver PluginResolver) Result {
	missingSet := reg.ValidateWorkflow(g)

	missing := make([]string, 0, len(missingSet))
	for t := range missingSet {
		missing = append(missing, t)
	}
	sort.Strings(missing)

	res := Result{Valid: len(missing) == 0, MissingNodes: missing}
	if resolver == nil || len(missing) == 0 {
		return res
	}

	res.MissingNodesPlugins = make(map[string]string)
	for _, t := range missing {
		if url, ok := resolver.FindByNodeType(t); ok {
			res.MissingNodesPlugins[t] = url
		}
	}
	return res
}

// PortCompatibilityError reports an edge whose source output type cannot
// feed its target input type (§3).
type PortCompatibilityError struct {
	EdgeID   string
	OutType  types.PortType
	InType   types.PortType
}

func (e *PortCompatibilityError) Error() string {
	return fmt.Sprintf("edge %q: output type %s is not compatible with input type %s", e.EdgeID, e.OutType, e.InType)
}

// CheckPortTypes verifies every edge's source output type is compatible
// with its target input type, per each endpoint's declared port schema.
// Node types absent from the registry are skipped (the caller is expected
// to have already rejected those via Validate).
func CheckPortTypes(g *graph.Graph, reg *registry.Registry) []error {
	var errs []error
	for _, e := range g.Edges() {
		src, ok := g.GetNode(e.Source)
		if !ok {
			continue
		}
		dst, ok := g.GetNode(e.Target)
		if !ok {
			continue
		}
		srcDesc, ok := reg.Descriptor(src.Type)
		if !ok {
			continue
		}
		dstDesc, ok := reg.Descriptor(dst.Type)
		if !ok {
			continue
		}
		outSpec, ok := srcDesc.OutputSpec(e.SourceOutput)
		if !ok {
			errs = append(errs, fmt.Errorf("edge %q: source node %q has no output %q", e.ID, src.ID, e.SourceOutput))
			continue
		}
		inSpec, ok := dstDesc.InputSpec(e.TargetInput)
		if !ok {
			errs = append(errs, fmt.Errorf("edge %q: target node %q has no input %q", e.ID, dst.ID, e.TargetInput))
			continue
		}
		if !inSpec.Type.Compatible(outSpec.Type) {
			errs = append(errs, &PortCompatibilityError{EdgeID: e.ID, OutType: outSpec.Type, InType: inSpec.Type})
		}
	}
	return errs
}
