// Package registry is the Node Registry (§4.2): the authoritative catalog
// of executable node types, their typed input/output schemas, executor
// lookup, and rollback lookup. It also validates a workflow graph against
// the catalog (validate_workflow).
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/flowkit/engine/internal/graph"
	"github.com/flowkit/engine/internal/nodeexec"
	"github.com/flowkit/engine/internal/types"
)

// Registry is safe for concurrent reads; writes (Register/Remove) are
// serialized. Descriptor mutation during execution is disallowed by
// convention, not by locking (§5) — callers must not Register/Remove a node
// type while an execution reading that type is in flight.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]*types.NodeTypeDescriptor
	executors   map[string]nodeexec.NodeExecutor
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		descriptors: make(map[string]*types.NodeTypeDescriptor),
		executors:   make(map[string]nodeexec.NodeExecutor),
	}
}

// Register adds a node type's descriptor and executor to the catalog.
// Finalizes the descriptor's render_as derivation and input index. Returns
// an error if the name is already registered.
func (r *Registry) Register(desc types.NodeTypeDescriptor, exec nodeexec.NodeExecutor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if desc.Name == "" {
		return fmt.Errorf("registry: descriptor missing name")
	}
	if _, exists := r.descriptors[desc.Name]; exists {
		return fmt.Errorf("registry: node type %q already registered", desc.Name)
	}

	d := desc
	d.Finalize()
	r.descriptors[d.Name] = &d
	r.executors[d.Name] = exec
	return nil
}

// MustRegister registers a node type and panics on error. Intended for
// package-init-time registration of built-in node types, where a failure
// indicates a programming error rather than a runtime condition.
func (r *Registry) MustRegister(desc types.NodeTypeDescriptor, exec nodeexec.NodeExecutor) {
	if err := r.Register(desc, exec); err != nil {
		panic(err)
	}
}

// Remove detaches a node type from the catalog (used on explicit removal or
// plugin unload).
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.descriptors, name)
	delete(r.executors, name)
}

// Descriptor returns the registered descriptor for a node type, if any.
func (r *Registry) Descriptor(name string) (*types.NodeTypeDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	return d, ok
}

// Executor returns the registered executor for a node type, if any.
func (r *Registry) Executor(name string) (nodeexec.NodeExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[name]
	return e, ok
}

// Has reports whether a node type is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.descriptors[name]
	return ok
}

// List returns every registered descriptor, sorted by name.
func (r *Registry) List() []*types.NodeTypeDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*types.NodeTypeDescriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RemoveByProvenance removes every descriptor contributed by the given
// plugin id (used on plugin unload to drop its node types atomically).
func (r *Registry) RemoveByProvenance(p types.Provenance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, d := range r.descriptors {
		if d.Provenance == p {
			delete(r.descriptors, name)
			delete(r.executors, name)
		}
	}
}

// ValidateWorkflow returns the set of node-type names referenced by the
// graph but absent from the catalog (§4.2). Success is an empty, non-nil
// set.
func (r *Registry) ValidateWorkflow(g *graph.Graph) map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	missing := make(map[string]struct{})
	for _, n := range g.Nodes() {
		if _, ok := r.descriptors[n.Type]; !ok {
			missing[n.Type] = struct{}{}
		}
	}
	return missing
}
