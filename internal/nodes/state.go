package nodes

import (
	"fmt"
	"time"

	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/nodeexec"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/state"
	"github.com/flowkit/engine/internal/types"
)

// registerState registers the named-variable, accumulator, counter and
// cache nodes, grounded on the teacher's pkg/executor/variable.go,
// accumulator.go, counter.go and cache.go, backed by the run-scoped
// state.Manager instead of per-node closures.
func registerState(reg *registry.Registry) {
	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "variable_set",
		Category:    "state",
		Description: "Stores a value under a workflow-scoped variable name.",
		Inputs: []types.PortSpec{
			{Name: "name", Type: types.PortText, Widget: types.WidgetText},
			{Name: "value", Type: types.PortAny, ConnectionOnly: true},
		},
		Outputs:    []types.PortSpec{{Name: "value", Type: types.PortAny}},
		Provenance: types.Builtin(),
	}, nodeexec.Func(func(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
		name, _ := ctx.Input("name")
		nameStr, _ := name.(string)
		if nameStr == "" {
			return nil, fmt.Errorf("variable_set node %q: name must be a non-empty string", ctx.NodeID())
		}
		value, _ := ctx.Input("value")
		state.FromContext(ctx).SetVariable(nameStr, value)
		return nodeexec.Outputs{"value": value}, nil
	}))

	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "variable_get",
		Category:    "state",
		Description: "Reads a previously stored workflow-scoped variable.",
		Inputs: []types.PortSpec{
			{Name: "name", Type: types.PortText, Widget: types.WidgetText},
		},
		Outputs:    []types.PortSpec{{Name: "value", Type: types.PortAny}},
		Provenance: types.Builtin(),
	}, nodeexec.Func(func(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
		name, _ := ctx.Input("name")
		nameStr, _ := name.(string)
		value, ok := state.FromContext(ctx).GetVariable(nameStr)
		if !ok {
			return nil, fmt.Errorf("variable_get node %q: variable %q not set", ctx.NodeID(), nameStr)
		}
		return nodeexec.Outputs{"value": value}, nil
	}))

	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "accumulator",
		Category:    "state",
		Description: "Adds its input to a running workflow-scoped total.",
		Inputs: []types.PortSpec{
			{Name: "delta", Type: types.PortNumber, ConnectionOnly: true},
		},
		Outputs:    []types.PortSpec{{Name: "total", Type: types.PortNumber}},
		Provenance: types.Builtin(),
	}, nodeexec.Func(func(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
		delta, ok := asNumber(ctx, "delta")
		if !ok {
			return nil, fmt.Errorf("accumulator node %q: delta input must be a number", ctx.NodeID())
		}
		total := state.FromContext(ctx).Accumulate(delta)
		return nodeexec.Outputs{"total": total}, nil
	}))

	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "counter",
		Category:    "state",
		Description: "Advances a workflow-scoped counter by step (default 1) and returns its new value.",
		Inputs: []types.PortSpec{
			{Name: "step", Type: types.PortNumber, Default: 1.0},
		},
		Outputs:    []types.PortSpec{{Name: "count", Type: types.PortNumber}},
		Provenance: types.Builtin(),
	}, nodeexec.Func(func(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
		step, ok := asNumber(ctx, "step")
		if !ok {
			step = 1
		}
		count := state.FromContext(ctx).Increment(step)
		return nodeexec.Outputs{"count": count}, nil
	}))
}

// registerCacheWith wires the cache node against cfg's TTL/size defaults;
// kept separate from registerState since it needs config, unlike the other
// state nodes.
func registerCacheWith(reg *registry.Registry, cfg *config.Config) {
	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "cache",
		Category:    "state",
		Description: "Caches its input under a key for a configured TTL, returning the cached value on a hit.",
		Inputs: []types.PortSpec{
			{Name: "key", Type: types.PortText, Widget: types.WidgetText},
			{Name: "value", Type: types.PortAny, ConnectionOnly: true},
			{Name: "ttl_seconds", Type: types.PortNumber, Default: cfg.DefaultCacheTTL.Seconds()},
		},
		Outputs: []types.PortSpec{
			{Name: "value", Type: types.PortAny},
			{Name: "hit", Type: types.PortBoolean},
		},
		Provenance: types.Builtin(),
	}, nodeexec.Func(func(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
		keyVal, _ := ctx.Input("key")
		key, _ := keyVal.(string)
		if key == "" {
			return nil, fmt.Errorf("cache node %q: key must be a non-empty string", ctx.NodeID())
		}
		mgr := state.FromContext(ctx)
		if cached, ok := mgr.CacheGet(key); ok {
			return nodeexec.Outputs{"value": cached, "hit": true}, nil
		}
		value, _ := ctx.Input("value")
		ttlSeconds, _ := asNumber(ctx, "ttl_seconds")
		ttl := time.Duration(ttlSeconds * float64(time.Second))
		if ttl <= 0 {
			ttl = cfg.DefaultCacheTTL
		}
		mgr.CacheSet(key, value, ttl, cfg.MaxCacheSize)
		return nodeexec.Outputs{"value": value, "hit": false}, nil
	}))
}
