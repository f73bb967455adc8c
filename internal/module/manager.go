// Package module implements the Module Lifecycle Manager: a state machine
// per module id (Unloaded -> Loading -> Loaded -> Activating -> Activated,
// with Failed as a retry-capable terminal-until-retried state), dependency-
// ordered activation with cycle detection, and a null-on-non-Activated
// API lookup for nodes that call into another module at runtime.
//
// Not grounded in the teacher, which has no module concept of its own —
// the lifecycle/state-machine shape instead follows the teacher's general
// idiom (coarse RWMutex-guarded manager, typed errors per failure mode,
// context-bounded hook invocation) applied to the module vocabulary this
// repo's specification adds.
package module

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/logging"
	"github.com/flowkit/engine/internal/types"
)

// LoadFunc performs a module's one-time load step (e.g. resolving external
// dependencies, opening a native handle). Called at most once per Load
// attempt.
type LoadFunc func(ctx context.Context) error

// ActivateFunc brings a loaded module into service and returns the API
// object other modules/nodes will retrieve via GetModuleAPI.
type ActivateFunc func(ctx context.Context) (interface{}, error)

// DeactivateFunc releases whatever ActivateFunc acquired. Deactivation
// never cascades to dependent modules (they simply stop being able to
// fetch this module's API on their next lookup).
type DeactivateFunc func(ctx context.Context) error

type entry struct {
	meta       types.ModuleMetadata
	load       LoadFunc
	activate   ActivateFunc
	deactivate DeactivateFunc
}

// Manager owns every registered module's lifecycle state. One Manager
// instance serves a whole process; module ids are process-global.
type Manager struct {
	cfg    *config.Config
	logger *logging.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	records map[string]*types.ModuleRecord
	apis    map[string]interface{}
}

// New creates an empty Manager.
func New(cfg *config.Config, logger *logging.Logger) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	return &Manager{
		cfg:     cfg,
		logger:  logger,
		entries: make(map[string]*entry),
		records: make(map[string]*types.ModuleRecord),
		apis:    make(map[string]interface{}),
	}
}

// Register adds a module definition in the Unloaded state. deactivate may
// be nil for modules with nothing to release.
func (m *Manager) Register(meta types.ModuleMetadata, load LoadFunc, activate ActivateFunc, deactivate DeactivateFunc) error {
	if meta.ID == "" {
		return fmt.Errorf("module: metadata.ID must not be empty")
	}
	if load == nil || activate == nil {
		return fmt.Errorf("module %q: load and activate hooks are required", meta.ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[meta.ID]; exists {
		return fmt.Errorf("module %q: already registered", meta.ID)
	}
	m.entries[meta.ID] = &entry{meta: meta, load: load, activate: activate, deactivate: deactivate}
	m.records[meta.ID] = &types.ModuleRecord{ID: meta.ID, Metadata: meta, State: types.ModuleUnloaded, LastActivity: time.Now()}
	return nil
}

// Record returns a snapshot of a module's current bookkeeping entry.
func (m *Manager) Record(id string) (types.ModuleRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return types.ModuleRecord{}, false
	}
	return *r, true
}

// List returns a snapshot of every registered module's record.
func (m *Manager) List() []types.ModuleRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.ModuleRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, *r)
	}
	return out
}

// GetModuleAPI returns the API object produced by a module's ActivateFunc.
// It returns (nil, false) for any module that is not currently Activated —
// by design, never partially-initialized state leaks to a caller.
func (m *Manager) GetModuleAPI(id string) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok || r.State != types.ModuleActivated {
		return nil, false
	}
	return m.apis[id], true
}

// Load runs a module's LoadFunc, retrying up to cfg.ModuleMaxRetries times
// with cfg.ModuleRetryDelay between attempts, each attempt bounded by
// cfg.ModuleLoadTimeout. Load on a module that is already Loading returns
// an *InvalidTransitionError; it does not wait for the load in flight.
func (m *Manager) Load(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return &NotFoundError{ModuleID: id}
	}
	rec := m.records[id]
	if rec.State != types.ModuleUnloaded && rec.State != types.ModuleFailed {
		state := rec.State
		m.mu.Unlock()
		return &InvalidTransitionError{ModuleID: id, From: string(state), Op: "load"}
	}
	rec.State = types.ModuleLoading
	m.mu.Unlock()

	maxAttempts := 1 + m.cfg.ModuleMaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := m.runWithTimeout(ctx, e.load)
		if err == context.DeadlineExceeded && ctx.Err() == nil {
			err = &LoadTimeoutError{ModuleID: id, Attempt: attempt}
		}
		m.mu.Lock()
		rec.LoadAttempts++
		rec.LastActivity = time.Now()
		m.mu.Unlock()

		if err == nil {
			m.mu.Lock()
			rec.State = types.ModuleLoaded
			rec.LastError = nil
			m.mu.Unlock()
			return nil
		}
		lastErr = err
		if attempt < maxAttempts {
			m.logger.WithError(err).Warn(fmt.Sprintf("module %q: load attempt %d/%d failed, retrying", id, attempt, maxAttempts))
			select {
			case <-time.After(m.cfg.ModuleRetryDelay):
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = maxAttempts // stop retrying
			}
		}
	}

	m.mu.Lock()
	rec.State = types.ModuleFailed
	rec.LastError = lastErr
	m.mu.Unlock()
	return fmt.Errorf("module %q: load failed after %d attempt(s): %w", id, maxAttempts, lastErr)
}

// Activate brings id to Activated, first activating every module named in
// its ModuleDeps (recursively, depth-first). A dependency cycle or a failed
// dependency aborts the whole chain without activating anything further.
func (m *Manager) Activate(ctx context.Context, id string) error {
	return m.activateRec(ctx, id, map[string]struct{}{})
}

func (m *Manager) activateRec(ctx context.Context, id string, path map[string]struct{}) error {
	if _, ok := path[id]; ok {
		cycle := make([]string, 0, len(path)+1)
		for k := range path {
			cycle = append(cycle, k)
		}
		cycle = append(cycle, id)
		return &DependencyCycleError{Cycle: cycle}
	}

	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return &NotFoundError{ModuleID: id}
	}
	rec := m.records[id]
	if rec.State == types.ModuleActivated {
		m.mu.Unlock()
		return nil
	}
	if rec.State != types.ModuleLoaded {
		state := rec.State
		m.mu.Unlock()
		return &InvalidTransitionError{ModuleID: id, From: string(state), Op: "activate"}
	}
	m.mu.Unlock()

	path[id] = struct{}{}
	defer delete(path, id)
	for _, dep := range e.meta.ModuleDeps {
		if err := m.activateRec(ctx, dep, path); err != nil {
			if _, isCycle := err.(*DependencyCycleError); isCycle {
				return err
			}
			return &DependencyFailedError{ModuleID: id, Dependency: dep, Err: err}
		}
	}

	m.mu.Lock()
	rec.State = types.ModuleActivating
	m.mu.Unlock()

	var api interface{}
	err := m.runTimed(ctx, func(ctx context.Context) error {
		a, aerr := e.activate(ctx)
		api = a
		return aerr
	})
	if err == context.DeadlineExceeded && ctx.Err() == nil {
		err = &ActivateTimeoutError{ModuleID: id}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rec.LastActivity = time.Now()
	if err != nil {
		rec.State = types.ModuleFailed
		rec.LastError = err
		return fmt.Errorf("module %q: activate failed: %w", id, err)
	}
	rec.State = types.ModuleActivated
	rec.LastError = nil
	m.apis[id] = api
	return nil
}

// Deactivate drops an Activated module back to Loaded. Per design (Open
// Question: does deactivation cascade?), dependents are left untouched —
// they keep whatever they already hold and simply start getting (nil,
// false) from GetModuleAPI for this id on their next lookup.
func (m *Manager) Deactivate(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return &NotFoundError{ModuleID: id}
	}
	rec := m.records[id]
	if rec.State != types.ModuleActivated {
		state := rec.State
		m.mu.Unlock()
		return &InvalidTransitionError{ModuleID: id, From: string(state), Op: "deactivate"}
	}
	m.mu.Unlock()

	var err error
	if e.deactivate != nil {
		err = m.runTimed(ctx, e.deactivate)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.apis, id)
	rec.LastActivity = time.Now()
	rec.State = types.ModuleLoaded
	if err != nil {
		rec.LastError = err
		return fmt.Errorf("module %q: deactivate hook failed (module still dropped to loaded): %w", id, err)
	}
	rec.LastError = nil
	return nil
}

func (m *Manager) runWithTimeout(ctx context.Context, fn LoadFunc) error {
	return m.runTimed(ctx, func(ctx context.Context) error { return fn(ctx) })
}

func (m *Manager) runTimed(ctx context.Context, fn func(context.Context) error) error {
	timeout := m.cfg.ModuleLoadTimeout
	if timeout <= 0 {
		return fn(ctx)
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(runCtx) }()
	select {
	case err := <-done:
		return err
	case <-runCtx.Done():
		return runCtx.Err()
	}
}
