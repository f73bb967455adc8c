package module

import "fmt"

// NotFoundError is returned for any operation against an unregistered
// module id.
type NotFoundError struct {
	ModuleID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module %q is not registered", e.ModuleID)
}

// DependencyCycleError is returned when a module's ModuleDeps chain forms a
// cycle, discovered during dependency-ordered activation.
type DependencyCycleError struct {
	Cycle []string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("module dependency cycle: %v", e.Cycle)
}

// DependencyFailedError is returned when activating a module's dependency
// failed, so the dependent was never attempted.
type DependencyFailedError struct {
	ModuleID   string
	Dependency string
	Err        error
}

func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("module %q: dependency %q failed to activate: %v", e.ModuleID, e.Dependency, e.Err)
}

func (e *DependencyFailedError) Unwrap() error { return e.Err }

// LoadTimeoutError is returned when a module's load hook exceeds the
// configured load timeout.
type LoadTimeoutError struct {
	ModuleID string
	Attempt  int
}

func (e *LoadTimeoutError) Error() string {
	return fmt.Sprintf("module %q: load timed out (attempt %d)", e.ModuleID, e.Attempt)
}

// ActivateTimeoutError is returned when a module's activate hook exceeds
// the configured load timeout.
type ActivateTimeoutError struct {
	ModuleID string
}

func (e *ActivateTimeoutError) Error() string {
	return fmt.Sprintf("module %q: activate timed out", e.ModuleID)
}

// InvalidTransitionError is returned when an operation is attempted from a
// state that does not support it (e.g. activating an Unloaded module).
type InvalidTransitionError struct {
	ModuleID string
	From     string
	Op       string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("module %q: cannot %s from state %q", e.ModuleID, e.Op, e.From)
}
