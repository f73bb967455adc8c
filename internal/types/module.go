package types

import "time"

// ModuleState is the Module Lifecycle Manager's state machine (§4.6):
//
//	Unloaded --load--> Loading --success--> Loaded --activate--> Activating --success--> Activated
//	                      \-failure-> Failed                         \-failure-> Failed
//	Activated --deactivate--> Loaded
//	Failed --retry (<=N, with delay)--> Loading
type ModuleState string

const (
	ModuleUnloaded   ModuleState = "unloaded"
	ModuleLoading    ModuleState = "loading"
	ModuleLoaded     ModuleState = "loaded"
	ModuleActivating ModuleState = "activating"
	ModuleActivated  ModuleState = "activated"
	ModuleFailed     ModuleState = "failed"
)

// ModuleMetadata describes a module's identity and dependencies, supplied
// by the module author (mirrors a plugin's METADATA attribute in §4.7).
type ModuleMetadata struct {
	ID              string
	Name            string
	Version         string
	Description     string
	ModuleDeps      []string // other module ids that must be Activated first
	ExternalDeps    []string // external package requirements (installed during activate)
	NativeCode      bool     // true if loading/unloading this module requires a process restart
}

// ModuleRecord is the Module Lifecycle Manager's bookkeeping entry for one
// module id (§3). One record per module id.
type ModuleRecord struct {
	ID           string
	Metadata     ModuleMetadata
	State        ModuleState
	LoadAttempts int
	LastError    error
	LastActivity time.Time
}
