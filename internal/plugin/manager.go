// Package plugin extends the Module Lifecycle Manager with discovery and
// installation of externally-contributed node types: a periodically
// refreshed remote index (primary + secondary source URLs, merged with
// first-source-wins precedence and a user-maintained disable list), a
// reverse lookup from node type to the git repository that contributes it
// (FindByNodeType, implementing validator.PluginResolver), filesystem-based
// clone installation, and custom_repositories CRUD for administration.
//
// Not grounded in the teacher (which has no plugin concept), grounded
// instead on the pack's own plugin-system repo
// (Yoriyoi-drop-citadel-agent/backend/internal/workflow/core/plugin_system.go
// and internal/plugins/loader.go — PluginManager-with-map-of-plugins shape,
// PluginInfo metadata fields) plus rakunlabs-at's go.mod, which is the pack
// source for go-git as a direct dependency.
package plugin

import (
	"sync"
	"time"

	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/logging"
	"github.com/flowkit/engine/internal/types"
)

// Manager owns the plugin index cache, the custom/disabled repository
// list, and the install directory for cloned node-contributing
// repositories.
type Manager struct {
	cfg    *config.Config
	logger *logging.Logger

	primaryURL    string
	secondaryURLs []string
	installDir    string
	httpTimeout   time.Duration

	mu              sync.RWMutex
	index           types.PluginIndex
	customRepos     map[string]*types.PluginRepository // user-added via AddCustomRepository
	installedRepos  map[string]*types.PluginRepository  // populated by Install
	disabled        map[string]bool
	restartRequired bool
}

// NewManager creates a Manager. installDir is where Install clones
// repositories; it need not exist yet (Install creates it on demand).
func NewManager(cfg *config.Config, logger *logging.Logger, primaryURL string, secondaryURLs []string, installDir string) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	return &Manager{
		cfg:            cfg,
		logger:         logger,
		primaryURL:     primaryURL,
		secondaryURLs:  secondaryURLs,
		installDir:     installDir,
		httpTimeout:    cfg.PluginIndexTimeout,
		customRepos:    make(map[string]*types.PluginRepository),
		installedRepos: make(map[string]*types.PluginRepository),
		disabled:       make(map[string]bool),
	}
}

// RestartRequired reports whether an Install since the process started (or
// since ClearRestartRequired) brought in a repository that contains native
// code or replaces an existing module; other installs leave it false.
func (m *Manager) RestartRequired() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.restartRequired
}

// ClearRestartRequired resets the restart flag, typically called right
// after the operator has restarted the process and re-run discovery.
func (m *Manager) ClearRestartRequired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restartRequired = false
}

// IndexAge reports how long ago the plugin index was last refreshed. A
// zero duration with ok=false means it has never been fetched.
func (m *Manager) IndexAge() (age time.Duration, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.index.FetchedAt.IsZero() {
		return 0, false
	}
	return time.Since(m.index.FetchedAt), true
}

// IsStale reports whether the cached index is older than cfg.PluginIndexTTL
// (or has never been fetched).
func (m *Manager) IsStale() bool {
	age, ok := m.IndexAge()
	if !ok {
		return true
	}
	return age > m.cfg.PluginIndexTTL
}

func (m *Manager) isDisabled(url string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.disabled[url]
}
