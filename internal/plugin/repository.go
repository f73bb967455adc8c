package plugin

import (
	"fmt"

	"github.com/flowkit/engine/internal/types"
)

// AddCustomRepository registers a user-supplied repository URL outside the
// remote index (custom_repositories, §6 administration API).
func (m *Manager) AddCustomRepository(url string) error {
	if url == "" {
		return fmt.Errorf("plugin: repository URL must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.customRepos[url]; exists {
		return fmt.Errorf("plugin: repository %q already added", url)
	}
	m.customRepos[url] = &types.PluginRepository{URL: url, Custom: true}
	return nil
}

// RemoveCustomRepository drops a previously added custom repository. It has
// no effect on repositories discovered from the remote index.
func (m *Manager) RemoveCustomRepository(url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.customRepos[url]; !exists {
		return &RepositoryNotFoundError{URL: url}
	}
	delete(m.customRepos, url)
	return nil
}

// SetDisabled adds or removes url from the disable list. A disabled
// repository's node types are dropped during the next RefreshIndex and its
// entry is reported as Disabled by ListRepositories.
func (m *Manager) SetDisabled(url string, disabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if disabled {
		m.disabled[url] = true
	} else {
		delete(m.disabled, url)
	}
	if r, ok := m.customRepos[url]; ok {
		r.Disabled = disabled
	}
	if r, ok := m.installedRepos[url]; ok {
		r.Disabled = disabled
	}
}

// ListRepositories returns every repository the Manager knows about: custom
// entries, installed entries, and everything currently present in the
// cached remote index, each annotated with its disabled state.
func (m *Manager) ListRepositories() []types.PluginRepository {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []types.PluginRepository

	for url, r := range m.customRepos {
		out = append(out, *r)
		seen[url] = struct{}{}
	}
	for url, r := range m.installedRepos {
		if _, ok := seen[url]; ok {
			continue
		}
		out = append(out, *r)
		seen[url] = struct{}{}
	}
	for url := range m.index.ByRepo {
		if _, ok := seen[url]; ok {
			continue
		}
		out = append(out, types.PluginRepository{URL: url, Disabled: m.disabled[url]})
		seen[url] = struct{}{}
	}
	return out
}
