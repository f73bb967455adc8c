package plugin

import (
	"os"

	"github.com/flowkit/engine/internal/storage"
	"github.com/flowkit/engine/internal/types"
)

// repositoryDocument is the on-disk shape of repositories.json: bare URL
// lists, matching the original's plain custom/disabled string arrays.
// Installed repositories are not part of this file: they are held in
// memory only and are not restored after a restart (WatchInstallDir
// reports filesystem events but does not repopulate them).
type repositoryDocument struct {
	Custom   []string `json:"custom"`
	Disabled []string `json:"disabled"`
}

// SaveRepositories atomically writes the custom repository and disable
// URL lists to path (conventionally repositories.json), so a restart does
// not lose administration state the operator configured at runtime.
func (m *Manager) SaveRepositories(path string) error {
	m.mu.RLock()
	doc := repositoryDocument{}
	for url := range m.customRepos {
		doc.Custom = append(doc.Custom, url)
	}
	for url := range m.disabled {
		doc.Disabled = append(doc.Disabled, url)
	}
	m.mu.RUnlock()
	return storage.SaveJSON(path, doc)
}

// LoadRepositories reads a repositories.json previously written by
// SaveRepositories and merges it into the Manager's in-memory state. A
// missing file is treated as "nothing configured yet", not an error.
func (m *Manager) LoadRepositories(path string) error {
	var doc repositoryDocument
	if err := storage.LoadJSON(path, &doc); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, url := range doc.Custom {
		m.customRepos[url] = &types.PluginRepository{URL: url, Custom: true}
	}
	for _, url := range doc.Disabled {
		m.disabled[url] = true
		if r, ok := m.customRepos[url]; ok {
			r.Disabled = true
		}
	}
	return nil
}
