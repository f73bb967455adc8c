package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/flowkit/engine/internal/httpclient"
	"github.com/flowkit/engine/internal/types"
)

// indexDocument is the wire shape of a remote plugin index source: git
// repository URL -> the node type names it contributes.
type indexDocument map[string][]string

// RefreshIndex fetches the primary source and every secondary source,
// merging their contributions (first source that claims a node type wins;
// later claimants are dropped and logged), and replaces the cached index.
// A source that fails to fetch is skipped, not fatal, unless every source
// fails.
func (m *Manager) RefreshIndex(ctx context.Context) error {
	sources := make([]string, 0, 1+len(m.secondaryURLs))
	if m.primaryURL != "" {
		sources = append(sources, m.primaryURL)
	}
	sources = append(sources, m.secondaryURLs...)
	if len(sources) == 0 {
		return fmt.Errorf("plugin: no index source configured")
	}

	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = m.httpTimeout
	client, err := httpclient.NewBuilder(m.cfg).Build(clientCfg)
	if err != nil {
		return fmt.Errorf("plugin: building index fetch client: %w", err)
	}
	byRepo := make(map[string][]string)
	byNodeType := make(map[string]string)

	var fetchErrs []error
	for _, src := range sources {
		doc, err := fetchIndexDocument(ctx, client, src)
		if err != nil {
			fetchErrs = append(fetchErrs, &IndexFetchError{SourceURL: src, Err: err})
			continue
		}
		for repo, nodeTypes := range doc {
			if m.isDisabled(repo) {
				continue
			}
			byRepo[repo] = nodeTypes
			for _, nt := range nodeTypes {
				if existing, claimed := byNodeType[nt]; claimed {
					m.logger.Warn(fmt.Sprintf("plugin index: node type %q already claimed by %q, ignoring claim from %q", nt, existing, repo))
					continue
				}
				byNodeType[nt] = repo
			}
		}
	}

	if len(fetchErrs) == len(sources) {
		return fmt.Errorf("plugin: all %d index source(s) failed, first error: %w", len(sources), fetchErrs[0])
	}

	m.mu.Lock()
	m.index = types.PluginIndex{ByRepo: byRepo, ByNodeType: byNodeType, FetchedAt: time.Now()}
	m.mu.Unlock()
	return nil
}

func fetchIndexDocument(ctx context.Context, client *http.Client, url string) (indexDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var doc indexDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode index document: %w", err)
	}
	return doc, nil
}

// FindByNodeType implements validator.PluginResolver: it looks up the git
// repository that contributes nodeType, from the most recently refreshed
// index.
func (m *Manager) FindByNodeType(nodeType string) (gitURL string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	url, found := m.index.ByNodeType[nodeType]
	return url, found
}

// Index returns a snapshot of the currently cached plugin index.
func (m *Manager) Index() (byRepo map[string][]string, byNodeType map[string]string, fetchedAt time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.ByRepo, m.index.ByNodeType, m.index.FetchedAt
}
