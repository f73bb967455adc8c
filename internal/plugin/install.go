package plugin

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	git "github.com/go-git/go-git/v5"

	"github.com/flowkit/engine/internal/types"
)

// allowedGitSchemes are the transports Install will clone from. This
// excludes go-git's file:// and bare-local-path transports so a plugin
// install request can't be used to pull arbitrary server-local paths into
// the install directory (§6 plugin install is a network operation, not a
// filesystem one).
var allowedGitSchemes = map[string]bool{"https": true, "http": true, "ssh": true, "git": true}

func validateGitURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid git URL: %w", err)
	}
	if u.Scheme == "" || !allowedGitSchemes[strings.ToLower(u.Scheme)] {
		return fmt.Errorf("git URL scheme not allowed: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("git URL must specify a host")
	}
	return nil
}

var repoNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func sanitizeRepoName(gitURL string) string {
	name := filepath.Base(gitURL)
	name = repoNameSanitizer.ReplaceAllString(name, "-")
	if name == "" || name == "." || name == "-" {
		name = "repo"
	}
	return name
}

// Install clones gitURL into the Manager's install directory (shallow,
// depth 1). RestartRequired is only set when the clone turns out to carry
// native code or to replace the node types of an already-active module
// (§6); an ordinary install of new, pure node types is picked up by the
// next index refresh with no restart, same as discover_plugins() being
// re-run inline after a regular install.
// Returns the path the repository was cloned into.
func (m *Manager) Install(ctx context.Context, gitURL string) (string, error) {
	if gitURL == "" {
		return "", fmt.Errorf("plugin: git URL must not be empty")
	}
	if err := validateGitURL(gitURL); err != nil {
		return "", &InstallError{URL: gitURL, Err: err}
	}
	if err := os.MkdirAll(m.installDir, 0o755); err != nil {
		return "", &InstallError{URL: gitURL, Err: fmt.Errorf("create install dir: %w", err)}
	}

	target := filepath.Join(m.installDir, sanitizeRepoName(gitURL))
	if _, err := os.Stat(target); err == nil {
		return "", &InstallError{URL: gitURL, Err: fmt.Errorf("already installed at %s", target)}
	}

	_, err := git.PlainCloneContext(ctx, target, false, &git.CloneOptions{
		URL:   gitURL,
		Depth: 1,
	})
	if err != nil {
		return "", &InstallError{URL: gitURL, Err: err}
	}

	needsRestart := containsNativeCode(target) || m.replacesExistingModule(gitURL)

	m.mu.Lock()
	m.installedRepos[gitURL] = &types.PluginRepository{URL: gitURL}
	if needsRestart {
		m.restartRequired = true
	}
	m.mu.Unlock()

	return target, nil
}

// containsNativeCode reports whether the cloned tree at root carries a
// prebuilt native binary or cgo source — code that can't be picked up by
// a plain index refresh and requires the process to restart before it is
// loaded.
func containsNativeCode(root string) bool {
	nativeBinaryExt := map[string]bool{".so": true, ".dylib": true, ".dll": true}
	found := false
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		switch ext := filepath.Ext(path); {
		case nativeBinaryExt[ext]:
			found = true
		case ext == ".go":
			if data, readErr := os.ReadFile(path); readErr == nil && strings.Contains(string(data), `import "C"`) {
				found = true
			}
		}
		return nil
	})
	return found
}

// replacesExistingModule reports whether gitURL contributes a node type
// (per the cached index) already owned by a different repository this
// Manager has installed or custom-registered — installing it would
// silently replace that top-level module's types rather than only add
// new ones.
func (m *Manager) replacesExistingModule(gitURL string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, nt := range m.index.ByRepo[gitURL] {
		owner, ok := m.index.ByNodeType[nt]
		if !ok || owner == gitURL {
			continue
		}
		if _, installed := m.installedRepos[owner]; installed {
			return true
		}
		if _, custom := m.customRepos[owner]; custom {
			return true
		}
	}
	return false
}

// InstallMissingNodes implements the one-click remediation flow (§6
// install_missing_nodes): for every node type not currently registered, it
// resolves a contributing repository from the cached index and installs it
// (deduplicated — one clone per repository even if it contributes several
// of the requested node types).
func (m *Manager) InstallMissingNodes(ctx context.Context, nodeTypes []string) (installed []string, failed map[string]error) {
	failed = make(map[string]error)
	repoToTypes := make(map[string][]string)
	unresolved := make([]string, 0)

	for _, nt := range nodeTypes {
		url, ok := m.FindByNodeType(nt)
		if !ok {
			unresolved = append(unresolved, nt)
			continue
		}
		repoToTypes[url] = append(repoToTypes[url], nt)
	}
	for _, nt := range unresolved {
		failed[nt] = fmt.Errorf("no plugin repository contributes node type %q", nt)
	}

	for url, contributedTypes := range repoToTypes {
		if _, err := m.Install(ctx, url); err != nil {
			for _, nt := range contributedTypes {
				failed[nt] = err
			}
			continue
		}
		installed = append(installed, contributedTypes...)
	}
	return installed, failed
}
