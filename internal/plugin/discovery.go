package plugin

import (
	"context"
	"os"

	"github.com/fsnotify/fsnotify"
)

// DiscoveryEvent reports a filesystem change under the install directory —
// typically a newly cloned plugin repository appearing, or one being
// removed by hand.
type DiscoveryEvent struct {
	Path string
	Op   string
}

// WatchInstallDir watches the Manager's install directory for filesystem
// changes and delivers them to onEvent until ctx is canceled. It starts the
// watcher synchronously (returning any setup error) and runs the dispatch
// loop in a background goroutine.
func (m *Manager) WatchInstallDir(ctx context.Context, onEvent func(DiscoveryEvent)) error {
	if err := os.MkdirAll(m.installDir, 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(m.installDir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if onEvent != nil {
					onEvent(DiscoveryEvent{Path: ev.Name, Op: ev.Op.String()})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.logger.WithError(err).Warn("plugin discovery: watch error")
			}
		}
	}()
	return nil
}
