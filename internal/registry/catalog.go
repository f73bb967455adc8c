package registry

import "github.com/flowkit/engine/internal/storage"

// SaveCatalog mirrors the full node-type catalog to path as JSON: every
// registered descriptor's metadata (name, category, ports), but never the
// executor behind it. Intended for external tooling (a node-picker UI, a
// docs generator) that wants the catalog without linking against the
// engine's executor implementations.
func (r *Registry) SaveCatalog(path string) error {
	return storage.SaveJSON(path, r.List())
}
