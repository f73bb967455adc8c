// Package storage persists workflow graph definitions and the small JSON
// side-documents the plugin manager and registry mirror to disk
// (repositories.json, the node-metadata catalog). There is no database
// driver here: every on-disk artifact is a plain JSON file, written
// atomically, matching the teacher's own in-memory-first, no-DB storage
// style.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Workflow is a stored graph definition with metadata. Definition holds the
// raw bytes exactly as submitted (JSON or YAML, per graph.Parse's Format),
// so loading a workflow back never round-trips through the in-memory Graph
// representation.
type Workflow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Format      string          `json:"format"` // "json" or "yaml", mirrors graph.Format
	Definition  json.RawMessage `json:"definition"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// WorkflowSummary is a lightweight listing entry, omitting the definition body.
type WorkflowSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store is the workflow persistence surface used by the Submission API
// (§6) to save, retrieve and list workflow definitions across requests.
type Store interface {
	Save(name, description, format string, definition json.RawMessage) (string, error)
	Update(id, name, description string, definition json.RawMessage) error
	Load(id string) (*Workflow, error)
	Delete(id string) error
	List() []WorkflowSummary
	Exists(id string) bool
}

// InMemoryStore implements Store without touching disk.
type InMemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]*Workflow
}

// NewInMemoryStore creates an empty in-memory workflow store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{workflows: make(map[string]*Workflow)}
}

func validateDefinition(name string, definition json.RawMessage) error {
	if name == "" {
		return fmt.Errorf("storage: workflow name is required")
	}
	if len(definition) == 0 {
		return fmt.Errorf("storage: workflow definition is required")
	}
	return nil
}

// Save creates a new workflow and returns its generated ID.
func (s *InMemoryStore) Save(name, description, format string, definition json.RawMessage) (string, error) {
	if err := validateDefinition(name, definition); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	wf := &Workflow{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Format:      format,
		Definition:  append(json.RawMessage(nil), definition...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.workflows[wf.ID] = wf
	return wf.ID, nil
}

// Update replaces an existing workflow's name, description and definition.
func (s *InMemoryStore) Update(id, name, description string, definition json.RawMessage) error {
	if err := validateDefinition(name, definition); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok := s.workflows[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	wf.Name = name
	wf.Description = description
	wf.Definition = append(json.RawMessage(nil), definition...)
	wf.UpdatedAt = time.Now()
	return nil
}

// Load returns a copy of the stored workflow.
func (s *InMemoryStore) Load(id string) (*Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wf, ok := s.workflows[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	cp := *wf
	cp.Definition = append(json.RawMessage(nil), wf.Definition...)
	return &cp, nil
}

// Delete removes a workflow by ID.
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workflows[id]; !ok {
		return &NotFoundError{ID: id}
	}
	delete(s.workflows, id)
	return nil
}

// List returns summaries of every stored workflow.
func (s *InMemoryStore) List() []WorkflowSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]WorkflowSummary, 0, len(s.workflows))
	for _, wf := range s.workflows {
		out = append(out, WorkflowSummary{
			ID:          wf.ID,
			Name:        wf.Name,
			Description: wf.Description,
			CreatedAt:   wf.CreatedAt,
			UpdatedAt:   wf.UpdatedAt,
		})
	}
	return out
}

// Exists reports whether a workflow with the given ID is stored.
func (s *InMemoryStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.workflows[id]
	return ok
}

// SaveJSON atomically writes v to path as JSON: it writes to a temp file in
// the same directory first, then renames over the destination, so a reader
// never observes a partially written repositories.json or catalog mirror.
func SaveJSON(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: rename into %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads and decodes a JSON document previously written by SaveJSON.
// Returns the raw os.ReadFile error on a missing file so callers can
// os.IsNotExist-check it; a missing repositories.json or catalog mirror on
// first run is a normal, empty state, not a failure.
func LoadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("storage: decode %s: %w", path, err)
	}
	return nil
}
