package plugin_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/plugin"
)

func TestSaveAndLoadRepositories_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "repositories.json")

	m := plugin.NewManager(config.Default(), nil, "", nil, t.TempDir())
	if err := m.AddCustomRepository("https://example.com/mine"); err != nil {
		t.Fatalf("AddCustomRepository: %v", err)
	}
	m.SetDisabled("https://example.com/mine", true)

	if err := m.SaveRepositories(path); err != nil {
		t.Fatalf("SaveRepositories: %v", err)
	}

	reloaded := plugin.NewManager(config.Default(), nil, "", nil, t.TempDir())
	if err := reloaded.LoadRepositories(path); err != nil {
		t.Fatalf("LoadRepositories: %v", err)
	}

	repos := reloaded.ListRepositories()
	if len(repos) != 1 || repos[0].URL != "https://example.com/mine" || !repos[0].Disabled {
		t.Fatalf("expected reloaded disabled custom repo, got %v", repos)
	}
}

func TestSaveRepositories_WireShapeIsBareURLArrays(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "repositories.json")

	m := plugin.NewManager(config.Default(), nil, "", nil, t.TempDir())
	if err := m.AddCustomRepository("https://example.com/mine"); err != nil {
		t.Fatalf("AddCustomRepository: %v", err)
	}
	m.SetDisabled("https://example.com/other", true)

	if err := m.SaveRepositories(path); err != nil {
		t.Fatalf("SaveRepositories: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read repositories.json: %v", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal repositories.json: %v", err)
	}
	if _, ok := doc["installed"]; ok {
		t.Fatalf("expected no \"installed\" key, got %v", doc)
	}
	custom, ok := doc["custom"].([]interface{})
	if !ok || len(custom) != 1 || custom[0] != "https://example.com/mine" {
		t.Fatalf("expected custom to be a bare URL array, got %v", doc["custom"])
	}
	disabled, ok := doc["disabled"].([]interface{})
	if !ok || len(disabled) != 1 || disabled[0] != "https://example.com/other" {
		t.Fatalf("expected disabled to be a bare URL array, got %v", doc["disabled"])
	}
}

func TestLoadRepositories_MissingFileIsNotAnError(t *testing.T) {
	m := plugin.NewManager(config.Default(), nil, "", nil, t.TempDir())
	if err := m.LoadRepositories(filepath.Join(t.TempDir(), "absent.json")); err != nil {
		t.Fatalf("expected missing repositories.json to be tolerated, got %v", err)
	}
}
