// Package file provides filesystem adapters: a scenario store reading
// scenario documents from a directory and a schema source mapping schema
// URLs to local files.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/flowdhq/flowd/pkg/domain"
)

// scenarioExtensions lists the file extensions probed when loading a
// scenario by id, in order of preference.
var scenarioExtensions = []string{".yaml", ".yml", ".json"}

// ScenarioStore implements ports.ScenarioStore over a directory of
// scenario documents. A scenario with id "hiring" lives in hiring.yaml,
// hiring.yml or hiring.json. Parsed scenarios are cached; scenarios are
// immutable once published, so the cache is never invalidated.
type ScenarioStore struct {
	basePath string

	mu    sync.RWMutex
	cache map[string]*domain.Scenario
}

// NewScenarioStore creates a store rooted at basePath.
// If basePath is empty, it defaults to "scenarios".
func NewScenarioStore(basePath string) *ScenarioStore {
	if basePath == "" {
		basePath = "scenarios"
	}
	return &ScenarioStore{
		basePath: basePath,
		cache:    make(map[string]*domain.Scenario),
	}
}

// Load retrieves a scenario by id, reading it from disk on first use.
func (s *ScenarioStore) Load(ctx context.Context, id string) (*domain.Scenario, error) {
	s.mu.RLock()
	scenario, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return scenario, nil
	}

	path, err := s.resolve(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", id, err)
	}

	scenario = &domain.Scenario{}
	// yaml.Unmarshal accepts JSON documents too, so a single decode path
	// covers every supported extension.
	if err := yaml.Unmarshal(data, scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", id, err)
	}
	if scenario.ID == "" {
		scenario.ID = id
	}
	if scenario.ID != id {
		return nil, fmt.Errorf("scenario file %s declares id %q", filepath.Base(path), scenario.ID)
	}

	s.mu.Lock()
	s.cache[id] = scenario
	s.mu.Unlock()
	return scenario, nil
}

// List returns the ids of every scenario document in the directory.
func (s *ScenarioStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list scenarios: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		for _, known := range scenarioExtensions {
			if ext == known {
				ids = append(ids, entry.Name()[:len(entry.Name())-len(ext)])
				break
			}
		}
	}
	return ids, nil
}

func (s *ScenarioStore) resolve(id string) (string, error) {
	if id == "" || id != filepath.Base(id) {
		return "", fmt.Errorf("%w: invalid id %q", domain.ErrScenarioNotFound, id)
	}
	for _, ext := range scenarioExtensions {
		path := filepath.Join(s.basePath, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrScenarioNotFound, id)
}
