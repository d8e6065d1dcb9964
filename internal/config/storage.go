package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"infometis/internal/api"
	"infometis/pkg/logging"
)

const stacksDirName = "stacks"

// StackStorage keeps named stack definitions as YAML files in the stacks/
// subdirectory of the configuration directory, so they can be edited by hand
// and deployed with `infometis deploy --stack <name>`.
type StackStorage struct {
	mu         sync.RWMutex
	configPath string // Optional custom config path; defaults to ~/.config/infometis
}

// NewStackStorageWithPath creates a StackStorage rooted at configPath. An
// empty path means the default configuration directory.
func NewStackStorageWithPath(configPath string) *StackStorage {
	return &StackStorage{configPath: configPath}
}

// Save writes spec to stacks/<name>.yaml, replacing any previous definition.
func (s *StackStorage) Save(spec api.StackSpec) error {
	if err := ValidateEntityName(spec.Name, "stack"); err != nil {
		return err
	}
	data, err := yaml.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to encode stack %s: %w", spec.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.stacksDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	filePath := filepath.Join(dir, sanitizeFilename(spec.Name)+".yaml")
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}

	logging.Info("Storage", "Saved stack %s to %s", spec.Name, filePath)
	return nil
}

// Load reads the stack definition with the given name. Both .yaml and .yml
// are accepted.
func (s *StackStorage) Load(name string) (api.StackSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	base := filepath.Join(s.stacksDir(), sanitizeFilename(name))
	for _, ext := range []string{".yaml", ".yml"} {
		path := base + ext
		if _, err := os.Stat(path); err == nil {
			return LoadStackSpec(path)
		}
	}
	return api.StackSpec{}, fmt.Errorf("stack definition %q not found in %s", name, s.stacksDir())
}

// Delete removes the stack definition. Deleting a missing definition is not
// an error.
func (s *StackStorage) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := filepath.Join(s.stacksDir(), sanitizeFilename(name))
	for _, ext := range []string{".yaml", ".yml"} {
		if err := os.Remove(base + ext); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete stack %s: %w", name, err)
		}
	}
	logging.Info("Storage", "Deleted stack %s", name)
	return nil
}

// List returns the names of all stored stack definitions, sorted.
func (s *StackStorage) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := s.stacksDir()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	var names []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		files, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to glob %s files: %w", pattern, err)
		}
		for _, f := range files {
			basename := filepath.Base(f)
			names = append(names, strings.TrimSuffix(basename, filepath.Ext(basename)))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *StackStorage) stacksDir() string {
	configPath := s.configPath
	if configPath == "" {
		configPath = GetDefaultConfigPathOrPanic()
	}
	return filepath.Join(configPath, stacksDirName)
}

// sanitizeFilename ensures the filename is safe for filesystem operations
func sanitizeFilename(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '.', ' ':
			return '_'
		}
		return r
	}, name)

	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		return "unnamed"
	}
	return sanitized
}
