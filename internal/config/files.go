package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"infometis/internal/api"
)

// LoadStackSpec reads a stack definition from a YAML or JSON file. A missing
// name is taken from the file name.
func LoadStackSpec(path string) (api.StackSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.StackSpec{}, &ConfigurationError{FilePath: path, ErrorType: ErrorTypeIO, Message: err.Error()}
	}

	var spec api.StackSpec
	// JSON is a subset of YAML, so one decoder covers both.
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return api.StackSpec{}, newParseError(path, err)
	}
	if spec.Name == "" {
		base := filepath.Base(path)
		spec.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if len(spec.Components) == 0 {
		return api.StackSpec{}, &ConfigurationError{
			FilePath:  path,
			ErrorType: ErrorTypeValidation,
			Message:   "stack has no components",
		}
	}
	for i, c := range spec.Components {
		if strings.TrimSpace(c.Name) == "" {
			return api.StackSpec{}, &ConfigurationError{
				FilePath:  path,
				ErrorType: ErrorTypeValidation,
				Message:   fmt.Sprintf("components[%d]: name is required", i),
			}
		}
	}
	return spec, nil
}

// LoadEnvironmentConfig reads the configuration passed to `deploy --config`.
// Files ending in .json, .yaml or .yml are decoded as a map; anything else is
// read as KEY=VALUE lines.
func LoadEnvironmentConfig(path string) (map[string]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigurationError{FilePath: path, ErrorType: ErrorTypeIO, Message: err.Error()}
		}
		cfg := map[string]any{}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, newParseError(path, err)
		}
		return cfg, nil
	default:
		values, err := godotenv.Read(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &ConfigurationError{FilePath: path, ErrorType: ErrorTypeIO, Message: err.Error()}
			}
			return nil, &ConfigurationError{FilePath: path, ErrorType: ErrorTypeParse, Message: err.Error()}
		}
		cfg := make(map[string]any, len(values))
		for k, v := range values {
			cfg[k] = v
		}
		return cfg, nil
	}
}

// ComponentImages lists the images one component needs.
type ComponentImages struct {
	Name    string   `json:"name"`
	Version string   `json:"version,omitempty"`
	Images  []string `json:"images"`
}

// LoadComponentImages reads every *.json file in dir. A missing directory
// yields no entries. Results are sorted by component name.
func LoadComponentImages(dir string) ([]ComponentImages, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob %s: %w", dir, err)
	}

	var out []ComponentImages
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, &ConfigurationError{FilePath: f, ErrorType: ErrorTypeIO, Message: err.Error()}
		}
		var ci ComponentImages
		if err := json.Unmarshal(data, &ci); err != nil {
			return nil, &ConfigurationError{FilePath: f, ErrorType: ErrorTypeParse, Message: err.Error()}
		}
		if ci.Name == "" {
			base := filepath.Base(f)
			ci.Name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		out = append(out, ci)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
