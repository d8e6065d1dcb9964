package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"infometis/pkg/logging"
)

const (
	userConfigDir  = ".config/infometis"
	configFileName = "config.yaml"
)

// Environment variables overriding config.yaml.
const (
	EnvConfigDir    = "INFOMETIS_CONFIG_DIR"
	EnvKubeconfig   = "INFOMETIS_KUBECONFIG"
	EnvCacheDir     = "INFOMETIS_CACHE_DIR"
	EnvStoreDriver  = "INFOMETIS_STORE_DRIVER"
	EnvStorePath    = "INFOMETIS_STORE_PATH"
	EnvServerPort   = "INFOMETIS_SERVER_PORT"
	EnvClusterImage = "INFOMETIS_CLUSTER_IMAGE"
)

// osUserHomeDir is replaced in tests.
var osUserHomeDir = os.UserHomeDir

// GetDefaultConfigPathOrPanic returns ~/.config/infometis, or the directory
// named by INFOMETIS_CONFIG_DIR.
func GetDefaultConfigPathOrPanic() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	homeDir, err := osUserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error. Variables already set win.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadConfig loads configuration from a single specified directory.
// The directory should contain config.yaml; a missing file means defaults.
// Environment overrides are applied last and relative paths are resolved
// against the directory.
func LoadConfig(configPath string) (InfometisConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return InfometisConfig{}, &ConfigurationError{FilePath: configFilePath, ErrorType: ErrorTypeIO, Message: err.Error()}
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return InfometisConfig{}, newParseError(configFilePath, err)
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	applyEnvOverrides(&config)
	config.resolvePaths(configPath)

	if errs := config.Validate(); errs.HasErrors() {
		return InfometisConfig{}, &ConfigurationError{
			FilePath:  configFilePath,
			ErrorType: ErrorTypeValidation,
			Message:   errs.Error(),
		}
	}
	return config, nil
}

func applyEnvOverrides(cfg *InfometisConfig) {
	if v := os.Getenv(EnvKubeconfig); v != "" {
		cfg.Cluster.Kubeconfig = v
	}
	if v := os.Getenv(EnvClusterImage); v != "" {
		cfg.Cluster.Image = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv(EnvStoreDriver); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv(EnvStorePath); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

// resolvePaths fills empty paths with locations inside configPath and makes
// relative ones absolute.
func (c *InfometisConfig) resolvePaths(configPath string) {
	resolve := func(p, def string) string {
		if p == "" {
			p = def
		}
		p = expandHome(p)
		if !filepath.IsAbs(p) {
			p = filepath.Join(configPath, p)
		}
		return p
	}
	c.Cluster.Kubeconfig = resolve(c.Cluster.Kubeconfig, "kubeconfig")
	c.Cache.Dir = resolve(c.Cache.Dir, "cache")
	c.Store.Path = resolve(c.Store.Path, "stacks.db")
	c.Deploy.ImagesDir = resolve(c.Deploy.ImagesDir, "images")
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := osUserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// ComponentConfig returns the configured overrides for a component.
func (c InfometisConfig) ComponentConfig(name string) map[string]any {
	return c.Components[name]
}

