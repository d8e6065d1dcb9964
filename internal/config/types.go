package config

import "time"

// InfometisConfig is the top-level configuration structure for infometis.
type InfometisConfig struct {
	Cluster ClusterConfig `yaml:"cluster"`
	Cache   CacheConfig   `yaml:"cache"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Deploy  DeployConfig  `yaml:"deploy"`
	// Components holds per-component config merged under stack and CLI
	// config, keyed by component name.
	Components map[string]map[string]any `yaml:"components,omitempty"`
}

// Container runtimes supported for the cluster container.
const (
	RuntimeDocker = "docker"
	RuntimePodman = "podman"
)

// ClusterConfig defines the local k0s cluster.
type ClusterConfig struct {
	// Name identifies the cluster. Deployments to the same cluster never
	// run concurrently.
	Name          string `yaml:"name"`
	Image         string `yaml:"image"`
	ContainerName string `yaml:"containerName"`
	// Kubeconfig is written by deploy-cluster (default: <configDir>/kubeconfig).
	Kubeconfig string `yaml:"kubeconfig,omitempty"`
	APIPort    int    `yaml:"apiPort"`
	// Namespace receives the platform components.
	Namespace string `yaml:"namespace"`
	// Ports are extra host:container ports published by the cluster
	// container.
	Ports        []string      `yaml:"ports,omitempty"`
	Runtime      string        `yaml:"runtime"` // docker or podman
	ReadyTimeout time.Duration `yaml:"readyTimeout,omitempty"`
}

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// CacheConfig defines the local image cache.
type CacheConfig struct {
	Dir             string        `yaml:"dir,omitempty"` // Default: <configDir>/cache
	FetchTimeout    time.Duration `yaml:"fetchTimeout,omitempty"`
	TransferTimeout time.Duration `yaml:"transferTimeout,omitempty"`
}

// StoreConfig selects where stack deployments are kept.
type StoreConfig struct {
	Driver string `yaml:"driver"`         // sqlite (default) or memory
	Path   string `yaml:"path,omitempty"` // SQLite file (default: <configDir>/stacks.db)
}

// ServerConfig defines the HTTP server.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"corsOrigins,omitempty"`
}

// DeployConfig tunes component deployments.
type DeployConfig struct {
	PollInterval time.Duration `yaml:"pollInterval,omitempty"`
	// ReadinessTimeouts override the per-component defaults.
	ReadinessTimeouts map[string]time.Duration `yaml:"readinessTimeouts,omitempty"`
	// ImagesDir holds the component image files (default: <configDir>/images).
	ImagesDir string `yaml:"imagesDir,omitempty"`
}
