package config

import "time"

const (
	// DefaultClusterImage is the k0s release the cluster runs.
	DefaultClusterImage = "k0sproject/k0s:v1.30.0-k0s.0"

	// DefaultTransferTimeout bounds image fetches and transfers.
	DefaultTransferTimeout = 30 * time.Minute
)

// GetDefaultConfig returns the default configuration. Paths left empty are
// resolved against the configuration directory by LoadConfig.
func GetDefaultConfig() InfometisConfig {
	return InfometisConfig{
		Cluster: ClusterConfig{
			Name:          "infometis",
			Image:         DefaultClusterImage,
			ContainerName: "infometis",
			APIPort:       6443,
			Namespace:     "infometis",
			Ports:         []string{"80:80", "443:443", "8082:8080"},
			Runtime:       RuntimeDocker,
			ReadyTimeout:  5 * time.Minute,
		},
		Cache: CacheConfig{
			FetchTimeout:    DefaultTransferTimeout,
			TransferTimeout: DefaultTransferTimeout,
		},
		Store: StoreConfig{
			Driver: StoreSQLite,
			Path:   "stacks.db",
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Deploy: DeployConfig{
			PollInterval: 5 * time.Second,
		},
	}
}
