// Package config provides configuration management for infometis.
//
// Configuration is loaded from a single directory, ~/.config/infometis by
// default. The directory can be changed with the --config-dir flag or the
// INFOMETIS_CONFIG_DIR environment variable.
//
// # Configuration Directory
//
//	~/.config/infometis/
//	├── config.yaml     main configuration (optional)
//	├── kubeconfig      written by deploy-cluster
//	├── cache/          cached image tarballs
//	├── images/         per-component image lists (*.json)
//	├── stacks/         named stack definitions (*.yaml)
//	└── stacks.db       deployment records (store.driver sqlite, the default)
//
// A missing config.yaml means defaults from GetDefaultConfig. Empty paths are
// resolved inside the configuration directory, relative paths against it.
//
// # Example config.yaml
//
//	cluster:
//	  name: infometis
//	  image: k0sproject/k0s:v1.30.0-k0s.0
//	  apiPort: 6443
//	  namespace: infometis
//	store:
//	  driver: sqlite
//	server:
//	  port: 8080
//	deploy:
//	  pollInterval: 5s
//	  readinessTimeouts:
//	    elasticsearch: 5m
//	components:
//	  nifi:
//	    replicas: 1
//
// # Environment Overrides
//
// INFOMETIS_KUBECONFIG, INFOMETIS_CLUSTER_IMAGE, INFOMETIS_CACHE_DIR,
// INFOMETIS_STORE_DRIVER, INFOMETIS_STORE_PATH and INFOMETIS_SERVER_PORT take
// precedence over config.yaml. LoadDotEnv loads a .env file into the
// environment before the configuration is read.
//
// # Other Files
//
// LoadStackSpec reads a stack definition (YAML or JSON). LoadEnvironmentConfig
// reads the per-deployment configuration passed to `deploy --config`, either
// KEY=VALUE lines or a JSON/YAML map. LoadComponentImages reads the image
// lists used to pre-cache images and override catalog defaults. StackStorage
// keeps named stack definitions in the stacks/ directory.
package config
