package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/controller-runtime/pkg/client"

	"infometis/internal/api"
	"infometis/internal/cluster"
	"infometis/internal/config"
	"infometis/internal/containerizer"
	"infometis/internal/deployer"
	"infometis/internal/executor"
	"infometis/internal/imagecache"
	"infometis/internal/manifest"
	"infometis/internal/orchestrator"
	"infometis/internal/registry"
	"infometis/internal/store"
	"infometis/internal/store/sqlite"
	"infometis/pkg/logging"
)

// Options replace collaborators, mainly in tests.
type Options struct {
	// Runner executes docker commands. Defaults to local processes.
	Runner executor.Runner
	// Fetcher retrieves images from registries.
	Fetcher imagecache.Fetcher
	// KubeClient replaces the kubeconfig-based cluster client.
	KubeClient client.Client
}

// Services holds every long-lived collaborator of the application.
//
// They are built in dependency order: executor, container runtime, image
// cache, cluster client, manifest renderer, component registry (with the
// catalog), stack store and finally the orchestrator.
type Services struct {
	Config       config.InfometisConfig
	Orchestrator *orchestrator.Orchestrator
	Registry     *registry.Registry
	Cache        *imagecache.Cache
	Cluster      *cluster.Client
	Runtime      containerizer.ContainerRuntime
	Store        store.StackStore
	// Stacks holds the named stack definitions of the config directory.
	Stacks *config.StackStorage
	// Images is every image the catalog needs, overrides applied.
	Images []string
}

// InitializeServices wires the collaborators for cfg. configDir is where
// stack definitions are kept.
func InitializeServices(ctx context.Context, cfg config.InfometisConfig, configDir string, opts Options) (*Services, error) {
	runner := opts.Runner
	if runner == nil {
		runner = executor.New()
	}
	runtime, err := containerizer.NewContainerRuntime(cfg.Cluster.Runtime, runner)
	if err != nil {
		return nil, err
	}

	var cacheOpts []imagecache.Option
	if opts.Fetcher != nil {
		cacheOpts = append(cacheOpts, imagecache.WithFetcher(opts.Fetcher))
	}
	cache := imagecache.New(imagecache.Config{
		Dir:              cfg.Cache.Dir,
		ClusterContainer: cfg.Cluster.ContainerName,
		FetchTimeout:     cfg.Cache.FetchTimeout,
		TransferTimeout:  cfg.Cache.TransferTimeout,
	}, runtime, cacheOpts...)

	kube := cluster.New(cfg.Cluster.Kubeconfig)
	if opts.KubeClient != nil {
		kube = cluster.NewWithClient(opts.KubeClient)
	}

	renderer, err := manifest.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load manifests: %w", err)
	}

	overrides, err := loadImageOverrides(cfg.Deploy.ImagesDir)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	catalog := componentDefaults{reg: reg, cfg: cfg}
	deps := deployer.Dependencies{
		Cluster:  kube,
		Images:   cache,
		Archive:  cache,
		Renderer: renderer,
		Runtime:  runtime,
		ClusterConfig: deployer.ClusterConfig{
			ContainerName: cfg.Cluster.ContainerName,
			Image:         cfg.Cluster.Image,
			Hostname:      cfg.Cluster.Name,
			Ports:         cfg.Cluster.Ports,
			APIPort:       cfg.Cluster.APIPort,
			Kubeconfig:    cfg.Cluster.Kubeconfig,
			ReadyTimeout:  cfg.Cluster.ReadyTimeout,
			PollInterval:  cfg.Deploy.PollInterval,
		},
		OnKubeconfig:      kube.Reset,
		ImageOverrides:    overrides,
		ReadinessTimeouts: cfg.Deploy.ReadinessTimeouts,
		PollInterval:      cfg.Deploy.PollInterval,
	}
	if err := deployer.RegisterCatalog(catalog, deps); err != nil {
		return nil, fmt.Errorf("failed to register components: %w", err)
	}

	stackStore, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(ctx, orchestrator.Config{
		Registry:  reg,
		Store:     stackStore,
		Cluster:   cfg.Cluster.Name,
		Routes:    kube,
		Renderer:  renderer,
		Namespace: cfg.Cluster.Namespace,
	})
	if err != nil {
		_ = stackStore.Close()
		return nil, err
	}

	return &Services{
		Config:       cfg,
		Orchestrator: orch,
		Registry:     reg,
		Cache:        cache,
		Cluster:      kube,
		Runtime:      runtime,
		Store:        stackStore,
		Stacks:       config.NewStackStorageWithPath(configDir),
		Images:       deployer.AllImages(cfg.Cluster.Image, overrides),
	}, nil
}

// componentDefaults registers factories whose config starts from the
// components section of config.yaml. Stack and CLI config override it.
type componentDefaults struct {
	reg *registry.Registry
	cfg config.InfometisConfig
}

func (c componentDefaults) Register(name string, factory api.DeployerFactory) error {
	defaults := c.cfg.ComponentConfig(name)
	if len(defaults) == 0 {
		return c.reg.Register(name, factory)
	}
	return c.reg.Register(name, func(env api.Environment, cfg map[string]any) (api.Deployer, error) {
		return factory(env, api.MergeConfig(defaults, cfg))
	})
}

// Close releases the stack store.
func (s *Services) Close() error {
	return s.Store.Close()
}

func openStore(cfg config.StoreConfig) (store.StackStore, error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		logging.Info("Bootstrap", "Using SQLite stack store at %s", cfg.Path)
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", cfg.Path, err)
		}
		s, err := sqlite.NewStackStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open stack store %s: %w", cfg.Path, err)
		}
		return s, nil
	case config.StoreMemory, "":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// loadImageOverrides maps the component image files onto catalog image keys.
func loadImageOverrides(dir string) (map[string]map[string]string, error) {
	files, err := config.LoadComponentImages(dir)
	if err != nil {
		return nil, err
	}
	overrides := map[string]map[string]string{}
	for _, f := range files {
		matched := deployer.MatchImageOverrides(f.Name, f.Images)
		if len(matched) == 0 {
			continue
		}
		overrides[f.Name] = matched
		logging.Debug("Bootstrap", "Image overrides for %s from %s: %v", f.Name, filepath.Join(dir, f.Name+".json"), matched)
	}
	return overrides, nil
}
