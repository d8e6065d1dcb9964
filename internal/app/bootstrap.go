package app

import (
	"context"
	"fmt"

	"infometis/internal/config"
	"infometis/pkg/logging"
)

// Application bootstraps and runs infometis.
//
// Initialization has two phases:
//  1. Bootstrap: initialize logging, load configuration, wire services
//  2. Execution: a CLI command, the console or the HTTP server uses the
//     services
//
// Example usage:
//
//	application, err := app.NewApplication(ctx, app.NewConfig("", logging.LevelInfo, os.Stderr), app.Options{})
//	if err != nil {
//	    return err
//	}
//	defer application.Close()
//	stack, err := application.Services.Orchestrator.DeployStack(ctx, spec)
type Application struct {
	config    *Config
	ConfigDir string
	Services  *Services
}

// NewApplication creates and initializes a new application instance.
//
// The bootstrap sequence is:
//  1. Configure logging (console or JSON)
//  2. Load .env from the working directory
//  3. Load config.yaml from the config directory
//  4. Initialize services
func NewApplication(ctx context.Context, cfg *Config, opts Options) (*Application, error) {
	if cfg.Server {
		logging.InitForServer(cfg.LogLevel, cfg.LogOutput)
	} else {
		logging.InitForCLI(cfg.LogLevel, cfg.LogOutput)
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		logging.Warn("Bootstrap", "Ignoring .env: %v", err)
	}

	configDir := cfg.ConfigDir
	if configDir == "" {
		configDir = config.GetDefaultConfigPathOrPanic()
	}

	infometisCfg, err := config.LoadConfig(configDir)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration from %s", configDir)
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configDir, err)
	}

	services, err := InitializeServices(ctx, infometisCfg, configDir, opts)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	logging.Debug("Bootstrap", "Initialized %d components for cluster %s", len(services.Registry.List()), infometisCfg.Cluster.Name)

	return &Application{
		config:    cfg,
		ConfigDir: configDir,
		Services:  services,
	}, nil
}

// Close releases the application's resources.
func (a *Application) Close() error {
	logging.Sync()
	return a.Services.Close()
}
