package app

import (
	"context"
	"io"
	"path/filepath"

	"infometis/internal/console"
	"infometis/internal/deployer"
	"infometis/internal/server"
	"infometis/pkg/logging"
)

// DefaultStackName names the full platform stack.
const DefaultStackName = "infometis"

// Platform and Data section members of the console, in deployment order.
var (
	platformComponents = []string{"traefik", "nifi", "registry"}
	dataComponents     = []string{"kafka", "elasticsearch", "prometheus", "grafana", "flink", "ksqldb"}
)

// NewServer builds the HTTP server over the services.
func (a *Application) NewServer() (*server.Server, error) {
	s := a.Services
	return server.New(server.Config{
		Host:        s.Config.Server.Host,
		Port:        s.Config.Server.Port,
		Platform:    s.Orchestrator,
		Images:      s.Cache,
		CacheImages: s.Images,
		Stacks:      s.Stacks,
		CORSOrigins: s.Config.Server.CORSOrigins,
	})
}

// RunServer serves the HTTP API until ctx is cancelled.
func (a *Application) RunServer(ctx context.Context) error {
	srv, err := a.NewServer()
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// NewConsole builds the interactive console. A nil reader opens a readline
// terminal with history in the config directory.
func (a *Application) NewConsole(reader console.LineReader, out io.Writer, color bool) (*console.Console, error) {
	if reader == nil {
		rl, err := console.NewReadline(filepath.Join(a.ConfigDir, ".console_history"))
		if err != nil {
			return nil, err
		}
		reader = rl
	}

	stack, err := deployer.DefaultStack(DefaultStackName)
	if err != nil {
		return nil, err
	}
	sections := console.DefaultSections(a.Services.Orchestrator, a.Services.Cache, console.SectionsConfig{
		ClusterComponent: deployer.ClusterComponent,
		Images:           a.Services.Images,
		Platform:         platformComponents,
		Data:             dataComponents,
		Stack:            stack,
	})
	return console.New(reader, out, sections, console.WithColor(color)), nil
}

// RunConsole runs the interactive console on the terminal.
func (a *Application) RunConsole(ctx context.Context, out io.Writer, color bool) error {
	c, err := a.NewConsole(nil, out, color)
	if err != nil {
		return err
	}
	logging.Debug("Console", "Starting console")
	return c.Run(ctx)
}
