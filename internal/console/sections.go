package console

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"infometis/internal/api"
)

// Platform is the orchestrator surface the console drives.
type Platform interface {
	DeployComponent(ctx context.Context, spec api.ComponentSpec) (*api.ComponentDeployment, error)
	ComponentStatus(ctx context.Context, name string, env api.Environment, cfg map[string]any) (*api.StatusReport, error)
	DeployStack(ctx context.Context, spec api.StackSpec) (*api.StackDeployment, error)
	FindStack(ctx context.Context, idOrName string) (*api.StackDeployment, error)
	GetStackStatus(ctx context.Context, id string) (*api.StackStatus, error)
	CleanupStack(ctx context.Context, id string) error
}

// ImageCache caches images and loads them into the cluster.
type ImageCache interface {
	CacheAll(ctx context.Context, images []string) error
	TransferAll(ctx context.Context) error
}

// SectionsConfig feeds DefaultSections.
type SectionsConfig struct {
	ClusterComponent string
	// Images are cached by the first cluster step.
	Images []string
	// Platform and Data list the components deployed by those sections.
	Platform []string
	Data     []string
	// Stack is deployed by the Stack section.
	Stack api.StackSpec
}

// DefaultSections builds the Cluster, Platform, Data and Stack sections.
func DefaultSections(p Platform, images ImageCache, cfg SectionsConfig) []Section {
	cluster := Section{
		Name:        "Cluster",
		Description: "k0s cluster and image cache",
		Steps: []Step{
			{Title: "Cache container images", Run: func(ctx context.Context) (string, error) {
				if err := images.CacheAll(ctx, cfg.Images); err != nil {
					return "", err
				}
				return fmt.Sprintf("%d images cached", len(cfg.Images)), nil
			}},
			deployStep(p, api.ComponentSpec{Name: cfg.ClusterComponent, Environment: api.EnvironmentStandalone}),
			{Title: "Load cached images into the cluster", Run: func(ctx context.Context) (string, error) {
				return "", images.TransferAll(ctx)
			}},
			statusStep(p, "Verify cluster", cfg.ClusterComponent),
		},
	}

	platform := Section{Name: "Platform", Description: "ingress and NiFi"}
	for _, name := range cfg.Platform {
		platform.Steps = append(platform.Steps, deployStep(p, api.ComponentSpec{Name: name}))
	}
	platform.Steps = append(platform.Steps, statusStep(p, "Check platform status", cfg.Platform...))

	data := Section{Name: "Data", Description: "streaming, search and monitoring"}
	for _, name := range cfg.Data {
		data.Steps = append(data.Steps, deployStep(p, api.ComponentSpec{Name: name}))
	}
	data.Steps = append(data.Steps, statusStep(p, "Check data services status", cfg.Data...))

	stack := Section{
		Name:        "Stack",
		Description: fmt.Sprintf("deploy the %s stack in one go", cfg.Stack.Name),
		Steps: []Step{
			{Title: fmt.Sprintf("Deploy stack %s", cfg.Stack.Name), Run: func(ctx context.Context) (string, error) {
				deployed, err := p.DeployStack(ctx, cfg.Stack)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("stack %s is %s", deployed.ID, deployed.Status), nil
			}},
			{Title: "Show stack status", Run: func(ctx context.Context) (string, error) {
				deployed, err := p.FindStack(ctx, cfg.Stack.Name)
				if err != nil {
					return "", err
				}
				status, err := p.GetStackStatus(ctx, deployed.ID)
				if err != nil {
					return "", err
				}
				lines := []string{fmt.Sprintf("stack %s: %s", status.Name, status.Status)}
				for _, r := range status.Components {
					lines = append(lines, fmt.Sprintf("%-14s %s", r.Component, r.Health))
				}
				return strings.Join(lines, "\n"), nil
			}},
			{Title: "Remove stack", Run: func(ctx context.Context) (string, error) {
				deployed, err := p.FindStack(ctx, cfg.Stack.Name)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("stack %s removed", deployed.ID), p.CleanupStack(ctx, deployed.ID)
			}},
		},
	}

	return []Section{cluster, platform, data, stack}
}

func deployStep(p Platform, spec api.ComponentSpec) Step {
	return Step{
		Title: fmt.Sprintf("Deploy %s", spec.Name),
		Run: func(ctx context.Context) (string, error) {
			record, err := p.DeployComponent(ctx, spec)
			if err != nil {
				return "", err
			}
			return describeResult(record.Result), nil
		},
	}
}

func statusStep(p Platform, title string, components ...string) Step {
	return Step{
		Title: title,
		Run: func(ctx context.Context) (string, error) {
			var lines []string
			var unhealthy []string
			for _, name := range components {
				report, err := p.ComponentStatus(ctx, name, api.EnvironmentAuto, nil)
				if err != nil {
					return "", err
				}
				lines = append(lines, fmt.Sprintf("%-14s %s", name, report.Health))
				if report.Health != api.HealthHealthy {
					unhealthy = append(unhealthy, name)
				}
			}
			if len(unhealthy) > 0 {
				return "", fmt.Errorf("not healthy: %s", strings.Join(unhealthy, ", "))
			}
			return strings.Join(lines, "\n"), nil
		},
	}
}

func describeResult(result *api.DeploymentResult) string {
	if result == nil {
		return ""
	}
	var lines []string
	for _, w := range result.Warnings {
		lines = append(lines, "warning: "+w)
	}
	keys := make([]string, 0, len(result.Endpoints))
	for k := range result.Endpoints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, result.Endpoints[k]))
	}
	return strings.Join(lines, "\n")
}
