package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"infometis/internal/api"
	"infometis/internal/app"
	"infometis/internal/config"
)

type cleanupOptions struct {
	env    string
	config string
}

func newCleanupCmd() *cobra.Command {
	opts := &cleanupOptions{}
	cmd := &cobra.Command{
		Use:   "cleanup <stack-id|component>",
		Short: "Remove a stack or a single component",
		Long: `Remove a deployed stack, looked up by id or name, in reverse deployment
order. When no stack matches, the argument is taken as a component name
and only that component is removed.

Removing a stack twice is not an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.env, "env", "", "Environment of the component: kubernetes, standalone or auto")
	cmd.Flags().StringVar(&opts.config, "config", "", "Environment config file (.env, JSON or YAML)")
	return cmd
}

func runCleanup(cmd *cobra.Command, target string, opts *cleanupOptions) error {
	env, err := api.ParseEnvironment(opts.env)
	if err != nil {
		return err
	}
	var cfg map[string]any
	if opts.config != "" {
		if cfg, err = config.LoadEnvironmentConfig(opts.config); err != nil {
			return err
		}
	}

	application, err := newApplication(cmd, false)
	if err != nil {
		return err
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	stack, err := application.Services.Orchestrator.FindStack(cmd.Context(), target)
	switch {
	case err == nil:
		return cleanupStack(cmd, application, stack)
	case !api.IsStackNotFound(err):
		return err
	case !application.Services.Registry.Has(target):
		return fmt.Errorf("%q is neither a stack nor a component: %w", target, err)
	}

	_, err = withSpinner(cmd, fmt.Sprintf("Removing %s...", target), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, application.Services.Orchestrator.CleanupComponent(ctx, target, env, cfg)
	})
	if err != nil {
		printBanner(out, false, fmt.Sprintf("%s cleanup failed", target))
		printResult(out, map[string]any{"component": target, "success": false, "error": err.Error()})
		return err
	}
	printBanner(out, true, fmt.Sprintf("%s removed", target))
	printResult(out, map[string]any{"component": target, "success": true})
	return nil
}

func cleanupStack(cmd *cobra.Command, application *app.Application, stack *api.StackDeployment) error {
	out := cmd.OutOrStdout()
	o := application.Services.Orchestrator
	_, err := withSpinner(cmd, fmt.Sprintf("Removing stack %s...", stack.Name), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.CleanupStack(ctx, stack.ID)
	})

	// Reload to report the component states after cleanup.
	if current, getErr := o.GetStack(cmd.Context(), stack.ID); getErr == nil {
		stack = current
	}
	if err != nil {
		printBanner(out, false, fmt.Sprintf("Stack %s cleanup failed", stack.Name))
		printResult(out, stack)
		return err
	}
	printBanner(out, true, fmt.Sprintf("Stack %s removed (%s)", stack.Name, stack.ID))
	printResult(out, stack)
	return nil
}
