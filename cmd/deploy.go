package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"infometis/internal/api"
	"infometis/internal/app"
	"infometis/internal/config"
	"infometis/internal/deployer"
)

type deployOptions struct {
	env       string
	config    string
	stack     string
	dryRun    bool
	saveStack bool
}

func newDeployCmd() *cobra.Command {
	opts := &deployOptions{}
	cmd := &cobra.Command{
		Use:   "deploy [component]",
		Short: "Deploy a component or a stack",
		Long: `Deploy a single component, or a whole stack when no component is given.

Without --stack the full platform stack is deployed: the k0s cluster
followed by every catalog component in dependency order. --stack takes
either a stack file or the name of a stored stack definition.

A failed stack deployment rolls back every component it had deployed.`,
		Example: `  infometis deploy
  infometis deploy kafka --env kubernetes --config kafka.env
  infometis deploy --stack ./streaming.yaml --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.env, "env", "", "Deployment environment: kubernetes, standalone or auto")
	cmd.Flags().StringVar(&opts.config, "config", "", "Environment config file (.env, JSON or YAML)")
	cmd.Flags().StringVar(&opts.stack, "stack", "", "Stack file or stored stack name")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate the stack without deploying it")
	cmd.Flags().BoolVar(&opts.saveStack, "save", false, "Store the stack definition for later deployments")
	return cmd
}

func runDeploy(cmd *cobra.Command, args []string, opts *deployOptions) error {
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

	if len(args) == 1 {
		if opts.stack != "" {
			return fmt.Errorf("a component and --stack cannot be combined")
		}
		return deployComponent(cmd, application, api.ComponentSpec{Name: args[0], Environment: env, Config: cfg}, opts.dryRun)
	}

	spec, err := resolveStack(application, opts.stack)
	if err != nil {
		return err
	}
	if len(cfg) > 0 {
		spec.Config = api.MergeConfig(spec.Config, cfg)
	}
	if opts.saveStack {
		if err := application.Services.Stacks.Save(spec); err != nil {
			return err
		}
	}
	if opts.dryRun {
		return validateStack(cmd, application, spec)
	}

	out := cmd.OutOrStdout()
	stack, err := withSpinner(cmd, fmt.Sprintf("Deploying stack %s...", spec.Name), func(ctx context.Context) (*api.StackDeployment, error) {
		return application.Services.Orchestrator.DeployStack(ctx, spec)
	})
	if err != nil {
		printBanner(out, false, fmt.Sprintf("Stack %s failed to deploy", spec.Name))
		if stack != nil {
			printResult(out, stack)
		}
		return err
	}
	message := fmt.Sprintf("Stack %s deployed (%s)", stack.Name, stack.ID)
	if stack.Status == api.StackDegraded {
		message = fmt.Sprintf("Stack %s deployed with warnings (%s)", stack.Name, stack.ID)
	}
	printBanner(out, true, message)
	printResult(out, stack)
	return nil
}

func deployComponent(cmd *cobra.Command, application *app.Application, spec api.ComponentSpec, dryRun bool) error {
	out := cmd.OutOrStdout()
	if dryRun {
		stack := api.StackSpec{Name: spec.Name, Components: []api.ComponentSpec{spec}}
		return validateStack(cmd, application, stack)
	}

	record, err := withSpinner(cmd, fmt.Sprintf("Deploying %s...", spec.Name), func(ctx context.Context) (*api.ComponentDeployment, error) {
		return application.Services.Orchestrator.DeployComponent(ctx, spec)
	})
	if err != nil {
		printBanner(out, false, fmt.Sprintf("%s deployment failed", spec.Name))
		if record != nil {
			printResult(out, record)
		}
		return err
	}
	message := fmt.Sprintf("%s deployed", spec.Name)
	if record.Result != nil && len(record.Result.Warnings) > 0 {
		message = fmt.Sprintf("%s deployed with warnings", spec.Name)
	}
	printBanner(out, true, message)
	printResult(out, record)
	return nil
}

// resolveStack returns the platform stack when ref is empty. Otherwise ref
// is read as a stack file if one exists at that path, else as the name of a
// stored definition.
func resolveStack(application *app.Application, ref string) (api.StackSpec, error) {
	if ref == "" {
		return deployer.DefaultStack(app.DefaultStackName)
	}
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return config.LoadStackSpec(ref)
	}
	return application.Services.Stacks.Load(ref)
}

func validateStack(cmd *cobra.Command, application *app.Application, spec api.StackSpec) error {
	reports, err := application.Services.Orchestrator.ValidateStack(cmd.Context(), spec)
	if err != nil {
		return err
	}
	formatter, err := newFormatter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := formatter.Validation(cmd.OutOrStdout(), reports); err != nil {
		return err
	}
	for _, r := range reports {
		if !r.Valid {
			return fmt.Errorf("stack %s is not valid: %s has issues", spec.Name, r.Component)
		}
	}
	return nil
}
