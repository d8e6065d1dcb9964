package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"infometis/internal/api"
)

type stacksOptions struct {
	all         bool
	definitions bool
	health      bool
	prune       bool
}

func newStacksCmd() *cobra.Command {
	opts := &stacksOptions{}
	cmd := &cobra.Command{
		Use:   "stacks [stack-id]",
		Short: "List deployed stacks or show one of them",
		Long: `List the stacks that are currently deployed. With --all removed stacks
are included. --definitions lists the stored stack definitions instead,
which can be deployed with "infometis deploy --stack <name>".

Given a stack id or name, the deployment record of that stack is shown,
or its live component health with --health. --prune deletes removed
stacks from the history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStacks(cmd, args, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.all, "all", "a", false, "Include removed stacks")
	cmd.Flags().BoolVar(&opts.definitions, "definitions", false, "List stored stack definitions")
	cmd.Flags().BoolVar(&opts.health, "health", false, "Show the live health of the given stack")
	cmd.Flags().BoolVar(&opts.prune, "prune", false, "Delete removed stacks from the history")
	return cmd
}

func runStacks(cmd *cobra.Command, args []string, opts *stacksOptions) error {
	application, err := newApplication(cmd, false)
	if err != nil {
		return err
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	formatter, err := newFormatter(out)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	o := application.Services.Orchestrator

	switch {
	case opts.prune:
		pruned, err := o.PruneHistory(ctx)
		if err != nil {
			return err
		}
		printBanner(out, true, fmt.Sprintf("%d removed stacks pruned", len(pruned)))
		return nil
	case opts.definitions:
		names, err := application.Services.Stacks.List()
		if err != nil {
			return err
		}
		if len(names) == 0 && !quiet {
			fmt.Fprintln(out, "No stored stack definitions.")
			return nil
		}
		items := make([]any, len(names))
		for i, n := range names {
			items[i] = n
		}
		return formatter.Data(out, items)
	case len(args) == 1:
		stack, err := o.FindStack(ctx, args[0])
		if err != nil {
			return err
		}
		if !opts.health {
			return formatter.Stack(out, stack)
		}
		status, err := o.GetStackStatus(ctx, stack.ID)
		if err != nil {
			return err
		}
		return formatter.StackStatus(out, status)
	}

	var stacks []*api.StackDeployment
	if opts.all {
		stacks, err = o.History(ctx)
	} else {
		stacks, err = o.ListStacks(ctx)
	}
	if err != nil {
		return err
	}
	return formatter.Stacks(out, stacks)
}
