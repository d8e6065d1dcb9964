package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"infometis/internal/api"
	"infometis/pkg/logging"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [stack-id]",
		Short: "Show the status of a stack or of the orchestrator",
		Long: `Show the aggregated health of a stack, looked up by id or name, or the
overall orchestrator status when no stack is given.

Status is always printed as JSON and the command always exits with 0, so
scripts read the "success" field instead of the exit code.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	payload, err := collectStatus(cmd, args)
	if err != nil {
		logging.Debug("CLI", "status failed: %v", err)
		payload = map[string]any{"success": false, "error": err.Error()}
	}
	printResult(out, payload)
	return nil
}

func collectStatus(cmd *cobra.Command, args []string) (any, error) {
	application, err := newApplication(cmd, false)
	if err != nil {
		return nil, err
	}
	defer application.Close()

	o := application.Services.Orchestrator
	if len(args) == 0 {
		status, err := o.Status(cmd.Context())
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": true, "status": status}, nil
	}

	status, err := withSpinner(cmd, "Checking "+args[0]+"...", func(ctx context.Context) (*api.StackStatus, error) {
		stack, err := o.FindStack(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return o.GetStackStatus(ctx, stack.ID)
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": status.Status == api.HealthHealthy, "status": status}, nil
}
