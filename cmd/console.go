package cmd

import (
	"github.com/spf13/cobra"
)

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Start the interactive deployment console",
		Long: `Start a menu-driven console that walks through the deployment in
sections: cluster, platform, data and stack.

Inside a section pick a step by number, "a" runs every step in order,
"b" goes back and "q" quits.`,
		Args: cobra.NoArgs,
		RunE: runConsole,
	}
}

func runConsole(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd, false)
	if err != nil {
		return err
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	return application.RunConsole(cmd.Context(), out, isTerminal(out))
}
