package cmd

import (
	"github.com/spf13/cobra"

	"infometis/pkg/logging"
)

func newServeCmd() *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the orchestrator over HTTP",
		Long: `Start the HTTP API of the orchestrator. Components, stacks and the
image cache are managed through JSON endpoints. Every response carries
"success" and "timestamp" fields.

The server runs until interrupted and then shuts down gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication(cmd, true)
			if err != nil {
				return err
			}
			defer application.Close()

			if cmd.Flags().Changed("host") {
				application.Services.Config.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				application.Services.Config.Server.Port = port
			}
			logging.Info("CLI", "Starting infometis server %s", GetVersion())
			return application.RunServer(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Address to listen on (overrides the configuration)")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides the configuration)")
	return cmd
}
