package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"infometis/internal/app"
	"infometis/internal/formatting"
	"infometis/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates any failure.
	ExitCodeError = 1
)

// Global flags shared by every command.
var (
	configDir    string
	logLevel     string
	quiet        bool
	outputFormat string
)

// appOptions replaces collaborators in tests.
var appOptions app.Options

// rootCmd represents the base command for the infometis application.
var rootCmd = &cobra.Command{
	Use:   "infometis",
	Short: "Deploy the InfoMetis data platform on a local k0s cluster",
	Long: `infometis deploys a self-contained data platform (Traefik, NiFi, NiFi
Registry, Kafka, Elasticsearch, Grafana, Prometheus, Flink and ksqlDB) onto
a k0s cluster running in a local container.

Components are deployed one by one or as stacks in dependency order. A
failed stack deployment is rolled back.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with 1 on failure. SIGINT and
// SIGTERM cancel the running operation between steps.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "infometis version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps an error onto the process exit code. Every failure
// class shares code 1.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default: ~/.config/infometis)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", string(formatting.FormatTable), "Output format: table, json or yaml")

	rootCmd.AddCommand(
		newDeployCmd(),
		newStatusCmd(),
		newCleanupCmd(),
		newCacheImagesCmd(),
		newDeployClusterCmd(),
		newConsoleCmd(),
		newServeCmd(),
		newComponentsCmd(),
		newStacksCmd(),
		newVersionCmd(),
	)
}
