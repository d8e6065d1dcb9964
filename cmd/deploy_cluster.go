package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"infometis/internal/api"
	"infometis/internal/deployer"
)

func newDeployClusterCmd() *cobra.Command {
	var loadImages bool
	cmd := &cobra.Command{
		Use:   "deploy-cluster",
		Short: "Start the k0s cluster container",
		Long: `Start the k0s cluster in a local container and write its kubeconfig.
Running it against a cluster that is already up only waits for it to be
ready.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeployCluster(cmd, loadImages)
		},
	}
	cmd.Flags().BoolVar(&loadImages, "load-images", false, "Load the cached images into the cluster once it is ready")
	return cmd
}

func runDeployCluster(cmd *cobra.Command, loadImages bool) error {
	application, err := newApplication(cmd, false)
	if err != nil {
		return err
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	s := application.Services
	spec := api.ComponentSpec{Name: deployer.ClusterComponent, Environment: api.EnvironmentStandalone}
	record, err := withSpinner(cmd, fmt.Sprintf("Starting cluster %s...", s.Config.Cluster.Name), func(ctx context.Context) (*api.ComponentDeployment, error) {
		return s.Orchestrator.DeployComponent(ctx, spec)
	})
	if err != nil {
		printBanner(out, false, "Cluster deployment failed")
		if record != nil {
			printResult(out, record)
		}
		return err
	}

	if loadImages {
		_, err = withSpinner(cmd, "Loading images into the cluster...", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.Cache.TransferAll(ctx)
		})
		if err != nil {
			printBanner(out, false, "Image transfer failed")
			return err
		}
	}

	printBanner(out, true, fmt.Sprintf("Cluster %s is running", s.Config.Cluster.Name))
	printResult(out, record)
	return nil
}
