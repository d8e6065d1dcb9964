package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"infometis/internal/api"
	"infometis/internal/deployer"
	"infometis/internal/formatting"
)

func newComponentsCmd() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:     "components [component]",
		Aliases: []string{"comp"},
		Short:   "List the deployable components or show the status of one",
		Long: `List every registered component with its namespace, dependencies and
images. Given a component name, its live status is queried from the
cluster instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if len(args) == 0 {
				infos := componentInfos(application.Services.Orchestrator.Components(), application.Services.Config.Cluster.Image)
				return formatter.Components(out, infos)
			}

			environment, err := api.ParseEnvironment(env)
			if err != nil {
				return err
			}
			report, err := withSpinner(cmd, fmt.Sprintf("Checking %s...", args[0]), func(ctx context.Context) (*api.StatusReport, error) {
				return application.Services.Orchestrator.ComponentStatus(ctx, args[0], environment, nil)
			})
			if err != nil {
				return err
			}
			return formatter.ComponentStatus(out, report)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "Environment of the component: kubernetes, standalone or auto")
	return cmd
}

// componentInfos describes registered components from the catalog.
// Components outside the catalog are listed by name only.
func componentInfos(names []string, clusterImage string) []formatting.ComponentInfo {
	infos := make([]formatting.ComponentInfo, 0, len(names))
	for _, n := range names {
		if n == deployer.ClusterComponent {
			infos = append(infos, formatting.ComponentInfo{
				Name:        n,
				Description: "k0s Kubernetes cluster container",
				Images:      []string{clusterImage},
			})
			continue
		}
		def, ok := deployer.Lookup(n)
		if !ok {
			infos = append(infos, formatting.ComponentInfo{Name: n})
			continue
		}
		infos = append(infos, formatting.ComponentInfo{
			Name:        def.Name,
			Description: def.Description,
			Namespace:   def.Namespace,
			DependsOn:   def.DependsOn,
			Images:      deployer.SortedImages(def.Images),
		})
	}
	return infos
}
