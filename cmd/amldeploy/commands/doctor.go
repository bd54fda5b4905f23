package commands

import (
	"github.com/spf13/cobra"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/cmd/amldeploy/handlers"
)

// Doctor returns the command that checks the environment of each target.
func Doctor(opts *handlers.Options) *cobra.Command {
	var dopts handlers.DoctorOptions

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, credentials and backends",
		Long: `Check that everything a deployment depends on is in place, without
creating anything: configuration, Azure credential, workspace access, the
training and Kubernetes computes, the registered model, the Docker daemon and
the Azure ML extension on the attached cluster.

Examples:
  amldeploy doctor
  amldeploy doctor --target kubernetes --kubeconfig ~/.kube/aks
  amldeploy doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), *opts, dopts)
		},
	}

	cmd.Flags().StringVar(&dopts.Target, "target", "", "Only check one target: managed, kubernetes or local")
	cmd.Flags().StringVar(&dopts.Kubeconfig, "kubeconfig", "", "Path to kubeconfig of the attached cluster (default: KUBECONFIG or ~/.kube/config)")
	cmd.Flags().BoolVar(&dopts.JSON, "json", false, "Output the report as JSON")

	return cmd
}
