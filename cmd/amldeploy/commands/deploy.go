package commands

import (
	"github.com/spf13/cobra"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/cmd/amldeploy/handlers"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
)

// Deploy returns the deploy command with one subcommand per target.
//
// Optional flags:
//
//	--skip-invoke: Do not send the sample scoring request
func Deploy(opts *handlers.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Serve the model from an online endpoint",
		Long: `Serve the model from an online endpoint.

Each target looks up its endpoint and deployment and creates them when they
do not exist, so a deployment can be re-run safely.`,
	}

	cmd.PersistentFlags().BoolVar(&opts.SkipInvoke, "skip-invoke", false, "Do not send the sample scoring request")

	cmd.AddCommand(deployTarget(opts, config.TargetManaged,
		"Train if needed and serve from a managed online endpoint",
		`Runs the training workflow first when the model is not registered, then
creates the managed endpoint and deployment and scores the sample request
against the new deployment.

Examples:
  amldeploy deploy managed
  amldeploy deploy managed --metrics-file run.prom`))

	cmd.AddCommand(deployTarget(opts, config.TargetKubernetes,
		"Serve the registered model from the attached Kubernetes compute",
		`Requires the model to be registered already ('amldeploy train') and the
Kubernetes compute AZURE_ML_K8S_CLUSTER to be attached to the workspace.
Routes all endpoint traffic to the new deployment unless it already receives
part of it.

Examples:
  amldeploy deploy kubernetes
  amldeploy deploy kubernetes --skip-invoke`))

	cmd.AddCommand(deployTarget(opts, config.TargetLocal,
		"Serve the model directory from a local container",
		`Builds an inference image from the serving base image and conda file and
runs it with Docker. The model is read from local.modelPath; the workspace is
never contacted.

Examples:
  amldeploy deploy local`))

	return cmd
}

func deployTarget(opts *handlers.Options, target config.Target, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   string(target),
		Short: short,
		Long:  short + ".\n\n" + long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Deploy(cmd.Context(), *opts, target)
		},
	}
}
