package commands

import (
	"github.com/spf13/cobra"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/cmd/amldeploy/handlers"
)

// Train returns the command that trains and registers the model.
func Train(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train and register the model",
		Long: `Train and register the model.

Creates the training cluster if it does not exist, then looks up
MODEL_NAME:MODEL_VERSION in the workspace registry. When the model is not
registered, the training code is uploaded, a command job runs on the cluster,
and the job's model output is registered under that name and version.

Examples:
  # Train using .env and amldeploy.yaml in the current directory
  amldeploy train

  # Train with another environment
  amldeploy train --env-file staging.env`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Train(cmd.Context(), *opts)
		},
	}
}
