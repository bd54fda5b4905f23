// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/cmd/amldeploy/handlers"
)

// Root returns the root command for the amldeploy CLI.
//
// Global flags are bound once here and shared with every subcommand through
// opts.
func Root() *cobra.Command {
	opts := &handlers.Options{}

	cmd := &cobra.Command{
		Use:   "amldeploy",
		Short: "Train, register and serve MLflow models on Azure Machine Learning",
		Long: `amldeploy trains an MLflow model on an Azure ML compute cluster, registers it,
and serves it from a managed online endpoint, an attached Kubernetes compute
or a local Docker container.

Workspace coordinates come from the environment (or a .env file):
  AZURE_SUBSCRIPTION_ID, AZURE_RESOURCE_GROUP, AZURE_ML_WORKSPACE,
  AZURE_ML_TRAINING_CLUSTER, AZURE_ML_K8S_CLUSTER, MODEL_NAME, MODEL_VERSION`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to workflow settings file (default: amldeploy.yaml if present)")
	flags.StringVar(&opts.EnvFile, "env-file", "", "Path to env file (default: .env if present)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Write debug logs to stderr")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write run metrics to this file in Prometheus text format")

	// Core commands
	cmd.AddCommand(Train(opts))
	cmd.AddCommand(Deploy(opts))
	cmd.AddCommand(Doctor(opts))

	// Utility commands
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
