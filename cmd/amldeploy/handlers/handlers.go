// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/k8s"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/logging"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/local"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/provisioning"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/ui/tui"
)

// Options carries the global flags.
type Options struct {
	// ConfigPath is the workflow settings file (default: amldeploy.yaml if present).
	ConfigPath string
	// EnvFile is merged into the environment (default: .env if present).
	EnvFile string
	// Verbose enables debug logs on stderr.
	Verbose bool
	// MetricsFile, when set, receives the run metrics in Prometheus text format.
	MetricsFile string
	// SkipInvoke skips the scoring request at the end of a deployment.
	SkipInvoke bool
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfig reads the environment, settings file and timeouts.
	loadConfig = config.Load

	// newCredential creates the Azure credential chain.
	newCredential = azureml.NewDefaultCredential

	// newAzureClient creates the remote workspace client.
	newAzureClient = func(cfg *config.Config, cred azcore.TokenCredential) (azureml.Client, error) {
		return azureml.NewRealClient(workspaceOf(cfg), cred, azureml.WithTimeouts(cfg.Timeouts))
	}

	// newContainerRuntime connects to the Docker daemon. The returned
	// function releases the connection.
	newContainerRuntime = func() (local.ContainerRuntime, func(), error) {
		rt, err := local.NewDockerRuntime()
		if err != nil {
			return nil, nil, err
		}
		return rt, func() { _ = rt.Close() }, nil
	}

	// newKubeClient creates a Kubernetes client from a kubeconfig path.
	newKubeClient = k8s.NewClient

	// stdout receives status lines and reports.
	stdout io.Writer = os.Stdout

	// stderr receives logs.
	stderr io.Writer = os.Stderr
)

func workspaceOf(cfg *config.Config) azureml.Workspace {
	return azureml.Workspace{
		SubscriptionID: cfg.Env.SubscriptionID,
		ResourceGroup:  cfg.Env.ResourceGroup,
		Name:           cfg.Env.Workspace,
	}
}

func newLogger(opts Options) (logr.Logger, func()) {
	return logging.New(stderr, logging.Options{Verbose: opts.Verbose})
}

func load(opts Options) (*config.Config, error) {
	cfg, err := loadConfig(config.LoadOptions{EnvFile: opts.EnvFile, SettingsFile: opts.ConfigPath})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// clients returns the workspace and serving clients for target. The local
// target never talks to the workspace, so its workspace client is nil.
func clients(cfg *config.Config, target config.Target, log logr.Logger) (azureml.WorkspaceClient, azureml.ServingClient, func(), error) {
	if target == config.TargetLocal {
		memory, err := cfg.Settings.Local.MemoryLimitBytes()
		if err != nil {
			return nil, nil, nil, err
		}
		rt, closeRuntime, err := newContainerRuntime()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("local deployment needs a Docker daemon: %w", err)
		}
		serving := local.NewClient(local.NewStore(cfg.Env.LocalStateDir), rt,
			local.WithTimeouts(cfg.Timeouts),
			local.WithLogger(log.WithName("local")),
			local.WithMemoryLimit(memory),
		)
		return nil, serving, closeRuntime, nil
	}

	cred, err := newCredential()
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := newAzureClient(cfg, cred)
	if err != nil {
		return nil, nil, nil, err
	}
	return client, client, func() {}, nil
}

// run executes pipeline against target and writes the metrics file when
// requested, even if the run failed.
func run(ctx context.Context, opts Options, cfg *config.Config, target config.Target, pipeline *provisioning.Pipeline) error {
	log, flush := newLogger(opts)
	defer flush()

	workspace, serving, release, err := clients(cfg, target, log)
	if err != nil {
		return err
	}
	defer release()

	metrics := provisioning.NewMetrics()
	execute := func(ctx context.Context, observer provisioning.Observer) error {
		return pipeline.Run(provisioning.NewContext(ctx, cfg, target, workspace, serving,
			provisioning.WithObserver(observer),
			provisioning.WithMetrics(metrics),
			provisioning.WithSkipInvoke(opts.SkipInvoke),
		))
	}

	var runErr error
	if isInteractiveTTY() {
		model := tui.NewProgressModel("amldeploy", pipeline.Name, phaseNames(pipeline))
		runErr = tui.RunProgress(ctx, model, func(ctx context.Context, send func(tea.Msg)) error {
			return execute(ctx, newProgressObserver(send, log.WithName("provisioning")))
		}, tea.WithOutput(stdout))
	} else {
		runErr = execute(ctx, provisioning.NewConsoleObserver(stdout, log.WithName("provisioning")))
	}

	if opts.MetricsFile != "" {
		if err := metrics.WriteTextfile(opts.MetricsFile); err != nil {
			if runErr != nil {
				log.Error(err, "failed to write metrics file", "path", opts.MetricsFile)
				return runErr
			}
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}
	return runErr
}
