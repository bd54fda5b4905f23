package config

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Target names a deployment target.
type Target string

// Supported deployment targets.
const (
	TargetManaged    Target = "managed"
	TargetKubernetes Target = "kubernetes"
	TargetLocal      Target = "local"
)

// Targets lists every supported target.
func Targets() []Target {
	return []Target{TargetManaged, TargetKubernetes, TargetLocal}
}

// ParseTarget converts a CLI argument into a Target.
func ParseTarget(s string) (Target, error) {
	for _, t := range Targets() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown target %q (expected managed, kubernetes or local)", s)
}

// Config is built once at process start and handed to the orchestrator.
type Config struct {
	Env      *Environment
	Settings *Settings
	Timeouts *Timeouts
}

// LoadOptions points at optional configuration files.
type LoadOptions struct {
	EnvFile      string
	SettingsFile string
}

// Load reads the environment, the settings file and the timeouts.
// It does not validate; callers validate for the workflow they run.
func Load(opts LoadOptions) (*Config, error) {
	env, err := LoadEnvironment(opts.EnvFile)
	if err != nil {
		return nil, err
	}
	settings, err := LoadSettings(opts.SettingsFile)
	if err != nil {
		return nil, err
	}
	return &Config{
		Env:      env,
		Settings: settings,
		Timeouts: LoadTimeouts(),
	}, nil
}

// ValidateTraining checks what the training workflow needs.
func (c *Config) ValidateTraining() error {
	var result *multierror.Error
	result = multierror.Append(result, c.requireWorkspace()...)
	result = multierror.Append(result, c.requireModel()...)
	if c.Env.TrainingCluster == "" {
		result = multierror.Append(result, missing("AZURE_ML_TRAINING_CLUSTER"))
	}
	result = multierror.Append(result, c.Settings.validateTraining()...)
	return result.ErrorOrNil()
}

// Validate checks what deploying to target needs. The managed target runs
// the training workflow first, so it includes ValidateTraining.
func (c *Config) Validate(target Target) error {
	var result *multierror.Error

	switch target {
	case TargetManaged:
		if err := c.ValidateTraining(); err != nil {
			result = multierror.Append(result, err)
		}
		result = multierror.Append(result, c.Settings.validateManaged()...)
	case TargetKubernetes:
		result = multierror.Append(result, c.requireWorkspace()...)
		result = multierror.Append(result, c.requireModel()...)
		if c.Env.KubernetesCluster == "" {
			result = multierror.Append(result, missing("AZURE_ML_K8S_CLUSTER"))
		}
		result = multierror.Append(result, c.Settings.validateKubernetes()...)
		result = multierror.Append(result, c.Settings.validateServing()...)
	case TargetLocal:
		result = multierror.Append(result, c.Settings.validateLocal()...)
		result = multierror.Append(result, c.Settings.validateServing()...)
	default:
		result = multierror.Append(result, fmt.Errorf("unknown target %q", target))
	}

	return result.ErrorOrNil()
}

func (c *Config) requireWorkspace() []error {
	var errs []error
	if c.Env.SubscriptionID == "" {
		errs = append(errs, missing("AZURE_SUBSCRIPTION_ID"))
	}
	if c.Env.ResourceGroup == "" {
		errs = append(errs, missing("AZURE_RESOURCE_GROUP"))
	}
	if c.Env.Workspace == "" {
		errs = append(errs, missing("AZURE_ML_WORKSPACE"))
	}
	return errs
}

func (c *Config) requireModel() []error {
	var errs []error
	if c.Env.ModelName == "" {
		errs = append(errs, missing("MODEL_NAME"))
	}
	if c.Env.ModelVersion == "" {
		errs = append(errs, missing("MODEL_VERSION"))
	}
	return errs
}

func missing(name string) error {
	return fmt.Errorf("environment variable %s is required", name)
}
