package testing

import (
	"path/filepath"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	env      config.Environment
	settings config.Settings
}

// NewConfigBuilder creates a new ConfigBuilder with a complete environment
// and the default workflow settings.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		env: config.Environment{
			SubscriptionID:    "00000000-0000-0000-0000-000000000000",
			ResourceGroup:     "test-rg",
			Workspace:         "test-ws",
			TrainingCluster:   "cpu-cluster",
			KubernetesCluster: "k8s-compute",
			ModelName:         "iris-model",
			ModelVersion:      "1",
		},
		settings: *config.DefaultSettings(),
	}
}

// WithModel sets the model name and version.
func (b *ConfigBuilder) WithModel(name, version string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.env.ModelName = name
	newBuilder.env.ModelVersion = version
	return newBuilder
}

// WithTrainingCluster sets the training compute name.
func (b *ConfigBuilder) WithTrainingCluster(name string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.env.TrainingCluster = name
	return newBuilder
}

// WithKubernetesCluster sets the attached Kubernetes compute name.
func (b *ConfigBuilder) WithKubernetesCluster(name string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.env.KubernetesCluster = name
	return newBuilder
}

// WithLocalStateDir sets where local endpoints are recorded.
func (b *ConfigBuilder) WithLocalStateDir(dir string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.env.LocalStateDir = dir
	return newBuilder
}

// WithManagedCutover toggles the managed traffic cutover.
func (b *ConfigBuilder) WithManagedCutover(enabled bool) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.settings.Managed.Cutover = enabled
	return newBuilder
}

// WithKubernetesInvoke toggles the Kubernetes scoring request.
func (b *ConfigBuilder) WithKubernetesInvoke(enabled bool) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.settings.Kubernetes.Invoke = enabled
	return newBuilder
}

// WithSettings applies an arbitrary change to a copy of the settings.
func (b *ConfigBuilder) WithSettings(mutate func(s *config.Settings)) *ConfigBuilder {
	newBuilder := b.clone()
	mutate(&newBuilder.settings)
	return newBuilder
}

// WithProject points every relative path in the settings at dir, the root
// of a Project.
func (b *ConfigBuilder) WithProject(dir string) *ConfigBuilder {
	newBuilder := b.clone()
	s := &newBuilder.settings
	s.Training.CodeDir = rebase(dir, s.Training.CodeDir)
	s.Serving.CondaFile = rebase(dir, s.Serving.CondaFile)
	s.Serving.CodeDir = rebase(dir, s.Serving.CodeDir)
	s.Managed.RequestFile = rebase(dir, s.Managed.RequestFile)
	s.Kubernetes.RequestFile = rebase(dir, s.Kubernetes.RequestFile)
	s.Local.ModelPath = rebase(dir, s.Local.ModelPath)
	s.Local.RequestFile = rebase(dir, s.Local.RequestFile)
	return newBuilder
}

// Build returns the constructed config with test timeouts.
func (b *ConfigBuilder) Build() *config.Config {
	c := b.clone()
	return &config.Config{
		Env:      &c.env,
		Settings: &c.settings,
		Timeouts: config.TestTimeouts(),
	}
}

// clone creates a deep copy of the builder for immutability.
func (b *ConfigBuilder) clone() *ConfigBuilder {
	newSettings := b.settings
	if len(b.settings.Training.Inputs) > 0 {
		newSettings.Training.Inputs = make([]config.InputSettings, len(b.settings.Training.Inputs))
		copy(newSettings.Training.Inputs, b.settings.Training.Inputs)
	}
	return &ConfigBuilder{env: b.env, settings: newSettings}
}

func rebase(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// MinimalConfig returns a valid config for tests that never touch the disk.
func MinimalConfig() *config.Config {
	return NewConfigBuilder().Build()
}
