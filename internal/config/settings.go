package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// DefaultSettingsFile is read when present and no explicit settings file is given.
const DefaultSettingsFile = "amldeploy.yaml"

// Input types accepted by a training job.
const (
	InputTypeURIFile = "uri_file"
	InputTypeLiteral = "literal"
)

// Settings holds the workflow constants. Every field has a default; a YAML
// file only needs the values it changes.
type Settings struct {
	Training   TrainingSettings   `yaml:"training"`
	Model      ModelSettings      `yaml:"model"`
	Serving    ServingSettings    `yaml:"serving"`
	Managed    ManagedSettings    `yaml:"managed"`
	Kubernetes KubernetesSettings `yaml:"kubernetes"`
	Local      LocalSettings      `yaml:"local"`
}

// ComputeSettings sizes the training cluster.
type ComputeSettings struct {
	Size         string `yaml:"size"`
	MinInstances int    `yaml:"minInstances"`
	MaxInstances int    `yaml:"maxInstances"`
}

// InputSettings declares one training job input.
type InputSettings struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// TrainingSettings describes the training command job.
type TrainingSettings struct {
	Compute        ComputeSettings `yaml:"compute"`
	CodeDir        string          `yaml:"codeDir"`
	Command        string          `yaml:"command"`
	Environment    string          `yaml:"environment"`
	ExperimentName string          `yaml:"experimentName"`
	Inputs         []InputSettings `yaml:"inputs"`
}

// ModelSettings describes how a trained model is registered.
type ModelSettings struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// ServingSettings is shared by the Kubernetes and local deployments, which
// need an explicit environment and scoring script.
type ServingSettings struct {
	Image         string `yaml:"image"`
	CondaFile     string `yaml:"condaFile"`
	CodeDir       string `yaml:"codeDir"`
	ScoringScript string `yaml:"scoringScript"`
}

// ManagedSettings describes the managed online endpoint.
type ManagedSettings struct {
	Endpoint      string `yaml:"endpoint"`
	Deployment    string `yaml:"deployment"`
	InstanceType  string `yaml:"instanceType"`
	InstanceCount int    `yaml:"instanceCount"`
	RequestFile   string `yaml:"requestFile"`
	Cutover       bool   `yaml:"cutover"`
}

// KubernetesSettings describes the Kubernetes online endpoint.
type KubernetesSettings struct {
	Endpoint      string `yaml:"endpoint"`
	Deployment    string `yaml:"deployment"`
	InstanceType  string `yaml:"instanceType"`
	InstanceCount int    `yaml:"instanceCount"`
	RequestFile   string `yaml:"requestFile"`
	Cutover       bool   `yaml:"cutover"`
	Invoke        bool   `yaml:"invoke"`
}

// LocalSettings describes the local container endpoint.
type LocalSettings struct {
	Endpoint    string `yaml:"endpoint"`
	Deployment  string `yaml:"deployment"`
	ModelPath   string `yaml:"modelPath"`
	RequestFile string `yaml:"requestFile"`
	// MemoryLimit caps the container, in docker notation ("2g", "512m").
	// Empty means no limit.
	MemoryLimit string `yaml:"memoryLimit"`
}

// MemoryLimitBytes parses MemoryLimit. Empty yields zero.
func (l LocalSettings) MemoryLimitBytes() (int64, error) {
	if l.MemoryLimit == "" {
		return 0, nil
	}
	n, err := units.RAMInBytes(l.MemoryLimit)
	if err != nil {
		return 0, fmt.Errorf("local.memoryLimit: %w", err)
	}
	return n, nil
}

// DefaultSettings returns the iris sample workflow.
func DefaultSettings() *Settings {
	return &Settings{
		Training: TrainingSettings{
			Compute: ComputeSettings{
				Size:         "STANDARD_D2_V2",
				MinInstances: 0,
				MaxInstances: 1,
			},
			CodeDir:        "./training",
			Command:        "python train.py --iris-csv ${{inputs.iris_csv}} --learning-rate ${{inputs.learning_rate}} --boosting ${{inputs.boosting}}",
			Environment:    "AzureML-lightgbm-3.2-ubuntu18.04-py37-cpu@latest",
			ExperimentName: "iris-lightgbm",
			Inputs: []InputSettings{
				{Name: "iris_csv", Type: InputTypeURIFile, Value: "https://azuremlexamples.blob.core.windows.net/datasets/iris.csv"},
				{Name: "learning_rate", Type: InputTypeLiteral, Value: "0.9"},
				{Name: "boosting", Type: InputTypeLiteral, Value: "gbdt"},
			},
		},
		Model: ModelSettings{
			Type:        "mlflow_model",
			Description: "Model created from run.",
		},
		Serving: ServingSettings{
			Image:         "mcr.microsoft.com/azureml/lightgbm-3.2-ubuntu18.04-py37-cpu-inference:20221107.v3",
			CondaFile:     "model/conda.yaml",
			CodeDir:       "scoring/",
			ScoringScript: "score.py",
		},
		Managed: ManagedSettings{
			Endpoint:      "iris-managed-endpoint",
			Deployment:    "blue",
			InstanceType:  "Standard_DS3_v2",
			InstanceCount: 1,
			RequestFile:   "./data/request.json",
		},
		Kubernetes: KubernetesSettings{
			Endpoint:      "irisk8s-endpoint",
			Deployment:    "default",
			InstanceType:  "defaultinstancetype",
			InstanceCount: 1,
			RequestFile:   "./data/request.json",
			Cutover:       true,
			Invoke:        true,
		},
		Local: LocalSettings{
			Endpoint:    "iris-endpoint-local",
			Deployment:  "default",
			ModelPath:   "model",
			RequestFile: "./data/request-local.json",
		},
	}
}

// LoadSettings overlays the YAML file at path onto DefaultSettings. An empty
// path means amldeploy.yaml in the working directory, if it exists.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	if path == "" {
		if _, err := os.Stat(DefaultSettingsFile); errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		path = DefaultSettingsFile
	}

	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return settings, nil
}
