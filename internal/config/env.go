package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DefaultEnvFile is loaded when present and no explicit env file is given.
const DefaultEnvFile = ".env"

// Environment holds the workspace coordinates and model identity read from
// the process environment.
type Environment struct {
	SubscriptionID    string `envconfig:"AZURE_SUBSCRIPTION_ID"`
	ResourceGroup     string `envconfig:"AZURE_RESOURCE_GROUP"`
	Workspace         string `envconfig:"AZURE_ML_WORKSPACE"`
	TrainingCluster   string `envconfig:"AZURE_ML_TRAINING_CLUSTER"`
	KubernetesCluster string `envconfig:"AZURE_ML_K8S_CLUSTER"`
	ModelName         string `envconfig:"MODEL_NAME"`
	ModelVersion      string `envconfig:"MODEL_VERSION"`

	// LocalStateDir is where local endpoints are recorded.
	LocalStateDir string `envconfig:"AML_LOCAL_STATE_DIR"`
}

// LoadEnvironment reads the environment, first merging envFile into it.
// Variables already set in the process win over the file. An empty envFile
// means ".env" in the working directory, if it exists.
func LoadEnvironment(envFile string) (*Environment, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	var env Environment
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if env.LocalStateDir == "" {
		env.LocalStateDir = defaultLocalStateDir()
	}
	return &env, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); errors.Is(err, os.ErrNotExist) {
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func defaultLocalStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".azureml", "inferencing")
	}
	return filepath.Join(home, ".azureml", "inferencing")
}
