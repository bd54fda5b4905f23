package provisioning

import "github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"

// State holds the shared results of workflow phases.
// It is progressively populated as each phase completes and is passed
// to subsequent phases that need earlier results.
type State struct {
	// Training results
	Compute *azureml.ComputeTarget
	Code    *azureml.CodeAsset
	Job     *azureml.Job
	Model   *azureml.Model

	// Serving results
	InferenceCompute *azureml.ComputeTarget
	ServingCode      *azureml.CodeAsset
	EnvironmentID    string
	Endpoint         *azureml.Endpoint
	Deployment       *azureml.Deployment

	// Response is the raw body returned by the last scoring request.
	Response []byte
}

// NewState creates an empty workflow state.
func NewState() *State {
	return &State{}
}
