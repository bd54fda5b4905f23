package azureml

import "fmt"

// ComputeType is the kind of a workspace compute.
type ComputeType string

// Compute types used by the workflow.
const (
	ComputeTypeAML        ComputeType = "AmlCompute"
	ComputeTypeKubernetes ComputeType = "Kubernetes"
)

// ComputeTarget is a named compute resource attached to the workspace.
type ComputeTarget struct {
	ID                string
	Name              string
	Type              ComputeType
	Size              string
	MinInstances      int
	MaxInstances      int
	Namespace         string
	ProvisioningState string
}

// CodeAsset is a versioned snapshot of a local code directory.
type CodeAsset struct {
	ID      string
	Name    string
	Version string
	URI     string
}

// Environment is a versioned container environment.
type Environment struct {
	ID        string
	Name      string
	Version   string
	Image     string
	CondaFile string
}

// InputType is the type of a job input.
type InputType string

// Job input types.
const (
	InputTypeURIFile InputType = "uri_file"
	InputTypeLiteral InputType = "literal"
)

// JobInput is one declared input of a command job.
type JobInput struct {
	Type  InputType
	URI   string
	Value string
}

// CommandJob describes a command job to submit.
type CommandJob struct {
	Name           string
	DisplayName    string
	ExperimentName string
	CodeID         string
	Command        string
	EnvironmentID  string
	ComputeID      string
	Inputs         map[string]JobInput
}

// JobStatus is the provider-reported status of a job.
type JobStatus string

// Job statuses reported by the platform.
const (
	JobStatusNotStarted      JobStatus = "NotStarted"
	JobStatusStarting        JobStatus = "Starting"
	JobStatusProvisioning    JobStatus = "Provisioning"
	JobStatusPreparing       JobStatus = "Preparing"
	JobStatusQueued          JobStatus = "Queued"
	JobStatusRunning         JobStatus = "Running"
	JobStatusFinalizing      JobStatus = "Finalizing"
	JobStatusCancelRequested JobStatus = "CancelRequested"
	JobStatusCompleted       JobStatus = "Completed"
	JobStatusFailed          JobStatus = "Failed"
	JobStatusCanceled        JobStatus = "Canceled"
	JobStatusNotResponding   JobStatus = "NotResponding"
	JobStatusPaused          JobStatus = "Paused"
	JobStatusUnknown         JobStatus = "Unknown"
)

// Job is a submitted job.
type Job struct {
	ID     string
	Name   string
	Status JobStatus
}

// ModelType tags the artifact format of a registered model.
type ModelType string

// Model artifact types.
const (
	ModelTypeMLflow ModelType = "mlflow_model"
	ModelTypeCustom ModelType = "custom_model"
)

// Model is a registered model version.
type Model struct {
	ID          string
	Name        string
	Version     string
	Path        string
	Type        ModelType
	Description string
}

// JobOutputModelPath is the conventional artifact path of the model a job
// writes to its "model" output folder.
func JobOutputModelPath(jobName string) string {
	return fmt.Sprintf("azureml://jobs/%s/outputs/artifacts/paths/model/", jobName)
}

// EndpointKind is the execution mode of an endpoint or deployment.
type EndpointKind string

// Endpoint kinds.
const (
	EndpointKindManaged    EndpointKind = "Managed"
	EndpointKindKubernetes EndpointKind = "Kubernetes"
	EndpointKindLocal      EndpointKind = "Local"
)

// AuthMode is the authentication mode of an online endpoint.
type AuthMode string

// Endpoint auth modes.
const (
	AuthModeKey      AuthMode = "Key"
	AuthModeAMLToken AuthMode = "AMLToken"
	AuthModeAADToken AuthMode = "AADToken"
)

// Endpoint is an online endpoint. Traffic maps deployment names to integer
// percentages.
type Endpoint struct {
	ID                string
	Name              string
	Kind              EndpointKind
	AuthMode          AuthMode
	ComputeID         string
	ScoringURI        string
	Traffic           map[string]int
	ProvisioningState string
}

// EnvironmentSpec is an inline environment built from an image and a conda file.
type EnvironmentSpec struct {
	Image     string
	CondaFile string
}

// CodeConfiguration points a deployment at its scoring code. CodeID is used
// by remote deployments, Path by local ones.
type CodeConfiguration struct {
	CodeID        string
	Path          string
	ScoringScript string
}

// Deployment is an online deployment under an endpoint. Remote deployments
// reference a registered model by ModelID; local deployments load ModelPath.
type Deployment struct {
	ID                string
	Name              string
	EndpointName      string
	Kind              EndpointKind
	ModelID           string
	ModelPath         string
	EnvironmentID     string
	Environment       *EnvironmentSpec
	Code              *CodeConfiguration
	InstanceType      string
	InstanceCount     int
	ProvisioningState string
}

// InvokeRequest is a scoring request. DeploymentName is optional; when set the
// request bypasses the endpoint's traffic split.
type InvokeRequest struct {
	EndpointName   string
	DeploymentName string
	Payload        []byte
}

// Provisioning states reported for computes, endpoints and deployments.
const (
	ProvisioningSucceeded = "Succeeded"
	ProvisioningFailed    = "Failed"
	ProvisioningCanceled  = "Canceled"
)
