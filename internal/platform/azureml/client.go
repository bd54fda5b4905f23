package azureml

import "context"

// WorkspaceReader reads workspace metadata.
type WorkspaceReader interface {
	// Location returns the Azure region of the workspace.
	Location(ctx context.Context) (string, error)
}

// ComputeManager manages workspace computes.
type ComputeManager interface {
	GetCompute(ctx context.Context, name string) (*ComputeTarget, error)
	// CreateCompute creates an AmlCompute cluster and waits until it is provisioned.
	CreateCompute(ctx context.Context, compute ComputeTarget) (*ComputeTarget, error)
}

// AssetManager manages code and environment assets.
type AssetManager interface {
	GetCode(ctx context.Context, name, version string) (*CodeAsset, error)
	// UploadCode uploads dir to the workspace's default datastore and
	// registers it as a code version.
	UploadCode(ctx context.Context, name, version, dir string) (*CodeAsset, error)
	GetEnvironment(ctx context.Context, name, version string) (*Environment, error)
	CreateEnvironment(ctx context.Context, env Environment) (*Environment, error)
	// ResolveEnvironment turns "name@latest", "name:version", "azureml:..." or
	// an ARM ID into an environment ID usable by jobs and deployments.
	ResolveEnvironment(ctx context.Context, ref string) (string, error)
}

// JobManager submits and reads jobs.
type JobManager interface {
	CreateJob(ctx context.Context, job CommandJob) (*Job, error)
	GetJob(ctx context.Context, name string) (*Job, error)
}

// ModelRegistry reads and registers model versions.
type ModelRegistry interface {
	GetModel(ctx context.Context, name, version string) (*Model, error)
	CreateModel(ctx context.Context, model Model) (*Model, error)
}

// EndpointManager manages online endpoints.
type EndpointManager interface {
	GetEndpoint(ctx context.Context, name string) (*Endpoint, error)
	CreateEndpoint(ctx context.Context, endpoint Endpoint) (*Endpoint, error)
	// UpdateEndpoint pushes the endpoint's mutable fields, such as traffic.
	UpdateEndpoint(ctx context.Context, endpoint Endpoint) (*Endpoint, error)
}

// DeploymentManager manages online deployments.
type DeploymentManager interface {
	GetDeployment(ctx context.Context, endpointName, name string) (*Deployment, error)
	CreateDeployment(ctx context.Context, deployment Deployment) (*Deployment, error)
}

// Invoker sends scoring requests to an endpoint.
type Invoker interface {
	Invoke(ctx context.Context, req InvokeRequest) ([]byte, error)
}

// WorkspaceClient is the training side of the platform.
type WorkspaceClient interface {
	WorkspaceReader
	ComputeManager
	AssetManager
	JobManager
	ModelRegistry
}

// ServingClient is the endpoint side of the platform. The remote client and
// the local execution mode both implement it.
type ServingClient interface {
	EndpointManager
	DeploymentManager
	Invoker
}

// Client is the full remote API: a workspace that also serves endpoints.
type Client interface {
	WorkspaceClient
	ServingClient
}
