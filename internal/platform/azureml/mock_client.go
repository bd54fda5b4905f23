package azureml

import (
	"context"
	"fmt"
)

// MockClient is a function-field implementation of WorkspaceClient and
// ServingClient. Unset functions return a succeeded resource echoing the input.
type MockClient struct {
	LocationFunc func(ctx context.Context) (string, error)

	// Compute
	GetComputeFunc    func(ctx context.Context, name string) (*ComputeTarget, error)
	CreateComputeFunc func(ctx context.Context, compute ComputeTarget) (*ComputeTarget, error)

	// Assets
	GetCodeFunc            func(ctx context.Context, name, version string) (*CodeAsset, error)
	UploadCodeFunc         func(ctx context.Context, name, version, dir string) (*CodeAsset, error)
	GetEnvironmentFunc     func(ctx context.Context, name, version string) (*Environment, error)
	CreateEnvironmentFunc  func(ctx context.Context, env Environment) (*Environment, error)
	ResolveEnvironmentFunc func(ctx context.Context, ref string) (string, error)

	// Jobs
	CreateJobFunc func(ctx context.Context, job CommandJob) (*Job, error)
	GetJobFunc    func(ctx context.Context, name string) (*Job, error)

	// Models
	GetModelFunc    func(ctx context.Context, name, version string) (*Model, error)
	CreateModelFunc func(ctx context.Context, model Model) (*Model, error)

	// Endpoints
	GetEndpointFunc    func(ctx context.Context, name string) (*Endpoint, error)
	CreateEndpointFunc func(ctx context.Context, endpoint Endpoint) (*Endpoint, error)
	UpdateEndpointFunc func(ctx context.Context, endpoint Endpoint) (*Endpoint, error)

	// Deployments
	GetDeploymentFunc    func(ctx context.Context, endpointName, name string) (*Deployment, error)
	CreateDeploymentFunc func(ctx context.Context, deployment Deployment) (*Deployment, error)

	InvokeFunc func(ctx context.Context, req InvokeRequest) ([]byte, error)
}

var (
	_ WorkspaceClient = (*MockClient)(nil)
	_ ServingClient   = (*MockClient)(nil)
)

func mockID(kind, name string) string {
	return fmt.Sprintf("/mock/%s/%s", kind, name)
}

// Location mocks the workspace region lookup.
func (m *MockClient) Location(ctx context.Context) (string, error) {
	if m.LocationFunc != nil {
		return m.LocationFunc(ctx)
	}
	return "westeurope", nil
}

// GetCompute mocks compute lookup.
func (m *MockClient) GetCompute(ctx context.Context, name string) (*ComputeTarget, error) {
	if m.GetComputeFunc != nil {
		return m.GetComputeFunc(ctx, name)
	}
	return &ComputeTarget{ID: mockID("computes", name), Name: name, Type: ComputeTypeAML, ProvisioningState: ProvisioningSucceeded}, nil
}

// CreateCompute mocks compute creation.
func (m *MockClient) CreateCompute(ctx context.Context, compute ComputeTarget) (*ComputeTarget, error) {
	if m.CreateComputeFunc != nil {
		return m.CreateComputeFunc(ctx, compute)
	}
	compute.ID = mockID("computes", compute.Name)
	compute.ProvisioningState = ProvisioningSucceeded
	return &compute, nil
}

// GetCode mocks code lookup.
func (m *MockClient) GetCode(ctx context.Context, name, version string) (*CodeAsset, error) {
	if m.GetCodeFunc != nil {
		return m.GetCodeFunc(ctx, name, version)
	}
	return &CodeAsset{ID: mockID("codes", name+"/"+version), Name: name, Version: version}, nil
}

// UploadCode mocks code upload.
func (m *MockClient) UploadCode(ctx context.Context, name, version, dir string) (*CodeAsset, error) {
	if m.UploadCodeFunc != nil {
		return m.UploadCodeFunc(ctx, name, version, dir)
	}
	return &CodeAsset{ID: mockID("codes", name+"/"+version), Name: name, Version: version, URI: dir}, nil
}

// GetEnvironment mocks environment lookup.
func (m *MockClient) GetEnvironment(ctx context.Context, name, version string) (*Environment, error) {
	if m.GetEnvironmentFunc != nil {
		return m.GetEnvironmentFunc(ctx, name, version)
	}
	return &Environment{ID: mockID("environments", name+"/"+version), Name: name, Version: version}, nil
}

// CreateEnvironment mocks environment registration.
func (m *MockClient) CreateEnvironment(ctx context.Context, env Environment) (*Environment, error) {
	if m.CreateEnvironmentFunc != nil {
		return m.CreateEnvironmentFunc(ctx, env)
	}
	env.ID = mockID("environments", env.Name+"/"+env.Version)
	return &env, nil
}

// ResolveEnvironment mocks environment reference resolution.
func (m *MockClient) ResolveEnvironment(ctx context.Context, ref string) (string, error) {
	if m.ResolveEnvironmentFunc != nil {
		return m.ResolveEnvironmentFunc(ctx, ref)
	}
	return mockID("environments", ref), nil
}

// CreateJob mocks job submission.
func (m *MockClient) CreateJob(ctx context.Context, job CommandJob) (*Job, error) {
	if m.CreateJobFunc != nil {
		return m.CreateJobFunc(ctx, job)
	}
	return &Job{ID: mockID("jobs", job.Name), Name: job.Name, Status: JobStatusNotStarted}, nil
}

// GetJob mocks job lookup. The default job is already completed.
func (m *MockClient) GetJob(ctx context.Context, name string) (*Job, error) {
	if m.GetJobFunc != nil {
		return m.GetJobFunc(ctx, name)
	}
	return &Job{ID: mockID("jobs", name), Name: name, Status: JobStatusCompleted}, nil
}

// GetModel mocks model lookup.
func (m *MockClient) GetModel(ctx context.Context, name, version string) (*Model, error) {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(ctx, name, version)
	}
	return &Model{ID: mockID("models", name+"/"+version), Name: name, Version: version}, nil
}

// CreateModel mocks model registration.
func (m *MockClient) CreateModel(ctx context.Context, model Model) (*Model, error) {
	if m.CreateModelFunc != nil {
		return m.CreateModelFunc(ctx, model)
	}
	model.ID = mockID("models", model.Name+"/"+model.Version)
	return &model, nil
}

// GetEndpoint mocks endpoint lookup.
func (m *MockClient) GetEndpoint(ctx context.Context, name string) (*Endpoint, error) {
	if m.GetEndpointFunc != nil {
		return m.GetEndpointFunc(ctx, name)
	}
	return &Endpoint{ID: mockID("endpoints", name), Name: name, Traffic: map[string]int{}, ProvisioningState: ProvisioningSucceeded}, nil
}

// CreateEndpoint mocks endpoint creation.
func (m *MockClient) CreateEndpoint(ctx context.Context, endpoint Endpoint) (*Endpoint, error) {
	if m.CreateEndpointFunc != nil {
		return m.CreateEndpointFunc(ctx, endpoint)
	}
	endpoint.ID = mockID("endpoints", endpoint.Name)
	endpoint.ProvisioningState = ProvisioningSucceeded
	return &endpoint, nil
}

// UpdateEndpoint mocks endpoint updates.
func (m *MockClient) UpdateEndpoint(ctx context.Context, endpoint Endpoint) (*Endpoint, error) {
	if m.UpdateEndpointFunc != nil {
		return m.UpdateEndpointFunc(ctx, endpoint)
	}
	return &endpoint, nil
}

// GetDeployment mocks deployment lookup.
func (m *MockClient) GetDeployment(ctx context.Context, endpointName, name string) (*Deployment, error) {
	if m.GetDeploymentFunc != nil {
		return m.GetDeploymentFunc(ctx, endpointName, name)
	}
	return &Deployment{ID: mockID("deployments", endpointName+"/"+name), Name: name, EndpointName: endpointName, ProvisioningState: ProvisioningSucceeded}, nil
}

// CreateDeployment mocks deployment creation.
func (m *MockClient) CreateDeployment(ctx context.Context, deployment Deployment) (*Deployment, error) {
	if m.CreateDeploymentFunc != nil {
		return m.CreateDeploymentFunc(ctx, deployment)
	}
	deployment.ID = mockID("deployments", deployment.EndpointName+"/"+deployment.Name)
	deployment.ProvisioningState = ProvisioningSucceeded
	return &deployment, nil
}

// Invoke mocks scoring requests.
func (m *MockClient) Invoke(ctx context.Context, req InvokeRequest) ([]byte, error) {
	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, req)
	}
	return []byte("[]"), nil
}
