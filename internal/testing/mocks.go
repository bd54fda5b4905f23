package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
)

// MockServingClient is a testify mock of azureml.ServingClient. It suits
// tests that assert exact call counts, such as the traffic cutover.
type MockServingClient struct {
	mock.Mock
}

var _ azureml.ServingClient = (*MockServingClient)(nil)

// GetEndpoint returns the mocked endpoint.
func (m *MockServingClient) GetEndpoint(ctx context.Context, name string) (*azureml.Endpoint, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*azureml.Endpoint), args.Error(1)
}

// CreateEndpoint returns the mocked endpoint.
func (m *MockServingClient) CreateEndpoint(ctx context.Context, endpoint azureml.Endpoint) (*azureml.Endpoint, error) {
	args := m.Called(ctx, endpoint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*azureml.Endpoint), args.Error(1)
}

// UpdateEndpoint returns the mocked endpoint.
func (m *MockServingClient) UpdateEndpoint(ctx context.Context, endpoint azureml.Endpoint) (*azureml.Endpoint, error) {
	args := m.Called(ctx, endpoint)
	if fn, ok := args.Get(0).(func(context.Context, azureml.Endpoint) *azureml.Endpoint); ok {
		return fn(ctx, endpoint), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*azureml.Endpoint), args.Error(1)
}

// GetDeployment returns the mocked deployment.
func (m *MockServingClient) GetDeployment(ctx context.Context, endpointName, name string) (*azureml.Deployment, error) {
	args := m.Called(ctx, endpointName, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*azureml.Deployment), args.Error(1)
}

// CreateDeployment returns the mocked deployment.
func (m *MockServingClient) CreateDeployment(ctx context.Context, deployment azureml.Deployment) (*azureml.Deployment, error) {
	args := m.Called(ctx, deployment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*azureml.Deployment), args.Error(1)
}

// Invoke returns the mocked response body.
func (m *MockServingClient) Invoke(ctx context.Context, req azureml.InvokeRequest) ([]byte, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// NewMockServingClient creates a MockServingClient that returns endpoint for
// every endpoint lookup and echoes updates.
func NewMockServingClient(endpoint *azureml.Endpoint) *MockServingClient {
	m := &MockServingClient{}
	m.On("GetEndpoint", mock.Anything, endpoint.Name).Return(endpoint, nil)
	return m
}

// WithEchoedUpdates configures UpdateEndpoint to return its argument.
func (m *MockServingClient) WithEchoedUpdates() *MockServingClient {
	m.On("UpdateEndpoint", mock.Anything, mock.Anything).
		Return(func(_ context.Context, ep azureml.Endpoint) *azureml.Endpoint { return &ep }, nil)
	return m
}
