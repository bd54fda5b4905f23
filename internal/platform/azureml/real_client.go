package azureml

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/machinelearning/armmachinelearning/v4"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
)

const (
	inferenceScope = "https://ml.azure.com/.default"
	applicationID  = "amldeploy"
)

// Workspace identifies an Azure ML workspace.
type Workspace struct {
	SubscriptionID string
	ResourceGroup  string
	Name           string
}

// ResourceID returns the ARM ID of the workspace.
func (w Workspace) ResourceID() string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.MachineLearningServices/workspaces/%s",
		w.SubscriptionID, w.ResourceGroup, w.Name)
}

// RealClient implements WorkspaceClient and ServingClient on the Azure ML
// resource manager SDK. Scoring requests go straight to the endpoint.
type RealClient struct {
	workspace   Workspace
	cred        azcore.TokenCredential
	cloud       cloud.Configuration
	transport   policy.Transporter
	timeouts    *config.Timeouts
	newUploader UploaderFactory

	workspaces   *armmachinelearning.WorkspacesClient
	computes     *armmachinelearning.ComputeClient
	datastores   *armmachinelearning.DatastoresClient
	codes        *armmachinelearning.CodeVersionsClient
	environments *armmachinelearning.EnvironmentVersionsClient
	jobs         *armmachinelearning.JobsClient
	models       *armmachinelearning.ModelVersionsClient
	endpoints    *armmachinelearning.OnlineEndpointsClient
	deployments  *armmachinelearning.OnlineDeploymentsClient

	mu       sync.Mutex
	location string
}

// ClientOption configures a RealClient.
type ClientOption func(*RealClient)

// WithTimeouts sets polling and retry timeouts.
func WithTimeouts(t *config.Timeouts) ClientOption {
	return func(c *RealClient) {
		c.timeouts = t
	}
}

// WithTransport sets the HTTP transport used for management and scoring calls.
func WithTransport(t policy.Transporter) ClientOption {
	return func(c *RealClient) {
		c.transport = t
	}
}

// WithCloud points the client at a sovereign cloud.
func WithCloud(cfg cloud.Configuration) ClientOption {
	return func(c *RealClient) {
		c.cloud = cfg
	}
}

// WithUploaderFactory replaces the blob uploader used for code assets.
func WithUploaderFactory(f UploaderFactory) ClientOption {
	return func(c *RealClient) {
		c.newUploader = f
	}
}

var _ Client = (*RealClient)(nil)

// NewRealClient creates a client for ws authenticated with cred.
func NewRealClient(ws Workspace, cred azcore.TokenCredential, opts ...ClientOption) (*RealClient, error) {
	c := &RealClient{
		workspace:   ws,
		cred:        cred,
		cloud:       cloud.AzurePublic,
		transport:   http.DefaultClient,
		timeouts:    config.LoadTimeouts(),
		newUploader: newAzblobUploader,
	}
	for _, opt := range opts {
		opt(c)
	}

	factory, err := armmachinelearning.NewClientFactory(ws.SubscriptionID, cred, c.armOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure ML client: %w", err)
	}
	c.workspaces = factory.NewWorkspacesClient()
	c.computes = factory.NewComputeClient()
	c.datastores = factory.NewDatastoresClient()
	c.codes = factory.NewCodeVersionsClient()
	c.environments = factory.NewEnvironmentVersionsClient()
	c.jobs = factory.NewJobsClient()
	c.models = factory.NewModelVersionsClient()
	c.endpoints = factory.NewOnlineEndpointsClient()
	c.deployments = factory.NewOnlineDeploymentsClient()
	return c, nil
}

// armOptions maps the retry knobs onto the azcore retry policy, which retries
// throttling, server errors and transport failures.
func (c *RealClient) armOptions() *arm.ClientOptions {
	maxRetries := int32(c.timeouts.RetryMaxAttempts - 1)
	if maxRetries < 1 {
		// azcore reads zero as its own default of three
		maxRetries = -1
	}
	return &arm.ClientOptions{
		ClientOptions: policy.ClientOptions{
			Cloud:     c.cloud,
			Transport: c.transport,
			Retry: policy.RetryOptions{
				MaxRetries: maxRetries,
				RetryDelay: c.timeouts.RetryInitialDelay,
			},
			Telemetry: policy.TelemetryOptions{ApplicationID: applicationID},
		},
	}
}

// NewDefaultCredential returns the credential chain used by the Azure CLI and
// SDKs: environment, workload identity, managed identity, Azure CLI, ...
func NewDefaultCredential() (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	return cred, nil
}

// Location returns the workspace region. The value is cached.
func (c *RealClient) Location(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.location != "" {
		return c.location, nil
	}

	res, err := c.workspaces.Get(ctx, c.workspace.ResourceGroup, c.workspace.Name, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get workspace %s: %w", c.workspace.ResourceID(), armError(err))
	}
	c.location = deref(res.Location)
	return c.location, nil
}

func (c *RealClient) token(ctx context.Context, scope string) (string, error) {
	tok, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{scope}})
	if err != nil {
		return "", fmt.Errorf("failed to acquire token for %s: %w", scope, err)
	}
	return tok.Token, nil
}

// optional returns nil for an empty string so it is left out of request bodies.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
