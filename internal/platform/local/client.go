package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-logr/logr"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/util/retry"
)

// ContainerPort is the port the inference server listens on inside the container.
const ContainerPort = 5001

const (
	labelEndpoint   = "amldeploy.endpoint"
	labelDeployment = "amldeploy.deployment"
	logTail         = 50
)

// Client serves endpoints from local containers. It implements
// azureml.ServingClient.
type Client struct {
	store       *Store
	runtime     ContainerRuntime
	httpClient  *http.Client
	timeouts    *config.Timeouts
	log         logr.Logger
	host        string
	memoryBytes int64
	now         func() time.Time
}

var _ azureml.ServingClient = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for readiness checks and scoring.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeouts sets readiness and scoring timeouts.
func WithTimeouts(t *config.Timeouts) Option {
	return func(c *Client) {
		c.timeouts = t
	}
}

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithMemoryLimit caps the memory of deployment containers. Zero means no limit.
func WithMemoryLimit(bytes int64) Option {
	return func(c *Client) {
		c.memoryBytes = bytes
	}
}

// NewClient returns a local serving client.
func NewClient(store *Store, rt ContainerRuntime, opts ...Option) *Client {
	c := &Client{
		store:      store,
		runtime:    rt,
		httpClient: http.DefaultClient,
		timeouts:   config.LoadTimeouts(),
		log:        logr.Discard(),
		host:       loopback,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetEndpoint returns an error matching azureml.ErrNotFound when the endpoint
// has never been created locally.
func (c *Client) GetEndpoint(_ context.Context, name string) (*azureml.Endpoint, error) {
	rec, err := c.store.Get(name)
	if err != nil {
		return nil, err
	}
	return c.toEndpoint(rec), nil
}

// CreateEndpoint records a new local endpoint. No container is started until
// a deployment is created.
func (c *Client) CreateEndpoint(_ context.Context, ep azureml.Endpoint) (*azureml.Endpoint, error) {
	rec := &EndpointRecord{
		Name:        ep.Name,
		CreatedAt:   c.now().UTC(),
		Traffic:     copyTraffic(ep.Traffic),
		Deployments: map[string]*DeploymentRecord{},
	}
	if err := c.store.Put(rec); err != nil {
		return nil, err
	}
	c.log.V(1).Info("recorded local endpoint", "endpoint", ep.Name, "dir", c.store.Dir())
	return c.toEndpoint(rec), nil
}

// UpdateEndpoint stores the endpoint's traffic split.
func (c *Client) UpdateEndpoint(_ context.Context, ep azureml.Endpoint) (*azureml.Endpoint, error) {
	rec, err := c.store.Get(ep.Name)
	if err != nil {
		return nil, err
	}
	rec.Traffic = copyTraffic(ep.Traffic)
	if err := c.store.Put(rec); err != nil {
		return nil, err
	}
	return c.toEndpoint(rec), nil
}

// GetDeployment reports a deployment whose container is gone or stopped as
// not found, so the workflow recreates it.
func (c *Client) GetDeployment(ctx context.Context, endpointName, name string) (*azureml.Deployment, error) {
	rec, err := c.store.Get(endpointName)
	if err != nil {
		return nil, err
	}
	d, ok := rec.Deployments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrDeploymentNotFound, endpointName, name)
	}

	info, err := c.runtime.InspectContainer(ctx, d.Container)
	if errors.Is(err, ErrContainerNotFound) {
		return nil, fmt.Errorf("%w: %s/%s (container %s is gone)", ErrDeploymentNotFound, endpointName, name, d.Container)
	}
	if err != nil {
		return nil, err
	}
	if !info.Running {
		return nil, fmt.Errorf("%w: %s/%s (container %s is not running)", ErrDeploymentNotFound, endpointName, name, d.Container)
	}

	d.HostPort = info.HostPort
	return toDeployment(endpointName, d), nil
}

// CreateDeployment builds the deployment image, replaces any previous
// container and waits until the inference server answers. The model is read
// from d.ModelPath on the local filesystem.
func (c *Client) CreateDeployment(ctx context.Context, d azureml.Deployment) (*azureml.Deployment, error) {
	if err := validateDeployment(d); err != nil {
		return nil, err
	}

	rec, err := c.store.Get(d.EndpointName)
	if err != nil {
		return nil, err
	}

	modelPath, err := filepath.Abs(d.ModelPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model path %s: %w", d.ModelPath, err)
	}
	codePath, err := filepath.Abs(d.Code.Path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(codePath, d.Code.ScoringScript)); err != nil {
		return nil, fmt.Errorf("scoring script: %w", err)
	}

	// #nosec G304
	conda, err := os.ReadFile(d.Environment.CondaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read conda file: %w", err)
	}
	buildContext, err := BuildContext(d.Environment.Image, conda)
	if err != nil {
		return nil, err
	}

	tag := ImageTag(d.EndpointName, d.Name)
	c.log.Info("building local deployment image", "image", tag, "base", d.Environment.Image)
	if err := c.runtime.BuildImage(ctx, tag, buildContext); err != nil {
		return nil, err
	}

	name := ContainerName(d.EndpointName, d.Name)
	if err := c.runtime.RemoveContainer(ctx, name); err != nil {
		return nil, err
	}

	info, err := c.runtime.RunContainer(ctx, ContainerSpec{
		Name:  name,
		Image: tag,
		Env: []string{
			"AZUREML_MODEL_DIR=" + modelRoot,
			"AZUREML_ENTRY_SCRIPT=" + d.Code.ScoringScript,
			"AML_APP_ROOT=" + codeRoot,
		},
		Mounts: []Mount{
			{Source: modelPath, Target: modelRoot + "/" + filepath.Base(modelPath), ReadOnly: true},
			{Source: codePath, Target: codeRoot, ReadOnly: true},
		},
		Port:        ContainerPort,
		Labels:      map[string]string{labelEndpoint: d.EndpointName, labelDeployment: d.Name},
		MemoryBytes: c.memoryBytes,
	})
	if err != nil {
		return nil, err
	}
	if info.HostPort == 0 {
		return nil, fmt.Errorf("container %s did not publish port %d", name, ContainerPort)
	}

	c.log.Info("waiting for local deployment", "container", name, "port", info.HostPort)
	if err := c.waitReady(ctx, name, info.HostPort); err != nil {
		if logs, logErr := c.runtime.Logs(ctx, name, logTail); logErr == nil && logs != "" {
			return nil, fmt.Errorf("%w\ncontainer logs:\n%s", err, logs)
		}
		return nil, err
	}

	dr := &DeploymentRecord{
		Name:          d.Name,
		ModelPath:     modelPath,
		CodePath:      codePath,
		ScoringScript: d.Code.ScoringScript,
		BaseImage:     d.Environment.Image,
		Image:         tag,
		Container:     name,
		HostPort:      info.HostPort,
		CreatedAt:     c.now().UTC(),
	}
	rec.Deployments[d.Name] = dr
	if len(rec.Traffic) == 0 {
		rec.Traffic = map[string]int{d.Name: 100}
	}
	if err := c.store.Put(rec); err != nil {
		return nil, err
	}
	return toDeployment(d.EndpointName, dr), nil
}

func validateDeployment(d azureml.Deployment) error {
	switch {
	case d.ModelPath == "":
		return fmt.Errorf("local deployment %s needs a local model path", d.Name)
	case d.Environment == nil || d.Environment.Image == "" || d.Environment.CondaFile == "":
		return fmt.Errorf("local deployment %s needs a base image and a conda file", d.Name)
	case d.Code == nil || d.Code.Path == "" || d.Code.ScoringScript == "":
		return fmt.Errorf("local deployment %s needs a code directory and a scoring script", d.Name)
	}
	return nil
}

// waitReady polls the inference server's liveness route until it answers
// or the container stops.
func (c *Client) waitReady(ctx context.Context, container string, port int) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.OperationTimeout)
	defer cancel()

	url := c.baseURL(port) + "/"
	err := retry.Until(ctx, c.timeouts.OperationPollInterval, func(ctx context.Context) (bool, error) {
		info, err := c.runtime.InspectContainer(ctx, container)
		if err != nil {
			return false, err
		}
		if !info.Running {
			return false, fmt.Errorf("container %s exited", container)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return false, nil
		}
		_ = resp.Body.Close()
		return resp.StatusCode < http.StatusInternalServerError, nil
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timed out waiting for container %s to serve: %w", container, err)
	}
	return err
}

// Invoke posts the payload to the deployment's /score route. Without a
// deployment name the deployment with the most traffic is used.
func (c *Client) Invoke(ctx context.Context, req azureml.InvokeRequest) ([]byte, error) {
	rec, err := c.store.Get(req.EndpointName)
	if err != nil {
		return nil, err
	}

	name := req.DeploymentName
	if name == "" {
		name = primaryDeployment(rec)
	}
	d, ok := rec.Deployments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrDeploymentNotFound, req.EndpointName, name)
	}

	info, err := c.runtime.InspectContainer(ctx, d.Container)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.InvokeTimeout)
	defer cancel()

	scoringURI := c.baseURL(info.HostPort) + "/score"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, scoringURI, bytes.NewReader(req.Payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke local endpoint %s: %w", req.EndpointName, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read scoring response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &azureml.ResponseError{
			StatusCode: resp.StatusCode,
			Method:     http.MethodPost,
			URL:        scoringURI,
			Message:    string(bytes.TrimSpace(body)),
		}
	}
	return body, nil
}

func (c *Client) baseURL(port int) string {
	return "http://" + c.host + ":" + strconv.Itoa(port)
}

func (c *Client) toEndpoint(rec *EndpointRecord) *azureml.Endpoint {
	ep := &azureml.Endpoint{
		ID:                "local:" + rec.Name,
		Name:              rec.Name,
		Kind:              azureml.EndpointKindLocal,
		AuthMode:          azureml.AuthModeKey,
		Traffic:           copyTraffic(rec.Traffic),
		ProvisioningState: azureml.ProvisioningSucceeded,
	}
	if d, ok := rec.Deployments[primaryDeployment(rec)]; ok && d.HostPort > 0 {
		ep.ScoringURI = c.baseURL(d.HostPort) + "/score"
	}
	return ep
}

func toDeployment(endpointName string, d *DeploymentRecord) *azureml.Deployment {
	return &azureml.Deployment{
		ID:           "local:" + endpointName + "/" + d.Name,
		Name:         d.Name,
		EndpointName: endpointName,
		Kind:         azureml.EndpointKindLocal,
		ModelPath:    d.ModelPath,
		Environment:  &azureml.EnvironmentSpec{Image: d.BaseImage},
		Code: &azureml.CodeConfiguration{
			Path:          d.CodePath,
			ScoringScript: d.ScoringScript,
		},
		InstanceCount:     1,
		ProvisioningState: azureml.ProvisioningSucceeded,
	}
}

// primaryDeployment picks the deployment with the largest traffic share,
// falling back to the first by name.
func primaryDeployment(rec *EndpointRecord) string {
	best, bestShare := "", -1
	for _, name := range rec.DeploymentNames() {
		if share := rec.Traffic[name]; share > bestShare {
			best, bestShare = name, share
		}
	}
	return best
}

func copyTraffic(in map[string]int) map[string]int {
	if len(in) == 0 {
		return map[string]int{}
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
