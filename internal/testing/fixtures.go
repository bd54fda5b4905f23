package testing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
)

// Sample project content.
const (
	TrainScript = "import argparse\nprint('training')\n"
	ScoreScript = "def init():\n    pass\n\ndef run(raw):\n    return [0]\n"
	CondaFile   = "name: iris\ndependencies:\n  - python=3.7\n  - pip:\n    - mlflow\n    - lightgbm\n"
	MLmodelFile = "flavors:\n  python_function:\n    loader_module: mlflow.lightgbm\n"
	RequestBody = `{"input_data": [[5.1, 3.5, 1.4, 0.2]]}`
)

// Project is a sample project tree laid out like the default settings
// expect it: training/, scoring/, model/ and data/.
type Project struct {
	Dir string
}

// NewProject writes the sample project into a temporary directory.
func NewProject(t *testing.T) *Project {
	t.Helper()
	dir := t.TempDir()
	WriteFile(t, dir, "training/train.py", TrainScript)
	WriteFile(t, dir, "scoring/score.py", ScoreScript)
	WriteFile(t, dir, "model/conda.yaml", CondaFile)
	WriteFile(t, dir, "model/MLmodel", MLmodelFile)
	WriteFile(t, dir, "data/request.json", RequestBody)
	WriteFile(t, dir, "data/request-local.json", RequestBody)
	return &Project{Dir: dir}
}

// PlatformFixture is a stateful fake workspace. Lookups report not found
// until the resource is created; every call is recorded in order.
type PlatformFixture struct {
	mock *azureml.MockClient

	mu          sync.Mutex
	calls       []string
	computes    map[string]*azureml.ComputeTarget
	codes       map[string]*azureml.CodeAsset
	envs        map[string]*azureml.Environment
	models      map[string]*azureml.Model
	endpoints   map[string]*azureml.Endpoint
	deployments map[string]*azureml.Deployment
	jobStatuses []azureml.JobStatus
	response    []byte
}

// NewPlatformFixture creates an empty workspace whose jobs complete on the
// first status check.
func NewPlatformFixture() *PlatformFixture {
	f := &PlatformFixture{
		mock:        &azureml.MockClient{},
		computes:    map[string]*azureml.ComputeTarget{},
		codes:       map[string]*azureml.CodeAsset{},
		envs:        map[string]*azureml.Environment{},
		models:      map[string]*azureml.Model{},
		endpoints:   map[string]*azureml.Endpoint{},
		deployments: map[string]*azureml.Deployment{},
		jobStatuses: []azureml.JobStatus{azureml.JobStatusCompleted},
		response:    []byte(`[0]`),
	}
	f.wire()
	return f
}

// Client returns the mock backed by the fixture. Its function fields may be
// overridden for individual tests.
func (f *PlatformFixture) Client() *azureml.MockClient {
	return f.mock
}

// WithJobStatuses scripts the statuses returned by successive GetJob calls.
// The last status repeats.
func (f *PlatformFixture) WithJobStatuses(statuses ...azureml.JobStatus) *PlatformFixture {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobStatuses = statuses
	return f
}

// WithCompute seeds an existing compute.
func (f *PlatformFixture) WithCompute(ct azureml.ComputeTarget) *PlatformFixture {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ct.ID == "" {
		ct.ID = "/computes/" + ct.Name
	}
	f.computes[ct.Name] = &ct
	return f
}

// WithModel seeds a registered model version.
func (f *PlatformFixture) WithModel(name, version string) *PlatformFixture {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models[name+":"+version] = &azureml.Model{ID: "/models/" + name + "/versions/" + version, Name: name, Version: version}
	return f
}

// WithEndpoint seeds an existing endpoint.
func (f *PlatformFixture) WithEndpoint(ep azureml.Endpoint) *PlatformFixture {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ep.ID == "" {
		ep.ID = "/endpoints/" + ep.Name
	}
	f.endpoints[ep.Name] = &ep
	return f
}

// WithResponse sets the body returned by Invoke.
func (f *PlatformFixture) WithResponse(body []byte) *PlatformFixture {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.response = body
	return f
}

// Calls returns every recorded method name in call order.
func (f *PlatformFixture) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Mutations returns the recorded Create*, Update* and Invoke calls in order.
func (f *PlatformFixture) Mutations() []string {
	var out []string
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, "Create") || strings.HasPrefix(c, "Update") || strings.HasPrefix(c, "Upload") || c == "Invoke" {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how often method was called.
func (f *PlatformFixture) Count(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == method {
			n++
		}
	}
	return n
}

// Endpoint returns the stored endpoint, or nil.
func (f *PlatformFixture) Endpoint(name string) *azureml.Endpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endpoints[name]
}

func (f *PlatformFixture) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)
}

func notFound(kind, name string) error {
	return &azureml.NotFoundError{Kind: kind, Name: name}
}

func lookup[T any](f *PlatformFixture, m map[string]*T, kind, key string) (*T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := m[key]
	if !ok {
		return nil, notFound(kind, key)
	}
	c := *v
	return &c, nil
}

func store[T any](f *PlatformFixture, m map[string]*T, key string, v T) *T {
	f.mu.Lock()
	defer f.mu.Unlock()
	m[key] = &v
	c := v
	return &c
}

func (f *PlatformFixture) wire() {
	m := f.mock

	m.GetComputeFunc = func(_ context.Context, name string) (*azureml.ComputeTarget, error) {
		f.record("GetCompute")
		return lookup(f, f.computes, "compute", name)
	}
	m.CreateComputeFunc = func(_ context.Context, ct azureml.ComputeTarget) (*azureml.ComputeTarget, error) {
		f.record("CreateCompute")
		ct.ID = "/computes/" + ct.Name
		ct.ProvisioningState = azureml.ProvisioningSucceeded
		return store(f, f.computes, ct.Name, ct), nil
	}

	m.GetCodeFunc = func(_ context.Context, name, version string) (*azureml.CodeAsset, error) {
		f.record("GetCode")
		return lookup(f, f.codes, "code", name+":"+version)
	}
	m.UploadCodeFunc = func(_ context.Context, name, version, _ string) (*azureml.CodeAsset, error) {
		f.record("UploadCode")
		asset := azureml.CodeAsset{ID: "/codes/" + name + "/versions/" + version, Name: name, Version: version}
		return store(f, f.codes, name+":"+version, asset), nil
	}
	m.GetEnvironmentFunc = func(_ context.Context, name, version string) (*azureml.Environment, error) {
		f.record("GetEnvironment")
		return lookup(f, f.envs, "environment", name+":"+version)
	}
	m.CreateEnvironmentFunc = func(_ context.Context, env azureml.Environment) (*azureml.Environment, error) {
		f.record("CreateEnvironment")
		env.ID = "/environments/" + env.Name + "/versions/" + env.Version
		return store(f, f.envs, env.Name+":"+env.Version, env), nil
	}
	m.ResolveEnvironmentFunc = func(_ context.Context, ref string) (string, error) {
		f.record("ResolveEnvironment")
		return "/environments/" + ref, nil
	}

	m.CreateJobFunc = func(_ context.Context, job azureml.CommandJob) (*azureml.Job, error) {
		f.record("CreateJob")
		return &azureml.Job{ID: "/jobs/" + job.Name, Name: job.Name, Status: azureml.JobStatusNotStarted}, nil
	}
	m.GetJobFunc = func(_ context.Context, name string) (*azureml.Job, error) {
		f.record("GetJob")
		f.mu.Lock()
		defer f.mu.Unlock()
		if len(f.jobStatuses) == 0 {
			return nil, fmt.Errorf("no job status scripted")
		}
		status := f.jobStatuses[0]
		if len(f.jobStatuses) > 1 {
			f.jobStatuses = f.jobStatuses[1:]
		}
		return &azureml.Job{ID: "/jobs/" + name, Name: name, Status: status}, nil
	}

	m.GetModelFunc = func(_ context.Context, name, version string) (*azureml.Model, error) {
		f.record("GetModel")
		return lookup(f, f.models, "model", name+":"+version)
	}
	m.CreateModelFunc = func(_ context.Context, model azureml.Model) (*azureml.Model, error) {
		f.record("CreateModel")
		model.ID = "/models/" + model.Name + "/versions/" + model.Version
		return store(f, f.models, model.Name+":"+model.Version, model), nil
	}

	m.GetEndpointFunc = func(_ context.Context, name string) (*azureml.Endpoint, error) {
		f.record("GetEndpoint")
		return lookup(f, f.endpoints, "endpoint", name)
	}
	m.CreateEndpointFunc = func(_ context.Context, ep azureml.Endpoint) (*azureml.Endpoint, error) {
		f.record("CreateEndpoint")
		ep.ID = "/endpoints/" + ep.Name
		ep.ScoringURI = "https://" + ep.Name + ".westeurope.inference.ml.azure.com/score"
		ep.ProvisioningState = azureml.ProvisioningSucceeded
		if ep.Traffic == nil {
			ep.Traffic = map[string]int{}
		}
		return store(f, f.endpoints, ep.Name, ep), nil
	}
	m.UpdateEndpointFunc = func(_ context.Context, ep azureml.Endpoint) (*azureml.Endpoint, error) {
		f.record("UpdateEndpoint")
		return store(f, f.endpoints, ep.Name, ep), nil
	}

	m.GetDeploymentFunc = func(_ context.Context, endpointName, name string) (*azureml.Deployment, error) {
		f.record("GetDeployment")
		return lookup(f, f.deployments, "deployment", endpointName+"/"+name)
	}
	m.CreateDeploymentFunc = func(_ context.Context, d azureml.Deployment) (*azureml.Deployment, error) {
		f.record("CreateDeployment")
		d.ID = "/endpoints/" + d.EndpointName + "/deployments/" + d.Name
		d.ProvisioningState = azureml.ProvisioningSucceeded
		return store(f, f.deployments, d.EndpointName+"/"+d.Name, d), nil
	}

	m.InvokeFunc = func(_ context.Context, _ azureml.InvokeRequest) ([]byte, error) {
		f.record("Invoke")
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.response, nil
	}
}
