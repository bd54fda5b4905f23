package provisioning

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
)

// servingTarget is the per-target slice of the settings the serving phases
// need.
type servingTarget struct {
	Kind          azureml.EndpointKind
	Endpoint      string
	Deployment    string
	InstanceType  string
	InstanceCount int
	RequestFile   string
	Cutover       bool
	Invoke        bool
}

func targetSettings(ctx *Context) (servingTarget, error) {
	s := ctx.Config.Settings
	switch ctx.Target {
	case config.TargetManaged:
		return servingTarget{
			Kind:          azureml.EndpointKindManaged,
			Endpoint:      s.Managed.Endpoint,
			Deployment:    s.Managed.Deployment,
			InstanceType:  s.Managed.InstanceType,
			InstanceCount: s.Managed.InstanceCount,
			RequestFile:   s.Managed.RequestFile,
			Cutover:       s.Managed.Cutover,
			Invoke:        true,
		}, nil
	case config.TargetKubernetes:
		return servingTarget{
			Kind:          azureml.EndpointKindKubernetes,
			Endpoint:      s.Kubernetes.Endpoint,
			Deployment:    s.Kubernetes.Deployment,
			InstanceType:  s.Kubernetes.InstanceType,
			InstanceCount: s.Kubernetes.InstanceCount,
			RequestFile:   s.Kubernetes.RequestFile,
			Cutover:       s.Kubernetes.Cutover,
			Invoke:        s.Kubernetes.Invoke,
		}, nil
	case config.TargetLocal:
		return servingTarget{
			Kind:        azureml.EndpointKindLocal,
			Endpoint:    s.Local.Endpoint,
			Deployment:  s.Local.Deployment,
			RequestFile: s.Local.RequestFile,
			Invoke:      true,
		}, nil
	default:
		return servingTarget{}, fmt.Errorf("unknown target %q", ctx.Target)
	}
}

// InferenceComputePhase resolves the attached Kubernetes compute. It is never
// created here; attaching a cluster happens outside the workspace API.
type InferenceComputePhase struct{}

// Name implements Phase.
func (InferenceComputePhase) Name() string { return "inference-compute" }

// Provision implements Phase.
func (InferenceComputePhase) Provision(ctx *Context) error {
	name := ctx.Config.Env.KubernetesCluster

	compute, err := ctx.Workspace.GetCompute(ctx, name)
	if err != nil {
		ctx.Metrics.recordEnsure(KindCompute, resultFailed)
		if azureml.IsNotFound(err) {
			return fmt.Errorf("kubernetes compute %s is not attached to the workspace: %w", name, err)
		}
		return fmt.Errorf("failed to look up compute %s: %w", name, err)
	}
	if compute.Type != azureml.ComputeTypeKubernetes {
		ctx.Metrics.recordEnsure(KindCompute, resultInvalid)
		return fmt.Errorf("compute %s has type %s, expected %s", name, compute.Type, azureml.ComputeTypeKubernetes)
	}

	ctx.Metrics.recordEnsure(KindCompute, resultExists)
	LogResourceExists(ctx.Observer, ctx.phase, KindCompute, name, compute.ID)
	ctx.State.InferenceCompute = compute
	return nil
}

// EndpointPhase resolves the target's online endpoint, creating it if absent.
type EndpointPhase struct{}

// Name implements Phase.
func (EndpointPhase) Name() string { return "endpoint" }

// Provision implements Phase.
func (EndpointPhase) Provision(ctx *Context) error {
	target, err := targetSettings(ctx)
	if err != nil {
		return err
	}

	spec := azureml.Endpoint{
		Name:     target.Endpoint,
		Kind:     target.Kind,
		AuthMode: azureml.AuthModeKey,
	}
	if target.Kind == azureml.EndpointKindKubernetes {
		if ctx.State.InferenceCompute == nil {
			return errors.New("kubernetes compute has not been resolved")
		}
		spec.ComputeID = computeRef(ctx.State.InferenceCompute)
	}

	endpoint, err := Ensure(ctx, EnsureOperation[*azureml.Endpoint]{
		Kind: KindEndpoint,
		Name: target.Endpoint,
		Get: func(c context.Context) (*azureml.Endpoint, error) {
			return ctx.Serving.GetEndpoint(c, target.Endpoint)
		},
		Create: func(c context.Context) (*azureml.Endpoint, error) {
			return ctx.Serving.CreateEndpoint(c, spec)
		},
		Validate: func(ep *azureml.Endpoint) error {
			if ep.Kind != "" && ep.Kind != target.Kind {
				return fmt.Errorf("endpoint is %s, expected %s", ep.Kind, target.Kind)
			}
			return nil
		},
		ID: func(ep *azureml.Endpoint) string { return ep.ID },
	})
	if err != nil {
		return err
	}
	ctx.State.Endpoint = endpoint
	return nil
}

// DeploymentPhase resolves the deployment under the endpoint resolved
// earlier in the run, creating it if absent.
type DeploymentPhase struct{}

// Name implements Phase.
func (DeploymentPhase) Name() string { return "deployment" }

// Provision implements Phase.
func (DeploymentPhase) Provision(ctx *Context) error {
	target, err := targetSettings(ctx)
	if err != nil {
		return err
	}
	if ctx.State.Endpoint == nil {
		return fmt.Errorf("endpoint %s has not been resolved", target.Endpoint)
	}

	deployment, err := Ensure(ctx, EnsureOperation[*azureml.Deployment]{
		Kind: KindDeployment,
		Name: target.Endpoint + "/" + target.Deployment,
		Get: func(c context.Context) (*azureml.Deployment, error) {
			return ctx.Serving.GetDeployment(c, target.Endpoint, target.Deployment)
		},
		Create: func(c context.Context) (*azureml.Deployment, error) {
			spec, err := deploymentSpec(ctx, target)
			if err != nil {
				return nil, err
			}
			return ctx.Serving.CreateDeployment(c, spec)
		},
		Validate: func(d *azureml.Deployment) error {
			if d.ProvisioningState == azureml.ProvisioningFailed {
				return fmt.Errorf("deployment is in state %s, delete it and run again", d.ProvisioningState)
			}
			return nil
		},
		ID: func(d *azureml.Deployment) string { return d.ID },
	})
	if err != nil {
		return err
	}
	ctx.State.Deployment = deployment
	return nil
}

func deploymentSpec(ctx *Context, target servingTarget) (azureml.Deployment, error) {
	serving := ctx.Config.Settings.Serving
	spec := azureml.Deployment{
		Name:          target.Deployment,
		EndpointName:  target.Endpoint,
		Kind:          target.Kind,
		InstanceType:  target.InstanceType,
		InstanceCount: target.InstanceCount,
	}

	switch target.Kind {
	case azureml.EndpointKindManaged:
		if ctx.State.Model == nil {
			return spec, errors.New("model has not been resolved")
		}
		spec.ModelID = ctx.State.Model.ID

	case azureml.EndpointKindKubernetes:
		if ctx.State.Model == nil {
			return spec, errors.New("model has not been resolved")
		}
		spec.ModelID = ctx.State.Model.ID

		envID, err := ensureServingEnvironment(ctx)
		if err != nil {
			return spec, err
		}
		spec.EnvironmentID = envID
		spec.Environment = &azureml.EnvironmentSpec{Image: serving.Image, CondaFile: serving.CondaFile}

		code, err := ensureCode(ctx, serving.CodeDir)
		if err != nil {
			return spec, err
		}
		ctx.State.ServingCode = code
		spec.Code = &azureml.CodeConfiguration{CodeID: code.ID, ScoringScript: serving.ScoringScript}

	case azureml.EndpointKindLocal:
		spec.ModelPath = ctx.Config.Settings.Local.ModelPath
		spec.Environment = &azureml.EnvironmentSpec{Image: serving.Image, CondaFile: serving.CondaFile}
		spec.Code = &azureml.CodeConfiguration{Path: serving.CodeDir, ScoringScript: serving.ScoringScript}
	}
	return spec, nil
}

// ensureServingEnvironment registers the base image plus conda file as an
// anonymous environment versioned by their content.
func ensureServingEnvironment(ctx *Context) (string, error) {
	serving := ctx.Config.Settings.Serving

	// #nosec G304
	conda, err := os.ReadFile(serving.CondaFile)
	if err != nil {
		return "", fmt.Errorf("failed to read conda file: %w", err)
	}
	name := azureml.AnonymousEnvironmentName
	version := azureml.HashEnvironment(serving.Image, string(conda))

	env, err := Ensure(ctx, EnsureOperation[*azureml.Environment]{
		Kind: KindEnvironment,
		Name: name + ":" + version,
		Get: func(c context.Context) (*azureml.Environment, error) {
			return ctx.Workspace.GetEnvironment(c, name, version)
		},
		Create: func(c context.Context) (*azureml.Environment, error) {
			return ctx.Workspace.CreateEnvironment(c, azureml.Environment{
				Name:      name,
				Version:   version,
				Image:     serving.Image,
				CondaFile: string(conda),
			})
		},
		ID: func(e *azureml.Environment) string { return e.ID },
	})
	if err != nil {
		return "", err
	}
	ctx.State.EnvironmentID = env.ID
	return env.ID, nil
}
