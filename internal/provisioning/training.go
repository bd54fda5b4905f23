package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/util/retry"
)

// ComputePhase resolves the training cluster, creating it if absent.
type ComputePhase struct{}

// Name implements Phase.
func (ComputePhase) Name() string { return "compute" }

// Provision implements Phase.
func (ComputePhase) Provision(ctx *Context) error {
	name := ctx.Config.Env.TrainingCluster
	size := ctx.Config.Settings.Training.Compute

	compute, err := Ensure(ctx, EnsureOperation[*azureml.ComputeTarget]{
		Kind: KindCompute,
		Name: name,
		Get: func(c context.Context) (*azureml.ComputeTarget, error) {
			return ctx.Workspace.GetCompute(c, name)
		},
		Create: func(c context.Context) (*azureml.ComputeTarget, error) {
			return ctx.Workspace.CreateCompute(c, azureml.ComputeTarget{
				Name:         name,
				Type:         azureml.ComputeTypeAML,
				Size:         size.Size,
				MinInstances: size.MinInstances,
				MaxInstances: size.MaxInstances,
			})
		},
		ID: func(ct *azureml.ComputeTarget) string { return ct.ID },
	})
	if err != nil {
		return err
	}
	ctx.State.Compute = compute
	return nil
}

// ModelPhase resolves the configured model version, training and registering
// it when the registry does not have it.
type ModelPhase struct{}

// Name implements Phase.
func (ModelPhase) Name() string { return "model" }

// Provision implements Phase.
func (ModelPhase) Provision(ctx *Context) error {
	name, version := ctx.Config.Env.ModelName, ctx.Config.Env.ModelVersion

	model, err := Ensure(ctx, EnsureOperation[*azureml.Model]{
		Kind: KindModel,
		Name: name + ":" + version,
		Get: func(c context.Context) (*azureml.Model, error) {
			return ctx.Workspace.GetModel(c, name, version)
		},
		Create: func(context.Context) (*azureml.Model, error) {
			return TrainAndRegister(ctx)
		},
		ID: func(m *azureml.Model) string { return m.ID },
	})
	if err != nil {
		return err
	}
	ctx.State.Model = model
	return nil
}

// ModelLookupPhase requires the configured model version to be registered
// already. Targets that do not train use it.
type ModelLookupPhase struct{}

// Name implements Phase.
func (ModelLookupPhase) Name() string { return "model" }

// Provision implements Phase.
func (ModelLookupPhase) Provision(ctx *Context) error {
	name, version := ctx.Config.Env.ModelName, ctx.Config.Env.ModelVersion

	model, err := ctx.Workspace.GetModel(ctx, name, version)
	if err != nil {
		ctx.Metrics.recordEnsure(KindModel, resultFailed)
		if azureml.IsNotFound(err) {
			return fmt.Errorf("model %s:%s is not registered, run 'amldeploy train' first: %w", name, version, err)
		}
		return fmt.Errorf("failed to look up model %s:%s: %w", name, version, err)
	}

	ctx.Metrics.recordEnsure(KindModel, resultExists)
	LogResourceExists(ctx.Observer, ctx.phase, KindModel, name+":"+version, model.ID)
	ctx.State.Model = model
	return nil
}

// TrainAndRegister uploads the training code, runs the training command job
// on the resolved compute, waits for it and registers the job's model output
// under the configured name and version.
func TrainAndRegister(ctx *Context) (*azureml.Model, error) {
	if ctx.State.Compute == nil {
		return nil, errors.New("training compute has not been resolved")
	}
	training := ctx.Config.Settings.Training

	code, err := ensureCode(ctx, training.CodeDir)
	if err != nil {
		return nil, err
	}
	ctx.State.Code = code

	envID, err := ctx.Workspace.ResolveEnvironment(ctx, training.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve training environment %s: %w", training.Environment, err)
	}

	jobName := ctx.NewJobName()
	LogResourceCreating(ctx.Observer, ctx.phase, KindJob, jobName)
	submitted, err := ctx.Workspace.CreateJob(ctx, azureml.CommandJob{
		Name:           jobName,
		DisplayName:    training.ExperimentName,
		ExperimentName: training.ExperimentName,
		CodeID:         code.ID,
		Command:        training.Command,
		EnvironmentID:  envID,
		ComputeID:      computeRef(ctx.State.Compute),
		Inputs:         jobInputs(training.Inputs),
	})
	if err != nil {
		LogResourceFailed(ctx.Observer, ctx.phase, KindJob, jobName, err)
		return nil, fmt.Errorf("failed to submit training job: %w", err)
	}
	LogResourceCreated(ctx.Observer, ctx.phase, KindJob, submitted.Name, submitted.ID)

	job, err := WaitForJob(ctx, submitted)
	if job != nil {
		ctx.State.Job = job
	}
	if err != nil {
		return nil, err
	}

	model := ctx.Config.Settings.Model
	registered, err := ctx.Workspace.CreateModel(ctx, azureml.Model{
		Name:        ctx.Config.Env.ModelName,
		Version:     ctx.Config.Env.ModelVersion,
		Path:        azureml.JobOutputModelPath(job.Name),
		Type:        azureml.ModelType(model.Type),
		Description: model.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register model from job %s: %w", job.Name, err)
	}
	return registered, nil
}

// WaitForJob polls the job until it reaches a terminal status. Completed is
// the only success; Failed and Canceled return a *TrainingFailedError. The
// wait is bounded by the job timeout.
func WaitForJob(ctx *Context, job *azureml.Job) (*azureml.Job, error) {
	tracker := NewJobTracker(job.Name)
	if _, err := tracker.Observe(job.Status); err != nil {
		return job, err
	}

	interval := ctx.Timeouts.JobPollInterval
	var opts []retry.Option
	if maxInterval := ctx.Timeouts.JobPollMaxInterval; maxInterval > interval {
		opts = append(opts, retry.WithMultiplier(1.5), retry.WithMaxDelay(maxInterval))
	}

	waitCtx, cancel := context.WithTimeout(ctx, ctx.Timeouts.JobTimeout)
	defer cancel()

	start := time.Now()
	last := job
	err := retry.Until(waitCtx, interval, func(c context.Context) (bool, error) {
		current, err := ctx.Workspace.GetJob(c, job.Name)
		if err != nil {
			return false, fmt.Errorf("failed to get status of job %s: %w", job.Name, err)
		}
		ctx.Metrics.recordJobPoll()
		last = current

		LogJobStatus(ctx.Observer, ctx.phase, job.Name, string(current.Status))
		if _, err := tracker.Observe(current.Status); err != nil {
			return false, err
		}
		return tracker.Terminal(), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return last, fmt.Errorf("timed out after %v waiting for job %s (last status %s): %w",
				ctx.Timeouts.JobTimeout, job.Name, last.Status, err)
		}
		return last, err
	}

	ctx.Metrics.recordJobFinished(tracker.State(), time.Since(start))
	if !tracker.Succeeded() {
		return last, &TrainingFailedError{JobName: job.Name, Status: last.Status}
	}
	return last, nil
}

// ensureCode registers dir as a content-addressed code asset.
func ensureCode(ctx *Context, dir string) (*azureml.CodeAsset, error) {
	hash, err := azureml.HashDirectory(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code directory %s: %w", dir, err)
	}
	version := azureml.AnonymousAssetVersion

	return Ensure(ctx, EnsureOperation[*azureml.CodeAsset]{
		Kind: KindCode,
		Name: hash,
		Get: func(c context.Context) (*azureml.CodeAsset, error) {
			return ctx.Workspace.GetCode(c, hash, version)
		},
		Create: func(c context.Context) (*azureml.CodeAsset, error) {
			return ctx.Workspace.UploadCode(c, hash, version, dir)
		},
		ID: func(a *azureml.CodeAsset) string { return a.ID },
	})
}

func jobInputs(inputs []config.InputSettings) map[string]azureml.JobInput {
	out := make(map[string]azureml.JobInput, len(inputs))
	for _, in := range inputs {
		switch in.Type {
		case config.InputTypeURIFile:
			out[in.Name] = azureml.JobInput{Type: azureml.InputTypeURIFile, URI: in.Value}
		default:
			out[in.Name] = azureml.JobInput{Type: azureml.InputTypeLiteral, Value: in.Value}
		}
	}
	return out
}

// computeRef prefers the ARM ID and falls back to the bare name.
func computeRef(ct *azureml.ComputeTarget) string {
	if ct.ID != "" {
		return ct.ID
	}
	return ct.Name
}
