package provisioning

import (
	"fmt"
	"time"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
)

// Phase defines the interface for a workflow phase.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Provision executes the logic for this phase.
	Provision(ctx *Context) error
}

// Pipeline is a named, ordered list of phases.
type Pipeline struct {
	Name   string
	Phases []Phase
}

// NewPipeline creates a pipeline from phases.
func NewPipeline(name string, phases ...Phase) *Pipeline {
	return &Pipeline{Name: name, Phases: phases}
}

// Run executes the phases in order and records the run in ctx.Metrics.
func (p *Pipeline) Run(ctx *Context) error {
	start := time.Now()
	err := RunPhases(ctx, p.Phases)

	result := "success"
	if err != nil {
		result = "error"
	}
	ctx.Metrics.recordRun(p.Name, result, time.Since(start))
	return err
}

// RunPhases executes phases sequentially, stopping at the first failure.
func RunPhases(ctx *Context, phases []Phase) error {
	start := time.Now()

	for _, phase := range phases {
		phaseStart := time.Now()
		ctx.phase = phase.Name()

		LogPhaseStart(ctx.Observer, phase.Name())

		if err := phase.Provision(ctx); err != nil {
			LogPhaseFailed(ctx.Observer, phase.Name(), err)
			ctx.Metrics.recordPhase(phase.Name(), time.Since(phaseStart))
			return fmt.Errorf("%s phase failed: %w", phase.Name(), err)
		}

		ctx.Metrics.recordPhase(phase.Name(), time.Since(phaseStart))
		LogPhaseComplete(ctx.Observer, phase.Name(), time.Since(phaseStart))
	}
	ctx.phase = ""

	ctx.Observer.Printf("Completed %d phases in %v", len(phases), time.Since(start).Round(time.Millisecond))
	return nil
}

// TrainingWorkflow resolves the training cluster and the model, training it
// when it is not registered.
func TrainingWorkflow() *Pipeline {
	return NewPipeline("train",
		NewValidationPhase(true),
		ComputePhase{},
		ModelPhase{},
	)
}

// Workflow returns the deployment workflow for target.
func Workflow(target config.Target) (*Pipeline, error) {
	switch target {
	case config.TargetManaged:
		return NewPipeline(string(target),
			NewValidationPhase(false),
			ComputePhase{},
			ModelPhase{},
			EndpointPhase{},
			DeploymentPhase{},
			TrafficPhase{},
			InvokePhase{},
		), nil
	case config.TargetKubernetes:
		return NewPipeline(string(target),
			NewValidationPhase(false),
			ModelLookupPhase{},
			InferenceComputePhase{},
			EndpointPhase{},
			DeploymentPhase{},
			TrafficPhase{},
			InvokePhase{},
		), nil
	case config.TargetLocal:
		return NewPipeline(string(target),
			NewValidationPhase(false),
			EndpointPhase{},
			DeploymentPhase{},
			InvokePhase{},
		), nil
	default:
		return nil, fmt.Errorf("unknown target %q", target)
	}
}
