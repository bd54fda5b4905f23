package provisioning

import (
	"context"
	"fmt"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
)

// Resource kinds reported by Ensure.
const (
	KindCompute     = "compute"
	KindCode        = "code"
	KindEnvironment = "environment"
	KindJob         = "job"
	KindModel       = "model"
	KindEndpoint    = "endpoint"
	KindDeployment  = "deployment"
)

// EnsureOperation encapsulates get-or-create logic for one named resource.
//
// Usage example:
//
//	endpoint, err := Ensure(ctx, EnsureOperation[*azureml.Endpoint]{
//	    Kind: KindEndpoint,
//	    Name: name,
//	    Get: func(c context.Context) (*azureml.Endpoint, error) {
//	        return ctx.Serving.GetEndpoint(c, name)
//	    },
//	    Create: func(c context.Context) (*azureml.Endpoint, error) {
//	        return ctx.Serving.CreateEndpoint(c, azureml.Endpoint{Name: name})
//	    },
//	})
type EnsureOperation[T any] struct {
	Kind string
	Name string

	// Get retrieves the resource. Errors matching azureml.ErrNotFound mean
	// the resource does not exist.
	Get func(ctx context.Context) (T, error)

	// Create creates the resource. It is called at most once.
	Create func(ctx context.Context) (T, error)

	// Validate optionally checks an existing resource before it is reused.
	Validate func(T) error

	// ID optionally extracts an identifier for status output.
	ID func(T) string
}

// Ensure returns the existing resource or creates it. Only a not-found
// lookup leads to creation; any other lookup error is returned. A failed
// creation is not retried.
func Ensure[T any](ctx *Context, op EnsureOperation[T]) (T, error) {
	var zero T

	existing, err := op.Get(ctx)
	if err == nil {
		if op.Validate != nil {
			if err := op.Validate(existing); err != nil {
				ctx.Metrics.recordEnsure(op.Kind, resultInvalid)
				LogResourceFailed(ctx.Observer, ctx.phase, op.Kind, op.Name, err)
				return zero, fmt.Errorf("existing %s %s cannot be used: %w", op.Kind, op.Name, err)
			}
		}
		ctx.Metrics.recordEnsure(op.Kind, resultExists)
		LogResourceExists(ctx.Observer, ctx.phase, op.Kind, op.Name, op.id(existing))
		return existing, nil
	}

	if !azureml.IsNotFound(err) {
		ctx.Metrics.recordEnsure(op.Kind, resultFailed)
		LogResourceFailed(ctx.Observer, ctx.phase, op.Kind, op.Name, err)
		return zero, fmt.Errorf("failed to look up %s %s: %w", op.Kind, op.Name, err)
	}

	LogResourceCreating(ctx.Observer, ctx.phase, op.Kind, op.Name)
	created, err := op.Create(ctx)
	if err != nil {
		ctx.Metrics.recordEnsure(op.Kind, resultFailed)
		LogResourceFailed(ctx.Observer, ctx.phase, op.Kind, op.Name, err)
		return zero, fmt.Errorf("failed to create %s %s: %w", op.Kind, op.Name, err)
	}

	ctx.Metrics.recordEnsure(op.Kind, resultCreated)
	LogResourceCreated(ctx.Observer, ctx.phase, op.Kind, op.Name, op.id(created))
	return created, nil
}

func (op EnsureOperation[T]) id(v T) string {
	if op.ID == nil {
		return ""
	}
	return op.ID(v)
}
