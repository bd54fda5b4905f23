package provisioning

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
	testfixture "github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/testing"
)

type countingOp struct {
	gets, creates int
	getErr        error
	createErr     error
}

func (c *countingOp) op() EnsureOperation[*azureml.Endpoint] {
	return EnsureOperation[*azureml.Endpoint]{
		Kind: KindEndpoint,
		Name: "blue-ep",
		Get: func(context.Context) (*azureml.Endpoint, error) {
			c.gets++
			if c.getErr != nil {
				return nil, c.getErr
			}
			return &azureml.Endpoint{ID: "/endpoints/blue-ep", Name: "blue-ep"}, nil
		},
		Create: func(context.Context) (*azureml.Endpoint, error) {
			c.creates++
			if c.createErr != nil {
				return nil, c.createErr
			}
			return &azureml.Endpoint{ID: "/endpoints/blue-ep", Name: "blue-ep", ProvisioningState: azureml.ProvisioningSucceeded}, nil
		},
		ID: func(ep *azureml.Endpoint) string { return ep.ID },
	}
}

func newEnsureContext(t *testing.T) (*Context, *MockObserver) {
	t.Helper()
	return newTestContext(t, testfixture.MinimalConfig(), config.TargetManaged, testfixture.NewPlatformFixture())
}

func ensureCount(ctx *Context, kind, result string) float64 {
	return testutil.ToFloat64(ctx.Metrics.ensureTotal.WithLabelValues(kind, result))
}

func TestEnsure_CreatesOnceWhenNotFound(t *testing.T) {
	t.Parallel()
	ctx, observer := newEnsureContext(t)
	counter := &countingOp{getErr: &azureml.NotFoundError{Kind: "endpoint", Name: "blue-ep"}}

	ep, err := Ensure(ctx, counter.op())

	require.NoError(t, err)
	assert.Equal(t, azureml.ProvisioningSucceeded, ep.ProvisioningState)
	assert.Equal(t, 1, counter.gets)
	assert.Equal(t, 1, counter.creates)
	assert.Len(t, observer.eventsOf(EventResourceCreating), 1)
	assert.Len(t, observer.eventsOf(EventResourceCreated), 1)
	assert.Equal(t, float64(1), ensureCount(ctx, KindEndpoint, resultCreated))
}

func TestEnsure_ReusesExisting(t *testing.T) {
	t.Parallel()
	ctx, observer := newEnsureContext(t)
	counter := &countingOp{}

	ep, err := Ensure(ctx, counter.op())

	require.NoError(t, err)
	assert.Equal(t, "blue-ep", ep.Name)
	assert.Equal(t, 0, counter.creates)
	assert.Len(t, observer.eventsOf(EventResourceExists), 1)
	assert.Equal(t, float64(1), ensureCount(ctx, KindEndpoint, resultExists))
}

func TestEnsure_PropagatesLookupErrors(t *testing.T) {
	t.Parallel()
	ctx, observer := newEnsureContext(t)
	forbidden := &azureml.ResponseError{StatusCode: 403, Code: "AuthorizationFailed"}
	counter := &countingOp{getErr: forbidden}

	_, err := Ensure(ctx, counter.op())

	require.Error(t, err)
	assert.ErrorIs(t, err, forbidden)
	assert.Contains(t, err.Error(), "failed to look up endpoint blue-ep")
	assert.Equal(t, 0, counter.creates)
	assert.Len(t, observer.eventsOf(EventResourceFailed), 1)
	assert.Equal(t, float64(1), ensureCount(ctx, KindEndpoint, resultFailed))
}

func TestEnsure_CreateFailureIsNotRetried(t *testing.T) {
	t.Parallel()
	ctx, _ := newEnsureContext(t)
	counter := &countingOp{
		getErr:    azureml.ErrNotFound,
		createErr: &azureml.ResponseError{StatusCode: 503},
	}

	_, err := Ensure(ctx, counter.op())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create endpoint blue-ep")
	assert.Equal(t, 1, counter.creates)
}

func TestEnsure_ValidateRejectsExisting(t *testing.T) {
	t.Parallel()
	ctx, _ := newEnsureContext(t)
	counter := &countingOp{}
	op := counter.op()
	op.Validate = func(*azureml.Endpoint) error { return errors.New("wrong kind") }

	_, err := Ensure(ctx, op)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong kind")
	assert.Equal(t, 0, counter.creates)
	assert.Equal(t, float64(1), ensureCount(ctx, KindEndpoint, resultInvalid))
}

func TestEnsure_NilMetrics(t *testing.T) {
	t.Parallel()
	ctx, _ := newEnsureContext(t)
	ctx.Metrics = nil
	counter := &countingOp{getErr: azureml.ErrNotFound}

	_, err := Ensure(ctx, counter.op())
	require.NoError(t, err)
}
