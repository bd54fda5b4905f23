package provisioning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
	testfixture "github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/testing"
)

func captureInvokes(platform *testfixture.PlatformFixture) *[]azureml.InvokeRequest {
	var reqs []azureml.InvokeRequest
	client := platform.Client()
	invoke := client.InvokeFunc
	client.InvokeFunc = func(ctx context.Context, req azureml.InvokeRequest) ([]byte, error) {
		reqs = append(reqs, req)
		return invoke(ctx, req)
	}
	return &reqs
}

func TestInvokePhase_ManagedTargetsDeployment(t *testing.T) {
	t.Parallel()
	platform := testfixture.NewPlatformFixture().WithResponse([]byte(`[1, 0]`))
	reqs := captureInvokes(platform)
	ctx, observer := newServingContext(t, config.TargetManaged, platform)

	require.NoError(t, InvokePhase{}.Provision(ctx))

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, "iris-managed-endpoint", req.EndpointName)
	assert.Equal(t, "blue", req.DeploymentName)
	assert.JSONEq(t, testfixture.RequestBody, string(req.Payload))
	assert.Equal(t, []byte(`[1, 0]`), ctx.State.Response)
	assert.True(t, observer.hasMessage("Validating inference results on managed endpoint iris-managed-endpoint"))
	assert.True(t, observer.hasMessage("[1, 0]"))
	assert.Equal(t, 1.0, counterValue(t, ctx.Metrics.invokeTotal.WithLabelValues("managed", "ok")))
}

func TestInvokePhase_KubernetesUsesTrafficSplit(t *testing.T) {
	t.Parallel()
	platform := testfixture.NewPlatformFixture()
	reqs := captureInvokes(platform)
	ctx, observer := newServingContext(t, config.TargetKubernetes, platform)
	ctx.State.Endpoint = &azureml.Endpoint{Name: "irisk8s-endpoint", ScoringURI: "http://10.0.0.4/api/v1/endpoint/irisk8s-endpoint/score"}

	require.NoError(t, InvokePhase{}.Provision(ctx))

	require.Len(t, *reqs, 1)
	assert.Empty(t, (*reqs)[0].DeploymentName)
	assert.True(t, observer.hasMessage("k8s endpoint scoring uri: http://10.0.0.4/api/v1/endpoint/irisk8s-endpoint/score"))
}

func TestInvokePhase_KubernetesSkipPrintsCurl(t *testing.T) {
	t.Parallel()
	platform := testfixture.NewPlatformFixture()
	project := testfixture.NewProject(t)
	cfg := testfixture.NewConfigBuilder().WithProject(project.Dir).WithKubernetesInvoke(false).Build()
	ctx, observer := newTestContext(t, cfg, config.TargetKubernetes, platform)
	ctx.State.Endpoint = &azureml.Endpoint{Name: "irisk8s-endpoint", ScoringURI: "http://10.0.0.4/score"}

	require.NoError(t, InvokePhase{}.Provision(ctx))

	assert.Equal(t, 0, platform.Count("Invoke"))
	assert.True(t, observer.hasMessage(CurlHint("http://10.0.0.4/score", cfg.Settings.Kubernetes.RequestFile)))
}

func TestInvokePhase_SkipInvoke(t *testing.T) {
	t.Parallel()
	platform := testfixture.NewPlatformFixture()
	ctx, observer := newServingContext(t, config.TargetManaged, platform)
	ctx.SkipInvoke = true

	require.NoError(t, InvokePhase{}.Provision(ctx))

	assert.Equal(t, 0, platform.Count("Invoke"))
	assert.True(t, observer.hasMessage("skipping scoring request"))
	assert.Nil(t, ctx.State.Response)
}

func TestInvokePhase_Failure(t *testing.T) {
	t.Parallel()
	platform := testfixture.NewPlatformFixture()
	platform.Client().InvokeFunc = func(context.Context, azureml.InvokeRequest) ([]byte, error) {
		return nil, errors.New("upstream request timeout")
	}
	ctx, _ := newServingContext(t, config.TargetLocal, platform)

	err := InvokePhase{}.Provision(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to invoke endpoint iris-endpoint-local")
	assert.Equal(t, 1.0, counterValue(t, ctx.Metrics.invokeTotal.WithLabelValues("local", resultFailed)))
}

func TestCurlHint(t *testing.T) {
	t.Parallel()
	got := CurlHint("https://example/score", "data/request.json")
	assert.Equal(t,
		`curl -d @data/request.json -H "Content-Type: application/json" -H "Authorization: Bearer <your key>" -X POST https://example/score`,
		got)
}
