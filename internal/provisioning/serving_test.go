package provisioning

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
	testfixture "github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/testing"
)

// captureDeployments records every deployment spec sent to the fixture.
func captureDeployments(platform *testfixture.PlatformFixture) *[]azureml.Deployment {
	var specs []azureml.Deployment
	client := platform.Client()
	create := client.CreateDeploymentFunc
	client.CreateDeploymentFunc = func(ctx context.Context, d azureml.Deployment) (*azureml.Deployment, error) {
		specs = append(specs, d)
		return create(ctx, d)
	}
	return &specs
}

func newServingContext(t *testing.T, target config.Target, platform *testfixture.PlatformFixture) (*Context, *MockObserver) {
	t.Helper()
	project := testfixture.NewProject(t)
	cfg := testfixture.NewConfigBuilder().WithProject(project.Dir).Build()
	return newTestContext(t, cfg, target, platform)
}

func TestServing_LocalNeverReadsRegistry(t *testing.T) {
	t.Parallel()
	platform := testfixture.NewPlatformFixture()
	specs := captureDeployments(platform)
	ctx, _ := newServingContext(t, config.TargetLocal, platform)
	require.Nil(t, ctx.Workspace)

	require.NoError(t, EndpointPhase{}.Provision(ctx))
	require.NoError(t, DeploymentPhase{}.Provision(ctx))

	assert.Equal(t, 0, platform.Count("GetModel"))
	assert.Equal(t, 0, platform.Count("UploadCode"))
	assert.Equal(t, 0, platform.Count("CreateEnvironment"))

	require.Len(t, *specs, 1)
	spec := (*specs)[0]
	assert.Equal(t, azureml.EndpointKindLocal, spec.Kind)
	assert.Empty(t, spec.ModelID)
	assert.Equal(t, ctx.Config.Settings.Local.ModelPath, spec.ModelPath)
	require.NotNil(t, spec.Environment)
	assert.Equal(t, ctx.Config.Settings.Serving.CondaFile, spec.Environment.CondaFile)
	assert.Equal(t, ctx.Config.Settings.Serving.Image, spec.Environment.Image)
	require.NotNil(t, spec.Code)
	assert.Equal(t, ctx.Config.Settings.Serving.CodeDir, spec.Code.Path)
	assert.Equal(t, "score.py", spec.Code.ScoringScript)
}

func TestServing_KubernetesDeployment(t *testing.T) {
	t.Parallel()
	platform := testfixture.NewPlatformFixture().
		WithModel("iris-model", "1").
		WithCompute(azureml.ComputeTarget{Name: "k8s-compute", Type: azureml.ComputeTypeKubernetes})
	specs := captureDeployments(platform)
	ctx, _ := newServingContext(t, config.TargetKubernetes, platform)

	require.NoError(t, RunPhases(ctx, []Phase{
		ModelLookupPhase{},
		InferenceComputePhase{},
		EndpointPhase{},
		DeploymentPhase{},
	}))

	endpoint := platform.Endpoint("irisk8s-endpoint")
	require.NotNil(t, endpoint)
	assert.Equal(t, azureml.EndpointKindKubernetes, endpoint.Kind)
	assert.Equal(t, "/computes/k8s-compute", endpoint.ComputeID)
	assert.Equal(t, azureml.AuthModeKey, endpoint.AuthMode)

	require.Len(t, *specs, 1)
	spec := (*specs)[0]
	assert.Equal(t, "/models/iris-model/versions/1", spec.ModelID)
	assert.Equal(t, "defaultinstancetype", spec.InstanceType)
	assert.Equal(t, 1, spec.InstanceCount)
	assert.True(t, strings.HasPrefix(spec.EnvironmentID, "/environments/"+azureml.AnonymousEnvironmentName+"/versions/"))
	assert.Equal(t, ctx.State.EnvironmentID, spec.EnvironmentID)
	require.NotNil(t, spec.Code)
	assert.Equal(t, ctx.State.ServingCode.ID, spec.Code.CodeID)
	assert.Equal(t, "score.py", spec.Code.ScoringScript)
	assert.Equal(t, 1, platform.Count("CreateEnvironment"))
	assert.Equal(t, 0, platform.Count("CreateCompute"))
}

func TestServing_EnvironmentVersionFollowsContent(t *testing.T) {
	t.Parallel()
	platform := testfixture.NewPlatformFixture()
	ctx, _ := newServingContext(t, config.TargetKubernetes, platform)

	first, err := ensureServingEnvironment(ctx)
	require.NoError(t, err)
	again, err := ensureServingEnvironment(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, platform.Count("CreateEnvironment"))

	testfixture.WriteFile(t, "", ctx.Config.Settings.Serving.CondaFile, testfixture.CondaFile+"  - scikit-learn\n")
	changed, err := ensureServingEnvironment(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)
	assert.Equal(t, 2, platform.Count("CreateEnvironment"))
}

func TestEndpointPhase_KindMismatch(t *testing.T) {
	t.Parallel()
	platform := testfixture.NewPlatformFixture().WithEndpoint(azureml.Endpoint{
		Name: "iris-managed-endpoint",
		Kind: azureml.EndpointKindKubernetes,
	})
	ctx, _ := newServingContext(t, config.TargetManaged, platform)

	err := EndpointPhase{}.Provision(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be used")
	assert.Equal(t, 0, platform.Count("CreateEndpoint"))
}

func TestEndpointPhase_KubernetesNeedsCompute(t *testing.T) {
	t.Parallel()
	platform := testfixture.NewPlatformFixture()
	ctx, _ := newServingContext(t, config.TargetKubernetes, platform)

	err := EndpointPhase{}.Provision(ctx)

	require.Error(t, err)
	assert.Empty(t, platform.Calls())
}

func TestInferenceComputePhase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		compute *azureml.ComputeTarget
		wantErr string
	}{
		{
			name:    "attached",
			compute: &azureml.ComputeTarget{Name: "k8s-compute", Type: azureml.ComputeTypeKubernetes},
		},
		{
			name:    "missing",
			wantErr: "is not attached to the workspace",
		},
		{
			name:    "wrong type",
			compute: &azureml.ComputeTarget{Name: "k8s-compute", Type: azureml.ComputeTypeAML},
			wantErr: "expected Kubernetes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			platform := testfixture.NewPlatformFixture()
			if tt.compute != nil {
				platform.WithCompute(*tt.compute)
			}
			ctx, _ := newServingContext(t, config.TargetKubernetes, platform)

			err := InferenceComputePhase{}.Provision(ctx)

			assert.Equal(t, 0, platform.Count("CreateCompute"))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, ctx.State.InferenceCompute)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "/computes/k8s-compute", ctx.State.InferenceCompute.ID)
		})
	}
}

func TestDeploymentPhase_RequiresEndpoint(t *testing.T) {
	t.Parallel()
	platform := testfixture.NewPlatformFixture()
	ctx, _ := newServingContext(t, config.TargetManaged, platform)

	err := DeploymentPhase{}.Provision(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint iris-managed-endpoint has not been resolved")
	assert.Empty(t, platform.Calls())
}

func TestDeploymentPhase_ManagedNeedsModel(t *testing.T) {
	t.Parallel()
	platform := testfixture.NewPlatformFixture()
	ctx, _ := newServingContext(t, config.TargetManaged, platform)
	ctx.State.Endpoint = &azureml.Endpoint{Name: "iris-managed-endpoint"}

	err := DeploymentPhase{}.Provision(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model has not been resolved")
	assert.Equal(t, 0, platform.Count("CreateDeployment"))
}

func TestDeploymentPhase_RejectsFailedDeployment(t *testing.T) {
	t.Parallel()
	platform := testfixture.NewPlatformFixture()
	platform.Client().GetDeploymentFunc = func(_ context.Context, endpoint, name string) (*azureml.Deployment, error) {
		return &azureml.Deployment{Name: name, EndpointName: endpoint, ProvisioningState: azureml.ProvisioningFailed}, nil
	}
	ctx, _ := newServingContext(t, config.TargetManaged, platform)
	ctx.State.Endpoint = &azureml.Endpoint{Name: "iris-managed-endpoint"}

	err := DeploymentPhase{}.Provision(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete it and run again")
	assert.Equal(t, 0, platform.Count("CreateDeployment"))
}
