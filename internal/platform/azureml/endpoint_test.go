package azureml

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEndpoint_Kubernetes(t *testing.T) {
	ts := newTestServer(t)
	ts.handleJSON(http.MethodGet, "/onlineEndpoints/irisk8s-endpoint", http.StatusOK, map[string]any{
		"id": "/onlineEndpoints/irisk8s-endpoint",
		"properties": map[string]any{
			"authMode":          "Key",
			"compute":           "/computes/k8s",
			"scoringUri":        "http://10.0.0.1/api/v1/endpoint/irisk8s-endpoint/score",
			"traffic":           map[string]any{"default": 100},
			"provisioningState": "Succeeded",
		},
	})

	ep, err := ts.realClient().GetEndpoint(context.Background(), "irisk8s-endpoint")
	require.NoError(t, err)
	assert.Equal(t, EndpointKindKubernetes, ep.Kind)
	assert.Equal(t, map[string]int{"default": 100}, ep.Traffic)
	assert.Equal(t, AuthModeKey, ep.AuthMode)
}

func TestUpdateEndpoint_SendsTraffic(t *testing.T) {
	ts := newTestServer(t)
	ts.handle(http.MethodPut, "/onlineEndpoints/ep", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		props := body["properties"].(map[string]any)
		assert.Equal(t, "Key", props["authMode"])
		assert.Equal(t, map[string]any{"blue": float64(100), "green": float64(0)}, props["traffic"])
		props["provisioningState"] = "Succeeded"
		writeJSON(w, http.StatusOK, body)
	})

	ep, err := ts.realClient().UpdateEndpoint(context.Background(), Endpoint{
		Name:    "ep",
		Traffic: map[string]int{"blue": 100, "green": 0},
	})
	require.NoError(t, err)
	assert.Equal(t, EndpointKindManaged, ep.Kind)
	assert.Equal(t, 100, ep.Traffic["blue"])
}

func TestCreateDeployment_Managed(t *testing.T) {
	ts := newTestServer(t)
	ts.handle(http.MethodPut, "/onlineEndpoints/ep/deployments/blue", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, map[string]any{"name": "Default", "capacity": float64(2)}, body["sku"])
		props := body["properties"].(map[string]any)
		assert.Equal(t, "Managed", props["endpointComputeType"])
		assert.Equal(t, "/models/iris/versions/1", props["model"])
		assert.Equal(t, "Standard_DS3_v2", props["instanceType"])
		assert.NotContains(t, props, "codeConfiguration")
		writeJSON(w, http.StatusCreated, map[string]any{
			"sku":        body["sku"],
			"properties": map[string]any{"endpointComputeType": "Managed", "model": props["model"], "provisioningState": "Creating"},
		})
	})
	ts.handleJSON(http.MethodGet, "/onlineEndpoints/ep/deployments/blue", http.StatusOK, map[string]any{
		"sku":        map[string]any{"name": "Default", "capacity": 2},
		"properties": map[string]any{"endpointComputeType": "Managed", "model": "/models/iris/versions/1", "provisioningState": "Succeeded"},
	})

	d, err := ts.realClient().CreateDeployment(context.Background(), Deployment{
		Name:          "blue",
		EndpointName:  "ep",
		Kind:          EndpointKindManaged,
		ModelID:       "/models/iris/versions/1",
		InstanceType:  "Standard_DS3_v2",
		InstanceCount: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, ProvisioningSucceeded, d.ProvisioningState)
	assert.Equal(t, 2, d.InstanceCount)
	assert.Equal(t, "ep", d.EndpointName)
}

func TestCreateDeployment_KubernetesWithCode(t *testing.T) {
	ts := newTestServer(t)
	ts.handle(http.MethodPut, "/onlineEndpoints/ep/deployments/default", func(w http.ResponseWriter, r *http.Request) {
		props := decodeBody(t, r)["properties"].(map[string]any)
		assert.Equal(t, "Kubernetes", props["endpointComputeType"])
		assert.Equal(t, "/environments/anon/versions/1", props["environmentId"])
		assert.Equal(t, map[string]any{"codeId": "/codes/c/versions/1", "scoringScript": "score.py"}, props["codeConfiguration"])
		props["provisioningState"] = "Succeeded"
		writeJSON(w, http.StatusOK, map[string]any{"properties": props})
	})

	d, err := ts.realClient().CreateDeployment(context.Background(), Deployment{
		Name:          "default",
		EndpointName:  "ep",
		Kind:          EndpointKindKubernetes,
		ModelID:       "/models/iris/versions/1",
		EnvironmentID: "/environments/anon/versions/1",
		Code:          &CodeConfiguration{CodeID: "/codes/c/versions/1", ScoringScript: "score.py"},
	})
	require.NoError(t, err)
	require.NotNil(t, d.Code)
	assert.Equal(t, "score.py", d.Code.ScoringScript)
}

func TestCreateDeployment_RejectsLocalKind(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.realClient().CreateDeployment(context.Background(), Deployment{
		Name: "default", EndpointName: "ep", Kind: EndpointKindLocal,
	})
	assert.Error(t, err)
}

func TestCreateDeployment_RequiresRegisteredEnvironment(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.realClient().CreateDeployment(context.Background(), Deployment{
		Name: "default", EndpointName: "ep", Kind: EndpointKindKubernetes,
		Environment: &EnvironmentSpec{Image: "img"},
	})
	assert.Error(t, err)
}
