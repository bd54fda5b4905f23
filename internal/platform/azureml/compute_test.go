package azureml

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
)

func TestGetCompute_Found(t *testing.T) {
	ts := newTestServer(t)
	ts.handle(http.MethodGet, "/computes/cpu-cluster", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.URL.Query().Get("api-version"))
		writeJSON(w, http.StatusOK, map[string]any{
			"id":   "/computes/cpu-cluster",
			"name": "cpu-cluster",
			"properties": map[string]any{
				"computeType":       "AmlCompute",
				"provisioningState": "Succeeded",
				"properties": map[string]any{
					"vmSize":        "STANDARD_D2_V2",
					"scaleSettings": map[string]any{"minNodeCount": 0, "maxNodeCount": 4},
				},
			},
		})
	})

	compute, err := ts.realClient().GetCompute(context.Background(), "cpu-cluster")
	require.NoError(t, err)

	assert.Equal(t, "cpu-cluster", compute.Name)
	assert.Equal(t, ComputeTypeAML, compute.Type)
	assert.Equal(t, "STANDARD_D2_V2", compute.Size)
	assert.Equal(t, 4, compute.MaxInstances)
	assert.Equal(t, []string{managementScope}, ts.cred.scopes)
}

func TestGetCompute_Kubernetes(t *testing.T) {
	ts := newTestServer(t)
	ts.handleJSON(http.MethodGet, "/computes/k8s", http.StatusOK, map[string]any{
		"id": "/computes/k8s",
		"properties": map[string]any{
			"computeType":       "Kubernetes",
			"provisioningState": "Succeeded",
			"properties":        map[string]any{"namespace": "serving"},
		},
	})

	compute, err := ts.realClient().GetCompute(context.Background(), "k8s")
	require.NoError(t, err)
	assert.Equal(t, ComputeTypeKubernetes, compute.Type)
	assert.Equal(t, "serving", compute.Namespace)
}

func TestGetCompute_NotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.handle(http.MethodGet, "/computes/missing", func(w http.ResponseWriter, _ *http.Request) {
		notFound(w)
	})

	_, err := ts.realClient().GetCompute(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var re *ResponseError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "UserError", re.Code)
}

func TestGetCompute_RetriesThrottling(t *testing.T) {
	ts := newTestServer(t)
	var calls atomic.Int32
	ts.handle(http.MethodGet, "/computes/busy", func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"properties": map[string]any{"computeType": "AmlCompute", "provisioningState": "Succeeded"},
		})
	})

	compute, err := ts.realClient().GetCompute(context.Background(), "busy")
	require.NoError(t, err)
	assert.Equal(t, "busy", compute.Name)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetCompute_RetriesTransportErrors(t *testing.T) {
	ts := newTestServer(t)
	var calls atomic.Int32
	ok := handlerResponder(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"properties": map[string]any{"computeType": "AmlCompute", "provisioningState": "Succeeded"},
		})
	})
	ts.respond(http.MethodGet, "/computes/flaky", func(req *http.Request) (*http.Response, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("read: connection reset by peer")
		}
		return ok(req)
	})

	compute, err := ts.realClient().GetCompute(context.Background(), "flaky")
	require.NoError(t, err)
	assert.Equal(t, ProvisioningSucceeded, compute.ProvisioningState)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetCompute_GivesUpAfterMaxAttempts(t *testing.T) {
	ts := newTestServer(t)
	var calls atomic.Int32
	ts.respond(http.MethodGet, "/computes/down", func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("dial tcp: connection refused")
	})

	_, err := ts.realClient().GetCompute(context.Background(), "down")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get compute down")
	assert.Equal(t, int32(config.TestTimeouts().RetryMaxAttempts), calls.Load())
}

func TestGetCompute_DoesNotRetryClientErrors(t *testing.T) {
	ts := newTestServer(t)
	var calls atomic.Int32
	ts.handle(http.MethodGet, "/computes/forbidden", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusForbidden, map[string]any{})
	})

	_, err := ts.realClient().GetCompute(context.Background(), "forbidden")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateCompute_WaitsForProvisioning(t *testing.T) {
	ts := newTestServer(t)
	var polls atomic.Int32

	ts.handle(http.MethodPut, "/computes/cpu-cluster", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "westeurope", body["location"])
		props := body["properties"].(map[string]any)
		assert.Equal(t, "AmlCompute", props["computeType"])
		details := props["properties"].(map[string]any)
		assert.Equal(t, "STANDARD_D2_V2", details["vmSize"])
		scale := details["scaleSettings"].(map[string]any)
		assert.Equal(t, float64(0), scale["minNodeCount"])
		assert.Equal(t, float64(1), scale["maxNodeCount"])

		writeJSON(w, http.StatusCreated, map[string]any{
			"properties": map[string]any{"computeType": "AmlCompute", "provisioningState": "Creating"},
		})
	})
	ts.handle(http.MethodGet, "/computes/cpu-cluster", func(w http.ResponseWriter, _ *http.Request) {
		state := "Creating"
		if polls.Add(1) >= 2 {
			state = "Succeeded"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         "/computes/cpu-cluster",
			"properties": map[string]any{"computeType": "AmlCompute", "provisioningState": state},
		})
	})

	compute, err := ts.realClient().CreateCompute(context.Background(), ComputeTarget{
		Name:         "cpu-cluster",
		Size:         "STANDARD_D2_V2",
		MinInstances: 0,
		MaxInstances: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, ProvisioningSucceeded, compute.ProvisioningState)
	assert.Equal(t, int32(2), polls.Load())
}

func TestCreateCompute_ProvisioningFailed(t *testing.T) {
	ts := newTestServer(t)
	ts.handleJSON(http.MethodPut, "/computes/bad", http.StatusCreated, map[string]any{
		"properties": map[string]any{"computeType": "AmlCompute", "provisioningState": "Creating"},
	})
	ts.handleJSON(http.MethodGet, "/computes/bad", http.StatusOK, map[string]any{
		"properties": map[string]any{"computeType": "AmlCompute", "provisioningState": "Failed"},
	})

	_, err := ts.realClient().CreateCompute(context.Background(), ComputeTarget{Name: "bad", Size: "x", MaxInstances: 1})
	require.Error(t, err)

	var pe *ProvisioningError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "compute", pe.Kind)
	assert.Equal(t, ProvisioningFailed, pe.State)
}

func TestCreateCompute_RejectsAttachedTypes(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.realClient().CreateCompute(context.Background(), ComputeTarget{Name: "k8s", Type: ComputeTypeKubernetes})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attach it to the workspace")
}

func TestLocation_IsCached(t *testing.T) {
	ts := newTestServer(t)
	var calls atomic.Int32
	ts.handle(http.MethodGet, "", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"name": "ws", "location": "westeurope"})
	})

	client := ts.realClient()
	first, err := client.Location(context.Background())
	require.NoError(t, err)
	second, err := client.Location(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "westeurope", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLocation_ReportsWorkspaceID(t *testing.T) {
	ts := newTestServer(t)
	ts.handle(http.MethodGet, "", func(w http.ResponseWriter, _ *http.Request) {
		notFound(w)
	})

	_, err := ts.realClient().Location(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), testWorkspace.ResourceID())
	assert.True(t, IsNotFound(err))
}
