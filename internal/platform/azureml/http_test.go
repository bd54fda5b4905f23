package azureml

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
)

const (
	armHost         = "https://management.azure.com"
	managementScope = "https://management.core.windows.net//.default"
)

var testWorkspace = Workspace{SubscriptionID: "sub", ResourceGroup: "rg", Name: "ws"}

// fakeCredential hands out a fixed token and records requested scopes.
type fakeCredential struct {
	scopes []string
}

func (f *fakeCredential) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.scopes = append(f.scopes, opts.Scopes...)
	return azcore.AccessToken{Token: "test-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

// testServer mocks the Azure ML management API behind an httpmock transport.
type testServer struct {
	t    *testing.T
	mt   *httpmock.MockTransport
	cred *fakeCredential
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		t:    t,
		mt:   httpmock.NewMockTransport(),
		cred: &fakeCredential{},
	}
	ts.handleJSON(http.MethodGet, "", http.StatusOK, map[string]any{"name": "ws", "location": "westeurope"})
	return ts
}

func (ts *testServer) realClient(opts ...ClientOption) *RealClient {
	ts.t.Helper()
	opts = append([]ClientOption{
		WithTransport(&http.Client{Transport: ts.mt}),
		WithTimeouts(config.TestTimeouts()),
	}, opts...)
	client, err := NewRealClient(testWorkspace, ts.cred, opts...)
	require.NoError(ts.t, err)
	return client
}

// respond registers r for method on a path relative to the workspace.
func (ts *testServer) respond(method, rel string, r httpmock.Responder) {
	ts.mt.RegisterResponder(method, armHost+testWorkspace.ResourceID()+rel, r)
}

// handle registers h for method on a path relative to the workspace.
func (ts *testServer) handle(method, rel string, h http.HandlerFunc) {
	ts.respond(method, rel, handlerResponder(h))
}

// handleURL registers h for an absolute URL, such as a scoring URI.
func (ts *testServer) handleURL(method, url string, h http.HandlerFunc) {
	ts.mt.RegisterResponder(method, url, handlerResponder(h))
}

func (ts *testServer) handleJSON(method, rel string, status int, body any) {
	ts.handle(method, rel, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, body)
	})
}

func handlerResponder(h http.HandlerFunc) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		rec := httptest.NewRecorder()
		h(rec, req)
		resp := rec.Result()
		resp.Request = req
		return resp, nil
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("failed to read request body: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("failed to decode request body %q: %v", data, err)
	}
	return out
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error": map[string]any{"code": "UserError", "message": "resource not found"},
	})
}
