package azureml

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUploader struct {
	mu    sync.Mutex
	blobs map[string]string
}

func (u *recordingUploader) UploadFile(_ context.Context, blobName, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.blobs[blobName] = string(data)
	return nil
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

func TestUploadCode(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "training")
	writeFiles(t, dir, map[string]string{
		"train.py":             "print('train')",
		"lib/util.py":          "x = 1",
		"__pycache__/util.pyc": "junk",
	})

	ts := newTestServer(t)
	ts.handle(http.MethodGet, "/datastores", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("isDefault"))
		writeJSON(w, http.StatusOK, map[string]any{
			"value": []map[string]any{{
				"name": "workspaceblobstore",
				"properties": map[string]any{
					"datastoreType": "AzureBlob",
					"accountName":   "acct",
					"containerName": "azureml-blobstore",
					"endpoint":      "core.windows.net",
					"isDefault":     true,
				},
			}},
		})
	})
	ts.handleJSON(http.MethodPost, "/datastores/workspaceblobstore/listSecrets", http.StatusOK,
		map[string]any{"secretsType": "AccountKey", "key": "c2VjcmV0"})
	ts.handle(http.MethodPut, "/codes/abc/versions/1", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		props := body["properties"].(map[string]any)
		assert.Equal(t, "https://acct.blob.core.windows.net/azureml-blobstore/LocalUpload/abc/training", props["codeUri"])
		writeJSON(w, http.StatusOK, map[string]any{"id": "/codes/abc/versions/1", "properties": props})
	})

	uploader := &recordingUploader{blobs: map[string]string{}}
	var gotAccount, gotKey, gotContainer string
	client := ts.realClient(WithUploaderFactory(func(accountURL, accountName, accountKey, container string) (BlobUploader, error) {
		assert.Equal(t, "https://acct.blob.core.windows.net", accountURL)
		gotAccount, gotKey, gotContainer = accountName, accountKey, container
		return uploader, nil
	}))

	code, err := client.UploadCode(context.Background(), "abc", "1", dir)
	require.NoError(t, err)

	assert.Equal(t, "/codes/abc/versions/1", code.ID)
	assert.Equal(t, "acct", gotAccount)
	assert.Equal(t, "c2VjcmV0", gotKey)
	assert.Equal(t, "azureml-blobstore", gotContainer)
	assert.Equal(t, map[string]string{
		"LocalUpload/abc/training/lib/util.py": "x = 1",
		"LocalUpload/abc/training/train.py":    "print('train')",
	}, uploader.blobs)
}

func TestUploadCode_RejectsNonKeyDatastore(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"score.py": "pass"})

	ts := newTestServer(t)
	ts.handleJSON(http.MethodGet, "/datastores", http.StatusOK, map[string]any{
		"value": []map[string]any{{"name": "store", "properties": map[string]any{
			"datastoreType": "AzureBlob", "accountName": "a", "containerName": "c", "isDefault": true,
		}}},
	})
	ts.handleJSON(http.MethodPost, "/datastores/store/listSecrets", http.StatusOK, map[string]any{"secretsType": "Sas"})

	_, err := ts.realClient().UploadCode(context.Background(), "abc", "1", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only account key datastores")
}

func TestUploadCode_NoDefaultDatastore(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"score.py": "pass"})

	ts := newTestServer(t)
	ts.handleJSON(http.MethodGet, "/datastores", http.StatusOK, map[string]any{"value": []any{}})

	_, err := ts.realClient().UploadCode(context.Background(), "abc", "1", dir)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestResolveEnvironment(t *testing.T) {
	ts := newTestServer(t)
	ts.handle(http.MethodGet, "/environments/lightgbm/versions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "createdtime desc", r.URL.Query().Get("$orderBy"))
		assert.Equal(t, "1", r.URL.Query().Get("$top"))
		writeJSON(w, http.StatusOK, map[string]any{
			"value": []map[string]any{{"id": "/environments/lightgbm/versions/7", "name": "7"}},
		})
	})
	ts.handleJSON(http.MethodGet, "/environments/lightgbm/versions/3", http.StatusOK,
		map[string]any{"id": "/environments/lightgbm/versions/3", "properties": map[string]any{"image": "img"}})
	ts.handleJSON(http.MethodGet, "/environments/empty/versions", http.StatusOK, map[string]any{"value": []any{}})

	client := ts.realClient()
	ctx := context.Background()

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{name: "latest", ref: "lightgbm@latest", want: "/environments/lightgbm/versions/7"},
		{name: "latest with prefix", ref: "azureml:lightgbm@latest", want: "/environments/lightgbm/versions/7"},
		{name: "explicit version", ref: "lightgbm:3", want: "/environments/lightgbm/versions/3"},
		{name: "arm id", ref: "/subscriptions/s/x", want: "/subscriptions/s/x"},
		{name: "unknown label", ref: "lightgbm@stable", wantErr: true},
		{name: "no version", ref: "lightgbm", wantErr: true},
		{name: "no versions registered", ref: "empty@latest", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.ResolveEnvironment(ctx, tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateEnvironment_Anonymous(t *testing.T) {
	ts := newTestServer(t)
	ts.handle(http.MethodPut, "/environments/"+AnonymousEnvironmentName+"/versions/v1", func(w http.ResponseWriter, r *http.Request) {
		props := decodeBody(t, r)["properties"].(map[string]any)
		assert.Equal(t, "img:1", props["image"])
		assert.Equal(t, "name: env\n", props["condaFile"])
		assert.Equal(t, true, props["isAnonymous"])
		writeJSON(w, http.StatusOK, map[string]any{"id": "/environments/anon/versions/v1", "properties": props})
	})

	env, err := ts.realClient().CreateEnvironment(context.Background(), Environment{
		Name:      AnonymousEnvironmentName,
		Version:   "v1",
		Image:     "img:1",
		CondaFile: "name: env\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "/environments/anon/versions/v1", env.ID)
	assert.Equal(t, "img:1", env.Image)
}
