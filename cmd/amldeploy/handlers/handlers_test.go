package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/local"
	testfixture "github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/testing"
)

// fakeCredential hands out a static token.
type fakeCredential struct {
	err error
}

func (f fakeCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	return azcore.AccessToken{Token: "token"}, nil
}

// fakeRuntime answers pings only.
type fakeRuntime struct {
	pingErr error
}

func (f fakeRuntime) Ping(context.Context) error { return f.pingErr }

func (fakeRuntime) BuildImage(context.Context, string, io.Reader) error { return nil }

func (fakeRuntime) RunContainer(context.Context, local.ContainerSpec) (*local.ContainerInfo, error) {
	return nil, errors.New("not implemented")
}

func (fakeRuntime) InspectContainer(context.Context, string) (*local.ContainerInfo, error) {
	return nil, local.ErrContainerNotFound
}

func (fakeRuntime) RemoveContainer(context.Context, string) error { return nil }

func (fakeRuntime) Logs(context.Context, string, int) (string, error) { return "", nil }

func saveAndRestoreFactories(t *testing.T) {
	t.Helper()
	origLoadConfig := loadConfig
	origNewCredential := newCredential
	origNewAzureClient := newAzureClient
	origNewContainerRuntime := newContainerRuntime
	origNewKubeClient := newKubeClient
	origStdout := stdout
	origStderr := stderr

	t.Cleanup(func() {
		loadConfig = origLoadConfig
		newCredential = origNewCredential
		newAzureClient = origNewAzureClient
		newContainerRuntime = origNewContainerRuntime
		newKubeClient = origNewKubeClient
		stdout = origStdout
		stderr = origStderr
	})
}

// useFixtures points every factory at in-memory fakes and returns the
// captured stdout.
func useFixtures(t *testing.T, cfg *config.Config, platform *testfixture.PlatformFixture) *bytes.Buffer {
	t.Helper()
	saveAndRestoreFactories(t)

	var out bytes.Buffer
	stdout = &out
	stderr = io.Discard

	loadConfig = func(config.LoadOptions) (*config.Config, error) {
		return cfg, nil
	}
	newCredential = func() (azcore.TokenCredential, error) {
		return fakeCredential{}, nil
	}
	newAzureClient = func(*config.Config, azcore.TokenCredential) (azureml.Client, error) {
		return platform.Client(), nil
	}
	newContainerRuntime = func() (local.ContainerRuntime, func(), error) {
		return fakeRuntime{}, func() {}, nil
	}
	return &out
}
