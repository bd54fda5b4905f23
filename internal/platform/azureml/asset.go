package azureml

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/machinelearning/armmachinelearning/v4"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

const defaultStorageSuffix = "core.windows.net"

// BlobUploader uploads local files into one storage container.
type BlobUploader interface {
	UploadFile(ctx context.Context, blobName, localPath string) error
}

// UploaderFactory creates a BlobUploader for a storage account container.
type UploaderFactory func(accountURL, accountName, accountKey, container string) (BlobUploader, error)

type azblobUploader struct {
	client    *azblob.Client
	container string
}

func newAzblobUploader(accountURL, accountName, accountKey, container string) (BlobUploader, error) {
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid storage credential for %s: %w", accountName, err)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(accountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client for %s: %w", accountURL, err)
	}
	return &azblobUploader{client: client, container: container}, nil
}

func (u *azblobUploader) UploadFile(ctx context.Context, blobName, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := u.client.UploadFile(ctx, u.container, blobName, f, nil); err != nil {
		return fmt.Errorf("failed to upload %s: %w", blobName, err)
	}
	return nil
}

// GetCode returns a code version or an error matching ErrNotFound.
func (c *RealClient) GetCode(ctx context.Context, name, version string) (*CodeAsset, error) {
	res, err := c.codes.Get(ctx, c.workspace.ResourceGroup, c.workspace.Name, name, version, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get code %s:%s: %w", name, version, armError(err))
	}
	return toCodeAsset(name, version, &res.CodeVersion), nil
}

// UploadCode copies dir into the default datastore under
// LocalUpload/<name>/<base of dir> and registers it as a code version.
func (c *RealClient) UploadCode(ctx context.Context, name, version, dir string) (*CodeAsset, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}

	store, err := c.defaultDatastore(ctx)
	if err != nil {
		return nil, err
	}
	key, err := c.datastoreKey(ctx, store.name)
	if err != nil {
		return nil, err
	}

	suffix := store.endpoint
	if suffix == "" {
		suffix = defaultStorageSuffix
	}
	accountURL := fmt.Sprintf("https://%s.blob.%s", store.account, suffix)

	uploader, err := c.newUploader(accountURL, store.account, key, store.container)
	if err != nil {
		return nil, err
	}

	prefix := path.Join("LocalUpload", name, filepath.Base(filepath.Clean(dir)))
	for _, rel := range files {
		if err := uploader.UploadFile(ctx, prefix+"/"+rel, filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
			return nil, err
		}
	}

	body := armmachinelearning.CodeVersion{
		Properties: &armmachinelearning.CodeVersionProperties{
			CodeURI:     to.Ptr(fmt.Sprintf("%s/%s/%s", accountURL, store.container, prefix)),
			IsAnonymous: to.Ptr(true),
		},
	}
	res, err := c.codes.CreateOrUpdate(ctx, c.workspace.ResourceGroup, c.workspace.Name, name, version, body, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register code %s:%s: %w", name, version, armError(err))
	}
	return toCodeAsset(name, version, &res.CodeVersion), nil
}

func toCodeAsset(name, version string, r *armmachinelearning.CodeVersion) *CodeAsset {
	asset := &CodeAsset{ID: deref(r.ID), Name: name, Version: version}
	if r.Properties != nil {
		asset.URI = deref(r.Properties.CodeURI)
	}
	return asset
}

// blobStore is the part of a blob datastore an upload needs.
type blobStore struct {
	name      string
	account   string
	container string
	endpoint  string
}

func (c *RealClient) defaultDatastore(ctx context.Context) (*blobStore, error) {
	pager := c.datastores.NewListPager(c.workspace.ResourceGroup, c.workspace.Name,
		&armmachinelearning.DatastoresClientListOptions{IsDefault: to.Ptr(true)})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list datastores: %w", armError(err))
		}
		for _, ds := range page.Value {
			blob, ok := ds.Properties.(*armmachinelearning.AzureBlobDatastore)
			if !ok || !deref(blob.IsDefault) {
				continue
			}
			return &blobStore{
				name:      deref(ds.Name),
				account:   deref(blob.AccountName),
				container: deref(blob.ContainerName),
				endpoint:  deref(blob.Endpoint),
			}, nil
		}
	}
	return nil, &NotFoundError{Kind: "default datastore", Name: c.workspace.Name}
}

func (c *RealClient) datastoreKey(ctx context.Context, name string) (string, error) {
	res, err := c.datastores.ListSecrets(ctx, c.workspace.ResourceGroup, c.workspace.Name, name, nil)
	if err != nil {
		return "", fmt.Errorf("failed to read secrets of datastore %s: %w", name, armError(err))
	}

	secrets, ok := res.DatastoreSecretsClassification.(*armmachinelearning.AccountKeyDatastoreSecrets)
	if !ok || deref(secrets.Key) == "" {
		var kind armmachinelearning.SecretsType
		if res.DatastoreSecretsClassification != nil {
			kind = deref(res.GetDatastoreSecrets().SecretsType)
		}
		return "", fmt.Errorf("datastore %s uses %q credentials; only account key datastores are supported",
			name, kind)
	}
	return deref(secrets.Key), nil
}

// GetEnvironment returns an environment version or an error matching ErrNotFound.
func (c *RealClient) GetEnvironment(ctx context.Context, name, version string) (*Environment, error) {
	res, err := c.environments.Get(ctx, c.workspace.ResourceGroup, c.workspace.Name, name, version, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get environment %s:%s: %w", name, version, armError(err))
	}
	return toEnvironment(name, version, &res.EnvironmentVersion), nil
}

// CreateEnvironment registers an environment version. CondaFile holds the
// conda file contents, not a path.
func (c *RealClient) CreateEnvironment(ctx context.Context, env Environment) (*Environment, error) {
	props := &armmachinelearning.EnvironmentVersionProperties{
		Image:       to.Ptr(env.Image),
		CondaFile:   optional(env.CondaFile),
		OSType:      to.Ptr(armmachinelearning.OperatingSystemTypeLinux),
		IsAnonymous: to.Ptr(env.Name == AnonymousEnvironmentName),
	}

	res, err := c.environments.CreateOrUpdate(ctx, c.workspace.ResourceGroup, c.workspace.Name,
		env.Name, env.Version, armmachinelearning.EnvironmentVersion{Properties: props}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register environment %s:%s: %w", env.Name, env.Version, armError(err))
	}
	return toEnvironment(env.Name, env.Version, &res.EnvironmentVersion), nil
}

// ResolveEnvironment accepts "name@latest", "name:version", either with an
// optional "azureml:" prefix, or a full ARM ID.
func (c *RealClient) ResolveEnvironment(ctx context.Context, ref string) (string, error) {
	if strings.HasPrefix(ref, "/subscriptions/") || strings.HasPrefix(ref, "azureml://") {
		return ref, nil
	}
	ref = strings.TrimPrefix(ref, "azureml:")

	if name, label, ok := strings.Cut(ref, "@"); ok {
		if label != "latest" {
			return "", fmt.Errorf("environment %s: unsupported label %q", name, label)
		}
		return c.latestEnvironment(ctx, name)
	}
	if name, version, ok := strings.Cut(ref, ":"); ok {
		env, err := c.GetEnvironment(ctx, name, version)
		if err != nil {
			return "", err
		}
		return env.ID, nil
	}
	return "", fmt.Errorf("environment reference %q needs a version or @latest", ref)
}

func (c *RealClient) latestEnvironment(ctx context.Context, name string) (string, error) {
	pager := c.environments.NewListPager(c.workspace.ResourceGroup, c.workspace.Name, name,
		&armmachinelearning.EnvironmentVersionsClientListOptions{
			OrderBy: to.Ptr("createdtime desc"),
			Top:     to.Ptr[int32](1),
		})
	if !pager.More() {
		return "", &NotFoundError{Kind: "environment", Name: name}
	}
	page, err := pager.NextPage(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list versions of environment %s: %w", name, armError(err))
	}
	if len(page.Value) == 0 || page.Value[0] == nil {
		return "", &NotFoundError{Kind: "environment", Name: name}
	}
	return deref(page.Value[0].ID), nil
}

func toEnvironment(name, version string, r *armmachinelearning.EnvironmentVersion) *Environment {
	env := &Environment{ID: deref(r.ID), Name: name, Version: version}
	if p := r.Properties; p != nil {
		env.Image = deref(p.Image)
		env.CondaFile = deref(p.CondaFile)
	}
	return env
}
