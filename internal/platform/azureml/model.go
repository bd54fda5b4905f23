package azureml

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/machinelearning/armmachinelearning/v4"
)

// GetModel returns a registered model version or an error matching ErrNotFound.
func (c *RealClient) GetModel(ctx context.Context, name, version string) (*Model, error) {
	res, err := c.models.Get(ctx, c.workspace.ResourceGroup, c.workspace.Name, name, version, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get model %s:%s: %w", name, version, armError(err))
	}
	return toModel(name, version, &res.ModelVersion), nil
}

// CreateModel registers a model version.
func (c *RealClient) CreateModel(ctx context.Context, model Model) (*Model, error) {
	modelType := model.Type
	if modelType == "" {
		modelType = ModelTypeCustom
	}

	body := armmachinelearning.ModelVersion{
		Properties: &armmachinelearning.ModelVersionProperties{
			ModelURI:    to.Ptr(model.Path),
			ModelType:   to.Ptr(string(modelType)),
			Description: optional(model.Description),
		},
	}

	res, err := c.models.CreateOrUpdate(ctx, c.workspace.ResourceGroup, c.workspace.Name,
		model.Name, model.Version, body, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register model %s:%s: %w", model.Name, model.Version, armError(err))
	}
	return toModel(model.Name, model.Version, &res.ModelVersion), nil
}

func toModel(name, version string, r *armmachinelearning.ModelVersion) *Model {
	m := &Model{ID: deref(r.ID), Name: name, Version: version}
	if p := r.Properties; p != nil {
		m.Path = deref(p.ModelURI)
		m.Type = ModelType(deref(p.ModelType))
		m.Description = deref(p.Description)
	}
	return m
}
