package azureml

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/machinelearning/armmachinelearning/v4"
)

// GetCompute returns the named compute or an error matching ErrNotFound.
func (c *RealClient) GetCompute(ctx context.Context, name string) (*ComputeTarget, error) {
	res, err := c.computes.Get(ctx, c.workspace.ResourceGroup, c.workspace.Name, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get compute %s: %w", name, armError(err))
	}
	return toCompute(name, &res.ComputeResource), nil
}

// CreateCompute creates an AmlCompute cluster and waits for it to provision.
func (c *RealClient) CreateCompute(ctx context.Context, compute ComputeTarget) (*ComputeTarget, error) {
	location, err := c.Location(ctx)
	if err != nil {
		return nil, err
	}
	if compute.Type != "" && compute.Type != ComputeTypeAML {
		return nil, fmt.Errorf("compute %s: cannot create %s compute, attach it to the workspace instead",
			compute.Name, compute.Type)
	}

	body := armmachinelearning.ComputeResource{
		Location: to.Ptr(location),
		Properties: &armmachinelearning.AmlCompute{
			ComputeType: to.Ptr(armmachinelearning.ComputeTypeAmlCompute),
			Properties: &armmachinelearning.AmlComputeProperties{
				VMSize: to.Ptr(compute.Size),
				ScaleSettings: &armmachinelearning.ScaleSettings{
					MinNodeCount: to.Ptr(int32(compute.MinInstances)),
					MaxNodeCount: to.Ptr(int32(compute.MaxInstances)),
				},
			},
		},
	}

	poller, err := c.computes.BeginCreateOrUpdate(ctx, c.workspace.ResourceGroup, c.workspace.Name, compute.Name, body, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute %s: %w", compute.Name, armError(err))
	}
	res, err := waitProvisioned(ctx, c, "compute", compute.Name, poller)
	if err != nil {
		return nil, err
	}
	return toCompute(compute.Name, &res.ComputeResource), nil
}

func toCompute(name string, r *armmachinelearning.ComputeResource) *ComputeTarget {
	ct := &ComputeTarget{ID: deref(r.ID), Name: name}
	if r.Properties == nil {
		return ct
	}

	base := r.Properties.GetCompute()
	ct.Type = ComputeType(deref(base.ComputeType))
	ct.ProvisioningState = string(deref(base.ProvisioningState))

	switch p := r.Properties.(type) {
	case *armmachinelearning.AmlCompute:
		if p.Properties != nil {
			ct.Size = deref(p.Properties.VMSize)
			if s := p.Properties.ScaleSettings; s != nil {
				ct.MinInstances = int(deref(s.MinNodeCount))
				ct.MaxInstances = int(deref(s.MaxNodeCount))
			}
		}
	case *armmachinelearning.Kubernetes:
		if p.Properties != nil {
			ct.Namespace = deref(p.Properties.Namespace)
		}
	}
	return ct
}
