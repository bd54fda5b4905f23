package azureml

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/machinelearning/armmachinelearning/v4"
)

// GetDeployment returns a deployment under endpointName or an error matching ErrNotFound.
func (c *RealClient) GetDeployment(ctx context.Context, endpointName, name string) (*Deployment, error) {
	res, err := c.deployments.Get(ctx, c.workspace.ResourceGroup, c.workspace.Name, endpointName, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment %s/%s: %w", endpointName, name, armError(err))
	}
	return toDeployment(endpointName, name, &res.OnlineDeployment), nil
}

// CreateDeployment creates a managed or Kubernetes deployment and waits for it
// to provision. Deployments with an inline environment spec must be
// resolved to an EnvironmentID by the caller.
func (c *RealClient) CreateDeployment(ctx context.Context, d Deployment) (*Deployment, error) {
	if d.Kind != EndpointKindManaged && d.Kind != EndpointKindKubernetes {
		return nil, fmt.Errorf("deployment %s: unsupported kind %q", d.Name, d.Kind)
	}
	if d.EnvironmentID == "" && d.Environment != nil {
		return nil, fmt.Errorf("deployment %s: inline environment must be registered first", d.Name)
	}

	location, err := c.Location(ctx)
	if err != nil {
		return nil, err
	}

	count := max(d.InstanceCount, 1)
	body := armmachinelearning.OnlineDeployment{
		Location:   to.Ptr(location),
		SKU:        &armmachinelearning.SKU{Name: to.Ptr("Default"), Capacity: to.Ptr(int32(count))},
		Properties: deploymentProperties(d),
	}

	poller, err := c.deployments.BeginCreateOrUpdate(ctx, c.workspace.ResourceGroup, c.workspace.Name,
		d.EndpointName, d.Name, body, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create deployment %s/%s: %w", d.EndpointName, d.Name, armError(err))
	}
	res, err := waitProvisioned(ctx, c, "deployment", d.EndpointName+"/"+d.Name, poller)
	if err != nil {
		return nil, err
	}
	return toDeployment(d.EndpointName, d.Name, &res.OnlineDeployment), nil
}

func deploymentProperties(d Deployment) armmachinelearning.OnlineDeploymentPropertiesClassification {
	var code *armmachinelearning.CodeConfiguration
	if d.Code != nil {
		code = &armmachinelearning.CodeConfiguration{
			CodeID:        optional(d.Code.CodeID),
			ScoringScript: to.Ptr(d.Code.ScoringScript),
		}
	}

	if d.Kind == EndpointKindKubernetes {
		return &armmachinelearning.KubernetesOnlineDeployment{
			EndpointComputeType: to.Ptr(armmachinelearning.EndpointComputeTypeKubernetes),
			Model:               to.Ptr(d.ModelID),
			EnvironmentID:       optional(d.EnvironmentID),
			CodeConfiguration:   code,
			InstanceType:        optional(d.InstanceType),
		}
	}
	return &armmachinelearning.ManagedOnlineDeployment{
		EndpointComputeType: to.Ptr(armmachinelearning.EndpointComputeTypeManaged),
		Model:               to.Ptr(d.ModelID),
		EnvironmentID:       optional(d.EnvironmentID),
		CodeConfiguration:   code,
		InstanceType:        optional(d.InstanceType),
	}
}

func toDeployment(endpointName, name string, r *armmachinelearning.OnlineDeployment) *Deployment {
	d := &Deployment{ID: deref(r.ID), Name: name, EndpointName: endpointName}
	if r.SKU != nil {
		d.InstanceCount = int(deref(r.SKU.Capacity))
	}
	if r.Properties == nil {
		return d
	}

	p := r.Properties.GetOnlineDeploymentProperties()
	d.Kind = EndpointKind(deref(p.EndpointComputeType))
	d.ModelID = deref(p.Model)
	d.EnvironmentID = deref(p.EnvironmentID)
	d.InstanceType = deref(p.InstanceType)
	d.ProvisioningState = string(deref(p.ProvisioningState))
	if cc := p.CodeConfiguration; cc != nil {
		d.Code = &CodeConfiguration{CodeID: deref(cc.CodeID), ScoringScript: deref(cc.ScoringScript)}
	}
	return d
}
