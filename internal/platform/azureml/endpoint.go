package azureml

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/machinelearning/armmachinelearning/v4"
)

// GetEndpoint returns an online endpoint or an error matching ErrNotFound.
func (c *RealClient) GetEndpoint(ctx context.Context, name string) (*Endpoint, error) {
	res, err := c.endpoints.Get(ctx, c.workspace.ResourceGroup, c.workspace.Name, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get endpoint %s: %w", name, armError(err))
	}
	return toEndpoint(name, &res.OnlineEndpoint), nil
}

// CreateEndpoint creates an online endpoint and waits for it to provision.
func (c *RealClient) CreateEndpoint(ctx context.Context, endpoint Endpoint) (*Endpoint, error) {
	return c.putEndpoint(ctx, endpoint, "create")
}

// UpdateEndpoint replaces the endpoint's mutable properties, including its
// traffic split, and waits for the update to finish. The PATCH body of the
// API has no traffic field, so this is a full PUT.
func (c *RealClient) UpdateEndpoint(ctx context.Context, endpoint Endpoint) (*Endpoint, error) {
	return c.putEndpoint(ctx, endpoint, "update")
}

func (c *RealClient) putEndpoint(ctx context.Context, endpoint Endpoint, verb string) (*Endpoint, error) {
	location, err := c.Location(ctx)
	if err != nil {
		return nil, err
	}

	authMode := endpoint.AuthMode
	if authMode == "" {
		authMode = AuthModeKey
	}

	props := &armmachinelearning.OnlineEndpointProperties{
		AuthMode: to.Ptr(armmachinelearning.EndpointAuthMode(authMode)),
		Compute:  optional(endpoint.ComputeID),
		Traffic:  make(map[string]*int32, len(endpoint.Traffic)),
	}
	for name, pct := range endpoint.Traffic {
		props.Traffic[name] = to.Ptr(int32(pct))
	}

	body := armmachinelearning.OnlineEndpoint{
		Location: to.Ptr(location),
		Identity: &armmachinelearning.ManagedServiceIdentity{
			Type: to.Ptr(armmachinelearning.ManagedServiceIdentityTypeSystemAssigned),
		},
		Properties: props,
	}

	poller, err := c.endpoints.BeginCreateOrUpdate(ctx, c.workspace.ResourceGroup, c.workspace.Name, endpoint.Name, body, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to %s endpoint %s: %w", verb, endpoint.Name, armError(err))
	}
	res, err := waitProvisioned(ctx, c, "endpoint", endpoint.Name, poller)
	if err != nil {
		return nil, err
	}
	return toEndpoint(endpoint.Name, &res.OnlineEndpoint), nil
}

func toEndpoint(name string, r *armmachinelearning.OnlineEndpoint) *Endpoint {
	ep := &Endpoint{
		ID:      deref(r.ID),
		Name:    name,
		Kind:    EndpointKindManaged,
		Traffic: map[string]int{},
	}
	p := r.Properties
	if p == nil {
		return ep
	}

	ep.AuthMode = AuthMode(deref(p.AuthMode))
	ep.ComputeID = deref(p.Compute)
	ep.ScoringURI = deref(p.ScoringURI)
	ep.ProvisioningState = string(deref(p.ProvisioningState))
	if ep.ComputeID != "" {
		ep.Kind = EndpointKindKubernetes
	}
	for deployment, pct := range p.Traffic {
		ep.Traffic[deployment] = int(deref(pct))
	}
	return ep
}
