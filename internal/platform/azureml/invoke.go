package azureml

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// DeploymentHeader routes a scoring request to one deployment, bypassing the
// endpoint's traffic split.
const DeploymentHeader = "azureml-model-deployment"

// Invoke posts req.Payload to the endpoint's scoring URI and returns the body.
func (c *RealClient) Invoke(ctx context.Context, req InvokeRequest) ([]byte, error) {
	ep, err := c.GetEndpoint(ctx, req.EndpointName)
	if err != nil {
		return nil, err
	}
	if ep.ScoringURI == "" {
		return nil, fmt.Errorf("endpoint %s has no scoring URI yet", ep.Name)
	}

	secret, err := c.scoringCredential(ctx, ep)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.InvokeTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.ScoringURI, bytes.NewReader(req.Payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+secret)
	if req.DeploymentName != "" {
		httpReq.Header.Set(DeploymentHeader, req.DeploymentName)
	}

	resp, err := c.transport.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke endpoint %s: %w", ep.Name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read scoring response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ResponseError{
			StatusCode: resp.StatusCode,
			Method:     http.MethodPost,
			URL:        ep.ScoringURI,
			Message:    string(bytes.TrimSpace(body)),
		}
	}
	return body, nil
}

func (c *RealClient) scoringCredential(ctx context.Context, ep *Endpoint) (string, error) {
	switch ep.AuthMode {
	case AuthModeAADToken:
		return c.token(ctx, inferenceScope)
	case AuthModeAMLToken:
		res, err := c.endpoints.GetToken(ctx, c.workspace.ResourceGroup, c.workspace.Name, ep.Name, nil)
		if err != nil {
			return "", fmt.Errorf("failed to get token for endpoint %s: %w", ep.Name, armError(err))
		}
		return deref(res.AccessToken), nil
	default:
		res, err := c.endpoints.ListKeys(ctx, c.workspace.ResourceGroup, c.workspace.Name, ep.Name, nil)
		if err != nil {
			return "", fmt.Errorf("failed to list keys of endpoint %s: %w", ep.Name, armError(err))
		}
		return deref(res.PrimaryKey), nil
	}
}
