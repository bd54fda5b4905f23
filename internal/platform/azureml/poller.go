package azureml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
)

// waitProvisioned drives a create or update poller to a terminal state.
// Failed and Canceled end in a ProvisioningError.
func waitProvisioned[T any](ctx context.Context, c *RealClient, kind, name string, poller *runtime.Poller[T]) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.OperationTimeout)
	defer cancel()

	res, err := poller.PollUntilDone(ctx, &runtime.PollUntilDoneOptions{
		Frequency: c.timeouts.OperationPollInterval,
	})
	if err == nil {
		return res, nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return res, fmt.Errorf("timed out waiting for %s %s to provision: %w", kind, name, err)
	}

	// a terminal failure arrives as a response error carrying a 2xx status
	var azErr *azcore.ResponseError
	if errors.As(err, &azErr) && azErr.StatusCode < http.StatusBadRequest {
		return res, &ProvisioningError{Kind: kind, Name: name, State: terminalState(azErr.RawResponse), Err: err}
	}
	return res, armError(err)
}

// terminalState reads the provisioning state out of the last poll response.
func terminalState(resp *http.Response) string {
	if resp == nil {
		return ProvisioningFailed
	}
	body, err := runtime.Payload(resp)
	if err != nil {
		return ProvisioningFailed
	}

	var status struct {
		Status     string `json:"status"`
		Properties struct {
			ProvisioningState string `json:"provisioningState"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return ProvisioningFailed
	}
	switch {
	case status.Properties.ProvisioningState != "":
		return status.Properties.ProvisioningState
	case status.Status != "":
		return status.Status
	}
	return ProvisioningFailed
}
