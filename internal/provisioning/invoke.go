package provisioning

import (
	"fmt"
	"os"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
)

// InvokePhase sends the sample request file to the endpoint and prints the
// raw response. The managed target scores against the new deployment
// directly; the others go through the endpoint's traffic split.
type InvokePhase struct{}

// Name implements Phase.
func (InvokePhase) Name() string { return "invoke" }

// Provision implements Phase.
func (InvokePhase) Provision(ctx *Context) error {
	target, err := targetSettings(ctx)
	if err != nil {
		return err
	}

	if ctx.Target == config.TargetKubernetes && ctx.State.Endpoint != nil {
		ctx.Observer.Printf("k8s endpoint scoring uri: %s", ctx.State.Endpoint.ScoringURI)
	}

	if ctx.SkipInvoke || !target.Invoke {
		ctx.Observer.Printf("[%s] skipping scoring request", ctx.phase)
		if ctx.Target == config.TargetKubernetes && ctx.State.Endpoint != nil {
			ctx.Observer.Printf("%s", CurlHint(ctx.State.Endpoint.ScoringURI, target.RequestFile))
		}
		return nil
	}

	// #nosec G304
	payload, err := os.ReadFile(target.RequestFile)
	if err != nil {
		return fmt.Errorf("failed to read request file: %w", err)
	}

	req := azureml.InvokeRequest{
		EndpointName: target.Endpoint,
		Payload:      payload,
	}
	if ctx.Target == config.TargetManaged {
		req.DeploymentName = target.Deployment
	}

	ctx.Observer.Printf("Validating inference results on %s endpoint %s...", ctx.Target, target.Endpoint)
	resp, err := ctx.Serving.Invoke(ctx, req)
	if err != nil {
		ctx.Metrics.recordInvoke(string(ctx.Target), resultFailed)
		return fmt.Errorf("failed to invoke endpoint %s: %w", target.Endpoint, err)
	}
	ctx.Metrics.recordInvoke(string(ctx.Target), "ok")

	ctx.State.Response = resp
	ctx.Observer.Printf("%s", resp)
	return nil
}

// CurlHint returns a command that scores the endpoint from a machine that
// can reach it.
func CurlHint(scoringURI, requestFile string) string {
	return fmt.Sprintf(`curl -d @%s -H "Content-Type: application/json" -H "Authorization: Bearer <your key>" -X POST %s`,
		requestFile, scoringURI)
}
