package handlers

import (
	"context"
	"fmt"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/provisioning"
)

// Deploy runs the workflow of target:
//
//   - managed: train and register the model if needed, then serve it from a
//     managed online endpoint and score the sample request.
//   - kubernetes: serve the registered model from the attached Kubernetes
//     compute and route all traffic to the new deployment.
//   - local: serve the model directory from a local container.
func Deploy(ctx context.Context, opts Options, target config.Target) error {
	pipeline, err := provisioning.Workflow(target)
	if err != nil {
		return err
	}

	cfg, err := load(opts)
	if err != nil {
		return err
	}

	if err := run(ctx, opts, cfg, target, pipeline); err != nil {
		return fmt.Errorf("%s deployment failed: %w", target, err)
	}
	return nil
}
