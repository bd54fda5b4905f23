package handlers

import (
	"context"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/provisioning"
)

// Train resolves the training cluster and the configured model version. When
// the model is not registered yet it runs the training job and registers the
// job's model output.
func Train(ctx context.Context, opts Options) error {
	cfg, err := load(opts)
	if err != nil {
		return err
	}
	// The training workflow talks to the remote workspace only.
	return run(ctx, opts, cfg, config.TargetManaged, provisioning.TrainingWorkflow())
}
