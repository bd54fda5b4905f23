package provisioning

import (
	"errors"
	"fmt"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
)

// TrainingFailedError is returned when the training job ends in Failed or
// Canceled. No model is registered in that case.
type TrainingFailedError struct {
	JobName string
	Status  azureml.JobStatus
}

func (e *TrainingFailedError) Error() string {
	return fmt.Sprintf("training job %s ended with status %s", e.JobName, e.Status)
}

// IsTrainingFailed reports whether err is, or wraps, a TrainingFailedError.
func IsTrainingFailed(err error) bool {
	var tfe *TrainingFailedError
	return errors.As(err, &tfe)
}
