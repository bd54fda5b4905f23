package azureml

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/machinelearning/armmachinelearning/v4"
)

// CreateJob submits a command job. The returned job is usually not yet running.
func (c *RealClient) CreateJob(ctx context.Context, job CommandJob) (*Job, error) {
	inputs := make(map[string]armmachinelearning.JobInputClassification, len(job.Inputs))
	for name, in := range job.Inputs {
		switch in.Type {
		case InputTypeURIFile:
			inputs[name] = &armmachinelearning.URIFileJobInput{
				JobInputType: to.Ptr(armmachinelearning.JobInputTypeURIFile),
				URI:          to.Ptr(in.URI),
			}
		case InputTypeLiteral:
			inputs[name] = &armmachinelearning.LiteralJobInput{
				JobInputType: to.Ptr(armmachinelearning.JobInputTypeLiteral),
				Value:        to.Ptr(in.Value),
			}
		default:
			return nil, fmt.Errorf("job %s: input %s has unsupported type %q", job.Name, name, in.Type)
		}
	}

	body := armmachinelearning.JobBase{
		Properties: &armmachinelearning.CommandJob{
			JobType:        to.Ptr(armmachinelearning.JobTypeCommand),
			DisplayName:    optional(job.DisplayName),
			ExperimentName: optional(job.ExperimentName),
			CodeID:         to.Ptr(job.CodeID),
			Command:        to.Ptr(job.Command),
			EnvironmentID:  to.Ptr(job.EnvironmentID),
			ComputeID:      to.Ptr(job.ComputeID),
			Inputs:         inputs,
		},
	}

	res, err := c.jobs.CreateOrUpdate(ctx, c.workspace.ResourceGroup, c.workspace.Name, job.Name, body, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to submit job %s: %w", job.Name, armError(err))
	}
	return toJob(job.Name, &res.JobBase), nil
}

// GetJob returns the current state of a job.
func (c *RealClient) GetJob(ctx context.Context, name string) (*Job, error) {
	res, err := c.jobs.Get(ctx, c.workspace.ResourceGroup, c.workspace.Name, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", name, armError(err))
	}
	return toJob(name, &res.JobBase), nil
}

func toJob(name string, r *armmachinelearning.JobBase) *Job {
	job := &Job{ID: deref(r.ID), Name: name, Status: JobStatusNotStarted}
	if r.Properties == nil {
		return job
	}
	if status := deref(r.Properties.GetJobBaseProperties().Status); status != "" {
		job.Status = JobStatus(status)
	}
	return job
}
