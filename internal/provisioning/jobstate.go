package provisioning

import (
	"fmt"

	"github.com/looplab/fsm"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
)

const (
	// Job was submitted but is not executing yet.
	JobStateQueued = "queued"

	// Job is executing on the compute.
	JobStateRunning = "running"

	// Job finished successfully.
	JobStateCompleted = "completed"

	// Job finished with an error.
	JobStateFailed = "failed"

	// Job was canceled.
	JobStateCanceled = "canceled"
)

const (
	// Job started executing.
	JobEventStart = "start"

	// Job went back to waiting, e.g. when paused.
	JobEventRequeue = "requeue"

	// Job finished successfully.
	JobEventComplete = "complete"

	// Job finished with an error.
	JobEventFail = "fail"

	// Job was canceled.
	JobEventCancel = "cancel"
)

// JobTracker folds the provider's job statuses into a small state machine.
// Terminal states accept no further events.
type JobTracker struct {
	JobName string
	FSM     *fsm.FSM

	transitions []string
}

// NewJobTracker returns a tracker in the queued state.
func NewJobTracker(jobName string) *JobTracker {
	t := &JobTracker{JobName: jobName}
	waiting := []string{JobStateQueued, JobStateRunning}

	t.FSM = fsm.NewFSM(
		JobStateQueued,
		fsm.Events{
			{Name: JobEventStart, Src: []string{JobStateQueued}, Dst: JobStateRunning},
			{Name: JobEventRequeue, Src: []string{JobStateRunning}, Dst: JobStateQueued},
			{Name: JobEventComplete, Src: waiting, Dst: JobStateCompleted},
			{Name: JobEventFail, Src: waiting, Dst: JobStateFailed},
			{Name: JobEventCancel, Src: waiting, Dst: JobStateCanceled},
		},
		fsm.Callbacks{
			"enter_state": func(e *fsm.Event) {
				t.transitions = append(t.transitions, e.Dst)
			},
		},
	)
	return t
}

// State returns the current state.
func (t *JobTracker) State() string {
	return t.FSM.Current()
}

// Terminal reports whether the job has finished one way or another.
func (t *JobTracker) Terminal() bool {
	switch t.FSM.Current() {
	case JobStateCompleted, JobStateFailed, JobStateCanceled:
		return true
	}
	return false
}

// Succeeded reports whether the job completed.
func (t *JobTracker) Succeeded() bool {
	return t.FSM.Is(JobStateCompleted)
}

// Transitions returns the states entered so far, in order.
func (t *JobTracker) Transitions() []string {
	return append([]string(nil), t.transitions...)
}

// Observe feeds one provider status into the machine and reports whether the
// state changed. Statuses that map to the current state, and Unknown, are
// no-ops.
func (t *JobTracker) Observe(status azureml.JobStatus) (bool, error) {
	target, ok := jobStateFor(status)
	if !ok || target == t.FSM.Current() {
		return false, nil
	}

	event := jobEventFor(target)
	if err := t.FSM.Event(event); err != nil {
		return false, fmt.Errorf("job %s: status %s not allowed in state %s: %w", t.JobName, status, t.FSM.Current(), err)
	}
	return true, nil
}

// jobStateFor folds a provider status into a tracker state.
func jobStateFor(status azureml.JobStatus) (string, bool) {
	switch status {
	case azureml.JobStatusNotStarted, azureml.JobStatusStarting, azureml.JobStatusProvisioning,
		azureml.JobStatusPreparing, azureml.JobStatusQueued, azureml.JobStatusPaused:
		return JobStateQueued, true
	case azureml.JobStatusRunning, azureml.JobStatusFinalizing, azureml.JobStatusCancelRequested,
		azureml.JobStatusNotResponding:
		return JobStateRunning, true
	case azureml.JobStatusCompleted:
		return JobStateCompleted, true
	case azureml.JobStatusFailed:
		return JobStateFailed, true
	case azureml.JobStatusCanceled:
		return JobStateCanceled, true
	default:
		return "", false
	}
}

func jobEventFor(state string) string {
	switch state {
	case JobStateQueued:
		return JobEventRequeue
	case JobStateRunning:
		return JobEventStart
	case JobStateCompleted:
		return JobEventComplete
	case JobStateFailed:
		return JobEventFail
	default:
		return JobEventCancel
	}
}
