package config

import (
	"os"
	"strconv"
	"time"
)

// minOperationPollInterval is the shortest poll frequency the Azure SDK
// pollers accept outside of tests.
const minOperationPollInterval = time.Second

// Timeouts holds polling intervals, deadlines and retry knobs.
type Timeouts struct {
	JobPollInterval       time.Duration // Delay between training job status checks
	JobPollMaxInterval    time.Duration // Upper bound when the job poll interval backs off
	JobTimeout            time.Duration // Maximum time to wait for a training job
	OperationTimeout      time.Duration // Maximum time to wait for a create/update to provision
	OperationPollInterval time.Duration // Delay between provisioning state checks, at least one second
	InvokeTimeout         time.Duration // Timeout for a single scoring request
	RetryMaxAttempts      int           // Attempts for transient read failures
	RetryInitialDelay     time.Duration // First delay between read retries
}

// LoadTimeouts loads timeouts from environment variables, falling back to
// defaults for unset or unparsable values.
//
// Environment Variables:
//   - AML_JOB_POLL_INTERVAL (default: 10s)
//   - AML_JOB_POLL_MAX_INTERVAL (default: 10s)
//   - AML_JOB_TIMEOUT (default: 2h)
//   - AML_OPERATION_TIMEOUT (default: 30m)
//   - AML_OPERATION_POLL_INTERVAL (default: 5s)
//   - AML_INVOKE_TIMEOUT (default: 2m)
//   - AML_RETRY_MAX_ATTEMPTS (default: 5)
//   - AML_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	t := &Timeouts{
		JobPollInterval:       parseDuration("AML_JOB_POLL_INTERVAL", 10*time.Second),
		JobPollMaxInterval:    parseDuration("AML_JOB_POLL_MAX_INTERVAL", 10*time.Second),
		JobTimeout:            parseDuration("AML_JOB_TIMEOUT", 2*time.Hour),
		OperationTimeout:      parseDuration("AML_OPERATION_TIMEOUT", 30*time.Minute),
		OperationPollInterval: parseDuration("AML_OPERATION_POLL_INTERVAL", 5*time.Second),
		InvokeTimeout:         parseDuration("AML_INVOKE_TIMEOUT", 2*time.Minute),
		RetryMaxAttempts:      parseInt("AML_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay:     parseDuration("AML_RETRY_INITIAL_DELAY", time.Second),
	}
	if t.JobPollMaxInterval < t.JobPollInterval {
		t.JobPollMaxInterval = t.JobPollInterval
	}
	if t.OperationPollInterval < minOperationPollInterval {
		t.OperationPollInterval = minOperationPollInterval
	}
	return t
}

// TestTimeouts returns short timeouts for unit tests.
func TestTimeouts() *Timeouts {
	return &Timeouts{
		JobPollInterval:       time.Millisecond,
		JobPollMaxInterval:    time.Millisecond,
		JobTimeout:            5 * time.Second,
		OperationTimeout:      5 * time.Second,
		OperationPollInterval: time.Millisecond,
		InvokeTimeout:         5 * time.Second,
		RetryMaxAttempts:      3,
		RetryInitialDelay:     time.Millisecond,
	}
}

func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
