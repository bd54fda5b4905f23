package provisioning

import (
	"context"
	"os"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
)

// Context wraps all dependencies and state needed for a workflow phase.
type Context struct {
	context.Context
	Config *config.Config
	Target config.Target
	State  *State

	// Workspace is nil for the local target, which never reads the registry.
	Workspace azureml.WorkspaceClient
	Serving   azureml.ServingClient

	Observer Observer
	Metrics  *Metrics
	Timeouts *config.Timeouts

	// SkipInvoke stops the workflow before the scoring request.
	SkipInvoke bool

	// NewJobName names submitted training jobs.
	NewJobName func() string

	phase string
}

// ContextOption customizes a Context.
type ContextOption func(*Context)

// WithObserver replaces the default console observer.
func WithObserver(o Observer) ContextOption {
	return func(c *Context) {
		c.Observer = o
	}
}

// WithMetrics records run metrics into m.
func WithMetrics(m *Metrics) ContextOption {
	return func(c *Context) {
		c.Metrics = m
	}
}

// WithSkipInvoke disables the final scoring request.
func WithSkipInvoke(skip bool) ContextOption {
	return func(c *Context) {
		c.SkipInvoke = skip
	}
}

// WithJobNamer overrides how training jobs are named.
func WithJobNamer(f func() string) ContextOption {
	return func(c *Context) {
		c.NewJobName = f
	}
}

// NewContext creates a new workflow context.
func NewContext(
	ctx context.Context,
	cfg *config.Config,
	target config.Target,
	workspace azureml.WorkspaceClient,
	serving azureml.ServingClient,
	opts ...ContextOption,
) *Context {
	timeouts := cfg.Timeouts
	if timeouts == nil {
		timeouts = config.LoadTimeouts()
	}

	c := &Context{
		Context:    ctx,
		Config:     cfg,
		Target:     target,
		State:      NewState(),
		Workspace:  workspace,
		Serving:    serving,
		Observer:   NewConsoleObserver(os.Stdout, logr.Discard()),
		Timeouts:   timeouts,
		NewJobName: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Phase returns the name of the phase currently running.
func (c *Context) Phase() string {
	return c.phase
}
