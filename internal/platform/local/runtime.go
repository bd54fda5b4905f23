package local

import (
	"context"
	"errors"
	"io"
)

// ErrContainerNotFound is returned by a ContainerRuntime for unknown containers.
var ErrContainerNotFound = errors.New("container not found")

// Mount is a host path bound into a container.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// ContainerSpec describes a container to run. Port is published on 127.0.0.1
// with a host port chosen by the runtime.
type ContainerSpec struct {
	Name        string
	Image       string
	Env         []string
	Mounts      []Mount
	Port        int
	Labels      map[string]string
	MemoryBytes int64
}

// ContainerInfo is the observed state of a container.
type ContainerInfo struct {
	ID       string
	Name     string
	Running  bool
	HostPort int
}

// ContainerRuntime is the subset of a container engine the local mode needs.
type ContainerRuntime interface {
	Ping(ctx context.Context) error
	// BuildImage builds buildContext, a tar stream with a Dockerfile at its root.
	BuildImage(ctx context.Context, tag string, buildContext io.Reader) error
	RunContainer(ctx context.Context, spec ContainerSpec) (*ContainerInfo, error)
	InspectContainer(ctx context.Context, name string) (*ContainerInfo, error)
	// RemoveContainer force-removes a container; a missing container is not an error.
	RemoveContainer(ctx context.Context, name string) error
	Logs(ctx context.Context, name string, tail int) (string, error)
}
