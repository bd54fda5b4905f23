package local

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

const loopback = "127.0.0.1"

// DockerRuntime implements ContainerRuntime with the Docker Engine API.
type DockerRuntime struct {
	cli *client.Client
	// BuildOutput receives the image build progress. Nil discards it.
	BuildOutput io.Writer
}

var _ ContainerRuntime = (*DockerRuntime)(nil)

// NewDockerRuntime connects to the daemon named by DOCKER_HOST and friends,
// negotiating the API version.
func NewDockerRuntime() (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &DockerRuntime{cli: cli}, nil
}

// Close releases the client's connections.
func (d *DockerRuntime) Close() error {
	return d.cli.Close()
}

// Ping checks that the daemon answers.
func (d *DockerRuntime) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon is not reachable: %w", err)
	}
	return nil
}

// BuildImage builds and tags an image, failing on the first build error.
func (d *DockerRuntime) BuildImage(ctx context.Context, tag string, buildContext io.Reader) error {
	resp, err := d.cli.ImageBuild(ctx, buildContext, types.ImageBuildOptions{
		Tags:        []string{tag},
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build image %s: %w", tag, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	out := d.BuildOutput
	if out == nil {
		out = io.Discard
	}
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, out, 0, false, nil); err != nil {
		return fmt.Errorf("failed to build image %s: %w", tag, err)
	}
	return nil
}

// RunContainer creates and starts a container.
func (d *DockerRuntime) RunContainer(ctx context.Context, spec ContainerSpec) (*ContainerInfo, error) {
	port, err := nat.NewPort("tcp", strconv.Itoa(spec.Port))
	if err != nil {
		return nil, fmt.Errorf("invalid container port %d: %w", spec.Port, err)
	}

	mounts := make([]mount.Mount, 0, len(spec.Mounts))
	for _, m := range spec.Mounts {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	cfg := &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		Labels:       spec.Labels,
		ExposedPorts: nat.PortSet{port: struct{}{}},
	}
	hostCfg := &container.HostConfig{
		Mounts: mounts,
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostIP: loopback, HostPort: ""}},
		},
		Resources: container.Resources{Memory: spec.MemoryBytes},
	}

	created, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create container %s: %w", spec.Name, err)
	}
	if err := d.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container %s: %w", spec.Name, err)
	}

	info, err := d.inspect(ctx, created.ID, port)
	if err != nil {
		return nil, err
	}
	info.Name = spec.Name
	return info, nil
}

// InspectContainer returns ErrContainerNotFound for unknown names.
func (d *DockerRuntime) InspectContainer(ctx context.Context, name string) (*ContainerInfo, error) {
	return d.inspect(ctx, name, "")
}

func (d *DockerRuntime) inspect(ctx context.Context, name string, port nat.Port) (*ContainerInfo, error) {
	res, err := d.cli.ContainerInspect(ctx, name)
	if errdefs.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}

	info := &ContainerInfo{ID: res.ID, Name: name}
	if res.State != nil {
		info.Running = res.State.Running
	}
	if res.NetworkSettings != nil {
		info.HostPort = publishedPort(res.NetworkSettings.Ports, port)
	}
	return info, nil
}

// publishedPort returns the host port bound to want, or to the first
// published port when want is empty.
func publishedPort(ports nat.PortMap, want nat.Port) int {
	for p, bindings := range ports {
		if want != "" && p != want {
			continue
		}
		for _, b := range bindings {
			if n, err := strconv.Atoi(b.HostPort); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

// RemoveContainer force-removes name.
func (d *DockerRuntime) RemoveContainer(ctx context.Context, name string) error {
	err := d.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to remove container %s: %w", name, err)
	}
	return nil
}

// Logs returns the last tail lines of the container's stdout and stderr.
func (d *DockerRuntime) Logs(ctx context.Context, name string, tail int) (string, error) {
	rc, err := d.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read logs of %s: %w", name, err)
	}
	defer func() {
		_ = rc.Close()
	}()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, rc); err != nil {
		return "", fmt.Errorf("failed to read logs of %s: %w", name, err)
	}
	return buf.String(), nil
}
