package local

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// fakeRuntime records calls and serves containers from a fixed host port.
type fakeRuntime struct {
	mu         sync.Mutex
	hostPort   int
	containers map[string]*ContainerInfo
	specs      []ContainerSpec
	built      map[string]map[string]string
	removed    []string
	buildErr   error
	stopOnRun  bool
	logs       string
}

func newFakeRuntime(hostPort int) *fakeRuntime {
	return &fakeRuntime{
		hostPort:   hostPort,
		containers: map[string]*ContainerInfo{},
		built:      map[string]map[string]string{},
	}
}

func (f *fakeRuntime) Ping(context.Context) error { return nil }

func (f *fakeRuntime) BuildImage(_ context.Context, tag string, buildContext io.Reader) error {
	if f.buildErr != nil {
		return f.buildErr
	}
	files := map[string]string{}
	tr := tar.NewReader(buildContext)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return err
		}
		files[hdr.Name] = string(data)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.built[tag] = files
	return nil
}

func (f *fakeRuntime) RunContainer(_ context.Context, spec ContainerSpec) (*ContainerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specs = append(f.specs, spec)
	info := &ContainerInfo{
		ID:       fmt.Sprintf("id-%d", len(f.specs)),
		Name:     spec.Name,
		Running:  !f.stopOnRun,
		HostPort: f.hostPort,
	}
	f.containers[spec.Name] = info
	copied := *info
	return &copied, nil
}

func (f *fakeRuntime) InspectContainer(_ context.Context, name string) (*ContainerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.containers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, name)
	}
	copied := *info
	return &copied, nil
}

func (f *fakeRuntime) RemoveContainer(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, name)
	delete(f.containers, name)
	return nil
}

func (f *fakeRuntime) Logs(context.Context, string, int) (string, error) {
	return f.logs, nil
}
