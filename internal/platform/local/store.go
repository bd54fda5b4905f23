package local

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
)

// ErrEndpointNotFound is returned for endpoints with no metadata on disk.
// It matches azureml.ErrNotFound.
var ErrEndpointNotFound = fmt.Errorf("local endpoint %w", azureml.ErrNotFound)

// ErrDeploymentNotFound is returned for deployments that were never created
// or whose container is gone. It matches azureml.ErrNotFound.
var ErrDeploymentNotFound = fmt.Errorf("local deployment %w", azureml.ErrNotFound)

const endpointFile = "endpoint.yaml"

// EndpointRecord is the persisted state of a local endpoint.
type EndpointRecord struct {
	Name        string                       `yaml:"name"`
	CreatedAt   time.Time                    `yaml:"createdAt"`
	Traffic     map[string]int               `yaml:"traffic,omitempty"`
	Deployments map[string]*DeploymentRecord `yaml:"deployments,omitempty"`
}

// DeploymentRecord is the persisted state of a local deployment.
type DeploymentRecord struct {
	Name          string    `yaml:"name"`
	ModelPath     string    `yaml:"modelPath"`
	CodePath      string    `yaml:"codePath"`
	ScoringScript string    `yaml:"scoringScript"`
	BaseImage     string    `yaml:"baseImage"`
	Image         string    `yaml:"image"`
	Container     string    `yaml:"container"`
	HostPort      int       `yaml:"hostPort"`
	CreatedAt     time.Time `yaml:"createdAt"`
}

// DeploymentNames returns the record's deployments in name order.
func (r *EndpointRecord) DeploymentNames() []string {
	names := make([]string, 0, len(r.Deployments))
	for name := range r.Deployments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Store persists endpoint records as <dir>/<endpoint>/endpoint.yaml.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store root.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name, endpointFile)
}

// Get loads the named endpoint record.
func (s *Store) Get(name string) (*EndpointRecord, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrEndpointNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local endpoint %s: %w", name, err)
	}

	var rec EndpointRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse local endpoint %s: %w", name, err)
	}
	if rec.Deployments == nil {
		rec.Deployments = map[string]*DeploymentRecord{}
	}
	return &rec, nil
}

// Put writes rec, replacing any previous record of the same name.
func (s *Store) Put(rec *EndpointRecord) error {
	if rec.Name == "" {
		return errors.New("local endpoint record has no name")
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode local endpoint %s: %w", rec.Name, err)
	}

	p := s.path(rec.Name)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write local endpoint %s: %w", rec.Name, err)
	}
	return os.Rename(tmp, p)
}
