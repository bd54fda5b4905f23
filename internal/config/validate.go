package config

import (
	"fmt"
	"regexp"
)

// Endpoint and deployment names: 3-32 characters, letters, digits and
// hyphens, starting with a letter.
var endpointNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]{2,31}$`)

func (s *Settings) validateTraining() []error {
	var errs []error
	t := s.Training

	if t.Compute.Size == "" {
		errs = append(errs, fmt.Errorf("training.compute.size is required"))
	}
	if t.Compute.MinInstances < 0 {
		errs = append(errs, fmt.Errorf("training.compute.minInstances must not be negative"))
	}
	if t.Compute.MaxInstances < 1 || t.Compute.MaxInstances < t.Compute.MinInstances {
		errs = append(errs, fmt.Errorf("training.compute.maxInstances must be at least 1 and not below minInstances"))
	}
	if t.CodeDir == "" {
		errs = append(errs, fmt.Errorf("training.codeDir is required"))
	}
	if t.Command == "" {
		errs = append(errs, fmt.Errorf("training.command is required"))
	}
	if t.Environment == "" {
		errs = append(errs, fmt.Errorf("training.environment is required"))
	}

	seen := make(map[string]bool)
	for i, in := range t.Inputs {
		if in.Name == "" {
			errs = append(errs, fmt.Errorf("training.inputs[%d].name is required", i))
		}
		if seen[in.Name] {
			errs = append(errs, fmt.Errorf("training.inputs[%d]: duplicate input %q", i, in.Name))
		}
		seen[in.Name] = true
		if in.Type != InputTypeURIFile && in.Type != InputTypeLiteral {
			errs = append(errs, fmt.Errorf("training.inputs[%d].type must be %s or %s, got %q", i, InputTypeURIFile, InputTypeLiteral, in.Type))
		}
	}

	if s.Model.Type == "" {
		errs = append(errs, fmt.Errorf("model.type is required"))
	}
	return errs
}

func (s *Settings) validateManaged() []error {
	m := s.Managed
	errs := validateEndpoint("managed", m.Endpoint, m.Deployment)
	if m.InstanceType == "" {
		errs = append(errs, fmt.Errorf("managed.instanceType is required"))
	}
	if m.InstanceCount < 1 {
		errs = append(errs, fmt.Errorf("managed.instanceCount must be at least 1"))
	}
	if m.RequestFile == "" {
		errs = append(errs, fmt.Errorf("managed.requestFile is required"))
	}
	return errs
}

func (s *Settings) validateKubernetes() []error {
	k := s.Kubernetes
	errs := validateEndpoint("kubernetes", k.Endpoint, k.Deployment)
	if k.InstanceCount < 1 {
		errs = append(errs, fmt.Errorf("kubernetes.instanceCount must be at least 1"))
	}
	if k.Invoke && k.RequestFile == "" {
		errs = append(errs, fmt.Errorf("kubernetes.requestFile is required when invoke is enabled"))
	}
	return errs
}

func (s *Settings) validateLocal() []error {
	l := s.Local
	errs := validateEndpoint("local", l.Endpoint, l.Deployment)
	if l.ModelPath == "" {
		errs = append(errs, fmt.Errorf("local.modelPath is required"))
	}
	if l.RequestFile == "" {
		errs = append(errs, fmt.Errorf("local.requestFile is required"))
	}
	if _, err := l.MemoryLimitBytes(); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func (s *Settings) validateServing() []error {
	var errs []error
	if s.Serving.Image == "" {
		errs = append(errs, fmt.Errorf("serving.image is required"))
	}
	if s.Serving.CondaFile == "" {
		errs = append(errs, fmt.Errorf("serving.condaFile is required"))
	}
	if s.Serving.CodeDir == "" {
		errs = append(errs, fmt.Errorf("serving.codeDir is required"))
	}
	if s.Serving.ScoringScript == "" {
		errs = append(errs, fmt.Errorf("serving.scoringScript is required"))
	}
	return errs
}

func validateEndpoint(section, endpoint, deployment string) []error {
	var errs []error
	if !endpointNamePattern.MatchString(endpoint) {
		errs = append(errs, fmt.Errorf("%s.endpoint %q is not a valid endpoint name", section, endpoint))
	}
	if !endpointNamePattern.MatchString(deployment) {
		errs = append(errs, fmt.Errorf("%s.deployment %q is not a valid deployment name", section, deployment))
	}
	return errs
}
