package provisioning

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
)

// ValidationError represents a configuration validation error or warning.
type ValidationError struct {
	Field    string // Configuration field that failed validation
	Message  string // Human-readable error message
	Severity string // "error" or "warning"
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ve.Severity, ve.Field, ve.Message)
}

// IsError returns true if this is an error (not a warning).
func (ve ValidationError) IsError() bool {
	return ve.Severity == "error"
}

// ValidationPhase implements the Phase interface for pre-flight validation.
type ValidationPhase struct {
	// Training validates for the training workflow instead of ctx.Target.
	Training bool
}

// NewValidationPhase creates a new validation phase.
func NewValidationPhase(training bool) *ValidationPhase {
	return &ValidationPhase{Training: training}
}

// Name implements the Phase interface.
func (vp *ValidationPhase) Name() string {
	return "validation"
}

// Provision implements the Phase interface.
func (vp *ValidationPhase) Provision(ctx *Context) error {
	var err error
	if vp.Training {
		err = ctx.Config.ValidateTraining()
	} else {
		err = ctx.Config.Validate(ctx.Target)
	}
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// Separate errors and warnings
	var errs []ValidationError
	for _, ve := range vp.checkFiles(ctx) {
		if ve.IsError() {
			errs = append(errs, ve)
		} else {
			LogValidationWarning(ctx.Observer, vp.Name(), ve.Field, ve.Message)
		}
	}

	if len(errs) > 0 {
		var errMsgs []string
		for _, e := range errs {
			errMsgs = append(errMsgs, e.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errMsgs, "\n  "))
	}

	ctx.Observer.Printf("[%s] validation passed", vp.Name())
	return nil
}

// checkFiles verifies that the local files the workflow reads exist.
func (vp *ValidationPhase) checkFiles(ctx *Context) []ValidationError {
	var errs []ValidationError
	s := ctx.Config.Settings

	if vp.Training || ctx.Target == config.TargetManaged {
		errs = append(errs, requireDir("training.codeDir", s.Training.CodeDir)...)
	}
	if vp.Training {
		return errs
	}

	if ctx.Target == config.TargetKubernetes || ctx.Target == config.TargetLocal {
		errs = append(errs, requireFile("serving.condaFile", s.Serving.CondaFile)...)
		codeErrs := requireDir("serving.codeDir", s.Serving.CodeDir)
		errs = append(errs, codeErrs...)
		if len(codeErrs) == 0 {
			errs = append(errs, requireFile("serving.scoringScript", filepath.Join(s.Serving.CodeDir, s.Serving.ScoringScript))...)
		}
	}

	if ctx.Target == config.TargetLocal {
		modelErrs := requireDir("local.modelPath", s.Local.ModelPath)
		errs = append(errs, modelErrs...)
		if len(modelErrs) == 0 {
			if _, err := os.Stat(filepath.Join(s.Local.ModelPath, "MLmodel")); err != nil {
				errs = append(errs, ValidationError{
					Field:    "local.modelPath",
					Message:  fmt.Sprintf("%s has no MLmodel file, download the registered model into it", s.Local.ModelPath),
					Severity: "warning",
				})
			}
		}
	}

	target, err := targetSettings(ctx)
	if err == nil && target.Invoke && target.RequestFile != "" {
		fileErrs := requireFile(string(ctx.Target)+".requestFile", target.RequestFile)
		if ctx.SkipInvoke {
			for i := range fileErrs {
				fileErrs[i].Severity = "warning"
			}
		}
		errs = append(errs, fileErrs...)
	}
	return errs
}

func requireDir(field, path string) []ValidationError {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return []ValidationError{{Field: field, Message: fmt.Sprintf("directory %s does not exist", path), Severity: "error"}}
	case err != nil:
		return []ValidationError{{Field: field, Message: err.Error(), Severity: "error"}}
	case !info.IsDir():
		return []ValidationError{{Field: field, Message: fmt.Sprintf("%s is not a directory", path), Severity: "error"}}
	}
	return nil
}

func requireFile(field, path string) []ValidationError {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return []ValidationError{{Field: field, Message: fmt.Sprintf("file %s does not exist", path), Severity: "error"}}
	case err != nil:
		return []ValidationError{{Field: field, Message: err.Error(), Severity: "error"}}
	case info.IsDir():
		return []ValidationError{{Field: field, Message: fmt.Sprintf("%s is a directory", path), Severity: "error"}}
	}
	return nil
}
