package local

import (
	"archive/tar"
	"bytes"
	"fmt"
	"strings"
	"time"
)

const (
	appRoot       = "/var/azureml-app"
	modelRoot     = appRoot + "/azureml-models"
	codeRoot      = appRoot + "/code"
	condaFileName = "conda.yaml"
	condaEnvName  = "inf-conda-env"
)

// ImageTag returns the tag of the image built for a local deployment.
func ImageTag(endpoint, deployment string) string {
	return fmt.Sprintf("amldeploy-local/%s:%s", strings.ToLower(endpoint), strings.ToLower(deployment))
}

// ContainerName returns the name of the container serving a local deployment.
func ContainerName(endpoint, deployment string) string {
	return strings.ToLower(fmt.Sprintf("amldeploy-%s-%s", endpoint, deployment))
}

// Dockerfile renders the image definition: the base inference image with the
// deployment's conda environment created on top.
func Dockerfile(baseImage string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s\n", baseImage)
	fmt.Fprintf(&b, "RUN mkdir -p %s\n", appRoot)
	fmt.Fprintf(&b, "WORKDIR %s\n", appRoot)
	fmt.Fprintf(&b, "COPY %s %s/\n", condaFileName, appRoot)
	fmt.Fprintf(&b, "RUN conda env create -n %s --file %s\n", condaEnvName, condaFileName)
	fmt.Fprintf(&b, "CMD [\"conda\", \"run\", \"--no-capture-output\", \"-n\", %q, \"runsvdir\", \"/var/runit\"]\n", condaEnvName)
	return b.String()
}

// BuildContext returns a tar stream holding the Dockerfile and the conda file.
func BuildContext(baseImage string, conda []byte) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	now := time.Now()

	files := []struct {
		name string
		data []byte
	}{
		{"Dockerfile", []byte(Dockerfile(baseImage))},
		{condaFileName, conda},
	}
	for _, f := range files {
		hdr := &tar.Header{
			Name:    f.name,
			Mode:    0o644,
			Size:    int64(len(f.data)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("failed to write build context: %w", err)
		}
		if _, err := tw.Write(f.data); err != nil {
			return nil, fmt.Errorf("failed to write build context: %w", err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to write build context: %w", err)
	}
	return &buf, nil
}
