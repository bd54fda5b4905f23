// Package k8s inspects the Kubernetes cluster attached to the workspace.
package k8s

import (
	"context"
	"fmt"
	"sort"

	appsv1 "k8s.io/api/apps/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// DefaultExtensionNamespace is where the Azure ML cluster extension installs itself.
const DefaultExtensionNamespace = "azureml"

// InferenceRouter is the extension deployment that fronts online endpoints.
const InferenceRouter = "azureml-fe"

// Client wraps the Kubernetes API calls used by diagnostics.
type Client struct {
	clientset kubernetes.Interface
}

// NewClient creates a client from a kubeconfig file. An empty path uses the
// default loading rules (KUBECONFIG, then ~/.kube/config).
func NewClient(kubeconfigPath string) (*Client, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	rules.ExplicitPath = kubeconfigPath

	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}
	return &Client{clientset: clientset}, nil
}

// NewClientFromClientset wraps an existing clientset.
func NewClientFromClientset(cs kubernetes.Interface) *Client {
	return &Client{clientset: cs}
}

// ServerVersion returns the API server's git version.
func (c *Client) ServerVersion() (string, error) {
	v, err := c.clientset.Discovery().ServerVersion()
	if err != nil {
		return "", fmt.Errorf("failed to reach API server: %w", err)
	}
	return v.GitVersion, nil
}

// WorkloadStatus is the readiness of one deployment.
type WorkloadStatus struct {
	Name    string
	Ready   int32
	Desired int32
}

// Healthy reports whether every desired replica is ready.
func (w WorkloadStatus) Healthy() bool {
	return w.Ready >= w.Desired
}

// ExtensionStatus summarizes the Azure ML extension in one namespace.
type ExtensionStatus struct {
	Namespace   string
	Found       bool
	Deployments []WorkloadStatus
}

// HasRouter reports whether the inference router is installed.
func (s *ExtensionStatus) HasRouter() bool {
	for _, d := range s.Deployments {
		if d.Name == InferenceRouter {
			return true
		}
	}
	return false
}

// Healthy reports whether the namespace exists, the router is installed and
// every deployment is ready.
func (s *ExtensionStatus) Healthy() bool {
	if !s.Found || !s.HasRouter() {
		return false
	}
	for _, d := range s.Deployments {
		if !d.Healthy() {
			return false
		}
	}
	return true
}

// CheckExtension reads the extension namespace and its deployments. A missing
// namespace is reported in the status, not as an error.
func (c *Client) CheckExtension(ctx context.Context, namespace string) (*ExtensionStatus, error) {
	if namespace == "" {
		namespace = DefaultExtensionNamespace
	}
	status := &ExtensionStatus{Namespace: namespace}

	_, err := c.clientset.CoreV1().Namespaces().Get(ctx, namespace, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return status, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get namespace %s: %w", namespace, err)
	}
	status.Found = true

	list, err := c.clientset.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments in %s: %w", namespace, err)
	}
	for i := range list.Items {
		status.Deployments = append(status.Deployments, workloadStatus(&list.Items[i]))
	}
	sort.Slice(status.Deployments, func(i, j int) bool {
		return status.Deployments[i].Name < status.Deployments[j].Name
	})
	return status, nil
}

func workloadStatus(d *appsv1.Deployment) WorkloadStatus {
	desired := int32(1)
	if d.Spec.Replicas != nil {
		desired = *d.Spec.Replicas
	}
	return WorkloadStatus{
		Name:    d.Name,
		Ready:   d.Status.ReadyReplicas,
		Desired: desired,
	}
}
