package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/mattn/go-isatty"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/config"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/k8s"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/platform/azureml"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/ui/tui"
	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/internal/util/async"
)

const managementScope = "https://management.azure.com/.default"

// DoctorOptions are the doctor command's flags.
type DoctorOptions struct {
	// Target limits the checks to one target. Empty checks all of them.
	Target string
	// Kubeconfig is used for the attached cluster checks.
	Kubeconfig string
	// JSON prints the report as JSON.
	JSON bool
}

// Doctor checks that the configuration, credentials and backends the
// selected targets depend on are usable, without creating anything.
func Doctor(ctx context.Context, opts Options, dopts DoctorOptions) error {
	targets := config.Targets()
	if dopts.Target != "" {
		t, err := config.ParseTarget(dopts.Target)
		if err != nil {
			return err
		}
		targets = []config.Target{t}
	}

	report := &tui.Report{Title: "amldeploy doctor"}

	cfg, err := load(opts)
	if err != nil {
		report.Add("Configuration", "load", tui.StatusFailed, oneLine(err))
		return finishDoctor(report, dopts.JSON)
	}
	if cfg.Env.Workspace != "" {
		report.Subtitle = fmt.Sprintf("(%s/%s)", cfg.Env.ResourceGroup, cfg.Env.Workspace)
	}

	for _, t := range targets {
		if err := cfg.Validate(t); err != nil {
			report.Add("Configuration", string(t), tui.StatusFailed, oneLine(err))
		} else {
			report.Add("Configuration", string(t), tui.StatusOK, "")
		}
	}

	// Backends are independent; each check fills its own report and the
	// sections are appended in a fixed order.
	var (
		tasks    []async.Task
		sections []*tui.Report
	)
	addCheck := func(name string, check func(context.Context, *tui.Report)) {
		sub := &tui.Report{}
		sections = append(sections, sub)
		tasks = append(tasks, async.Task{Name: name, Func: func(ctx context.Context) error {
			check(ctx, sub)
			return nil
		}})
	}
	if hasRemoteTarget(targets) {
		addCheck("azure", func(ctx context.Context, r *tui.Report) { checkAzure(ctx, cfg, targets, r) })
	}
	if hasTarget(targets, config.TargetLocal) {
		addCheck("docker", checkDocker)
	}
	if hasTarget(targets, config.TargetKubernetes) {
		addCheck("kubernetes", func(ctx context.Context, r *tui.Report) { checkKubernetes(ctx, dopts.Kubeconfig, r) })
	}
	if err := async.Run(ctx, tasks); err != nil {
		return err
	}
	for _, sub := range sections {
		report.Checks = append(report.Checks, sub.Checks...)
	}

	return finishDoctor(report, dopts.JSON)
}

func checkAzure(ctx context.Context, cfg *config.Config, targets []config.Target, report *tui.Report) {
	const section = "Azure"

	cred, err := newCredential()
	if err != nil {
		report.Add(section, "credential", tui.StatusFailed, oneLine(err))
		return
	}
	if _, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{managementScope}}); err != nil {
		report.Add(section, "credential", tui.StatusFailed, oneLine(err))
		return
	}
	report.Add(section, "credential", tui.StatusOK, "token acquired")

	client, err := newAzureClient(cfg, cred)
	if err != nil {
		report.Add(section, "workspace", tui.StatusFailed, oneLine(err))
		return
	}
	location, err := client.Location(ctx)
	if err != nil {
		report.Add(section, "workspace", tui.StatusFailed, oneLine(err))
		return
	}
	report.Add(section, "workspace", tui.StatusOK, location)

	if hasTarget(targets, config.TargetManaged) && cfg.Env.TrainingCluster != "" {
		checkCompute(ctx, client, cfg.Env.TrainingCluster, azureml.ComputeTypeAML, false, report)
	}
	if hasTarget(targets, config.TargetKubernetes) && cfg.Env.KubernetesCluster != "" {
		checkCompute(ctx, client, cfg.Env.KubernetesCluster, azureml.ComputeTypeKubernetes, true, report)
	}

	if cfg.Env.ModelName != "" && cfg.Env.ModelVersion != "" {
		name := fmt.Sprintf("model %s:%s", cfg.Env.ModelName, cfg.Env.ModelVersion)
		_, err := client.GetModel(ctx, cfg.Env.ModelName, cfg.Env.ModelVersion)
		switch {
		case err == nil:
			report.Add(section, name, tui.StatusOK, "registered")
		case azureml.IsNotFound(err) && hasTarget(targets, config.TargetKubernetes):
			report.Add(section, name, tui.StatusFailed, "not registered, run 'amldeploy train' first")
		case azureml.IsNotFound(err):
			report.Add(section, name, tui.StatusWarning, "not registered, it will be trained")
		default:
			report.Add(section, name, tui.StatusFailed, oneLine(err))
		}
	}
}

// checkCompute reports on a workspace compute. A missing compute fails only
// when it must already exist.
func checkCompute(ctx context.Context, client azureml.ComputeManager, name string, want azureml.ComputeType, required bool, report *tui.Report) {
	label := "compute " + name
	ct, err := client.GetCompute(ctx, name)
	switch {
	case azureml.IsNotFound(err) && required:
		report.Add("Azure", label, tui.StatusFailed, "not attached to the workspace")
	case azureml.IsNotFound(err):
		report.Add("Azure", label, tui.StatusWarning, "not found, it will be created")
	case err != nil:
		report.Add("Azure", label, tui.StatusFailed, oneLine(err))
	case ct.Type != want:
		report.Add("Azure", label, tui.StatusFailed, fmt.Sprintf("type %s, expected %s", ct.Type, want))
	case ct.ProvisioningState == azureml.ProvisioningFailed:
		report.Add("Azure", label, tui.StatusFailed, "provisioning failed")
	default:
		report.Add("Azure", label, tui.StatusOK, string(ct.Type))
	}
}

func checkDocker(ctx context.Context, report *tui.Report) {
	rt, release, err := newContainerRuntime()
	if err != nil {
		report.Add("Docker", "daemon", tui.StatusFailed, oneLine(err))
		return
	}
	defer release()

	if err := rt.Ping(ctx); err != nil {
		report.Add("Docker", "daemon", tui.StatusFailed, oneLine(err))
		return
	}
	report.Add("Docker", "daemon", tui.StatusOK, "reachable")
}

// checkKubernetes inspects the attached cluster directly. Cluster access is
// optional since the workspace talks to the cluster through the extension.
func checkKubernetes(ctx context.Context, kubeconfig string, report *tui.Report) {
	const section = "Kubernetes"

	client, err := newKubeClient(kubeconfig)
	if err != nil {
		report.Add(section, "api server", tui.StatusSkipped, "no kubeconfig: "+oneLine(err))
		return
	}
	version, err := client.ServerVersion()
	if err != nil {
		report.Add(section, "api server", tui.StatusFailed, oneLine(err))
		return
	}
	report.Add(section, "api server", tui.StatusOK, version)

	status, err := client.CheckExtension(ctx, k8s.DefaultExtensionNamespace)
	if err != nil {
		report.Add(section, "azureml extension", tui.StatusFailed, oneLine(err))
		return
	}
	if !status.Found {
		report.Add(section, "azureml extension", tui.StatusFailed, fmt.Sprintf("namespace %s not found", status.Namespace))
		return
	}
	if !status.HasRouter() {
		report.Add(section, "azureml extension", tui.StatusFailed, k8s.InferenceRouter+" is not installed")
		return
	}
	report.Add(section, "azureml extension", tui.StatusOK, status.Namespace)

	for _, d := range status.Deployments {
		detail := fmt.Sprintf("%d/%d", d.Ready, d.Desired)
		if d.Healthy() {
			report.Add(section, d.Name, tui.StatusOK, detail)
		} else {
			report.Add(section, d.Name, tui.StatusWarning, detail)
		}
	}
}

func finishDoctor(report *tui.Report, jsonOutput bool) error {
	switch {
	case jsonOutput:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		fmt.Fprintln(stdout, string(data))
	case isInteractiveTTY():
		fmt.Fprint(stdout, tui.Render(report))
	default:
		fmt.Fprint(stdout, tui.RenderPlain(report))
	}

	if n := report.Failures(); n > 0 {
		return fmt.Errorf("doctor found %d problem(s)", n)
	}
	return nil
}

func isInteractiveTTY() bool {
	f, ok := stdout.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func hasTarget(targets []config.Target, want config.Target) bool {
	for _, t := range targets {
		if t == want {
			return true
		}
	}
	return false
}

func hasRemoteTarget(targets []config.Target) bool {
	return hasTarget(targets, config.TargetManaged) || hasTarget(targets, config.TargetKubernetes)
}

// oneLine flattens multi-line errors, such as aggregated validation errors,
// for a report row.
func oneLine(err error) string {
	return strings.Join(strings.Fields(err.Error()), " ")
}
