// Package main is the entry point for the amldeploy CLI.
//
// amldeploy trains an MLflow model on an Azure Machine Learning compute
// cluster, registers it, and serves it from a managed online endpoint, a
// Kubernetes compute attached to the workspace, or a local Docker container.
// Every resource is looked up first and created only when absent, so a run
// can be repeated safely.
//
// Commands: train, deploy, doctor, version, completion.
//
// For detailed usage information, run:
//
//	amldeploy --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/liupeirong/amlv2-mlflow-to-kubernetes/cmd/amldeploy/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	commands.SetVersionInfo(version, commit, date)
	err := commands.Root().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
