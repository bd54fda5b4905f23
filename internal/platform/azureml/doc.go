// Package azureml is a client for the Azure Machine Learning management API,
// built on the armmachinelearning resource manager SDK.
//
// It covers the verbs the provisioning workflow consumes: get and
// create-or-update for computes, code and environment assets, jobs, model
// versions, online endpoints and online deployments, plus endpoint
// invocation.
//
// # Interfaces
//
// The orchestrator depends on the small interfaces in client.go rather than
// on [RealClient], so tests (and the local execution mode in
// internal/platform/local) can stand in for the remote platform.
//
// # Errors
//
// Lookups of absent resources return an error for which [IsNotFound] is true.
// SDK response errors are surfaced as [ResponseError]; every other failure is
// returned as is and the caller decides whether it is fatal. The azcore retry
// policy retries throttling, 5xx responses and transport failures, with the
// attempt count and first delay taken from [config.Timeouts].
//
// # Long-running operations
//
// Creates and updates of computes, endpoints and deployments are SDK pollers.
// The client drives them until the resource reaches Succeeded and returns a
// [ProvisioningError] on Failed or Canceled, bounded by the operation timeout
// from [config.Timeouts].
package azureml
