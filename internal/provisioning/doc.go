// Package provisioning runs the get-or-create workflows that train a model
// and stand up its inference endpoints.
//
// # Core Types
//
// Context carries configuration, state, platform clients, the observer and
// metrics. Phase defines a workflow step with Name() and Provision()
// methods; Workflow and TrainingWorkflow compose phases into a Pipeline.
// State accumulates results from each phase (compute, model, endpoint,
// deployment, scoring response).
//
// Every remote resource goes through Ensure: look it up, create it once
// when the lookup reports not found, fail on anything else. Training job
// statuses are folded into a JobTracker state machine so that only
// Completed counts as success.
package provisioning
