// Package local runs online endpoints as Docker containers on the operator's
// machine.
//
// Endpoint metadata is kept as YAML under a state directory so a later run can
// tell whether an endpoint already exists. Each deployment is a container
// built from a base inference image plus a conda environment, with the model
// and scoring code bind-mounted read-only. Client implements
// azureml.ServingClient, so the provisioning workflow treats the local target
// like the remote ones.
package local
