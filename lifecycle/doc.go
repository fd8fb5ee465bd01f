// Package lifecycle drives a Vault cluster from freshly launched to unsealed.
//
// Each step is a small type around an interfaces.ControlPlane:
//
//   - Prober waits until the server answers HTTP, retrying transport
//     failures at a fixed interval until the context ends.
//   - Initializer initializes an empty cluster with a single key share and
//     unseals it with that share.
//   - Restorer streams a snapshot into the force-restore endpoint.
//   - Unsealer submits one key share to a sealed cluster.
//
// # Flows
//
// Orchestrator composes the steps. Bootstrap waits, refuses an initialized
// cluster and initializes the rest. Restore resolves every snapshot location
// before contacting the server, then waits, issues an init request (an
// already initialized cluster is tolerated), force-restores the snapshot and
// unseals with the operator's key.
//
// Only the liveness probe is retried. Every other failure ends the flow with
// a typed error from the interfaces package.
package lifecycle
