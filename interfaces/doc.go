// Package interfaces defines the core types and interfaces of the Vault
// bootstrap tool, separating interface definitions from implementations.
//
// # Control Plane
//
// ControlPlane: the administrative HTTP API of the server (liveness, seal
// status, init, unseal and snapshot force-restore). SealStatus, InitRequest,
// InitResult and UnsealRequest mirror its JSON bodies.
//
// # Snapshot Sources
//
// SnapshotSource: resolves a snapshot reference to a byte stream.
//
// SnapshotSourceFactory: creates sources from SnapshotLocation URIs and
// combines mirrors into a single source that tries each in order.
//
// # Errors
//
// ConnectivityError, ControlPlaneError, SourceResolutionError and
// MissingInputError classify failures so that callers can map them to exit
// codes. ErrAlreadyInitialized marks an init request rejected by an
// initialized server.
package interfaces
