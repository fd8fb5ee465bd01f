// Package vaulttest provides an in-process fake of the Vault control plane
// for tests.
//
// The fake serves health, seal-status, init, unseal and raft snapshot
// force-restore with Vault-compatible JSON and status codes. Its "storage" is a
// flat key/value map, and a Backup (the unseal key plus that map, as JSON)
// stands in for a raft snapshot. Options start it initialized, unsealed or with
// data, and can drop the first connections to simulate a server that is still
// starting. Per-endpoint request counters let tests assert that a call was
// never made.
package vaulttest
