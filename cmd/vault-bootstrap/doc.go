// Package main (cmd/vault-bootstrap) brings a freshly launched Vault cluster to
// an unsealed, usable state. It runs as a one-shot job next to the server,
// typically as an init container or a systemd oneshot unit.
//
// Two flows are supported:
//
//  1. Bootstrap (--bootstrap): wait for the server, initialize it with a
//     single key share and unseal it with that share. The init result is the
//     only copy of the key material and is written to --init-output, or to
//     stdout when no output file is given.
//  2. Restore (default): wait for the server, issue an init request (tolerating
//     an already initialized cluster), force-restore a raft snapshot fetched
//     from one of the --snapshot-url mirrors and unseal the restored data with
//     the operator's --unseal-key.
//
// Snapshot locations are URIs: file:///path, s3://bucket/key, ipfs://cid and
// http(s)://host/path. The control plane is addressed by host and port or
// discovered through a DNS SRV record.
//
// Exit codes: 0 success, 1 unclassified failure, 2 missing input, 3 already
// initialized, 4 snapshot source failure, 5 control plane rejection and
// 6 control plane unreachable.
package main
