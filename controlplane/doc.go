// Package controlplane implements interfaces.ControlPlane over the Vault HTTP
// API using github.com/hashicorp/vault/api.
//
// The client never retries and ignores VAULT_TOKEN from the environment. A
// token is only sent with the snapshot force-restore call, when the caller
// passes one. Server rejections become *interfaces.ControlPlaneError carrying
// the status code and the server's messages, and a rejected init on an
// initialized server matches interfaces.ErrAlreadyInitialized.
package controlplane
