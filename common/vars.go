package common

// Version is set at build time with -ldflags "-X github.com/ruteri/vault-bootstrap/common.Version=...".
var Version = "dev"

// PackageName is used as the default service tag in logs.
const PackageName = "vault-bootstrap"
