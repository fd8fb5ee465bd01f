package interfaces

import (
	"context"
	"fmt"
)

// SealStatus is the server's view of its seal and initialization state as
// reported by /v1/sys/seal-status. It is never cached.
type SealStatus struct {
	Type         string `json:"type"`
	Initialized  bool   `json:"initialized"`
	Sealed       bool   `json:"sealed"`
	T            int    `json:"t"`
	N            int    `json:"n"`
	Progress     int    `json:"progress"`
	Nonce        string `json:"nonce"`
	Version      string `json:"version"`
	BuildDate    string `json:"build_date"`
	Migration    bool   `json:"migration"`
	ClusterName  string `json:"cluster_name,omitempty"`
	ClusterID    string `json:"cluster_id,omitempty"`
	RecoverySeal bool   `json:"recovery_seal"`
	StorageType  string `json:"storage_type"`
}

// Validate checks the share counters reported by the server.
func (s SealStatus) Validate() error {
	if s.Progress < 0 || s.T < 0 || s.N < 0 {
		return fmt.Errorf("negative share counters: progress=%d t=%d n=%d", s.Progress, s.T, s.N)
	}
	if s.Progress > s.T || s.T > s.N {
		return fmt.Errorf("inconsistent share counters: progress=%d t=%d n=%d", s.Progress, s.T, s.N)
	}
	return nil
}

// InitRequest describes the key split requested from /v1/sys/init.
type InitRequest struct {
	SecretShares    int `json:"secret_shares"`
	SecretThreshold int `json:"secret_threshold"`
}

// DefaultInitRequest is the single-operator configuration: one share, threshold one.
var DefaultInitRequest = InitRequest{
	SecretShares:    1,
	SecretThreshold: 1,
}

// InitResult holds the key material returned by a successful initialization.
// The server never exposes it again.
type InitResult struct {
	Keys       []string `json:"keys"`
	KeysBase64 []string `json:"keys_base64"`
	RootToken  string   `json:"root_token"`
}

// UnsealKey returns the first key share.
func (r *InitResult) UnsealKey() (string, error) {
	if r == nil || len(r.Keys) == 0 {
		return "", ErrNoUnsealKey
	}
	return r.Keys[0], nil
}

// UnsealRequest submits one key share toward the unseal threshold.
type UnsealRequest struct {
	Key     string `json:"key"`
	Reset   bool   `json:"reset"`
	Migrate bool   `json:"migrate"`
}

// ControlPlane is the subset of the server's administrative API used to drive
// its lifecycle.
type ControlPlane interface {
	// Address returns the base URL of the server.
	Address() string

	// Probe issues a liveness request. Any HTTP response is success and its
	// status code is returned; transport failures return a *ConnectivityError.
	Probe(ctx context.Context) (int, error)

	// SealStatus fetches the current seal status.
	SealStatus(ctx context.Context) (*SealStatus, error)

	// Init initializes the server. An already initialized server yields an
	// error matching ErrAlreadyInitialized.
	Init(ctx context.Context, req InitRequest) (*InitResult, error)

	// Unseal submits a single key share and returns the resulting status.
	Unseal(ctx context.Context, req UnsealRequest) (*SealStatus, error)

	// RestoreSnapshot streams a raft snapshot to the force-restore endpoint.
	// token authenticates the call and may be empty.
	RestoreSnapshot(ctx context.Context, snapshot *Snapshot, token string) error
}
