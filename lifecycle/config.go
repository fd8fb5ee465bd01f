package lifecycle

import (
	"time"

	"github.com/ruteri/vault-bootstrap/interfaces"
)

// DefaultPollInterval is the delay between liveness probes.
const DefaultPollInterval = time.Second

// Config is the run configuration, built once from flags and passed to the
// orchestrator. It is not modified after construction.
type Config struct {
	// Address is the base URL of the control plane, used for logging.
	Address string

	// Bootstrap selects the bootstrap flow. Otherwise the restore flow runs.
	Bootstrap bool

	// SnapshotLocations are mirrors of the snapshot to restore, tried in order.
	SnapshotLocations []interfaces.SnapshotLocation

	// UnsealKey is the operator's key share used after a restore.
	UnsealKey string

	// Token authenticates the snapshot-force call when the cluster was
	// already initialized. A freshly initialized cluster uses its root token.
	Token string

	// InitOutput is a file path the InitResult is written to, if set.
	InitOutput string

	// PollInterval is the delay between liveness probes. Zero means DefaultPollInterval.
	PollInterval time.Duration

	// WaitTimeout bounds the wait for reachability. Zero waits until the
	// caller's context ends.
	WaitTimeout time.Duration
}

// Validate checks that every input required by the selected flow is present.
func (c Config) Validate() error {
	if c.Address == "" {
		return &interfaces.MissingInputError{Input: "control plane address"}
	}
	if c.Bootstrap {
		return nil
	}
	return c.validateRestore()
}

func (c Config) validateRestore() error {
	if len(c.SnapshotLocations) == 0 {
		return &interfaces.MissingInputError{Input: "snapshot location"}
	}
	if c.UnsealKey == "" {
		return &interfaces.MissingInputError{Input: "unseal key"}
	}
	return nil
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return c.PollInterval
}
