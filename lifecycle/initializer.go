package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/ruteri/vault-bootstrap/interfaces"
)

// Initializer creates a new cluster with a single key share and unseals it
// with the key it was handed.
type Initializer struct {
	cp  interfaces.ControlPlane
	log *slog.Logger
}

func NewInitializer(cp interfaces.ControlPlane, log *slog.Logger) *Initializer {
	return &Initializer{cp: cp, log: log}
}

// Initialize checks that the cluster is not initialized, then initializes and
// self-unseals it. An initialized cluster yields ErrAlreadyInitialized and no
// init request is sent.
func (i *Initializer) Initialize(ctx context.Context) (*interfaces.InitResult, error) {
	status, err := i.cp.SealStatus(ctx)
	if err != nil {
		return nil, err
	}
	if status.Initialized {
		return nil, fmt.Errorf("cannot bootstrap %s: %w", i.cp.Address(), interfaces.ErrAlreadyInitialized)
	}

	return i.InitAndUnseal(ctx)
}

// InitAndUnseal issues the init request without checking the current state
// and unseals with the returned key. The server's "already initialized"
// rejection is returned as ErrAlreadyInitialized.
func (i *Initializer) InitAndUnseal(ctx context.Context) (*interfaces.InitResult, error) {
	res, err := i.cp.Init(ctx, interfaces.DefaultInitRequest)
	if err != nil {
		return nil, err
	}

	key, err := res.UnsealKey()
	if err != nil {
		return nil, &interfaces.ControlPlaneError{Op: "init", Err: err}
	}
	i.log.Info("Cluster initialized",
		slog.Int("shares", interfaces.DefaultInitRequest.SecretShares),
		slog.Int("threshold", interfaces.DefaultInitRequest.SecretThreshold))

	status, err := i.cp.Unseal(ctx, interfaces.UnsealRequest{Key: key})
	if err != nil {
		return res, fmt.Errorf("failed to unseal freshly initialized cluster: %w", err)
	}
	if status.Sealed {
		i.log.Warn("Cluster still sealed after self-unseal",
			slog.Int("progress", status.Progress),
			slog.Int("threshold", status.T))
	}

	return res, nil
}

// SaveInitResult writes the key material to path, readable by the owner only.
func SaveInitResult(path string, res *interfaces.InitResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal init result: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	// O_CREATE does not touch the mode of an existing file.
	if err := f.Chmod(0o600); err != nil {
		return fmt.Errorf("failed to restrict permissions on %s: %w", path, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Sync()
}
