package lifecycle

import (
	"context"
	"log/slog"

	"github.com/ruteri/vault-bootstrap/interfaces"
)

// Unsealer submits a single key share.
type Unsealer struct {
	cp  interfaces.ControlPlane
	log *slog.Logger
}

func NewUnsealer(cp interfaces.ControlPlane, log *slog.Logger) *Unsealer {
	return &Unsealer{cp: cp, log: log}
}

// Unseal submits key once if the cluster is sealed and returns the resulting
// status. An unsealed cluster is left alone. A threshold above one leaves the
// cluster partially unsealed; that is logged, not returned as an error.
func (u *Unsealer) Unseal(ctx context.Context, key string) (*interfaces.SealStatus, error) {
	if key == "" {
		return nil, &interfaces.MissingInputError{Input: "unseal key"}
	}

	status, err := u.cp.SealStatus(ctx)
	if err != nil {
		return nil, err
	}
	if !status.Sealed {
		u.log.Info("Cluster already unsealed")
		return status, nil
	}

	status, err = u.cp.Unseal(ctx, interfaces.UnsealRequest{Key: key})
	if err != nil {
		return nil, err
	}

	if status.Sealed {
		u.log.Warn("Cluster still sealed, more key shares are required",
			slog.Int("progress", status.Progress),
			slog.Int("threshold", status.T))
	} else {
		u.log.Info("Cluster unsealed")
	}
	return status, nil
}
