package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ruteri/vault-bootstrap/interfaces"
)

// Restorer streams a snapshot into the force-restore endpoint.
type Restorer struct {
	cp  interfaces.ControlPlane
	log *slog.Logger
}

func NewRestorer(cp interfaces.ControlPlane, log *slog.Logger) *Restorer {
	return &Restorer{cp: cp, log: log}
}

// Restore opens source and submits its full contents, returning the location
// the stream was opened from. The stream is closed afterwards whatever the
// outcome. The call is not retried and the restored state is not inspected.
func (r *Restorer) Restore(ctx context.Context, source interfaces.SnapshotSource, token string) (string, error) {
	start := time.Now()

	snap, err := source.Open(ctx)
	if err != nil {
		var resErr *interfaces.SourceResolutionError
		if errors.As(err, &resErr) {
			return "", err
		}
		return "", &interfaces.SourceResolutionError{Location: source.LocationURI(), Err: err}
	}
	defer snap.Close()

	r.log.Info("Submitting snapshot",
		slog.String("location", snap.Location),
		slog.Int64("size", snap.Size))

	if err := r.cp.RestoreSnapshot(ctx, snap, token); err != nil {
		return "", err
	}

	r.log.Info("Snapshot restore accepted",
		slog.String("location", snap.Location),
		slog.Duration("duration", time.Since(start)))
	return snap.Location, nil
}
