package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/vault-bootstrap/interfaces"
)

// ProbeResult describes a successful wait for the control plane.
type ProbeResult struct {
	// Attempts is the number of probes issued, including the successful one.
	Attempts int

	// StatusCode is the HTTP status of the successful probe.
	StatusCode int

	// Waited is the total time spent waiting.
	Waited time.Duration
}

// Prober waits until the control plane answers HTTP requests.
type Prober struct {
	cp       interfaces.ControlPlane
	interval time.Duration
	log      *slog.Logger
}

// NewProber creates a prober polling every interval.
func NewProber(cp interfaces.ControlPlane, interval time.Duration, log *slog.Logger) *Prober {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Prober{cp: cp, interval: interval, log: log}
}

// WaitForServer probes until any HTTP response arrives. Transport failures
// are retried after the poll interval with no attempt limit; the loop only
// ends early when ctx is done, in which case a *interfaces.ConnectivityError
// wrapping the context error is returned.
func (p *Prober) WaitForServer(ctx context.Context) (*ProbeResult, error) {
	start := time.Now()

	for attempt := 1; ; attempt++ {
		status, err := p.cp.Probe(ctx)
		if err == nil {
			p.log.Info("Server is reachable",
				slog.String("address", p.cp.Address()),
				slog.Int("attempts", attempt),
				slog.Int("status", status))
			return &ProbeResult{Attempts: attempt, StatusCode: status, Waited: time.Since(start)}, nil
		}

		if ctx.Err() != nil {
			return nil, &interfaces.ConnectivityError{Address: p.cp.Address(), Err: ctx.Err()}
		}

		p.log.Info("Waiting for server",
			slog.String("address", p.cp.Address()),
			slog.Int("attempt", attempt),
			"err", err)

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &interfaces.ConnectivityError{
				Address: p.cp.Address(),
				Err:     fmt.Errorf("%w after %d attempts, last error: %v", ctx.Err(), attempt, err),
			}
		case <-timer.C:
		}
	}
}
