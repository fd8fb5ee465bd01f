package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ruteri/vault-bootstrap/interfaces"
)

// Outcome summarizes a completed flow.
type Outcome struct {
	Probe *ProbeResult

	// InitResult is set when this run initialized the cluster. The server
	// never returns this key material again.
	InitResult *interfaces.InitResult

	// RestoredFrom is the location of the submitted snapshot. With mirrors it
	// names the one that was opened.
	RestoredFrom string

	FinalStatus *interfaces.SealStatus
}

// Orchestrator composes the lifecycle steps into the bootstrap and restore
// flows. Steps run strictly in sequence; only the liveness probe is retried.
type Orchestrator struct {
	cfg     Config
	cp      interfaces.ControlPlane
	sources interfaces.SnapshotSourceFactory
	log     *slog.Logger

	prober      *Prober
	initializer *Initializer
	restorer    *Restorer
	unsealer    *Unsealer
}

// NewOrchestrator wires the lifecycle steps around a control plane.
func NewOrchestrator(cfg Config, cp interfaces.ControlPlane, sources interfaces.SnapshotSourceFactory, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		cfg:         cfg,
		cp:          cp,
		sources:     sources,
		log:         log,
		prober:      NewProber(cp, cfg.pollInterval(), log),
		initializer: NewInitializer(cp, log),
		restorer:    NewRestorer(cp, log),
		unsealer:    NewUnsealer(cp, log),
	}
}

// Run validates the configuration and runs the flow it selects.
func (o *Orchestrator) Run(ctx context.Context) (*Outcome, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if o.cfg.Bootstrap {
		return o.Bootstrap(ctx)
	}
	return o.Restore(ctx)
}

// WaitForServer blocks until the control plane is reachable, ctx is done or
// the configured wait timeout elapses.
func (o *Orchestrator) WaitForServer(ctx context.Context) (*ProbeResult, error) {
	if o.cfg.WaitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.WaitTimeout)
		defer cancel()
	}
	return o.prober.WaitForServer(ctx)
}

// Status returns the current seal status.
func (o *Orchestrator) Status(ctx context.Context) (*interfaces.SealStatus, error) {
	return o.cp.SealStatus(ctx)
}

// Bootstrap initializes an empty cluster and unseals it with the new key.
func (o *Orchestrator) Bootstrap(ctx context.Context) (*Outcome, error) {
	if len(o.cfg.SnapshotLocations) > 0 {
		o.log.Warn("Snapshot locations are ignored when bootstrapping",
			slog.Int("locations", len(o.cfg.SnapshotLocations)))
	}

	outcome := &Outcome{}

	probe, err := o.WaitForServer(ctx)
	if err != nil {
		return nil, err
	}
	outcome.Probe = probe

	res, err := o.initializer.Initialize(ctx)
	if res != nil {
		outcome.InitResult = res
		if saveErr := o.saveInitResult(res); saveErr != nil {
			return outcome, errors.Join(err, saveErr)
		}
	}
	if err != nil {
		return outcome, err
	}

	final, err := o.cp.SealStatus(ctx)
	if err != nil {
		return outcome, err
	}
	outcome.FinalStatus = final

	o.log.Info("Bootstrap complete",
		slog.Bool("initialized", final.Initialized),
		slog.Bool("sealed", final.Sealed))
	return outcome, nil
}

// Restore overwrites the cluster's storage with a snapshot and unseals it
// with the operator's key. An init request is always issued first: if the
// cluster was empty it is initialized, self-unsealed and its fresh root token
// authenticates the restore; if it was already initialized the rejection is
// tolerated and the configured token is used.
func (o *Orchestrator) Restore(ctx context.Context) (*Outcome, error) {
	if err := o.cfg.validateRestore(); err != nil {
		return nil, err
	}

	// Resolve every location before the first remote call.
	source, err := o.sources.CreateMultiSource(o.cfg.SnapshotLocations)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{}

	probe, err := o.WaitForServer(ctx)
	if err != nil {
		return nil, err
	}
	outcome.Probe = probe

	status, err := o.cp.SealStatus(ctx)
	if err != nil {
		return outcome, err
	}
	o.log.Info("Cluster state before restore",
		slog.Bool("initialized", status.Initialized),
		slog.Bool("sealed", status.Sealed))

	token := o.cfg.Token
	res, err := o.initializer.InitAndUnseal(ctx)
	switch {
	case errors.Is(err, interfaces.ErrAlreadyInitialized):
		o.log.Info("Cluster already initialized, restoring over existing data")
	case res != nil:
		outcome.InitResult = res
		token = res.RootToken
		if saveErr := o.saveInitResult(res); saveErr != nil {
			return outcome, errors.Join(err, saveErr)
		}
		if err != nil {
			return outcome, err
		}
	case err != nil:
		return outcome, err
	}

	status, err = o.cp.SealStatus(ctx)
	if err != nil {
		return outcome, err
	}
	o.log.Debug("Cluster state after init",
		slog.Bool("initialized", status.Initialized),
		slog.Bool("sealed", status.Sealed))

	restoredFrom, err := o.restorer.Restore(ctx, source, token)
	if err != nil {
		return outcome, err
	}
	outcome.RestoredFrom = restoredFrom

	if _, err := o.unsealer.Unseal(ctx, o.cfg.UnsealKey); err != nil {
		return outcome, fmt.Errorf("failed to unseal restored cluster: %w", err)
	}

	final, err := o.cp.SealStatus(ctx)
	if err != nil {
		return outcome, err
	}
	outcome.FinalStatus = final

	o.log.Info("Restore complete",
		slog.String("source", outcome.RestoredFrom),
		slog.Bool("sealed", final.Sealed))
	return outcome, nil
}

func (o *Orchestrator) saveInitResult(res *interfaces.InitResult) error {
	if o.cfg.InitOutput == "" {
		return nil
	}
	if err := SaveInitResult(o.cfg.InitOutput, res); err != nil {
		return err
	}
	o.log.Info("Init result written", slog.String("path", o.cfg.InitOutput))
	return nil
}
