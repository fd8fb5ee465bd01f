package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/vault-bootstrap/cmd/flags"
	"github.com/ruteri/vault-bootstrap/common"
	"github.com/ruteri/vault-bootstrap/controlplane"
	"github.com/ruteri/vault-bootstrap/interfaces"
	"github.com/ruteri/vault-bootstrap/lifecycle"
	"github.com/ruteri/vault-bootstrap/prompt"
	"github.com/ruteri/vault-bootstrap/snapshot"
	"github.com/urfave/cli/v2"
)

var ServiceLogFlag = flags.LogServiceFlagFn(common.PackageName)

type mode int

const (
	modeFromFlags mode = iota
	modeBootstrap
	modeRestore
)

// inputPrompter asks for inputs missing from flags and environment.
type inputPrompter interface {
	UnsealKey() (string, error)
	SnapshotLocation() (string, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(app.ErrWriter, "%s: %v\n", app.Name, err)
		stop()
		os.Exit(exitCode(err))
	}
}

func newApp() *cli.App {
	allFlags := joinFlags(flags.ConnectionFlags, flags.LifecycleFlags, flags.CommonFlags, []cli.Flag{ServiceLogFlag})
	connectionFlags := joinFlags(flags.ConnectionFlags, flags.CommonFlags, []cli.Flag{ServiceLogFlag})

	return &cli.App{
		Name:    common.PackageName,
		Usage:   "Bring a Vault cluster from freshly launched to unsealed, optionally restoring a raft snapshot",
		Version: common.Version,
		Flags:   allFlags,
		Action: func(cCtx *cli.Context) error {
			return runLifecycle(cCtx, modeFromFlags)
		},
		Commands: []*cli.Command{
			{
				Name:  "wait-for-server",
				Usage: "Block until the control plane answers HTTP requests",
				Flags: connectionFlags,
				Action: func(cCtx *cli.Context) error {
					return runWait(cCtx)
				},
			},
			{
				Name:  "restore",
				Usage: "Wait for the control plane, force-restore a snapshot and unseal with the operator's key",
				Flags: allFlags,
				Action: func(cCtx *cli.Context) error {
					return runLifecycle(cCtx, modeRestore)
				},
			},
			{
				Name:  "bootstrap",
				Usage: "Wait for the control plane, initialize an empty cluster and unseal it",
				Flags: allFlags,
				Action: func(cCtx *cli.Context) error {
					return runLifecycle(cCtx, modeBootstrap)
				},
			},
			{
				Name:  "status",
				Usage: "Print the current seal status as JSON",
				Flags: connectionFlags,
				Action: func(cCtx *cli.Context) error {
					return runStatus(cCtx)
				},
			},
		},
	}
}

func runWait(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	orchestrator, err := newOrchestrator(cCtx, logger, lifecycle.Config{})
	if err != nil {
		return err
	}

	res, err := orchestrator.WaitForServer(cCtx.Context)
	if err != nil {
		logger.Error("Server did not become reachable", "err", err)
		return err
	}
	logger.Info("Server reachable", "attempts", res.Attempts, "status", res.StatusCode)
	return nil
}

func runStatus(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	orchestrator, err := newOrchestrator(cCtx, logger, lifecycle.Config{})
	if err != nil {
		return err
	}

	status, err := orchestrator.Status(cCtx.Context)
	if err != nil {
		logger.Error("Failed to read seal status", "err", err)
		return err
	}
	return writeJSON(cCtx.App.Writer, status)
}

func runLifecycle(cCtx *cli.Context, m mode) error {
	logger := flags.SetupLogger(cCtx)

	cfg := lifecycle.Config{
		Bootstrap:  cCtx.Bool(flags.BootstrapFlag.Name),
		UnsealKey:  cCtx.String(flags.UnsealKeyFlag.Name),
		Token:      cCtx.String(flags.VaultTokenFlag.Name),
		InitOutput: cCtx.String(flags.InitOutputFlag.Name),
	}
	switch m {
	case modeBootstrap:
		cfg.Bootstrap = true
	case modeRestore:
		cfg.Bootstrap = false
	}

	uris := cCtx.StringSlice(flags.SnapshotURLFlag.Name)
	if !cfg.Bootstrap && cCtx.Bool(flags.InteractiveFlag.Name) && prompt.IsInteractive() {
		var err error
		uris, cfg.UnsealKey, err = promptMissing(&prompt.Prompter{}, uris, cfg.UnsealKey)
		if err != nil {
			return err
		}
	}

	locations, err := snapshot.ParseLocations(uris)
	if err != nil {
		logger.Error("Invalid snapshot location", "err", err)
		return err
	}
	cfg.SnapshotLocations = locations

	orchestrator, err := newOrchestrator(cCtx, logger, cfg)
	if err != nil {
		return err
	}

	outcome, err := orchestrator.Run(cCtx.Context)
	if outcome != nil && outcome.InitResult != nil && cfg.InitOutput == "" {
		// Without --init-output stdout is the only copy of the key material.
		if werr := writeJSON(cCtx.App.Writer, outcome.InitResult); werr != nil {
			logger.Error("Failed to print init result", "err", werr)
		}
	}
	if err != nil {
		logger.Error("Lifecycle run failed", "err", err)
		return err
	}
	return nil
}

// newOrchestrator resolves the control-plane address and completes cfg with
// the connection flags.
func newOrchestrator(cCtx *cli.Context, logger *slog.Logger, cfg lifecycle.Config) (*lifecycle.Orchestrator, error) {
	address, err := flags.ControlPlaneAddress(cCtx.Context, cCtx, logger)
	if err != nil {
		logger.Error("Failed to determine control plane address", "err", err)
		return nil, err
	}

	cfg.Address = address
	cfg.PollInterval = cCtx.Duration(flags.PollIntervalFlag.Name)
	cfg.WaitTimeout = cCtx.Duration(flags.WaitTimeoutFlag.Name)

	cp, err := controlplane.NewClient(flags.ConfigureControlPlane(cCtx, address), logger)
	if err != nil {
		logger.Error("Failed to create control plane client", "err", err)
		return nil, err
	}

	logger.Debug("Control plane configured", "address", address, "bootstrap", cfg.Bootstrap)
	return lifecycle.NewOrchestrator(cfg, cp, snapshot.NewSourceFactory(logger), logger), nil
}

// promptMissing fills in a missing snapshot location or unseal key.
func promptMissing(p inputPrompter, uris []string, key string) ([]string, string, error) {
	if len(uris) == 0 {
		uri, err := p.SnapshotLocation()
		if err != nil {
			return nil, "", promptError("snapshot location", err)
		}
		uris = []string{uri}
	}
	if key == "" {
		k, err := p.UnsealKey()
		if err != nil {
			return nil, "", promptError("unseal key", err)
		}
		key = k
	}
	return uris, key, nil
}

func promptError(input string, err error) error {
	if prompt.IsAborted(err) {
		return &interfaces.MissingInputError{Input: input}
	}
	return fmt.Errorf("failed to read %s: %w", input, err)
}

func joinFlags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
