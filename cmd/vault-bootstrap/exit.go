package main

import (
	"errors"

	"github.com/ruteri/vault-bootstrap/interfaces"
)

// Process exit codes.
const (
	exitOK = iota
	exitUnclassified
	exitMissingInput
	exitAlreadyInitialized
	exitSourceResolution
	exitControlPlane
	exitConnectivity
)

// exitCode maps a run error to the process exit code. Source resolution is
// checked before the control-plane error since a snapshot stream failing
// mid-upload surfaces as both.
func exitCode(err error) int {
	var (
		missing *interfaces.MissingInputError
		source  *interfaces.SourceResolutionError
		cp      *interfaces.ControlPlaneError
		conn    *interfaces.ConnectivityError
	)

	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &missing):
		return exitMissingInput
	case errors.Is(err, interfaces.ErrAlreadyInitialized):
		return exitAlreadyInitialized
	case errors.As(err, &source):
		return exitSourceResolution
	case errors.As(err, &cp):
		return exitControlPlane
	case errors.As(err, &conn):
		return exitConnectivity
	default:
		return exitUnclassified
	}
}
