package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInitialized is returned when initialization is attempted
	// against a cluster that reports initialized = true.
	ErrAlreadyInitialized = errors.New("server is already initialized")

	// ErrUnsupportedSource is returned for snapshot locations whose scheme has
	// no source implementation.
	ErrUnsupportedSource = errors.New("unsupported snapshot source")

	// ErrInvalidLocationURI is returned for snapshot locations that cannot be parsed.
	ErrInvalidLocationURI = errors.New("invalid snapshot location URI")

	// ErrNoUnsealKey is returned when an init result carries no key shares.
	ErrNoUnsealKey = errors.New("init result contains no unseal key")
)

// ConnectivityError reports that the control plane could not be reached at
// the transport level. The prober retries it; it only escapes when the
// caller's context ends.
type ConnectivityError struct {
	Address string
	Err     error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("server at %s is not reachable: %v", e.Address, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// ControlPlaneError reports a failed control-plane call: a non-success status,
// a malformed body, or a transport failure after reachability was established.
type ControlPlaneError struct {
	// Op names the call, e.g. "init" or "snapshot-force".
	Op string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	Err error
}

func (e *ControlPlaneError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ControlPlaneError) Unwrap() error {
	return e.Err
}

// SourceResolutionError reports a snapshot location that could not be
// resolved to a readable stream.
type SourceResolutionError struct {
	Location string
	Err      error
}

func (e *SourceResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve snapshot source %q: %v", e.Location, e.Err)
}

func (e *SourceResolutionError) Unwrap() error {
	return e.Err
}

// MissingInputError reports a required operator input that was not supplied.
type MissingInputError struct {
	Input string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required input: %s", e.Input)
}
