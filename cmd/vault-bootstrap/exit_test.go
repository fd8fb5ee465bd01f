package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ruteri/vault-bootstrap/interfaces"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"plain", errors.New("boom"), exitUnclassified},
		{"missing input", &interfaces.MissingInputError{Input: "unseal key"}, exitMissingInput},
		{"already initialized", fmt.Errorf("init rejected: %w", interfaces.ErrAlreadyInitialized), exitAlreadyInitialized},
		{"source", &interfaces.SourceResolutionError{Location: "file:///x", Err: errors.New("no such file")}, exitSourceResolution},
		{"control plane", &interfaces.ControlPlaneError{Op: "unseal", StatusCode: 400, Err: errors.New("bad key")}, exitControlPlane},
		{"wrapped control plane", fmt.Errorf("failed to unseal restored cluster: %w",
			&interfaces.ControlPlaneError{Op: "unseal", StatusCode: 400, Err: errors.New("bad key")}), exitControlPlane},
		{"connectivity", &interfaces.ConnectivityError{Address: "http://localhost:8200", Err: context.DeadlineExceeded}, exitConnectivity},
		{"source inside control plane", &interfaces.ControlPlaneError{Op: "snapshot-force",
			Err: &interfaces.SourceResolutionError{Location: "s3://b/k", Err: errors.New("reset")}}, exitSourceResolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
