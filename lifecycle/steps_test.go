package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/vault-bootstrap/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	uninitialized = &interfaces.SealStatus{Type: "shamir", Initialized: false, Sealed: true}
	sealed        = &interfaces.SealStatus{Type: "shamir", Initialized: true, Sealed: true, T: 1, N: 1}
	unsealed      = &interfaces.SealStatus{Type: "shamir", Initialized: true, Sealed: false, T: 1, N: 1}
	freshInit     = &interfaces.InitResult{Keys: []string{"aa11"}, KeysBase64: []string{"qhE="}, RootToken: "hvs.root"}
)

// trackingCloser records whether the snapshot stream was closed.
type trackingCloser struct {
	io.Reader
	closed bool
}

func (c *trackingCloser) Close() error {
	c.closed = true
	return nil
}

func TestInitializer_Initialize(t *testing.T) {
	cp := new(MockControlPlane)
	cp.On("SealStatus", mock.Anything).Return(uninitialized, nil).Once()
	cp.On("Init", mock.Anything, interfaces.InitRequest{SecretShares: 1, SecretThreshold: 1}).Return(freshInit, nil).Once()
	cp.On("Unseal", mock.Anything, interfaces.UnsealRequest{Key: "aa11"}).Return(unsealed, nil).Once()

	res, err := NewInitializer(cp, testLogger()).Initialize(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Keys, 1)
	assert.Equal(t, "hvs.root", res.RootToken)
	cp.AssertExpectations(t)
}

func TestInitializer_AlreadyInitialized(t *testing.T) {
	cp := new(MockControlPlane)
	cp.On("SealStatus", mock.Anything).Return(sealed, nil).Once()

	res, err := NewInitializer(cp, testLogger()).Initialize(context.Background())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyInitialized)
	cp.AssertNotCalled(t, "Init", mock.Anything, mock.Anything)
	cp.AssertNotCalled(t, "Unseal", mock.Anything, mock.Anything)
}

func TestInitializer_NoKeys(t *testing.T) {
	cp := new(MockControlPlane)
	cp.On("Init", mock.Anything, mock.Anything).Return(&interfaces.InitResult{RootToken: "t"}, nil).Once()

	_, err := NewInitializer(cp, testLogger()).InitAndUnseal(context.Background())
	var cpErr *interfaces.ControlPlaneError
	require.True(t, errors.As(err, &cpErr))
	assert.ErrorIs(t, err, interfaces.ErrNoUnsealKey)
	cp.AssertNotCalled(t, "Unseal", mock.Anything, mock.Anything)
}

func TestInitializer_UnsealFailureKeepsResult(t *testing.T) {
	cp := new(MockControlPlane)
	cp.On("Init", mock.Anything, mock.Anything).Return(freshInit, nil).Once()
	cp.On("Unseal", mock.Anything, mock.Anything).Return(nil, &interfaces.ControlPlaneError{Op: "unseal", StatusCode: 500, Err: errors.New("boom")}).Once()

	res, err := NewInitializer(cp, testLogger()).InitAndUnseal(context.Background())
	require.Error(t, err)
	assert.Equal(t, freshInit, res)
}

func TestUnsealer(t *testing.T) {
	t.Run("already unsealed sends nothing", func(t *testing.T) {
		cp := new(MockControlPlane)
		cp.On("SealStatus", mock.Anything).Return(unsealed, nil).Once()

		status, err := NewUnsealer(cp, testLogger()).Unseal(context.Background(), "aa11")
		require.NoError(t, err)
		assert.False(t, status.Sealed)
		cp.AssertNotCalled(t, "Unseal", mock.Anything, mock.Anything)
	})

	t.Run("sealed submits exactly one share", func(t *testing.T) {
		cp := new(MockControlPlane)
		cp.On("SealStatus", mock.Anything).Return(sealed, nil).Once()
		cp.On("Unseal", mock.Anything, interfaces.UnsealRequest{Key: "aa11"}).Return(unsealed, nil).Once()

		status, err := NewUnsealer(cp, testLogger()).Unseal(context.Background(), "aa11")
		require.NoError(t, err)
		assert.False(t, status.Sealed)
		cp.AssertNumberOfCalls(t, "Unseal", 1)
	})

	t.Run("partial progress is not an error", func(t *testing.T) {
		partial := &interfaces.SealStatus{Initialized: true, Sealed: true, T: 3, N: 5, Progress: 1}
		cp := new(MockControlPlane)
		cp.On("SealStatus", mock.Anything).Return(&interfaces.SealStatus{Initialized: true, Sealed: true, T: 3, N: 5}, nil).Once()
		cp.On("Unseal", mock.Anything, mock.Anything).Return(partial, nil).Once()

		status, err := NewUnsealer(cp, testLogger()).Unseal(context.Background(), "aa11")
		require.NoError(t, err)
		assert.True(t, status.Sealed)
		assert.Equal(t, 1, status.Progress)
		cp.AssertNumberOfCalls(t, "Unseal", 1)
	})

	t.Run("empty key", func(t *testing.T) {
		cp := new(MockControlPlane)

		_, err := NewUnsealer(cp, testLogger()).Unseal(context.Background(), "")
		var missing *interfaces.MissingInputError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "unseal key", missing.Input)
		cp.AssertNotCalled(t, "SealStatus", mock.Anything)
	})
}

func TestRestorer(t *testing.T) {
	t.Run("streams and closes", func(t *testing.T) {
		body := &trackingCloser{Reader: bytes.NewReader([]byte("snap"))}
		snap := &interfaces.Snapshot{ReadCloser: body, Size: 4, Location: "mock://snapshot"}

		source := new(MockSnapshotSource)
		source.On("Open", mock.Anything).Return(snap, nil).Once()
		cp := new(MockControlPlane)
		cp.On("RestoreSnapshot", mock.Anything, snap, "token").Return(nil).Once()

		location, err := NewRestorer(cp, testLogger()).Restore(context.Background(), source, "token")
		require.NoError(t, err)
		assert.Equal(t, "mock://snapshot", location)
		assert.True(t, body.closed)
		cp.AssertExpectations(t)
	})

	t.Run("rejected snapshot still closes stream", func(t *testing.T) {
		body := &trackingCloser{Reader: bytes.NewReader([]byte("junk"))}
		snap := &interfaces.Snapshot{ReadCloser: body, Size: -1}
		rejection := &interfaces.ControlPlaneError{Op: "snapshot-force", StatusCode: 400, Err: errors.New("failed to read snapshot file")}

		source := new(MockSnapshotSource)
		source.On("Open", mock.Anything).Return(snap, nil).Once()
		cp := new(MockControlPlane)
		cp.On("RestoreSnapshot", mock.Anything, snap, "").Return(rejection).Once()

		_, err := NewRestorer(cp, testLogger()).Restore(context.Background(), source, "")
		assert.Equal(t, rejection, err)
		assert.True(t, body.closed)
	})

	t.Run("open failure is a resolution error", func(t *testing.T) {
		source := new(MockSnapshotSource)
		source.On("Open", mock.Anything).Return(nil, os.ErrNotExist).Once()
		cp := new(MockControlPlane)

		_, err := NewRestorer(cp, testLogger()).Restore(context.Background(), source, "")
		var resErr *interfaces.SourceResolutionError
		require.True(t, errors.As(err, &resErr))
		assert.Equal(t, "mock://snapshot", resErr.Location)
		assert.ErrorIs(t, err, os.ErrNotExist)
		cp.AssertNotCalled(t, "RestoreSnapshot", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSaveInitResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "init.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.NoError(t, SaveInitResult(path, freshInit))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded interfaces.InitResult
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, *freshInit, decoded)
}

func TestConfig_Validate(t *testing.T) {
	loc := interfaces.SnapshotLocation{Raw: "file:///a.snap", Scheme: "file", Path: "/a.snap"}

	tests := []struct {
		name    string
		cfg     Config
		missing string
	}{
		{name: "bootstrap", cfg: Config{Address: "http://v:8200", Bootstrap: true}},
		{name: "restore", cfg: Config{Address: "http://v:8200", SnapshotLocations: []interfaces.SnapshotLocation{loc}, UnsealKey: "k"}},
		{name: "no address", cfg: Config{Bootstrap: true}, missing: "control plane address"},
		{name: "restore without snapshot", cfg: Config{Address: "http://v:8200", UnsealKey: "k"}, missing: "snapshot location"},
		{name: "restore without key", cfg: Config{Address: "http://v:8200", SnapshotLocations: []interfaces.SnapshotLocation{loc}}, missing: "unseal key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.missing == "" {
				assert.NoError(t, err)
				return
			}
			var missing *interfaces.MissingInputError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, tt.missing, missing.Input)
		})
	}
}
