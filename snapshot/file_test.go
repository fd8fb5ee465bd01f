package snapshot

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/vault-bootstrap/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource_Open(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latest.snap")
	content := []byte("raft snapshot bytes")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	source := NewFileSource(path, testLogger())
	assert.Equal(t, "file://"+path, source.LocationURI())

	snap, err := source.Open(context.Background())
	require.NoError(t, err)
	defer snap.Close()

	assert.True(t, snap.Sized())
	assert.Equal(t, int64(len(content)), snap.Size)
	assert.Equal(t, source.LocationURI(), snap.Location)

	data, err := io.ReadAll(snap)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestFileSource_OpenErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.snap")},
		{name: "directory", path: dir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileSource(tt.path, testLogger()).Open(context.Background())
			require.Error(t, err)

			var resErr *interfaces.SourceResolutionError
			require.True(t, errors.As(err, &resErr))
			assert.Equal(t, "file://"+tt.path, resErr.Location)
		})
	}
}

func TestFileSource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileSource("/does/not/matter", testLogger()).Open(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
