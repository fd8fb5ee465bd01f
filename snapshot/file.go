package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ruteri/vault-bootstrap/interfaces"
)

// FileSource streams a snapshot from the local file system.
type FileSource struct {
	path        string
	log         *slog.Logger
	locationURI string
}

// NewFileSource creates a source for the file at path.
func NewFileSource(path string, log *slog.Logger) *FileSource {
	return &FileSource{
		path:        path,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", path),
	}
}

// Open opens the file for reading. The file is streamed, never loaded into memory.
func (s *FileSource) Open(ctx context.Context) (*interfaces.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, &interfaces.SourceResolutionError{Location: s.locationURI, Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &interfaces.SourceResolutionError{Location: s.locationURI, Err: err}
	}
	if info.IsDir() {
		f.Close()
		return nil, &interfaces.SourceResolutionError{Location: s.locationURI, Err: fmt.Errorf("%s is a directory", s.path)}
	}

	s.log.Debug("Opened snapshot file",
		slog.String("path", s.path),
		slog.Int64("size", info.Size()))

	return &interfaces.Snapshot{
		ReadCloser: f,
		Size:       info.Size(),
		Location:   s.locationURI,
	}, nil
}

// Name returns a unique identifier for this source.
func (s *FileSource) Name() string {
	return "file-" + s.path
}

// LocationURI returns the URI that identifies this source.
func (s *FileSource) LocationURI() string {
	return s.locationURI
}
