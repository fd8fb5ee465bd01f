package interfaces

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Snapshot is an opened raft snapshot stream.
type Snapshot struct {
	io.ReadCloser

	// Size is the length of the stream in bytes, or -1 if unknown.
	Size int64

	// Location is the URI the stream was opened from.
	Location string
}

// Sized reports whether the stream length is known up front.
func (s *Snapshot) Sized() bool {
	return s.Size >= 0
}

// SnapshotLocation represents URI for a snapshot source.
type SnapshotLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// SupportedSchemes lists the snapshot location schemes that have a source implementation.
var SupportedSchemes = []string{"file", "s3", "ipfs", "http", "https"}

// NewSnapshotLocation parses and validates a snapshot location URI.
// Unsupported schemes are rejected here so that a bad reference fails before
// any remote call is made.
func NewSnapshotLocation(uri string) (SnapshotLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		// url.Error repeats the raw URI, credentials included.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return SnapshotLocation{}, &SourceResolutionError{Location: RedactURI(uri), Err: fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isSupportedScheme(scheme) {
		return SnapshotLocation{}, &SourceResolutionError{Location: parsed.Redacted(), Err: fmt.Errorf("%w: %q scheme", ErrUnsupportedSource, parsed.Scheme)}
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return SnapshotLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

func isSupportedScheme(scheme string) bool {
	for _, s := range SupportedSchemes {
		if s == scheme {
			return true
		}
	}
	return false
}

// String returns the URI with any password replaced, safe for logs and
// errors. Raw keeps the credentials for the sources that need them.
func (loc SnapshotLocation) String() string {
	return RedactURI(loc.Raw)
}

// RedactURI masks the password of a URI. Input that does not parse as a URL
// has its whole user info masked.
func RedactURI(uri string) string {
	if parsed, err := url.Parse(uri); err == nil {
		return parsed.Redacted()
	}

	_, rest, found := strings.Cut(uri, "://")
	if !found {
		return uri
	}
	authority, _, _ := strings.Cut(rest, "/")
	at := strings.LastIndex(authority, "@")
	if at < 0 {
		return uri
	}
	return uri[:len(uri)-len(rest)] + "xxxxx" + rest[at:]
}

// IsFile checks if this is a local file location.
func (loc SnapshotLocation) IsFile() bool {
	return loc.Scheme == "file"
}

// IsRemote checks if fetching this location requires network access.
func (loc SnapshotLocation) IsRemote() bool {
	return !loc.IsFile()
}

// SnapshotSource resolves a snapshot reference to a byte stream.
type SnapshotSource interface {
	// Open returns a stream over the snapshot. The caller must close it.
	Open(ctx context.Context) (*Snapshot, error)

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this source, with credentials redacted.
	LocationURI() string
}

// SnapshotSourceFactory creates snapshot sources.
type SnapshotSourceFactory interface {
	// SourceFor creates a source from a location.
	// Supports file://, s3://, ipfs://, http:// and https://
	SourceFor(location SnapshotLocation) (SnapshotSource, error)

	// CreateMultiSource creates a source that tries each location in order.
	CreateMultiSource(locations []SnapshotLocation) (SnapshotSource, error)
}
