package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/vault-bootstrap/interfaces"
)

// SourceFactory creates snapshot sources from location URIs and combines
// several locations into one mirrored source.
type SourceFactory struct {
	log *slog.Logger
}

// NewSourceFactory creates a new factory instance.
func NewSourceFactory(logger *slog.Logger) *SourceFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceFactory{log: logger}
}

// ParseLocations parses raw snapshot URIs. The first invalid or unsupported
// URI fails the whole list.
func ParseLocations(uris []string) ([]interfaces.SnapshotLocation, error) {
	locations := make([]interfaces.SnapshotLocation, 0, len(uris))
	for _, uri := range uris {
		loc, err := interfaces.NewSnapshotLocation(uri)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

// SourceFor creates a snapshot source from a location.
// The URI format is [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local file, streamed from disk
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS node API
//   - http://, https:// - Plain HTTP download
func (sf *SourceFactory) SourceFor(location interfaces.SnapshotLocation) (interfaces.SnapshotSource, error) {
	var (
		source interfaces.SnapshotSource
		err    error
	)

	switch location.Scheme {
	case "file":
		source, err = sf.createFileSource(location)
	case "s3":
		source, err = sf.createS3Source(location)
	case "ipfs":
		source, err = sf.createIPFSSource(location)
	case "http", "https":
		source, err = sf.createHTTPSource(location)
	default:
		err = fmt.Errorf("%w: %q scheme", interfaces.ErrUnsupportedSource, location.Scheme)
	}

	if err != nil {
		var resErr *interfaces.SourceResolutionError
		if errors.As(err, &resErr) {
			return nil, err
		}
		return nil, &interfaces.SourceResolutionError{Location: location.String(), Err: err}
	}
	return source, nil
}

// CreateMultiSource creates a source that opens the first location that can be
// opened. Every location must be resolvable to a source up front: a single
// unsupported location fails the whole list before anything is fetched.
func (sf *SourceFactory) CreateMultiSource(locations []interfaces.SnapshotLocation) (interfaces.SnapshotSource, error) {
	if len(locations) == 0 {
		return nil, &interfaces.MissingInputError{Input: "snapshot location"}
	}

	sources := make([]interfaces.SnapshotSource, 0, len(locations))
	for _, loc := range locations {
		source, err := sf.SourceFor(loc)
		if err != nil {
			sf.log.Error("Failed to create snapshot source",
				"err", err,
				slog.String("location", loc.String()))
			return nil, err
		}
		sources = append(sources, source)
	}

	if len(sources) == 1 {
		return sources[0], nil
	}
	return NewMultiSource(sources, sf.log), nil
}

// createFileSource creates a local file source.
// URI format: file:///absolute/path/to/backup.snap or file://./relative/backup.snap
func (sf *SourceFactory) createFileSource(loc interfaces.SnapshotLocation) (interfaces.SnapshotSource, error) {
	sf.log.Debug("Creating file source", slog.String("uri", loc.String()))

	path := loc.Path
	switch loc.Host {
	case "", "localhost":
	case ".":
		path = "./" + strings.TrimPrefix(path, "/")
	default:
		return nil, fmt.Errorf("file URI host %q is not local, expected file:///path or file://./path", loc.Host)
	}
	if path == "" {
		return nil, fmt.Errorf("empty path in file URI: %s", loc.String())
	}

	return NewFileSource(path, sf.log), nil
}

// createS3Source creates an S3 or S3-compatible source.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/to/backup.snap?region=us-west-2&endpoint=http://minio:9000&path_style=true
func (sf *SourceFactory) createS3Source(loc interfaces.SnapshotLocation) (interfaces.SnapshotSource, error) {
	sf.log.Debug("Creating S3 source", slog.String("bucket", loc.Host))

	bucket := loc.Host
	key := strings.TrimPrefix(loc.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("invalid S3 URI format, expected s3://bucket/key")
	}

	region := loc.Query.Get("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if loc.Auth != "" {
		accessKey, secretKey, _ = strings.Cut(loc.Auth, ":")
		sf.log.Debug("Using embedded S3 credentials")
	} else {
		sf.log.Debug("No credentials in URI, using the default AWS credential chain")
	}

	return NewS3Source(S3Config{
		Bucket:    bucket,
		Key:       key,
		Region:    region,
		Endpoint:  loc.Query.Get("endpoint"),
		PathStyle: loc.Query.Get("path_style") == "true",
		AccessKey: accessKey,
		SecretKey: secretKey,
	}, sf.log)
}

// createIPFSSource creates an IPFS source.
// URI format: ipfs://host:port/ipfs/<cid>?timeout=30s
// The timeout bounds connecting and waiting for the node to start answering,
// not the transfer itself.
func (sf *SourceFactory) createIPFSSource(loc interfaces.SnapshotLocation) (interfaces.SnapshotSource, error) {
	sf.log.Debug("Creating IPFS source", slog.String("uri", loc.String()))

	host := loc.Host
	if host == "" {
		return nil, fmt.Errorf("invalid IPFS URI format, expected ipfs://host:port/<cid>")
	}
	if !strings.Contains(host, ":") {
		host += ":5001" // Default IPFS API port
	}

	path := strings.TrimPrefix(loc.Path, "/")
	if path == "" {
		return nil, fmt.Errorf("missing content path in IPFS URI: %s", loc.String())
	}
	if !strings.HasPrefix(path, "ipfs/") && !strings.HasPrefix(path, "ipns/") {
		path = "ipfs/" + path
	}

	timeout := DefaultIPFSTimeout
	if raw := loc.Query.Get("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid IPFS timeout %q: %w", raw, err)
		}
		timeout = parsed
	}

	return NewIPFSSource(host, "/"+path, timeout, sf.log), nil
}

// createHTTPSource creates a plain HTTP(S) download source.
// URI format: https://[user:password@]host[:port]/path/to/backup.snap
func (sf *SourceFactory) createHTTPSource(loc interfaces.SnapshotLocation) (interfaces.SnapshotSource, error) {
	sf.log.Debug("Creating HTTP source", slog.String("host", loc.Host))

	if loc.Host == "" {
		return nil, fmt.Errorf("missing host in URI")
	}
	return NewHTTPSource(loc.Raw, sf.log)
}
