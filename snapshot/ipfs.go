package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/vault-bootstrap/interfaces"
)

// DefaultIPFSTimeout bounds connecting to the node and waiting for its
// response headers.
const DefaultIPFSTimeout = 30 * time.Second

// IPFSSource streams a snapshot through the API of an IPFS node.
type IPFSSource struct {
	shell       *shell.Shell
	apiURL      string
	path        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSSource creates a source for path (e.g. /ipfs/<cid>) served by the
// node at apiURL (host:port). timeout applies until the node starts answering;
// the body is streamed for as long as the caller's context allows.
func NewIPFSSource(apiURL, path string, timeout time.Duration, log *slog.Logger) *IPFSSource {
	if timeout <= 0 {
		timeout = DefaultIPFSTimeout
	}
	client := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
			ResponseHeaderTimeout: timeout,
			DisableKeepAlives:     true,
		},
	}
	sh := shell.NewShellWithClient(apiURL, client)

	return &IPFSSource{
		shell:       sh,
		apiURL:      apiURL,
		path:        path,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s%s", apiURL, path),
	}
}

// Open starts a cat of the content path.
func (s *IPFSSource) Open(ctx context.Context) (*interfaces.Snapshot, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := s.shell.Request("cat", s.path).Send(ctx)
	if err == nil && resp.Error != nil {
		resp.Close()
		err = resp.Error
	}
	if err != nil {
		s.log.Warn("Failed to fetch snapshot from IPFS",
			slog.String("path", s.path),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, &interfaces.SourceResolutionError{Location: s.locationURI, Err: err}
	}

	s.log.Debug("Opened snapshot from IPFS",
		slog.String("path", s.path),
		slog.Duration("duration", time.Since(start)))

	return &interfaces.Snapshot{
		ReadCloser: resp.Output,
		Size:       -1,
		Location:   s.locationURI,
	}, nil
}

// Name returns a unique identifier for this source.
func (s *IPFSSource) Name() string {
	return fmt.Sprintf("ipfs-%s", s.apiURL)
}

// LocationURI returns the URI that identifies this source.
func (s *IPFSSource) LocationURI() string {
	return s.locationURI
}
