package snapshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ruteri/vault-bootstrap/interfaces"
)

// HTTPSource downloads a snapshot with a plain GET request. Credentials in the
// URI user info are sent as basic auth.
type HTTPSource struct {
	url         *url.URL
	client      *http.Client
	log         *slog.Logger
	locationURI string
}

// NewHTTPSource creates a new HTTP(S) snapshot source.
func NewHTTPSource(rawURL string, log *slog.Logger) (*HTTPSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	return &HTTPSource{
		url: u,
		// No overall timeout: snapshots can be large and ctx bounds the transfer.
		client:      &http.Client{Transport: &http.Transport{Proxy: http.ProxyFromEnvironment, ResponseHeaderTimeout: 30 * time.Second}},
		log:         log,
		locationURI: u.Redacted(),
	}, nil
}

// Open issues the GET request and returns the response body as the stream.
func (s *HTTPSource) Open(ctx context.Context) (*interfaces.Snapshot, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.requestURL(), nil)
	if err != nil {
		return nil, &interfaces.SourceResolutionError{Location: s.locationURI, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if s.url.User != nil {
		password, _ := s.url.User.Password()
		req.SetBasicAuth(s.url.User.Username(), password)
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &interfaces.SourceResolutionError{Location: s.locationURI, Err: fmt.Errorf("failed to send request: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		s.log.Warn("Snapshot download failed",
			slog.String("location", s.locationURI),
			slog.String("status", resp.Status))
		return nil, &interfaces.SourceResolutionError{Location: s.locationURI, Err: fmt.Errorf("unexpected response: %s, %s", resp.Status, string(body))}
	}

	s.log.Debug("Opened snapshot over HTTP",
		slog.String("location", s.locationURI),
		slog.Int64("size", resp.ContentLength),
		slog.Duration("duration", time.Since(start)))

	return &interfaces.Snapshot{
		ReadCloser: resp.Body,
		Size:       resp.ContentLength,
		Location:   s.locationURI,
	}, nil
}

// requestURL strips the user info, which travels as a header instead.
func (s *HTTPSource) requestURL() string {
	u := *s.url
	u.User = nil
	return u.String()
}

// Name returns a unique identifier for this source.
func (s *HTTPSource) Name() string {
	return fmt.Sprintf("http-%s", s.url.Host)
}

// LocationURI returns the URI that identifies this source.
func (s *HTTPSource) LocationURI() string {
	return s.locationURI
}
