package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/vault-bootstrap/interfaces"
)

// MultiSource implements interfaces.SnapshotSource over mirrored locations.
// Open returns the stream of the first source that opens successfully.
type MultiSource struct {
	sources []interfaces.SnapshotSource
	log     *slog.Logger
}

// NewMultiSource creates a new multi-source with fallback in the given order.
func NewMultiSource(sources []interfaces.SnapshotSource, logger *slog.Logger) *MultiSource {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiSource{
		sources: sources,
		log:     logger,
	}
}

func (m *MultiSource) Open(ctx context.Context) (*interfaces.Snapshot, error) {
	start := time.Now()
	var errs []error

	for _, source := range m.sources {
		if err := ctx.Err(); err != nil {
			return nil, &interfaces.SourceResolutionError{Location: m.LocationURI(), Err: err}
		}

		snap, err := source.Open(ctx)
		if err == nil {
			m.log.Info("Opened snapshot",
				slog.String("source", source.Name()),
				slog.Duration("duration", time.Since(start)))
			return snap, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", source.Name(), err))
		m.log.Warn("Failed to open snapshot source, trying next",
			slog.String("source", source.Name()),
			"err", err)
	}

	m.log.Error("All snapshot sources failed",
		slog.Int("failed_sources", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, &interfaces.SourceResolutionError{
		Location: m.LocationURI(),
		Err:      fmt.Errorf("all sources failed: %w", errors.Join(errs...)),
	}
}

// Name returns the name of this source.
func (m *MultiSource) Name() string {
	return "multi-source"
}

// LocationURI returns the combined URIs of all sources.
func (m *MultiSource) LocationURI() string {
	var locations []string
	for _, source := range m.sources {
		locations = append(locations, source.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}
