package ports

import (
	"context"
	"time"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

// UpstreamClient performs a single GET against the transit API.
type UpstreamClient interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishSnapshot(ctx context.Context, s *domain.Snapshot) error
}

// PositionOptions mirrors the knobs of a platform location API.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// PositionProvider reads the device position. Implementations return a
// *domain.GeolocationError for classified failures.
type PositionProvider interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (domain.Position, error)
}

// IPLocator approximates the caller's position from its public IP.
type IPLocator interface {
	Locate(ctx context.Context) (domain.GeoPoint, error)
}

// TransitReader reads one proxy endpoint on behalf of the client. A failed
// envelope is returned together with a non-nil error.
type TransitReader interface {
	Transit(ctx context.Context, endpointKey string, origin *domain.GeoPoint) (*domain.Envelope, error)
}
