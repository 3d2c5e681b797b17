// Package position provides device position sources for the terminal client.
package position

import (
	"context"
	"errors"
	"time"

	"github.com/samirrijal/transporteba/internal/core/domain"
	"github.com/samirrijal/transporteba/internal/core/ports"
)

// Static reports a fixed fix, typically supplied on the command line.
type Static struct {
	Fix        *domain.Position
	Denied     bool
	CapturedAt time.Time
}

var errNoFix = errors.New("no position fix configured")

// CurrentPosition implements ports.PositionProvider.
func (s Static) CurrentPosition(ctx context.Context, opts ports.PositionOptions) (domain.Position, error) {
	if err := ctx.Err(); err != nil {
		return domain.Position{}, &domain.GeolocationError{Code: domain.GeolocationTimeout, Err: err}
	}
	if s.Denied {
		return domain.Position{}, &domain.GeolocationError{Code: domain.GeolocationPermissionDenied}
	}
	if s.Fix == nil {
		return domain.Position{}, &domain.GeolocationError{Code: domain.GeolocationPositionUnavailable, Err: errNoFix}
	}
	if opts.MaximumAge > 0 && !s.CapturedAt.IsZero() && time.Since(s.CapturedAt) > opts.MaximumAge {
		return domain.Position{}, &domain.GeolocationError{
			Code: domain.GeolocationPositionUnavailable,
			Err:  errors.New("cached fix is older than the maximum age"),
		}
	}
	if !s.Fix.Point.Valid() {
		return domain.Position{}, &domain.GeolocationError{
			Code: domain.GeolocationPositionUnavailable,
			Err:  errors.New("fix has invalid coordinates"),
		}
	}
	return *s.Fix, nil
}
