package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/transporteba/internal/core/domain"
	"github.com/samirrijal/transporteba/internal/core/ports"
)

// Position sources reported in domain.Position.Source.
const (
	SourceGPS     = "gps"
	SourceIP      = "ip"
	SourceDefault = "default"
)

const (
	noticeLowAccuracy = "Precisión de ubicación insuficiente. Usando ubicación aproximada."
	noticeDefault     = "No se pudo determinar tu ubicación. Mostrando el centro de Buenos Aires."
)

// LocationOptions tunes the fallback chain.
type LocationOptions struct {
	Timeout      time.Duration
	MaximumAge   time.Duration
	MaxAccuracyM float64
	Fallback     domain.GeoPoint
}

// Located is the outcome of the fallback chain. It always carries a position.
type Located struct {
	Position domain.Position
	// Notice is the user-facing message when a fallback was used.
	Notice string
	// DeviceErr is the classified device failure, nil when the device answered.
	DeviceErr *domain.GeolocationError
	// IPErr is the IP lookup failure, nil when the lookup was not needed or worked.
	IPErr error
}

// LocationService resolves the user's position: device, then IP, then a fixed
// default. Each step runs at most once per call.
type LocationService struct {
	device ports.PositionProvider
	ip     ports.IPLocator
	opts   LocationOptions
}

// NewLocationService creates a new LocationService. device and ip may be nil
// to skip their step.
func NewLocationService(device ports.PositionProvider, ip ports.IPLocator, opts LocationOptions) *LocationService {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAccuracyM <= 0 {
		opts.MaxAccuracyM = 1000
	}
	if !opts.Fallback.Valid() || opts.Fallback == (domain.GeoPoint{}) {
		opts.Fallback = domain.BuenosAiresCenter
	}
	return &LocationService{device: device, ip: ip, opts: opts}
}

// Locate runs the chain. It never fails; failures are reported on the result.
func (s *LocationService) Locate(ctx context.Context) Located {
	var out Located

	if s.device != nil {
		pos, err := s.devicePosition(ctx)
		switch {
		case err != nil:
			out.DeviceErr = err
			out.Notice = err.Message()
			slog.WarnContext(ctx, "device position failed", "code", err.Code, "error", err)
		case pos.AccuracyM > s.opts.MaxAccuracyM:
			out.Notice = noticeLowAccuracy
			slog.InfoContext(ctx, "device position too coarse", "accuracy_m", pos.AccuracyM)
		default:
			pos.Source = SourceGPS
			out.Position = pos
			return out
		}
	}

	if s.ip != nil {
		p, err := s.ip.Locate(ctx)
		if err == nil && !p.Valid() {
			err = fmt.Errorf("ip lookup returned invalid point %v", p)
		}
		if err == nil {
			out.Position = domain.Position{Point: p, Source: SourceIP}
			if out.Notice == "" {
				out.Notice = noticeLowAccuracy
			}
			return out
		}
		out.IPErr = err
		slog.WarnContext(ctx, "ip lookup failed", "error", err)
	}

	out.Position = domain.Position{Point: s.opts.Fallback, Source: SourceDefault}
	if out.DeviceErr != nil {
		out.Notice = out.DeviceErr.Message() + " " + noticeDefault
	} else {
		out.Notice = noticeDefault
	}
	return out
}

func (s *LocationService) devicePosition(ctx context.Context) (domain.Position, *domain.GeolocationError) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	pos, err := s.device.CurrentPosition(ctx, ports.PositionOptions{
		HighAccuracy: true,
		Timeout:      s.opts.Timeout,
		MaximumAge:   s.opts.MaximumAge,
	})
	if err == nil {
		return pos, nil
	}
	return pos, classifyGeolocation(err)
}

func classifyGeolocation(err error) *domain.GeolocationError {
	var gerr *domain.GeolocationError
	if errors.As(err, &gerr) {
		return gerr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.GeolocationError{Code: domain.GeolocationTimeout, Err: err}
	}
	return &domain.GeolocationError{Code: domain.GeolocationPositionUnavailable, Err: err}
}
