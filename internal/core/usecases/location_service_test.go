package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/transporteba/internal/core/domain"
	"github.com/samirrijal/transporteba/internal/core/ports"
	"github.com/samirrijal/transporteba/internal/core/usecases"
)

// --- Mock PositionProvider ---

type mockDevice struct {
	calls int
	opts  ports.PositionOptions
	fn    func(ctx context.Context) (domain.Position, error)
}

func (m *mockDevice) CurrentPosition(ctx context.Context, opts ports.PositionOptions) (domain.Position, error) {
	m.calls++
	m.opts = opts
	return m.fn(ctx)
}

// --- Mock IPLocator ---

type mockIP struct {
	calls int
	point domain.GeoPoint
	err   error
}

func (m *mockIP) Locate(ctx context.Context) (domain.GeoPoint, error) {
	m.calls++
	return m.point, m.err
}

var palermo = domain.GeoPoint{Lat: -34.5711, Lon: -58.4233}

func TestLocationService_DevicePositionAccepted(t *testing.T) {
	device := &mockDevice{fn: func(ctx context.Context) (domain.Position, error) {
		return domain.Position{Point: palermo, AccuracyM: 25}, nil
	}}
	ip := &mockIP{point: obelisco}
	svc := usecases.NewLocationService(device, ip, usecases.LocationOptions{
		Timeout:    10 * time.Second,
		MaximumAge: time.Minute,
	})

	got := svc.Locate(context.Background())
	if got.Position.Source != usecases.SourceGPS || got.Position.Point != palermo {
		t.Errorf("position = %+v", got.Position)
	}
	if got.Notice != "" || got.DeviceErr != nil {
		t.Errorf("unexpected notice %q err %v", got.Notice, got.DeviceErr)
	}
	if ip.calls != 0 {
		t.Errorf("ip lookup ran %d times", ip.calls)
	}
	if !device.opts.HighAccuracy || device.opts.Timeout != 10*time.Second || device.opts.MaximumAge != time.Minute {
		t.Errorf("options = %+v", device.opts)
	}
}

func TestLocationService_AccuracyBoundIsInclusive(t *testing.T) {
	device := &mockDevice{fn: func(ctx context.Context) (domain.Position, error) {
		return domain.Position{Point: palermo, AccuracyM: 1000}, nil
	}}
	got := usecases.NewLocationService(device, &mockIP{}, usecases.LocationOptions{}).Locate(context.Background())
	if got.Position.Source != usecases.SourceGPS {
		t.Errorf("source = %q, want gps", got.Position.Source)
	}
}

func TestLocationService_CoarseDeviceFallsBackToIP(t *testing.T) {
	device := &mockDevice{fn: func(ctx context.Context) (domain.Position, error) {
		return domain.Position{Point: palermo, AccuracyM: 5000}, nil
	}}
	ip := &mockIP{point: obelisco}

	got := usecases.NewLocationService(device, ip, usecases.LocationOptions{}).Locate(context.Background())
	if got.Position.Source != usecases.SourceIP || got.Position.Point != obelisco {
		t.Errorf("position = %+v", got.Position)
	}
	if got.DeviceErr != nil {
		t.Errorf("coarse fix is not an error, got %v", got.DeviceErr)
	}
	if got.Notice == "" {
		t.Error("expected a notice")
	}
}

// Permission denied, IP lookup down: the chain still ends on a usable point.
func TestLocationService_PermissionDeniedFallsThroughToDefault(t *testing.T) {
	device := &mockDevice{fn: func(ctx context.Context) (domain.Position, error) {
		return domain.Position{}, &domain.GeolocationError{Code: domain.GeolocationPermissionDenied}
	}}
	ip := &mockIP{err: errors.New("ipapi: 429 too many requests")}

	got := usecases.NewLocationService(device, ip, usecases.LocationOptions{}).Locate(context.Background())

	if got.DeviceErr == nil || got.DeviceErr.Code != domain.GeolocationPermissionDenied {
		t.Fatalf("device err = %v", got.DeviceErr)
	}
	if got.IPErr == nil {
		t.Error("expected ip error to be reported")
	}
	if got.Position.Source != usecases.SourceDefault || got.Position.Point != domain.BuenosAiresCenter {
		t.Errorf("position = %+v, want default", got.Position)
	}
	if device.calls != 1 || ip.calls != 1 {
		t.Errorf("device calls = %d, ip calls = %d; each step runs once", device.calls, ip.calls)
	}
	if !strings.HasPrefix(got.Notice, "Permiso de ubicación denegado.") {
		t.Errorf("notice = %q, want the permission-denied message first", got.Notice)
	}
	if !strings.Contains(got.Notice, "centro de Buenos Aires") {
		t.Errorf("notice = %q, want the default location mentioned", got.Notice)
	}
}

func TestLocationService_PermissionDeniedUsesIP(t *testing.T) {
	denied := &domain.GeolocationError{Code: domain.GeolocationPermissionDenied}
	device := &mockDevice{fn: func(ctx context.Context) (domain.Position, error) {
		return domain.Position{}, denied
	}}
	ip := &mockIP{point: palermo}

	got := usecases.NewLocationService(device, ip, usecases.LocationOptions{}).Locate(context.Background())
	if got.Position.Source != usecases.SourceIP {
		t.Errorf("source = %q, want ip", got.Position.Source)
	}
	if got.Notice != denied.Message() {
		t.Errorf("notice = %q, want permission message", got.Notice)
	}
}

func TestLocationService_DeviceTimeout(t *testing.T) {
	device := &mockDevice{fn: func(ctx context.Context) (domain.Position, error) {
		<-ctx.Done()
		return domain.Position{}, ctx.Err()
	}}
	svc := usecases.NewLocationService(device, nil, usecases.LocationOptions{Timeout: 20 * time.Millisecond})

	got := svc.Locate(context.Background())
	if got.DeviceErr == nil || got.DeviceErr.Code != domain.GeolocationTimeout {
		t.Fatalf("device err = %v, want timeout", got.DeviceErr)
	}
	if got.Position.Source != usecases.SourceDefault {
		t.Errorf("source = %q", got.Position.Source)
	}
}

func TestLocationService_UnclassifiedDeviceError(t *testing.T) {
	device := &mockDevice{fn: func(ctx context.Context) (domain.Position, error) {
		return domain.Position{}, errors.New("no fix")
	}}
	got := usecases.NewLocationService(device, nil, usecases.LocationOptions{}).Locate(context.Background())
	if got.DeviceErr == nil || got.DeviceErr.Code != domain.GeolocationPositionUnavailable {
		t.Errorf("device err = %v, want position unavailable", got.DeviceErr)
	}
}

func TestLocationService_InvalidIPPointIsRejected(t *testing.T) {
	ip := &mockIP{point: domain.GeoPoint{Lat: 123, Lon: 0}}
	fallback := domain.GeoPoint{Lat: -34.6, Lon: -58.4}
	got := usecases.NewLocationService(nil, ip, usecases.LocationOptions{Fallback: fallback}).Locate(context.Background())
	if got.IPErr == nil {
		t.Error("expected ip error")
	}
	if got.Position.Point != fallback {
		t.Errorf("point = %+v, want configured fallback", got.Position.Point)
	}
}
