package position_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/transporteba/internal/adapters/position"
	"github.com/samirrijal/transporteba/internal/core/domain"
	"github.com/samirrijal/transporteba/internal/core/ports"
)

func code(t *testing.T, err error) domain.GeolocationCode {
	t.Helper()
	var gerr *domain.GeolocationError
	if !errors.As(err, &gerr) {
		t.Fatalf("err = %v, want *domain.GeolocationError", err)
	}
	return gerr.Code
}

func TestStatic_CurrentPosition(t *testing.T) {
	fix := &domain.Position{Point: domain.BuenosAiresCenter, AccuracyM: 10}
	pos, err := position.Static{Fix: fix}.CurrentPosition(context.Background(), ports.PositionOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if pos.Point != domain.BuenosAiresCenter {
		t.Errorf("point = %+v", pos.Point)
	}
}

func TestStatic_Failures(t *testing.T) {
	ctx := context.Background()

	_, err := position.Static{Denied: true}.CurrentPosition(ctx, ports.PositionOptions{})
	if c := code(t, err); c != domain.GeolocationPermissionDenied {
		t.Errorf("denied code = %d", c)
	}

	_, err = position.Static{}.CurrentPosition(ctx, ports.PositionOptions{})
	if c := code(t, err); c != domain.GeolocationPositionUnavailable {
		t.Errorf("no fix code = %d", c)
	}

	stale := position.Static{
		Fix:        &domain.Position{Point: domain.BuenosAiresCenter},
		CapturedAt: time.Now().Add(-5 * time.Minute),
	}
	_, err = stale.CurrentPosition(ctx, ports.PositionOptions{MaximumAge: time.Minute})
	if c := code(t, err); c != domain.GeolocationPositionUnavailable {
		t.Errorf("stale code = %d", c)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = position.Static{}.CurrentPosition(cancelled, ports.PositionOptions{})
	if c := code(t, err); c != domain.GeolocationTimeout {
		t.Errorf("cancelled code = %d", c)
	}
}
