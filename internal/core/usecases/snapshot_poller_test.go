package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/transporteba/internal/core/catalog"
	"github.com/samirrijal/transporteba/internal/core/domain"
	"github.com/samirrijal/transporteba/internal/core/usecases"
)

func TestSnapshotPoller_PublishesEveryEndpoint(t *testing.T) {
	up := &mockUpstream{getFn: func(ctx context.Context, path string) ([]byte, error) {
		switch {
		case strings.HasPrefix(path, "/subtes"):
			return nil, domain.ErrUpstreamUnavailable
		case strings.HasSuffix(path, "serviceAlerts"):
			return []byte(`{"entity":[{"id":"a1"}]}`), nil
		}
		return []byte(`[{"id":1},{"id":2}]`), nil
	}}
	pub := &mockPublisher{}
	svc := usecases.NewTransitService(catalog.Default(), up, pub, 100)

	p, err := usecases.NewSnapshotPoller(svc, []string{"colectivos/posiciones", "trenes/estado", "subtes/estado"}, time.Minute, 2)
	if err != nil {
		t.Fatalf("NewSnapshotPoller: %v", err)
	}

	if got := p.PollOnce(context.Background()); got != 2 {
		t.Errorf("ok = %d, want 2", got)
	}
	if len(pub.snapshots) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(pub.snapshots))
	}
	for _, s := range pub.snapshots {
		if s.Endpoint == "subtes/estado" {
			t.Error("failed endpoint must not publish")
		}
	}
}

func TestSnapshotPoller_RejectsUnknownEndpoint(t *testing.T) {
	svc := usecases.NewTransitService(catalog.Default(), &mockUpstream{}, nil, 100)
	_, err := usecases.NewSnapshotPoller(svc, []string{"aviones/posiciones"}, time.Minute, 1)
	if !errors.Is(err, domain.ErrUnknownEndpoint) {
		t.Errorf("err = %v, want ErrUnknownEndpoint", err)
	}
}

func TestSnapshotPoller_RunStopsOnCancel(t *testing.T) {
	up := &mockUpstream{}
	svc := usecases.NewTransitService(catalog.Default(), up, nil, 100)
	p, err := usecases.NewSnapshotPoller(svc, []string{"colectivos/posiciones"}, 10*time.Millisecond, 1)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		up.mu.Lock()
		n := len(up.calls)
		up.mu.Unlock()
		if n >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	up.mu.Lock()
	defer up.mu.Unlock()
	if len(up.calls) < 2 {
		t.Errorf("calls = %d, want at least 2", len(up.calls))
	}
}
