package usecases

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

// SnapshotPoller fetches a fixed set of endpoints on an interval so that
// snapshot subscribers see updates without any client asking.
type SnapshotPoller struct {
	transit     *TransitService
	endpoints   []domain.Endpoint
	interval    time.Duration
	concurrency int
}

// NewSnapshotPoller validates keys against the service catalog.
func NewSnapshotPoller(transit *TransitService, keys []string, interval time.Duration, concurrency int) (*SnapshotPoller, error) {
	if len(keys) == 0 {
		return nil, errors.New("snapshot poller: no endpoints")
	}
	if interval <= 0 {
		return nil, errors.New("snapshot poller: interval must be positive")
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	endpoints := make([]domain.Endpoint, 0, len(keys))
	for _, k := range keys {
		e, err := transit.Catalog().Get(k)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, e)
	}
	return &SnapshotPoller{transit: transit, endpoints: endpoints, interval: interval, concurrency: concurrency}, nil
}

// PollOnce fetches every endpoint once and returns how many succeeded.
func (p *SnapshotPoller) PollOnce(ctx context.Context) int {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	sem := make(chan struct{}, p.concurrency)

	for _, e := range p.endpoints {
		wg.Add(1)
		go func(e domain.Endpoint) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			_, err := p.transit.Fetch(ctx, domain.ProxyRequest{Mode: e.Mode, Resource: e.Resource})
			if err != nil {
				slog.WarnContext(ctx, "snapshot poll failed", "endpoint", e.Key(), "error", err)
				return
			}
			mu.Lock()
			ok++
			mu.Unlock()
		}(e)
	}
	wg.Wait()
	return ok
}

// Run polls immediately and then on every tick until ctx is cancelled.
func (p *SnapshotPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		n := p.PollOnce(ctx)
		slog.DebugContext(ctx, "snapshot poll done", "ok", n, "endpoints", len(p.endpoints))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
