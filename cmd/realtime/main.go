package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/samirrijal/transporteba/internal/adapters/nats"
	"github.com/samirrijal/transporteba/internal/adapters/upstream"
	"github.com/samirrijal/transporteba/internal/core/catalog"
	"github.com/samirrijal/transporteba/internal/core/usecases"
	"github.com/samirrijal/transporteba/internal/pkg/config"
	"github.com/samirrijal/transporteba/internal/pkg/logging"
	"github.com/samirrijal/transporteba/internal/pkg/telemetry"
)

// The realtime poller keeps snapshot subscribers (the API's /ws relay) fed
// by fetching a few endpoints on an interval and publishing each result.
func main() {
	cfg, err := config.Load("transporteba-realtime")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Publishing is the whole point here, so NATS is required.
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	up := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.ClientID, cfg.Upstream.ClientSecret, cfg.Upstream.UpstreamTimeout())
	svc := usecases.NewTransitService(catalog.Default(), up, pub, cfg.Upstream.MaxRecords)

	interval := time.Duration(cfg.Realtime.Interval) * time.Second
	poller, err := usecases.NewSnapshotPoller(svc, cfg.Realtime.Endpoints, interval, cfg.Realtime.Concurrency)
	if err != nil {
		log.Fatalf("poller: %v", err)
	}

	slog.Info("realtime poller starting", "endpoints", cfg.Realtime.Endpoints, "interval", interval)
	poller.Run(ctx)
	slog.Info("realtime poller stopped")
}
