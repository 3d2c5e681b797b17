package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/transporteba/internal/adapters/http"
	natsadapter "github.com/samirrijal/transporteba/internal/adapters/nats"
	"github.com/samirrijal/transporteba/internal/adapters/upstream"
	"github.com/samirrijal/transporteba/internal/adapters/valkey"
	"github.com/samirrijal/transporteba/internal/core/catalog"
	"github.com/samirrijal/transporteba/internal/core/ports"
	"github.com/samirrijal/transporteba/internal/core/usecases"
	"github.com/samirrijal/transporteba/internal/pkg/config"
	"github.com/samirrijal/transporteba/internal/pkg/logging"
	"github.com/samirrijal/transporteba/internal/pkg/telemetry"
)

const version = "1.1.0"

func main() {
	cfg, err := config.Load("transporteba-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	if cfg.Upstream.ClientID == "" {
		slog.Warn("upstream credentials not set, requests will be anonymous",
			"hint", "set TRANSPORTEBA_UPSTREAM_CLIENT_ID and TRANSPORTEBA_UPSTREAM_CLIENT_SECRET")
	}
	up := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.ClientID, cfg.Upstream.ClientSecret, cfg.Upstream.UpstreamTimeout())

	deps := &http.Dependencies{
		Upstream:     up,
		StaticDir:    cfg.Server.StaticDir,
		AllowOrigins: cfg.Server.AllowOrigins,
		RateLimit:    cfg.Server.RateLimit,
		Version:      version,
	}

	// NATS is optional: snapshots and the WebSocket relay need it, the proxy does not.
	var publisher ports.EventPublisher
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
			deps.NATS = pub.Conn()
		}
	}

	// The shared offline cache is only probed by /ready.
	if cfg.Offline.Storage == "valkey" {
		cache, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer cache.Close()
			deps.Cache = cache
		}
	}

	deps.Transit = usecases.NewTransitService(catalog.Default(), up, publisher, cfg.Upstream.MaxRecords)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024,
		AppName:      "Transporte BA API",
	})
	app.Use(recover.New())

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "upstream", cfg.Upstream.BaseURL, "nats", deps.NATS != nil)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
