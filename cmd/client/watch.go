package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	natsadapter "github.com/samirrijal/transporteba/internal/adapters/nats"
	"github.com/samirrijal/transporteba/internal/client"
	"github.com/samirrijal/transporteba/internal/core/domain"
	"github.com/samirrijal/transporteba/internal/pkg/config"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refresh the active layers periodically",
	Long: `Keeps refreshing the active layers. SIGHUP reloads the configuration and
installs a new offline worker version when offline.version changed; the new
version waits until "worker skip-waiting" is sent over NATS.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		count, _ := cmd.Flags().GetInt("count")
		if interval <= 0 {
			return fmt.Errorf("--interval must be positive, got %s", interval)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		app, err := startApp(cmd, client.Options{Device: devicePosition(cmd)})
		if err != nil {
			return err
		}
		defer app.Close()

		if cfg.NATS.Enabled {
			sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
			if err != nil {
				slog.Warn("nats unavailable, worker control disabled", "error", err)
			} else {
				defer sub.Close()
				err := sub.SubscribeWorkerMessages(ctx, cfg.Offline.ControlSubj, func(ctx context.Context, msg domain.WorkerMessage) error {
					return app.Registration.PostMessage(ctx, msg)
				})
				if err != nil {
					return fmt.Errorf("subscribe %s: %w", cfg.Offline.ControlSubj, err)
				}
			}
		}

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)

		out := cmd.OutOrStdout()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			loc := app.Location.Locate(ctx)
			renderLocation(out, loc)
			origin := loc.Position.Point
			for _, res := range app.Layers.RefreshActive(ctx, &origin) {
				renderLayer(out, res, origin, count, retryWatch)
			}

			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				upgrade(ctx, app)
			case <-ticker.C:
			}
		}
	},
}

func upgrade(ctx context.Context, app *client.App) {
	next, err := config.Load("transporteba-client")
	if err != nil {
		slog.Warn("config reload failed", "error", err)
		return
	}
	if next.Offline.Version == cfg.Offline.Version {
		return
	}
	if err := app.Upgrade(ctx, next.Offline.Version); err != nil {
		slog.Warn("worker upgrade failed", "version", next.Offline.Version, "error", err)
		return
	}
	cfg.Offline.Version = next.Offline.Version
	slog.Info("worker installed, waiting for SKIP_WAITING", "version", next.Offline.Version)
}

func init() {
	addPositionFlags(watchCmd)
	watchCmd.Flags().Duration("interval", 30*time.Second, "Time between refreshes")
	rootCmd.AddCommand(watchCmd)
}
