package main

import (
	"fmt"

	"github.com/spf13/cobra"

	natsadapter "github.com/samirrijal/transporteba/internal/adapters/nats"
	"github.com/samirrijal/transporteba/internal/client"
	"github.com/samirrijal/transporteba/internal/core/domain"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Inspect and control the offline worker",
}

var workerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Install the configured worker version and report it",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := startApp(cmd, client.Options{})
		if err != nil {
			return err
		}
		defer app.Close()

		active, waiting, err := app.Registration.Versions(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if active == "" {
			fmt.Fprintln(out, errorStyle.Render("No active worker: requests go straight to the network"))
		} else {
			fmt.Fprintf(out, "%s %s\n", onStyle.Render("active"), active)
		}
		if waiting != "" {
			fmt.Fprintf(out, "%s %s\n", noticeStyle.Render("waiting"), waiting)
		}
		return nil
	},
}

var skipWaitingCmd = &cobra.Command{
	Use:   "skip-waiting",
	Short: "Tell running clients to activate their waiting worker",
	Long: `Publishes SKIP_WAITING on the control subject. Clients started with
"watch" activate the worker version that is waiting, if any.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.NATS.Enabled {
			return fmt.Errorf("nats is disabled; set TRANSPORTEBA_NATS_ENABLED=true")
		}
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer pub.Close()

		msg := domain.WorkerMessage{Type: domain.WorkerMessageSkipWaiting}
		if err := pub.PublishWorkerMessage(cmd.Context(), cfg.Offline.ControlSubj, msg); err != nil {
			return fmt.Errorf("publish %s: %w", msg.Type, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %s on %s\n", msg.Type, cfg.Offline.ControlSubj)
		return nil
	},
}

func init() {
	workerCmd.AddCommand(workerStatusCmd, skipWaitingCmd)
	rootCmd.AddCommand(workerCmd)
}
