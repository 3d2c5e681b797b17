package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/samirrijal/transporteba/internal/client"
	"github.com/samirrijal/transporteba/internal/pkg/config"
	"github.com/samirrijal/transporteba/internal/pkg/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "transporteba",
	Short: "Buenos Aires public transport from the terminal",
	Long: `transporteba shows colectivos, subtes, trenes and Ecobici stations near you.
Requests go through an offline worker, so the last good answer is shown
when the network or the transit API is down.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load("transporteba-client")
		if err != nil {
			return err
		}
		slog.SetDefault(logging.New(os.Stderr, c.Log.Level, c.Log.Format))
		cfg = c
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

// startApp builds and starts the client for one command run.
func startApp(cmd *cobra.Command, opts client.Options) (*client.App, error) {
	app, err := client.New(cfg, opts)
	if err != nil {
		return nil, err
	}
	if err := app.Start(cmd.Context()); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}
