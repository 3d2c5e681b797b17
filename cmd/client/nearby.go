package main

import (
	"github.com/spf13/cobra"

	"github.com/samirrijal/transporteba/internal/adapters/position"
	"github.com/samirrijal/transporteba/internal/client"
)

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "Show the active layers around your position",
	Long: `Resolves your position (device fix from --lat/--lng, then IP lookup, then the
centre of Buenos Aires) and fetches every active layer around it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")

		app, err := startApp(cmd, client.Options{Device: devicePosition(cmd)})
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		loc := app.Location.Locate(ctx)
		renderLocation(out, loc)

		origin := loc.Position.Point
		for _, res := range app.Layers.RefreshActive(ctx, &origin) {
			renderLayer(out, res, origin, count, retryNearby)
		}
		return ctx.Err()
	},
}

// devicePosition reads the position flags shared by nearby and watch.
func devicePosition(cmd *cobra.Command) position.Static {
	f := cmd.Flags()
	denied, _ := f.GetBool("deny-location")

	var lat, lng, acc *float64
	if f.Changed("lat") && f.Changed("lng") {
		la, _ := f.GetFloat64("lat")
		ln, _ := f.GetFloat64("lng")
		lat, lng = &la, &ln
	}
	if f.Changed("accuracy") {
		a, _ := f.GetFloat64("accuracy")
		acc = &a
	}
	return client.StaticPosition(lat, lng, acc, denied)
}

func addPositionFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("lat", 0, "Device latitude")
	cmd.Flags().Float64("lng", 0, "Device longitude")
	cmd.Flags().Float64("accuracy", 10, "Reported accuracy of the device fix, in metres")
	cmd.Flags().Bool("deny-location", false, "Behave as if location permission was denied")
	cmd.Flags().Int("count", 5, "Records shown per layer")
}

func init() {
	addPositionFlags(nearbyCmd)
	rootCmd.AddCommand(nearbyCmd)
}
