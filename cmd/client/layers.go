package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samirrijal/transporteba/internal/adapters/prefs"
	"github.com/samirrijal/transporteba/internal/core/domain"
	"github.com/samirrijal/transporteba/internal/core/usecases"
)

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "List map layers and whether they are active",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := loadLayers(cmd)
		if err != nil {
			return err
		}
		renderLayers(cmd.OutOrStdout(), state.Preferences())
		return nil
	},
}

func toggleCmd(use string, on bool) *cobra.Command {
	return &cobra.Command{
		Use:       use + " <layer>",
		Short:     fmt.Sprintf("Turn a layer %s", use),
		Args:      cobra.ExactArgs(1),
		ValidArgs: layerIDs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := loadLayers(cmd)
			if err != nil {
				return err
			}
			if err := state.Toggle(cmd.Context(), domain.LayerID(args[0]), on); err != nil {
				return err
			}
			renderLayers(cmd.OutOrStdout(), state.Preferences())
			return nil
		},
	}
}

// loadLayers restores preferences without starting the offline worker.
func loadLayers(cmd *cobra.Command) (*usecases.AppState, error) {
	state := usecases.NewAppState(prefs.NewFileStore(cfg.Offline.PrefsPath), nil, 0)
	if err := state.Restore(cmd.Context()); err != nil {
		return nil, err
	}
	return state, nil
}

func layerIDs() []string {
	ids := make([]string, 0, len(domain.Layers))
	for _, l := range domain.Layers {
		ids = append(ids, string(l.ID))
	}
	return ids
}

func init() {
	layersCmd.AddCommand(toggleCmd("on", true), toggleCmd("off", false))
	rootCmd.AddCommand(layersCmd)
}
