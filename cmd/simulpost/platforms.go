package main

import (
	"fmt"

	"github.com/abdulachik/simulpost/internal/platform"
	"github.com/spf13/cobra"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List platforms and choose the default selection",
	RunE:  runPlatformsList,
}

var platformsSelectCmd = &cobra.Command{
	Use:   "select <platform...>",
	Short: "Set the platforms used when none are named",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlatformsSelect,
}

func init() {
	platformsCmd.AddCommand(platformsSelectCmd)
	rootCmd.AddCommand(platformsCmd)
}

func runPlatformsList(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	selected := make(map[platform.ID]bool)
	for _, id := range a.Prefs.SelectedPlatforms {
		selected[id] = true
	}

	for _, id := range platform.All {
		sel := " "
		if selected[id] {
			sel = "*"
		}
		kind := "live"
		if !a.Registry.Implemented(id) {
			kind = "simulated"
		}
		fmt.Printf("%s %-12s %-9s limit %d\n", sel, id, kind, a.Registry.CharacterLimit(id))
	}
	return nil
}

func runPlatformsSelect(cmd *cobra.Command, args []string) error {
	ids, err := platform.ParseList(args)
	if err != nil {
		return err
	}

	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	a.Prefs.Select(ids)
	if err := a.Prefs.Save(); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	fmt.Printf("Selected %d platforms.\n", len(ids))
	return nil
}
