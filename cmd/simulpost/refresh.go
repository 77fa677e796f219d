package main

import (
	"github.com/abdulachik/simulpost/internal/platform"
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh <platform>",
	Short: "Re-run authorization for one platform",
	Long: `Re-authorize a platform unconditionally. On failure the previous token
is kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	id, err := platform.Parse(args[0])
	if err != nil {
		return err
	}

	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.Auth.Refresh(cmd.Context(), id)
	printAuthResult(id, res)
	return res.Err()
}
