package main

import (
	"fmt"
	"time"

	"github.com/abdulachik/simulpost/internal/platform"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the authorization state of every platform",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("%-12s %-14s %-9s %s\n", "PLATFORM", "STATE", "LIMIT", "EXPIRES")
	for _, id := range platform.All {
		status := a.Auth.CheckStatus(id)

		expires := "-"
		if status.ExpiresAt != 0 {
			expires = time.Unix(status.ExpiresAt, 0).Format(time.RFC3339)
		}

		state := string(a.Auth.State(id))
		if !a.Registry.Implemented(id) {
			state += "*"
		}
		fmt.Printf("%-12s %-14s %-9d %s\n", id, state, a.Registry.CharacterLimit(id), expires)
		if status.Error != "" {
			fmt.Printf("%-12s   %s\n", "", status.Error)
		}
	}
	fmt.Println("\n* simulated integration")
	return nil
}
