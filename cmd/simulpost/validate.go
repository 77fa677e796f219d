package main

import (
	"fmt"

	"github.com/abdulachik/simulpost/internal/credential"
	"github.com/abdulachik/simulpost/internal/platform"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [platform...]",
	Short: "Check stored credentials against each platform",
	Long: `Make a live request with each stored credential. Platforms without an
integration always report invalid.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := targetPlatforms(a, args)
	if err != nil {
		return err
	}

	all := a.Credentials.Load()
	creds := make(map[platform.ID]string)
	for _, id := range ids {
		if v, ok := all[id]; ok {
			creds[id] = v
		} else {
			fmt.Printf("%-12s no credential\n", id)
		}
	}

	results := credential.Validate(cmd.Context(), a.Registry, creds)
	for _, id := range ids {
		if valid, ok := results[id]; ok {
			state := "invalid"
			if valid {
				state = "valid"
			}
			fmt.Printf("%-12s %s\n", id, state)
		}
	}
	return nil
}
