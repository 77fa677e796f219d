package main

import (
	"fmt"
	"time"

	"github.com/abdulachik/simulpost/internal/auth"
	"github.com/abdulachik/simulpost/internal/config"
	"github.com/abdulachik/simulpost/internal/platform"
	"github.com/spf13/cobra"
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize [platform...]",
	Short: "Authorize platforms with their stored credentials",
	Long: `Authorize every named platform, or the saved selection when none is
named. Platforms that already hold a valid token are left alone.`,
	RunE: runAuthorize,
}

func init() {
	rootCmd.AddCommand(authorizeCmd)
}

func runAuthorize(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := targetPlatforms(a, args)
	if err != nil {
		return err
	}

	results := a.Auth.AuthorizeAll(cmd.Context(), ids)

	failed := 0
	for _, id := range ids {
		res := results[id]
		printAuthResult(id, res)
		if !res.Success {
			failed++
		}
	}
	syncAuthorized(a.Prefs, a.Auth, ids)

	if err := a.Prefs.Save(); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d platforms failed to authorize", failed, len(ids))
	}
	return nil
}

// syncAuthorized records each platform's final token status in prefs.
func syncAuthorized(prefs *config.UserConfig, status statusChecker, ids []platform.ID) {
	for _, id := range ids {
		prefs.SetAuthorized(id, status.CheckStatus(id).Authorized)
	}
}

type statusChecker interface {
	CheckStatus(id platform.ID) auth.Status
}

func printAuthResult(id platform.ID, res platform.AuthResult) {
	if !res.Success {
		fmt.Printf("%-12s FAILED  %s\n", id, res.Error)
		return
	}

	line := fmt.Sprintf("%-12s ok", id)
	if res.Simulated {
		line += "  (simulated)"
	}
	if res.User != nil && res.User.Username != "" {
		line += "  as " + res.User.Username
	}
	if res.ExpiresAt != 0 {
		line += "  until " + time.Unix(res.ExpiresAt, 0).Format(time.RFC3339)
	}
	if res.Message != "" {
		line += "  " + res.Message
	}
	fmt.Println(line)
}
