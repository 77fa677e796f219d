package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/abdulachik/simulpost/internal/credential"
	"github.com/abdulachik/simulpost/internal/platform"
	"github.com/spf13/cobra"
)

var (
	keysStdin bool
	keysForce bool
)

var errCredentialRejected = errors.New("credential rejected")

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encrypted API credentials",
}

var keysSetCmd = &cobra.Command{
	Use:   "set <platform> [part...]",
	Short: "Store the credential for a platform",
	Long: `Store the credential for a platform, encrypted at rest.

The credential is checked against the platform before it is saved. A
rejected credential is not stored unless --force is given. Platforms without
an integration skip the check and are reported as simulated.

Credential parts per platform:
  x         consumer_key consumer_secret access_token access_token_secret
  bluesky   handle app_password
  mastodon  instance_url access_token
  threads, linkedin  api_key

Examples:
  simulpost keys set bluesky me.bsky.social app-password
  echo "ck,cs,at,ats" | simulpost keys set x --stdin`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKeysSet,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show which platforms have a stored credential",
	RunE:  runKeysList,
}

func init() {
	keysSetCmd.Flags().BoolVar(&keysStdin, "stdin", false, "Read the comma-separated credential from stdin")
	keysSetCmd.Flags().BoolVar(&keysForce, "force", false, "Store the credential even if the platform rejects it")
	keysCmd.AddCommand(keysSetCmd, keysListCmd)
	rootCmd.AddCommand(keysCmd)
}

func runKeysSet(cmd *cobra.Command, args []string) error {
	id, err := platform.Parse(args[0])
	if err != nil {
		return err
	}

	parts := args[1:]
	if keysStdin {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read credential: %w", err)
		}
		parts = strings.Split(strings.TrimSpace(line), ",")
	}

	value, err := credential.Join(id, parts...)
	if err != nil {
		return err
	}

	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Cipher.Available() {
		return fmt.Errorf("save credential: %w", platform.ErrEncryptionUnavailable)
	}

	verdict, err := checkCredential(cmd.Context(), a.Registry, id, value, keysForce)
	fmt.Printf("%-12s %s\n", id, verdict)
	if err != nil {
		return err
	}

	if !a.Credentials.Put(id, value) {
		return fmt.Errorf("save credential for %s", id)
	}

	fmt.Printf("Stored credential for %s.\n", id)
	return nil
}

// checkCredential runs the live credential check for id and returns the
// verdict to print. A rejected credential for an integrated platform is an
// error unless force is set.
func checkCredential(ctx context.Context, reg *platform.Registry, id platform.ID, value string, force bool) (string, error) {
	if !reg.Implemented(id) {
		return "simulated", nil
	}
	if credential.Validate(ctx, reg, map[platform.ID]string{id: value})[id] {
		return "valid", nil
	}
	if force {
		return "invalid", nil
	}
	return "invalid", fmt.Errorf("%w by %s; use --force to store it anyway", errCredentialRejected, id)
}

func runKeysList(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	creds, failures := a.Credentials.LoadReport()
	for _, id := range platform.All {
		switch {
		case errors.Is(failures[id], platform.ErrDecryption):
			fmt.Printf("%-12s unreadable (wrong SIMULPOST_SECRET_PASSWORD?)\n", id)
		case errors.Is(failures[id], platform.ErrEncryptionUnavailable):
			fmt.Printf("%-12s stored, encryption unavailable\n", id)
		case failures[id] != nil:
			fmt.Printf("%-12s unreadable: %v\n", id, failures[id])
		case creds[id] != "":
			fmt.Printf("%-12s stored\n", id)
		default:
			fmt.Printf("%-12s -\n", id)
		}
	}
	return nil
}
