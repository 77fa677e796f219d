package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	postPlatforms []string
	postMedia     []string
	postDraftID   string
	postDryRun    bool
)

var postCmd = &cobra.Command{
	Use:   "post [text]",
	Short: "Publish one post to several platforms",
	Long: `Publish text (and optional media) to every selected platform. Text longer
than a platform's limit is truncated with "..." for that platform only.
A failure on one platform does not stop the others.

Examples:
  simulpost post "Hello everyone" --platform x --platform bluesky
  simulpost post --draft 1700000000
  simulpost post "Long text..." --dry-run`,
	RunE: runPost,
}

func init() {
	postCmd.Flags().StringSliceVarP(&postPlatforms, "platform", "p", nil, "Platform to post to (repeatable; default: saved selection)")
	postCmd.Flags().StringSliceVarP(&postMedia, "media", "m", nil, "Media file to attach (repeatable)")
	postCmd.Flags().StringVar(&postDraftID, "draft", "", "Post a saved draft")
	postCmd.Flags().BoolVar(&postDryRun, "dry-run", false, "Show what would be posted without posting")
	rootCmd.AddCommand(postCmd)
}

func runPost(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	text := strings.Join(args, " ")
	media := postMedia
	if postDraftID != "" {
		d, err := a.Drafts.Get(postDraftID)
		if err != nil {
			return err
		}
		if text == "" {
			text = d.Text
		}
		if len(media) == 0 {
			media = d.MediaFiles
		}
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("nothing to post: give text or --draft")
	}

	ids, err := targetPlatforms(a, postPlatforms)
	if err != nil {
		return err
	}

	if postDryRun {
		for _, id := range ids {
			formatted := a.Dispatcher.FormatForPlatform(id, text, 0)
			note := ""
			if !a.Dispatcher.ValidateLength(id, text) {
				note = " (truncated)"
			}
			fmt.Printf("=== %s%s ===\n%s\n\n", id, note, formatted)
		}
		fmt.Println("=== DRY RUN - Not posting ===")
		return nil
	}

	results := a.Dispatcher.PostToPlatforms(ctx, ids, text, media)

	failed := 0
	for _, id := range ids {
		res, ok := results[id]
		if !ok {
			continue
		}
		switch {
		case !res.Success:
			failed++
			fmt.Printf("%-12s FAILED  %s\n", id, res.Error)
		case res.Simulated:
			fmt.Printf("%-12s ok      %s (simulated)\n", id, res.PostURL)
		default:
			fmt.Printf("%-12s ok      %s\n", id, res.PostURL)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d platforms failed", failed, len(results))
	}
	return nil
}
