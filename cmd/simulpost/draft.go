package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var draftMedia []string

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Save and list unsent posts",
}

var draftSaveCmd = &cobra.Command{
	Use:   "save <text>",
	Short: "Save a draft",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDraftSave,
}

var draftListCmd = &cobra.Command{
	Use:   "list",
	Short: "List drafts, newest first",
	RunE:  runDraftList,
}

var draftShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one draft",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftShow,
}

func init() {
	draftSaveCmd.Flags().StringSliceVarP(&draftMedia, "media", "m", nil, "Media file to attach (repeatable)")
	draftCmd.AddCommand(draftSaveCmd, draftListCmd, draftShowCmd)
	rootCmd.AddCommand(draftCmd)
}

func runDraftSave(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.Drafts.Save(strings.Join(args, " "), draftMedia)
	if !res.Success {
		return fmt.Errorf("save draft: %s", res.Error)
	}
	fmt.Printf("Saved draft %s to %s\n", res.DraftID, res.Location)
	return nil
}

func runDraftList(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	drafts, err := a.Drafts.LoadAll()
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		fmt.Println("No drafts.")
		return nil
	}

	for _, d := range drafts {
		created := "-"
		if d.CreatedAt != 0 {
			created = time.Unix(d.CreatedAt, 0).Format("2006-01-02 15:04")
		}
		fmt.Printf("%-12s %s  %s\n", d.ID, created, preview(d.Text, 50))
	}
	return nil
}

func runDraftShow(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := a.Drafts.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Println(d.Text)
	for _, m := range d.MediaFiles {
		fmt.Printf("media: %s\n", m)
	}
	return nil
}

// preview returns the first line of text cut to n characters.
func preview(text string, n int) string {
	line, _, _ := strings.Cut(text, "\n")
	runes := []rune(line)
	if len(runes) > n {
		return string(runes[:n-1]) + "…"
	}
	return line
}
