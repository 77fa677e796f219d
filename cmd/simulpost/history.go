package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/abdulachik/simulpost/internal/app"
	"github.com/abdulachik/simulpost/internal/db"
	"github.com/abdulachik/simulpost/internal/platform"
	"github.com/spf13/cobra"
)

var (
	historyLimit    int64
	historyPlatform string
	historyBatch    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent posting results",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int64VarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().StringVar(&historyPlatform, "platform", "", "Only show one platform")
	historyCmd.Flags().StringVar(&historyBatch, "batch", "", "Only show one posting batch")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.History == nil {
		return errors.New("post history is unavailable")
	}

	var posts []db.Post
	switch {
	case historyBatch != "":
		posts, err = a.History.ListPostsByBatch(ctx, historyBatch)
	case historyPlatform != "":
		id, perr := platform.Parse(historyPlatform)
		if perr != nil {
			return perr
		}
		posts, err = a.History.ListPostsByPlatform(ctx, string(id), historyLimit)
	default:
		posts, err = a.History.ListRecentPosts(ctx, historyLimit)
	}
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	if len(posts) == 0 {
		fmt.Println("No posts recorded.")
		return nil
	}

	for _, p := range posts {
		when := time.Unix(p.CreatedAt, 0).Format("2006-01-02 15:04")
		detail := p.PostURL
		if !p.Success {
			detail = p.Error
		} else if p.Simulated {
			detail += " (simulated)"
		}
		fmt.Printf("%s  %-8.8s  %-12s %-6s %s\n", when, p.BatchID, p.Platform, mark(p.Success), detail)
	}

	total, err := a.History.CountPosts(ctx)
	if err == nil {
		fmt.Printf("\n%d of %d entries\n", len(posts), total)
	}

	counts, err := app.RealPostsSince(ctx, a.History, platform.All, time.Now().Add(-24*time.Hour))
	if err != nil {
		return err
	}
	if len(counts) > 0 {
		fmt.Println("Published in the last 24h:")
		for _, id := range platform.All {
			if n := counts[id]; n > 0 {
				fmt.Printf("  %-12s %d\n", id, n)
			}
		}
	}
	return nil
}
