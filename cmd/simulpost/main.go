package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/abdulachik/simulpost/internal/app"
	"github.com/abdulachik/simulpost/internal/config"
	"github.com/abdulachik/simulpost/internal/platform"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "simulpost",
	Short: "Post to several social networks at once",
	Long: `Simulpost stores encrypted API credentials for X (Twitter), Threads,
Bluesky, Mastodon and LinkedIn, authorizes against each platform and publishes
one post to every authorized platform in a single step.`,
	SilenceUsage: true,
}

func init() {
	// Load .env file if present
	_ = godotenv.Load()

	// Set up logging
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadApp reads the configuration and wires the application.
func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return a, nil
}

// targetPlatforms resolves platform arguments, falling back to the saved
// selection and then to every platform.
func targetPlatforms(a *app.App, names []string) ([]platform.ID, error) {
	if len(names) > 0 {
		return platform.ParseList(names)
	}
	if len(a.Prefs.SelectedPlatforms) > 0 {
		return a.Prefs.SelectedPlatforms, nil
	}
	return platform.All, nil
}

func mark(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAILED"
}
