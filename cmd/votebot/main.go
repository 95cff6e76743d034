package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/v0xg/votebot/internal/config"
)

var (
	configPath string
	verbose    bool
	headless   bool
	targetURL  string

	// cfg is loaded once before any command runs
	cfg config.Config
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "votebot",
		Short: "Cast daily votes on a community \"best of\" ballot",
		Long: `votebot drives a browser through a "best of" voting site: it checks that
voting is open, opens each configured category from the sidebar, votes for
the configured candidate and submits the ballot.

Example:
  votebot check
  votebot vote --record proof.gif
  votebot schedule`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFile, "Config file (json5)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "Run the browser without a window")
	rootCmd.PersistentFlags().StringVar(&targetURL, "url", "", "Ballot URL (overrides config)")

	rootCmd.AddCommand(voteCmd(), scheduleCmd(), checkCmd(), snapshotCmd(), inspectCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "✗", err)
		stop()
		os.Exit(1)
	}
}

// setup loads the configuration, applies flag overrides and installs the logger
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("headless") {
		cfg.Headless = headless
	}
	if targetURL != "" {
		cfg.URL = targetURL
	}

	if err := setupLogging(cfg.LogFile, verbose); err != nil {
		return err
	}
	slog.Debug("loaded config", "files", cfg.Sources, "url", cfg.URL, "categories", len(cfg.Categories))
	return nil
}
