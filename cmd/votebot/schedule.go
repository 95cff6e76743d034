package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/v0xg/votebot/internal/matcher"
	"github.com/v0xg/votebot/internal/scheduler"
)

var skipFirst bool

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Vote now and then every interval until the voting period ends",
		Args:  cobra.NoArgs,
		RunE:  runSchedule,
	}
	cmd.Flags().BoolVar(&skipFirst, "skip-first", false, "Wait one interval before the first attempt")
	cmd.Flags().StringVar(&recordPath, "record", "", "Write a GIF of each attempt to this file (overwritten)")
	return cmd
}

func runSchedule(cmd *cobra.Command, args []string) error {
	s, err := scheduler.New(scheduler.Options{
		Interval:       cfg.Interval(),
		Period:         cfg.Period(),
		RunImmediately: !skipFirst,
	})
	if err != nil {
		return err
	}

	fmt.Printf("→ Voting every %s for %d days (Ctrl+C to stop)\n", cfg.Interval(), cfg.TotalDays)
	stats, err := s.Run(cmd.Context(), func(ctx context.Context, attempt int) error {
		fmt.Printf("\n→ Attempt %d\n", attempt)
		out, err := runAttempt(ctx, cfg, recordPath)
		if err != nil {
			return err
		}
		if out.State == matcher.Voting && out.Votes == 0 {
			return fmt.Errorf("no votes cast: %s", out.Summary())
		}
		return nil
	})

	fmt.Printf("\n✓ %d attempts, %d failed, %d skipped in %s\n",
		stats.Attempts, stats.Failures, stats.Skipped, stats.Stopped.Sub(stats.Started).Round(time.Second))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
