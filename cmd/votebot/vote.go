package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/v0xg/votebot/internal/ai"
	"github.com/v0xg/votebot/internal/config"
	"github.com/v0xg/votebot/internal/crawler"
	"github.com/v0xg/votebot/internal/executor"
	"github.com/v0xg/votebot/internal/gifgen"
	"github.com/v0xg/votebot/internal/matcher"
	"github.com/v0xg/votebot/internal/overlay"
)

var recordPath string

func voteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Make one voting attempt now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := runAttempt(cmd.Context(), cfg, recordPath)
			if err != nil {
				return err
			}
			if out.State == matcher.Voting && out.Votes == 0 {
				return errors.New("no votes were cast")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&recordPath, "record", "", "Write a GIF of every click to this file")
	return cmd
}

// runAttempt opens the ballot in a fresh browser and runs the voting state machine once
func runAttempt(ctx context.Context, cfg config.Config, record string) (*executor.Outcome, error) {
	b, err := openBallot(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	opts := executor.Options{
		Assist: assistFor(cfg),
		Record: record != "",
	}

	fmt.Printf("→ Voting in %d categories...\n", len(cfg.Categories))
	out, err := executor.Run(ctx, b, planFor(cfg), opts)
	if err != nil {
		return out, fmt.Errorf("voting attempt failed: %w", err)
	}

	printOutcome(out)

	if record != "" {
		writeRecording(out, record)
	}
	return out, nil
}

// openBallot launches the browser, loads the ballot and enters its frame
func openBallot(ctx context.Context, cfg config.Config) (*crawler.Browser, error) {
	fmt.Print("→ Launching browser... ")
	b, err := crawler.Launch(ctx, browserOptions(cfg))
	if err != nil {
		fmt.Println("failed")
		return nil, err
	}
	fmt.Println("done")

	fmt.Printf("→ Opening %s... ", cfg.URL)
	if err := b.Open(ctx, cfg.URL); err != nil {
		fmt.Println("failed")
		b.Close()
		return nil, err
	}
	fmt.Println("done")

	if cfg.FrameMatch != "" {
		fmt.Printf("→ Switching to ballot frame (%s)... ", cfg.FrameMatch)
		if err := b.EnterFrame(ctx, cfg.FrameMatch, cfg.FrameURL); err != nil {
			fmt.Println("failed")
			b.Close()
			return nil, err
		}
		fmt.Println("done")
	}
	return b, nil
}

func browserOptions(cfg config.Config) crawler.Options {
	return crawler.Options{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Timeout:     cfg.WaitTimeout(),
		Headless:    cfg.Headless,
		ProfileDir:  cfg.ProfileDir,
		UserAgent:   cfg.UserAgent,
		ScrollSteps: cfg.ScrollSteps,
		ScrollPause: cfg.ScrollPause(),
	}
}

func planFor(cfg config.Config) executor.Plan {
	plan := executor.Plan{
		Expand:      cfg.Expand,
		SidebarMaxX: cfg.SidebarMaxX,
		BlindVote:   cfg.BlindVote,
	}
	for _, c := range cfg.Categories {
		plan.Ballots = append(plan.Ballots, executor.Ballot{
			Category:  c.Name,
			Aliases:   c.Aliases,
			Candidate: c.Candidate,
		})
	}
	return plan
}

// assistFor returns the configured assist resolver, or nil. A provider that
// cannot be set up is logged and skipped so text matching still runs.
func assistFor(cfg config.Config) executor.Resolver {
	if cfg.Assist == "" {
		return nil
	}
	p, err := ai.NewProvider(cfg.Assist, cfg.AssistModel)
	if err != nil {
		slog.Warn("assist disabled", "provider", cfg.Assist, "err", err)
		return nil
	}
	return ai.NewAssistant(p)
}

func printOutcome(out *executor.Outcome) {
	if out.State != matcher.Voting {
		fmt.Printf("⚠ Page is %s, nothing to vote on\n", out.State)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Category", "Candidate", "Result", "Matched"})
	for _, c := range out.Categories {
		result := c.Phase.String()
		if c.Err != nil {
			result = c.Err.Error()
		}
		t.AppendRow(table.Row{c.Category, c.Candidate, result, describeMatches(c.Matches)})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	if out.Phase == executor.Submitted {
		fmt.Printf("✓ %s\n", out.Summary())
	} else {
		fmt.Printf("⚠ %s\n", out.Summary())
	}
}

func describeMatches(matches []executor.Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("%s: %q (%s)", m.Stage, m.Result.Element.Text, m.Result))
	}
	return strings.Join(parts, "\n")
}

// writeRecording overlays click markers on the captured frames and saves
// them as a GIF. Failures are reported but do not fail the attempt.
func writeRecording(out *executor.Outcome, path string) {
	fmt.Printf("→ Generating GIF (%d frames)... ", len(out.Frames))
	frames := overlay.Render(out.Frames)
	size, err := gifgen.Generate(frames, path, gifgen.Options{MaxWidth: 800})
	if err != nil {
		fmt.Println("failed")
		slog.Warn("could not write recording", "path", path, "err", err)
		return
	}
	fmt.Println("done")
	fmt.Printf("✓ Saved to %s (%.1f MB)\n", path, float64(size)/(1024*1024))
}
