package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/v0xg/votebot/internal/config"
	"github.com/v0xg/votebot/internal/matcher"
	"github.com/v0xg/votebot/internal/page"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load the ballot and report whether voting is open and categories are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBallot(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			fmt.Print("→ Reading page... ")
			s, err := b.Snapshot(cmd.Context())
			if err != nil {
				fmt.Println("failed")
				return err
			}
			fmt.Printf("done (%d elements)\n", len(s.Elements))

			printReport(s, cfg)
			return nil
		},
	}
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <snapshot.json|page.html>",
		Short: "Classify a saved snapshot or HTML page and check the configured categories against it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := page.Load(args[0])
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", args[0], err)
			}
			printReport(s, cfg)
			return nil
		},
	}
}

// printReport prints the page state with its keyword scores, then where
// each configured category and candidate would be found.
func printReport(s *page.Snapshot, cfg config.Config) {
	scores := matcher.Score(s.RawText)
	state := scores.State()

	fmt.Printf("\nPage: %s\n", s.Title)
	fmt.Printf("URL:  %s\n", s.URL)
	fmt.Printf("State: %s (closed %d, voting %d, results %d)\n\n",
		strings.ToUpper(state.String()), scores.Closed, scores.Voting, scores.Results)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Category", "Sidebar match", "Candidate", "Candidate match"})
	for _, c := range cfg.Categories {
		cat, catErr := matcher.Locate(s, matcher.Target{Label: c.Name, Aliases: c.Aliases}, matcher.Sidebar(cfg.SidebarMaxX))
		cand, candErr := matcher.Locate(s, matcher.Target{Label: c.Candidate}, matcher.WholePage)
		t.AppendRow(table.Row{c.Name, describeLocate(cat, catErr), c.Candidate, describeLocate(cand, candErr)})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	if n := len(s.Clickables()); n > 0 {
		fmt.Printf("%d clickable elements, %d vote controls\n", n, countControls(s, "vote"))
	}
}

func describeLocate(r matcher.Result, err error) string {
	if err != nil {
		return "✗ " + err.Error()
	}
	return fmt.Sprintf("✓ %q at (%.0f, %.0f), %s", r.Element.Text, r.Element.Position.X, r.Element.Position.Y, r)
}

func countControls(s *page.Snapshot, label string) int {
	n := 0
	for {
		if _, err := matcher.LocateControl(s, label, n); err != nil {
			return n
		}
		n++
	}
}
