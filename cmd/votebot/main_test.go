package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/votebot/internal/config"
	"github.com/v0xg/votebot/internal/matcher"
	"github.com/v0xg/votebot/internal/page"
)

func TestPlanFor(t *testing.T) {
	c := config.Default()
	c.BlindVote = true

	plan := planFor(c)
	require.Len(t, plan.Ballots, len(c.Categories))
	assert.Equal(t, "Realtor", plan.Ballots[0].Category)
	assert.Equal(t, "Nate Bartlett", plan.Ballots[0].Candidate)
	assert.Equal(t, c.Categories[0].Aliases, plan.Ballots[0].Aliases)
	assert.Equal(t, 400.0, plan.SidebarMaxX)
	assert.True(t, plan.BlindVote)
	assert.Equal(t, []string{"The Businesses"}, plan.Expand)
}

func TestBrowserOptions(t *testing.T) {
	c := config.Default()
	opts := browserOptions(c)
	assert.Equal(t, c.WaitTimeout(), opts.Timeout)
	assert.Equal(t, 1440, opts.Width)
	assert.Equal(t, 3, opts.ScrollSteps)
}

func TestAssistFor_Disabled(t *testing.T) {
	c := config.Default()
	assert.Nil(t, assistFor(c))

	t.Setenv("VOTEBOT_OPENAI_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	c.Assist = "openai"
	assert.Nil(t, assistFor(c), "missing key disables assist")
}

func TestTeeHandler(t *testing.T) {
	var info, debug bytes.Buffer
	h := teeHandler{
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}
	log := slog.New(h).With("run", "abc")

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
	log.Debug("scrolling")
	log.Info("vote cast")

	assert.NotContains(t, info.String(), "scrolling")
	assert.Contains(t, info.String(), "vote cast")
	assert.Contains(t, info.String(), "run=abc")
	assert.Contains(t, debug.String(), "scrolling")
	assert.Contains(t, debug.String(), "vote cast")
}

func TestSetup_LogsConfigToLogFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		configPath, verbose, targetURL = config.DefaultFile, false, ""
	})

	t.Setenv("VOTEBOT_URL", "")
	dir := t.TempDir()
	logFile := filepath.Join(dir, "votes.log")
	configPath = filepath.Join(dir, "votebot.json5")
	require.NoError(t, os.WriteFile(configPath, []byte(`{log_file: "`+filepath.ToSlash(logFile)+`"}`), 0o644))
	verbose = true
	targetURL = "https://example.com/ballot"

	cmd := &cobra.Command{}
	cmd.Flags().BoolVar(&headless, "headless", false, "")
	require.NoError(t, setup(cmd, nil))

	assert.Equal(t, "https://example.com/ballot", cfg.URL)
	assert.Equal(t, []string{configPath}, cfg.Sources)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "loaded config")
	assert.Contains(t, string(data), "url=https://example.com/ballot")
}

func TestDescribeLocate(t *testing.T) {
	s := page.New("", "", []page.Element{
		{Text: "Realtor", Position: page.Position{X: 120, Y: 200}, Clickable: true},
		{Text: "VOTE", Position: page.Position{X: 800, Y: 300}, Clickable: true},
		{Text: "VOTE", Position: page.Position{X: 800, Y: 400}, Clickable: true},
	}, "")

	r, err := matcher.Locate(s, matcher.Target{Label: "realtor"}, matcher.Sidebar(400))
	assert.Equal(t, `✓ "Realtor" at (120, 200), exact`, describeLocate(r, err))

	r, err = matcher.Locate(s, matcher.Target{Label: "Best Business"}, matcher.WholePage)
	assert.Contains(t, describeLocate(r, err), "✗ not found")

	assert.Equal(t, 2, countControls(s, "vote"))
}
