package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFile))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.URL, cfg.URL)
	assert.Len(t, cfg.Categories, 4)
	assert.Equal(t, 20*time.Second, cfg.WaitTimeout())
	assert.Equal(t, 24*time.Hour, cfg.Interval())
	assert.Equal(t, 14*24*time.Hour, cfg.Period())
	assert.Equal(t, float64(400), cfg.SidebarMaxX)
	assert.Equal(t, []string{"The Businesses"}, cfg.Expand)
}

func TestLoad_OverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	writeFile(t, path, `{
		// comments and trailing commas are fine in json5
		url: "https://example.com/ballot",
		sidebar_max_x: 500,
		headless: true,
		categories: [
			{name: "Best Pizza", candidate: "Joe's", aliases: ["pizza",]},
		],
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/ballot", cfg.URL)
	assert.Equal(t, float64(500), cfg.SidebarMaxX)
	assert.True(t, cfg.Headless)
	require.Len(t, cfg.Categories, 1)
	assert.Equal(t, "Best Pizza", cfg.Categories[0].Name)
	assert.Equal(t, []string{"pizza"}, cfg.Categories[0].Aliases)
	// Untouched fields keep their defaults
	assert.Equal(t, 20, cfg.WaitTimeoutSeconds)
}

func TestLoad_LocalFileWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	writeFile(t, path, `{url: "https://example.com/a", interval_hours: 12}`)
	writeFile(t, filepath.Join(dir, "votebot.local.json5"), `{url: "https://example.com/b"}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/b", cfg.URL)
	assert.Equal(t, 12, cfg.IntervalHours)
}

func TestLoad_LocalFileCanTurnSettingsOff(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	local := filepath.Join(dir, "votebot.local.json5")
	writeFile(t, path, `{headless: true, blind_vote: true, expand: ["The Businesses", "The People"]}`)
	writeFile(t, local, `{headless: false, blind_vote: false, expand: []}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Headless)
	assert.False(t, cfg.BlindVote)
	assert.Empty(t, cfg.Expand)
	assert.Equal(t, []string{path, local}, cfg.Sources)
}

func TestLoad_OmittedSettingsKeepBase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	writeFile(t, path, `{headless: true, blind_vote: true}`)
	writeFile(t, filepath.Join(dir, "votebot.local.json5"), `{interval_hours: 6}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Headless)
	assert.True(t, cfg.BlindVote)
	assert.Equal(t, []string{"The Businesses"}, cfg.Expand)
	assert.Equal(t, 6, cfg.IntervalHours)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VOTEBOT_URL", "https://example.com/env")
	t.Setenv("VOTEBOT_HEADLESS", "true")
	t.Setenv("VOTEBOT_ASSIST", "openai")

	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFile))
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/env", cfg.URL)
	assert.True(t, cfg.Headless)
	assert.Equal(t, "openai", cfg.Assist)
}

func TestLoad_InvalidHeadlessEnv(t *testing.T) {
	t.Setenv("VOTEBOT_HEADLESS", "sometimes")

	_, err := Load(filepath.Join(t.TempDir(), DefaultFile))
	require.Error(t, err)
}

func TestLoad_InvalidJSON5(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	writeFile(t, path, `{not json`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing url", func(c *Config) { c.URL = "" }},
		{"no categories", func(c *Config) { c.Categories = nil }},
		{"blank category name", func(c *Config) { c.Categories[0].Name = "  " }},
		{"blank candidate", func(c *Config) { c.Categories[1].Candidate = "" }},
		{"negative sidebar", func(c *Config) { c.SidebarMaxX = -1 }},
		{"zero timeout", func(c *Config) { c.WaitTimeoutSeconds = 0 }},
		{"zero interval", func(c *Config) { c.IntervalHours = 0 }},
		{"zero days", func(c *Config) { c.TotalDays = 0 }},
		{"unknown assist", func(c *Config) { c.Assist = "bard" }},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDefault_IsFreshCopy(t *testing.T) {
	a := Default()
	a.Categories[0].Candidate = "someone else"

	b := Default()
	assert.Equal(t, "Nate Bartlett", b.Categories[0].Candidate)
}
