package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

// DefaultFile is the config file looked up when no --config flag is given
const DefaultFile = "votebot.json5"

// Config holds everything a voting run needs. It is loaded once and passed
// by value; nothing mutates it afterwards.
type Config struct {
	// URL of the ballot page
	URL string `json:"url"`

	// FrameMatch selects the iframe that hosts the ballot: the first iframe
	// whose src contains this string. Empty means the top-level page.
	FrameMatch string `json:"frame_match,omitempty"`

	// FrameURL, when set, is loaded inside the ballot frame after switching to it.
	FrameURL string `json:"frame_url,omitempty"`

	// Categories are voted in order.
	Categories []Category `json:"categories"`

	// Expand lists collapsed sidebar groups clicked open before voting.
	Expand []string `json:"expand,omitempty"`

	// SidebarMaxX is the x offset, in pixels, left of which category links are searched first.
	SidebarMaxX float64 `json:"sidebar_max_x,omitempty"`

	// WaitTimeoutSeconds bounds every browser wait.
	WaitTimeoutSeconds int `json:"wait_timeout_seconds,omitempty"`

	// ScrollPauseSeconds is the pause between scroll steps while loading lazy content.
	ScrollPauseSeconds int `json:"scroll_pause_seconds,omitempty"`

	// ScrollSteps is how many viewport-heights to scroll through before a snapshot.
	ScrollSteps int `json:"scroll_steps,omitempty"`

	IntervalHours int `json:"interval_hours,omitempty"`
	TotalDays     int `json:"total_days,omitempty"`

	Headless   bool   `json:"headless,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	ProfileDir string `json:"profile_dir,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`

	// BlindVote allows clicking the first VOTE control in a category when the
	// candidate's name cannot be found on the page.
	BlindVote bool `json:"blind_vote,omitempty"`

	// Assist names an AI provider (claude, openai) consulted when text
	// matching finds nothing. Empty disables it.
	Assist      string `json:"assist,omitempty"`
	AssistModel string `json:"assist_model,omitempty"`

	LogFile string `json:"log_file,omitempty"`

	// Sources lists the config files that were merged, in order.
	Sources []string `json:"-"`
}

// Category maps a ballot category to the candidate to vote for
type Category struct {
	Name      string   `json:"name"`
	Candidate string   `json:"candidate"`
	Aliases   []string `json:"aliases,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		URL: "https://keysweekly.com/bom25/#/gallery/?group=522963",
		Categories: []Category{
			{
				Name:      "Realtor",
				Candidate: "Nate Bartlett",
				Aliases:   []string{"realtor", "real estate agent", "agent"},
			},
			{
				Name:      "Real Estate office",
				Candidate: "Berkshire Hathaway Keys Real Estate 9141 Overseas",
				Aliases:   []string{"real estate office", "realty", "real estate company"},
			},
			{
				Name:      "Vacation Rental Company",
				Candidate: "Berkshire Keys Vacation Rentals",
				Aliases:   []string{"vacation rental", "rental company", "vacation rentals"},
			},
			{
				Name:      "Best Business",
				Candidate: "Berkshire Hathaway Keys Real Estate 9141 overseas",
				Aliases:   []string{"best business", "business", "local business"},
			},
		},
		Expand:             []string{"The Businesses"},
		SidebarMaxX:        400,
		WaitTimeoutSeconds: 20,
		ScrollPauseSeconds: 2,
		ScrollSteps:        3,
		IntervalHours:      24,
		TotalDays:          14,
		Headless:           false,
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Width:   1440,
		Height:  900,
		LogFile: "voting_log.txt",
	}
}

// WaitTimeout returns the bounded wait applied to browser operations
func (c Config) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutSeconds) * time.Second
}

// ScrollPause returns the pause between scroll steps
func (c Config) ScrollPause() time.Duration {
	return time.Duration(c.ScrollPauseSeconds) * time.Second
}

// Interval returns the time between scheduled runs
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

// Period returns how long the scheduler keeps running
func (c Config) Period() time.Duration {
	return time.Duration(c.TotalDays) * 24 * time.Hour
}

// Load builds the configuration from defaults, the json5 file at path, its
// sibling <name>.local.json5, a .env file next to it, and VOTEBOT_*
// environment variables, in increasing priority. Missing files are skipped.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
		if err := mergeFile(&cfg, localPath(path)); err != nil {
			return Config{}, err
		}
		_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// explicit holds the fields whose zero value is a meaningful setting.
// mergo skips zero values, so these are applied whenever the file names them.
type explicit struct {
	Headless  *bool     `json:"headless"`
	BlindVote *bool     `json:"blind_vote"`
	Expand    *[]string `json:"expand"`
}

// mergeFile overlays the non-zero fields of a json5 file onto cfg, plus any
// explicit false or empty values it sets.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var overlay Config
	if err := json5.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := mergo.Merge(cfg, overlay, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge config %s: %w", path, err)
	}

	var set explicit
	if err := json5.Unmarshal(data, &set); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if set.Headless != nil {
		cfg.Headless = *set.Headless
	}
	if set.BlindVote != nil {
		cfg.BlindVote = *set.BlindVote
	}
	if set.Expand != nil {
		cfg.Expand = *set.Expand
	}

	cfg.Sources = append(cfg.Sources, path)
	return nil
}

// localPath maps votebot.json5 to votebot.local.json5
func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("VOTEBOT_URL"); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv("VOTEBOT_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid VOTEBOT_HEADLESS %q: %w", v, err)
		}
		cfg.Headless = b
	}
	if v := os.Getenv("VOTEBOT_ASSIST"); v != "" {
		cfg.Assist = v
	}
	return nil
}

// Validate checks that the configuration can drive a run
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("config: url is required")
	}
	if len(c.Categories) == 0 {
		return errors.New("config: at least one category is required")
	}
	for i, cat := range c.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("config: category %d has no name", i+1)
		}
		if strings.TrimSpace(cat.Candidate) == "" {
			return fmt.Errorf("config: category %q has no candidate", cat.Name)
		}
	}
	if c.SidebarMaxX < 0 {
		return fmt.Errorf("config: sidebar_max_x must not be negative, got %v", c.SidebarMaxX)
	}
	if c.WaitTimeoutSeconds <= 0 {
		return fmt.Errorf("config: wait_timeout_seconds must be positive, got %d", c.WaitTimeoutSeconds)
	}
	if c.IntervalHours <= 0 {
		return fmt.Errorf("config: interval_hours must be positive, got %d", c.IntervalHours)
	}
	if c.TotalDays <= 0 {
		return fmt.Errorf("config: total_days must be positive, got %d", c.TotalDays)
	}
	switch c.Assist {
	case "", "claude", "anthropic", "openai", "gpt":
	default:
		return fmt.Errorf("config: unknown assist provider %q (supported: claude, openai)", c.Assist)
	}
	return nil
}
