package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/votebot/internal/matcher"
	"github.com/v0xg/votebot/internal/page"
)

type scriptedProvider struct {
	reply string
	err   error
	user  string
}

func (p *scriptedProvider) Complete(ctx context.Context, system, user string) (string, error) {
	p.user = user
	return p.reply, p.err
}

func ballot() *page.Snapshot {
	return page.New("https://ballot.example", "Best of the Keys", []page.Element{
		{Text: "Best Realtor", Tag: page.TagLink, Position: page.Position{X: 120, Y: 200}, Clickable: true},
		{Text: "Nate Bartlett", Position: page.Position{X: 500, Y: 300}},
		{Text: "VOTE", Tag: page.TagButton, Position: page.Position{X: 800, Y: 300}, Clickable: true},
	}, "vote")
}

func TestParseIndex(t *testing.T) {
	for _, tc := range []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{"bare", `{"index": 2}`, 2, false},
		{"wrapped", "Sure! Here it is:\n```json\n{\"index\": 0}\n```", 0, false},
		{"none", `{"index": -1}`, -1, false},
		{"nested", `answer: {"index": 1, "why": {"score": 3}} done`, 1, false},
		{"no object", "element 2", 0, true},
		{"unclosed", `{"index": 2`, 0, true},
		{"missing key", `{"element": 2}`, 0, true},
		{"string index", `{"index": "2"}`, 0, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseIndex(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildUserPrompt(t *testing.T) {
	got := buildUserPrompt(ballot(), matcher.Target{Label: "Top Agent", Aliases: []string{"Realtor"}})

	assert.Contains(t, got, "Page: Best of the Keys (https://ballot.example)")
	assert.Contains(t, got, "[0] (120, 200) link clickable: Best Realtor")
	assert.Contains(t, got, "[1] (500, 300) generic: Nate Bartlett")
	assert.Contains(t, got, "Looking for: Top Agent")
	assert.Contains(t, got, "Also known as: Realtor")
}

func TestAssistant_Resolve(t *testing.T) {
	p := &scriptedProvider{reply: `{"index": 0}`}
	el, err := NewAssistant(p).Resolve(context.Background(), ballot(), matcher.Target{Label: "Top Agent"})
	require.NoError(t, err)
	assert.Equal(t, "Best Realtor", el.Text)
	assert.Contains(t, p.user, "Looking for: Top Agent")
}

func TestAssistant_ResolveFailures(t *testing.T) {
	target := matcher.Target{Label: "Top Agent"}

	_, err := NewAssistant(&scriptedProvider{reply: `{"index": -1}`}).Resolve(context.Background(), ballot(), target)
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = NewAssistant(&scriptedProvider{reply: `{"index": 9}`}).Resolve(context.Background(), ballot(), target)
	assert.ErrorContains(t, err, "snapshot has 3")

	boom := errors.New("rate limited")
	_, err = NewAssistant(&scriptedProvider{err: boom}).Resolve(context.Background(), ballot(), target)
	assert.ErrorIs(t, err, boom)

	p := &scriptedProvider{reply: `{"index": 0}`}
	_, err = NewAssistant(p).Resolve(context.Background(), page.New("", "", nil, ""), target)
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Empty(t, p.user, "empty pages are not sent")
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider("gemini", "")
	assert.ErrorContains(t, err, "unknown provider")

	t.Setenv("VOTEBOT_OPENAI_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	_, err = NewProvider("openai", "")
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	t.Setenv("VOTEBOT_ANTHROPIC_KEY", "test-key")
	p, err := NewProvider("claude", "")
	require.NoError(t, err)
	assert.IsType(t, &ClaudeProvider{}, p)
}
