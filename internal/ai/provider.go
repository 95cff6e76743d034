package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/v0xg/votebot/internal/matcher"
	"github.com/v0xg/votebot/internal/page"
)

// ErrNoMatch is returned when the model says no element fits the target
var ErrNoMatch = errors.New("assist found no matching element")

// Provider sends one system + user prompt pair to a model and returns its text reply
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewProvider creates a new AI provider based on the provider name
func NewProvider(name, model string) (Provider, error) {
	switch name {
	case "claude", "anthropic":
		return NewClaudeProvider(model)
	case "openai", "gpt":
		return NewOpenAIProvider(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", name)
	}
}

// Assistant resolves targets that text matching could not find by asking
// a model to pick an element from the snapshot.
type Assistant struct {
	provider Provider
}

// NewAssistant wraps a provider
func NewAssistant(p Provider) *Assistant {
	return &Assistant{provider: p}
}

// Resolve returns the snapshot element the model picked for target
func (a *Assistant) Resolve(ctx context.Context, s *page.Snapshot, target matcher.Target) (page.Element, error) {
	if s == nil || len(s.Elements) == 0 {
		return page.Element{}, ErrNoMatch
	}

	reply, err := a.provider.Complete(ctx, systemPrompt, buildUserPrompt(s, target))
	if err != nil {
		return page.Element{}, err
	}

	idx, err := parseIndex(reply)
	if err != nil {
		return page.Element{}, fmt.Errorf("failed to parse assist response: %w\nResponse: %s", err, reply)
	}
	if idx < 0 {
		return page.Element{}, ErrNoMatch
	}
	if idx >= len(s.Elements) {
		return page.Element{}, fmt.Errorf("assist picked element %d, snapshot has %d", idx, len(s.Elements))
	}

	el := s.Elements[idx]
	slog.Debug("assist resolved target", "target", target.Label, "index", idx, "text", el.Text)
	return el, nil
}
