package matcher

import (
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/v0xg/votebot/internal/page"
)

// suggestThreshold is the Jaro-Winkler similarity above which an element's
// text is reported as a near miss.
const suggestThreshold = 0.85

// suggest returns the element text most similar to the target label, for
// log lines only. It never influences which element is matched.
func suggest(s *page.Snapshot, target Target) string {
	if s == nil {
		return ""
	}
	label := strings.ToLower(strings.TrimSpace(target.Label))
	if label == "" {
		return ""
	}

	var bestText string
	var bestScore float64
	for _, el := range s.Elements {
		score := matchr.JaroWinkler(label, strings.ToLower(el.Text), false)
		if score > bestScore {
			bestScore = score
			bestText = el.Text
		}
	}

	if bestScore < suggestThreshold {
		return ""
	}
	return bestText
}
