package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/v0xg/votebot/internal/matcher"
	"github.com/v0xg/votebot/internal/page"
)

// maxPromptElements caps how much of a large page is sent to the model
const maxPromptElements = 400

const systemPrompt = `You help a browser automation script find an element on a web page when plain text matching failed.

You will receive:
1. A numbered list of the visible text elements on the page, top to bottom, with their position, role and whether they are clickable
2. The label being searched for, plus any alternative names

Pick the single element that a person would click to select that label. Prefer clickable elements. Names may be abbreviated, reworded or misspelled on the page.

Respond ONLY with a JSON object, no explanation or markdown:
{"index": <number of the element>}

If nothing on the page plausibly matches, respond with:
{"index": -1}`

func buildUserPrompt(s *page.Snapshot, target matcher.Target) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Page: %s (%s)\n\nElements:\n", s.Title, s.URL)
	for i, el := range s.Elements {
		if i == maxPromptElements {
			fmt.Fprintf(&b, "... %d more elements omitted\n", len(s.Elements)-i)
			break
		}
		click := ""
		if el.Clickable {
			click = " clickable"
		}
		fmt.Fprintf(&b, "[%d] (%.0f, %.0f) %s%s: %s\n", i, el.Position.X, el.Position.Y, el.Tag, click, el.Text)
	}

	fmt.Fprintf(&b, "\nLooking for: %s\n", target.Label)
	if len(target.Aliases) > 0 {
		fmt.Fprintf(&b, "Also known as: %s\n", strings.Join(target.Aliases, ", "))
	}
	return b.String()
}

// parseIndex reads {"index": n} from a response that may contain surrounding text
func parseIndex(response string) (int, error) {
	obj := response
	if !gjson.Valid(obj) {
		start := strings.Index(response, "{")
		if start == -1 {
			return 0, errors.New("no JSON object found in response")
		}
		end := matchingBrace(response, start)
		if end == -1 {
			return 0, errors.New("no matching closing brace found")
		}
		obj = response[start:end]
		if !gjson.Valid(obj) {
			return 0, errors.New("extracted JSON is not valid")
		}
	}

	v := gjson.Get(obj, "index")
	if v.Type != gjson.Number {
		return 0, errors.New(`response has no numeric "index"`)
	}
	return int(v.Int()), nil
}

func matchingBrace(s string, start int) int {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
