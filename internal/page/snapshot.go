package page

import (
	"strings"
	"time"
)

// Tag values reported by the crawler. Anything else is treated as generic.
const (
	TagLink    = "link"
	TagButton  = "button"
	TagInput   = "input"
	TagHeading = "heading"
	TagGeneric = "generic"
)

// Snapshot is a point-in-time readout of a rendered page
type Snapshot struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Elements   []Element `json:"elements"`
	RawText    string    `json:"rawText"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Element is one visible text-bearing node
type Element struct {
	Text      string   `json:"text"`
	Tag       string   `json:"tag"`
	Position  Position `json:"position"`
	Clickable bool     `json:"clickable"`
	Index     int      `json:"index"` // Document order
}

// Position is measured from the top-left of the document with the page scrolled to the top
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// New builds a normalized snapshot: element text is trimmed, empty elements
// are dropped, duplicate (text, position) pairs are removed and the raw page
// text is lower-cased.
func New(url, title string, elements []Element, rawText string) *Snapshot {
	return &Snapshot{
		URL:        url,
		Title:      title,
		Elements:   Dedupe(elements),
		RawText:    strings.ToLower(rawText),
		CapturedAt: time.Now(),
	}
}

// Dedupe trims, filters and de-duplicates elements, keeping the first
// occurrence and renumbering Index in document order.
func Dedupe(elements []Element) []Element {
	type key struct {
		text string
		pos  Position
	}
	seen := make(map[key]bool, len(elements))
	out := make([]Element, 0, len(elements))

	for _, el := range elements {
		el.Text = strings.TrimSpace(el.Text)
		if el.Text == "" {
			continue
		}
		k := key{text: el.Text, pos: el.Position}
		if seen[k] {
			continue
		}
		seen[k] = true
		if el.Tag == "" {
			el.Tag = TagGeneric
		}
		el.Index = len(out)
		out = append(out, el)
	}

	return out
}

// Clickables returns the clickable elements in document order
func (s *Snapshot) Clickables() []Element {
	var out []Element
	for _, el := range s.Elements {
		if el.Clickable {
			out = append(out, el)
		}
	}
	return out
}
