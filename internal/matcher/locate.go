package matcher

import (
	"math"
	"sort"
	"strings"

	"github.com/v0xg/votebot/internal/page"
)

// DefaultSidebarMaxX is the x offset left of which elements count as sidebar navigation
const DefaultSidebarMaxX = 400

// Confidence records how a match was found
type Confidence int

const (
	Exact Confidence = iota
	AliasMatch
	Assisted
	PositionalFallback
)

func (c Confidence) String() string {
	switch c {
	case Exact:
		return "exact"
	case AliasMatch:
		return "alias"
	case Assisted:
		return "assisted"
	case PositionalFallback:
		return "positional-fallback"
	default:
		return "unknown"
	}
}

// Target is a label to search for, such as a category or candidate name
type Target struct {
	Label   string
	Aliases []string
}

// Region limits the search horizontally to 0 <= x < MaxX. MaxX <= 0 means
// no limit.
type Region struct {
	MaxX float64
}

// Sidebar returns a region covering the left navigation column
func Sidebar(maxX float64) Region {
	return Region{MaxX: maxX}
}

// WholePage is the unrestricted region
var WholePage = Region{}

func (r Region) contains(p page.Position) bool {
	return r.MaxX <= 0 || (p.X >= 0 && p.X < r.MaxX)
}

// Result is a located element and how it was found
type Result struct {
	Element    page.Element
	Confidence Confidence
	Relaxed    bool // Found only after widening the search to the whole page
}

func (r Result) String() string {
	s := r.Confidence.String()
	if r.Relaxed {
		s += ", whole page"
	}
	return s
}

type candidate struct {
	el   page.Element
	conf Confidence
}

// Locate finds the best element for target. Text containing the label is
// an exact match, text containing an alias is an alias match. Matches
// inside region are preferred; when there are none the whole page is
// searched and the result is marked Relaxed. Among matches, clickable
// elements win, then exact over alias, then the topmost. A winner that is
// not clickable is reported with PositionalFallback.
func Locate(s *page.Snapshot, target Target, region Region) (Result, error) {
	if s != nil {
		matches := textMatches(s.Elements, target)

		if c, ok := best(filterRegion(matches, region)); ok {
			return resultFor(c, false), nil
		}
		if region != WholePage {
			if c, ok := best(matches); ok {
				return resultFor(c, true), nil
			}
		}
	}

	return Result{}, &NotFoundError{
		Target:     target.Label,
		Suggestion: suggest(s, target),
	}
}

// LocateControl is the last-resort strategy: the n-th (zero based)
// clickable element, top to bottom, whose text contains label.
func LocateControl(s *page.Snapshot, label string, n int) (Result, error) {
	controls := clickableWith(s, label)
	if n < 0 || n >= len(controls) {
		return Result{}, &NotFoundError{Target: label}
	}
	sortTopDown(controls)
	return Result{Element: controls[n], Confidence: PositionalFallback, Relaxed: true}, nil
}

// Nearest finds the clickable element containing label that is closest to
// anchor, preferring elements level with or below it. This pairs a
// candidate's name with its own VOTE button.
func Nearest(s *page.Snapshot, label string, anchor page.Position) (Result, error) {
	controls := clickableWith(s, label)
	if len(controls) == 0 {
		return Result{}, &NotFoundError{Target: label}
	}

	// Buttons are often vertically centred on a row a few pixels above the name.
	const slack = 24

	var below []page.Element
	for _, el := range controls {
		if el.Position.Y >= anchor.Y-slack {
			below = append(below, el)
		}
	}
	if len(below) > 0 {
		controls = below
	}

	sort.SliceStable(controls, func(i, j int) bool {
		return distance(controls[i].Position, anchor) < distance(controls[j].Position, anchor)
	})
	return Result{Element: controls[0], Confidence: Exact}, nil
}

func textMatches(elements []page.Element, target Target) []candidate {
	label := strings.ToLower(strings.TrimSpace(target.Label))
	aliases := make([]string, 0, len(target.Aliases))
	for _, a := range target.Aliases {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			aliases = append(aliases, a)
		}
	}

	var out []candidate
	for _, el := range elements {
		text := strings.ToLower(el.Text)
		switch {
		case label != "" && strings.Contains(text, label):
			out = append(out, candidate{el: el, conf: Exact})
		case containsAny(text, aliases):
			out = append(out, candidate{el: el, conf: AliasMatch})
		}
	}
	return out
}

func filterRegion(cands []candidate, region Region) []candidate {
	var out []candidate
	for _, c := range cands {
		if region.contains(c.el.Position) {
			out = append(out, c)
		}
	}
	return out
}

func best(cands []candidate) (candidate, bool) {
	if len(cands) == 0 {
		return candidate{}, false
	}
	sorted := make([]candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.el.Clickable != b.el.Clickable {
			return a.el.Clickable
		}
		if a.conf != b.conf {
			return a.conf < b.conf
		}
		return topDown(a.el, b.el)
	})
	return sorted[0], true
}

func resultFor(c candidate, relaxed bool) Result {
	conf := c.conf
	if !c.el.Clickable {
		conf = PositionalFallback
	}
	return Result{Element: c.el, Confidence: conf, Relaxed: relaxed}
}

func clickableWith(s *page.Snapshot, label string) []page.Element {
	if s == nil {
		return nil
	}
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return nil
	}
	var out []page.Element
	for _, el := range s.Elements {
		if el.Clickable && strings.Contains(strings.ToLower(el.Text), label) {
			out = append(out, el)
		}
	}
	return out
}

func containsAny(text string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(text, sub) {
			return true
		}
	}
	return false
}

func topDown(a, b page.Element) bool {
	if a.Position.Y != b.Position.Y {
		return a.Position.Y < b.Position.Y
	}
	if a.Position.X != b.Position.X {
		return a.Position.X < b.Position.X
	}
	return a.Index < b.Index
}

func sortTopDown(elements []page.Element) {
	sort.SliceStable(elements, func(i, j int) bool {
		return topDown(elements[i], elements[j])
	})
}

func distance(a, b page.Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
