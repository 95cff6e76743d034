package page

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Save writes the snapshot as indented JSON
func Save(path string, s *Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot saved with Save, or a saved HTML page when the file
// extension is .html or .htm.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FromHTML(f, "file://"+path)
	}

	var s Snapshot
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}

	// Files may be hand-edited; restore the normalization invariants.
	out := New(s.URL, s.Title, s.Elements, s.RawText)
	if !s.CapturedAt.IsZero() {
		out.CapturedAt = s.CapturedAt
	}
	return out, nil
}

// controlSelector matches the nodes treated as actionable in static HTML.
const controlSelector = `a[href], button, [role="button"], input[type="submit"], input[type="button"], [onclick]`

// textSelector matches text-bearing nodes collected from static HTML.
const textSelector = `a, button, [role="button"], h1, h2, h3, h4, h5, h6, li, span, p, label, td, div, input[type="submit"], input[type="button"]`

// FromHTML builds a snapshot from saved page source. Static HTML has no
// geometry: every element is placed at x=0 with y equal to its document
// order, so top-to-bottom tie-breaks follow the markup.
func FromHTML(r io.Reader, url string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style, noscript, template").Remove()

	var elements []Element
	doc.Find(textSelector).Each(func(_ int, sel *goquery.Selection) {
		text := ownText(sel)
		if v, ok := sel.Attr("value"); ok && sel.Is("input") {
			text = v
		}
		if strings.TrimSpace(text) == "" {
			return
		}
		elements = append(elements, Element{
			Text:      collapseSpace(text),
			Tag:       htmlTag(sel),
			Position:  Position{X: 0, Y: float64(len(elements))},
			Clickable: sel.Is(controlSelector) || withinDepth(sel, 3),
		})
	})

	title := strings.TrimSpace(doc.Find("title").First().Text())
	raw := doc.Find("body").Text()
	if raw == "" {
		raw = doc.Text()
	}

	return New(url, title, elements, collapseSpace(raw)), nil
}

// ownText returns the text of the node's direct text children only, so a
// container does not repeat the text of every descendant.
func ownText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
	}
	return b.String()
}

// withinDepth reports whether an actionable ancestor is at most depth levels up
func withinDepth(sel *goquery.Selection, depth int) bool {
	cur := sel
	for i := 0; i < depth; i++ {
		cur = cur.Parent()
		if cur.Length() == 0 {
			return false
		}
		if cur.Is(controlSelector) {
			return true
		}
	}
	return false
}

func htmlTag(sel *goquery.Selection) string {
	switch {
	case sel.Is("a"):
		return TagLink
	case sel.Is(`button, [role="button"], input[type="submit"], input[type="button"]`):
		return TagButton
	case sel.Is("h1, h2, h3, h4, h5, h6"):
		return TagHeading
	default:
		return TagGeneric
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
