package matcher

import (
	"strings"

	"github.com/v0xg/votebot/internal/page"
)

// State is the voting phase a page appears to be in
type State int

const (
	Unknown State = iota
	Voting
	Results
	Closed
)

func (s State) String() string {
	switch s {
	case Voting:
		return "voting"
	case Results:
		return "results"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	closedKeywords  = []string{"voting closed", "check back", "voting starts", "nomination phase"}
	votingKeywords  = []string{"vote", "voting", "submit your choice", "enter your", "nomination"}
	resultsKeywords = []string{"winner", "results", "congratulations", "thank you for voting"}
)

// Scores holds the number of keywords from each set found in the page text
type Scores struct {
	Closed  int
	Voting  int
	Results int
}

// Score counts, per keyword set, how many of its keywords occur in text.
// A keyword counts once however often it appears.
func Score(text string) Scores {
	text = strings.ToLower(text)
	return Scores{
		Closed:  countPresent(text, closedKeywords),
		Voting:  countPresent(text, votingKeywords),
		Results: countPresent(text, resultsKeywords),
	}
}

func countPresent(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// State applies the decision rules in priority order: any closed keyword
// wins outright, then results must outscore voting, then any voting keyword.
func (sc Scores) State() State {
	switch {
	case sc.Closed > 0:
		return Closed
	case sc.Results > sc.Voting:
		return Results
	case sc.Voting > 0:
		return Voting
	default:
		return Unknown
	}
}

// Classify decides the page state from the snapshot's raw text. Unknown
// means nothing on the page is safe to act on.
func Classify(s *page.Snapshot) State {
	if s == nil {
		return Unknown
	}
	return Score(s.RawText).State()
}
