package executor

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/v0xg/votebot/internal/matcher"
	"github.com/v0xg/votebot/internal/page"
)

// Phase is a step of the voting state machine
type Phase int

const (
	Idle Phase = iota
	PageLoaded
	StateClassified
	CategoryLocated
	CandidateLocated
	Voted
	Submitted
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case PageLoaded:
		return "page-loaded"
	case StateClassified:
		return "state-classified"
	case CategoryLocated:
		return "category-located"
	case CandidateLocated:
		return "candidate-located"
	case Voted:
		return "voted"
	case Submitted:
		return "submitted"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Driver is the browser surface the state machine needs
type Driver interface {
	Snapshot(ctx context.Context) (*page.Snapshot, error)
	// Click clicks a snapshot element and returns the viewport point clicked
	Click(ctx context.Context, el page.Element) (page.Position, error)
}

// Screenshotter is implemented by drivers that can capture frames for a recording
type Screenshotter interface {
	Screenshot(ctx context.Context) (image.Image, error)
}

// Resolver picks an element when text matching finds nothing
type Resolver interface {
	Resolve(ctx context.Context, s *page.Snapshot, target matcher.Target) (page.Element, error)
}

// Ballot is one category and the candidate to vote for in it
type Ballot struct {
	Category  string
	Aliases   []string
	Candidate string
}

// Plan describes one voting attempt
type Plan struct {
	// Expand are collapsed sidebar groups to click open first
	Expand      []string
	Ballots     []Ballot
	SidebarMaxX float64
	// BlindVote clicks the first VOTE control when the candidate cannot be found
	BlindVote bool
	// Submit is the final control; the zero value uses DefaultSubmit
	Submit matcher.Target
}

// DefaultSubmit matches the ballot's final submit control
var DefaultSubmit = matcher.Target{
	Label:   "submit",
	Aliases: []string{"submit your choice", "continue", "done"},
}

// VoteLabel is the text of the per-candidate vote control
const VoteLabel = "vote"

// Options configures execution behavior
type Options struct {
	Assist Resolver // Optional
	Record bool     // Capture a frame after every click
}

// CursorPosition represents the cursor state at a point in time
type CursorPosition struct {
	X     int
	Y     int
	State CursorState
	Click bool // Whether a click happened at this position
}

// CursorState represents the visual state of the cursor
type CursorState int

const (
	CursorDefault CursorState = iota
	CursorPointer
)

// Frame is a captured screenshot with the cursor drawn on it later
type Frame struct {
	Image  image.Image
	Cursor CursorPosition
}

// CategoryResult records how far one category got
type CategoryResult struct {
	Category  string
	Candidate string
	Phase     Phase // Furthest phase reached; Failed if a step failed
	Matches   []Match
	Stage     matcher.Stage // Step that failed
	Err       error         // *matcher.NotFoundError when an element was missing
}

// Match is an element the run located and clicked
type Match struct {
	Stage  matcher.Stage
	Result matcher.Result
}

// FailedStage returns the stage that failed, or "" if the category succeeded
func (r CategoryResult) FailedStage() matcher.Stage {
	if r.Stage != "" {
		return r.Stage
	}
	return matcher.StageOf(r.Err)
}

// Outcome is the result of one voting attempt
type Outcome struct {
	State      matcher.State // Page state when the attempt started
	Final      matcher.State // Page state after submitting, if submitted
	Phase      Phase
	Categories []CategoryResult
	Votes      int
	SubmitErr  error
	Frames     []Frame
}

// Failures returns the categories that did not get a vote
func (o *Outcome) Failures() []CategoryResult {
	var out []CategoryResult
	for _, c := range o.Categories {
		if c.Phase == Failed {
			out = append(out, c)
		}
	}
	return out
}

// Summary is a one-line human-readable status
func (o *Outcome) Summary() string {
	if o.State != matcher.Voting {
		return fmt.Sprintf("page is %s, nothing to do", o.State)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d votes cast", o.Votes, len(o.Categories))
	if failures := o.Failures(); len(failures) > 0 {
		parts := make([]string, 0, len(failures))
		for _, f := range failures {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Category, f.FailedStage()))
		}
		fmt.Fprintf(&b, " (failed %s)", strings.Join(parts, ", "))
	}
	switch {
	case o.Phase == Submitted:
		b.WriteString(", submitted")
	case o.SubmitErr != nil:
		b.WriteString(", no submit control")
	}
	return b.String()
}
