package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/v0xg/votebot/internal/matcher"
	"github.com/v0xg/votebot/internal/page"
)

// runner carries the state of one attempt
type runner struct {
	driver Driver
	plan   Plan
	opts   Options
	snap   *page.Snapshot
	out    *Outcome
}

// Run performs one voting attempt on the page the driver is showing.
//
// The page is classified first; anything other than an open ballot ends
// the attempt without clicking. Each ballot then walks category → candidate
// → vote, and a missing element fails only that ballot. After at least one
// vote the submit control is clicked if present.
//
// The returned error is non-nil only when a snapshot could not be taken or
// ctx was cancelled; element-level failures are recorded in the Outcome.
func Run(ctx context.Context, d Driver, plan Plan, opts Options) (*Outcome, error) {
	if plan.Submit.Label == "" {
		plan.Submit = DefaultSubmit
	}
	r := &runner{driver: d, plan: plan, opts: opts, out: &Outcome{Phase: Idle}}

	if err := r.refresh(ctx); err != nil {
		r.out.Phase = Failed
		return r.out, err
	}
	r.out.Phase = PageLoaded

	r.out.State = matcher.Classify(r.snap)
	r.out.Phase = StateClassified
	slog.Info("page classified", "state", r.out.State, "url", r.snap.URL)

	if r.out.State != matcher.Voting {
		return r.out, nil
	}

	for _, group := range plan.Expand {
		if err := r.expand(ctx, group); err != nil {
			r.out.Phase = Failed
			return r.out, err
		}
	}

	for _, b := range plan.Ballots {
		res, err := r.vote(ctx, b)
		r.out.Categories = append(r.out.Categories, res)
		if err != nil {
			r.out.Phase = Failed
			return r.out, err
		}
		if res.Phase == Voted {
			r.out.Votes++
		}
	}

	if r.out.Votes == 0 {
		r.out.Phase = Failed
		slog.Warn("no votes were cast")
		return r.out, nil
	}
	r.out.Phase = Voted

	if err := r.submit(ctx); err != nil {
		return r.out, err
	}
	return r.out, nil
}

// vote runs one ballot. The error is reserved for snapshot failures and
// cancellation; a missing element is recorded on the result.
func (r *runner) vote(ctx context.Context, b Ballot) (CategoryResult, error) {
	res := CategoryResult{Category: b.Category, Candidate: b.Candidate, Phase: StateClassified}
	log := slog.With("category", b.Category)

	fail := func(stage matcher.Stage, err error) (CategoryResult, error) {
		res.Phase = Failed
		res.Stage = stage
		res.Err = atStage(err, stage)
		log.Warn("ballot failed", "stage", stage, "err", res.Err)
		return res, nil
	}

	// Category link in the sidebar
	cat, err := r.locate(ctx, matcher.Target{Label: b.Category, Aliases: b.Aliases}, matcher.Sidebar(r.plan.SidebarMaxX))
	if err != nil {
		return fail(matcher.StageCategory, err)
	}
	log.Info("category located", "text", cat.Element.Text, "x", cat.Element.Position.X, "confidence", cat)
	if err := r.click(ctx, cat.Element); err != nil {
		return fail(matcher.StageCategory, err)
	}
	res.Matches = append(res.Matches, Match{Stage: matcher.StageCategory, Result: cat})
	res.Phase = CategoryLocated
	if err := r.refresh(ctx); err != nil {
		return res, err
	}

	// Candidate, anywhere on the page
	control, err := r.candidateControl(ctx, b, &res)
	if err != nil {
		if matcher.IsNotFound(err, "") {
			return fail(matcher.StageOf(err), err)
		}
		return fail(matcher.StageVote, err)
	}

	log.Info("voting", "candidate", b.Candidate, "control", control.Element.Text, "confidence", control)
	if err := r.click(ctx, control.Element); err != nil {
		return fail(matcher.StageVote, err)
	}
	res.Matches = append(res.Matches, Match{Stage: matcher.StageVote, Result: control})
	res.Phase = Voted
	if err := r.refresh(ctx); err != nil {
		return res, err
	}

	log.Info("vote cast", "candidate", b.Candidate)
	return res, nil
}

// expand clicks a sidebar group open. A group that is not on the page is
// skipped; its categories may already be visible.
func (r *runner) expand(ctx context.Context, group string) error {
	res, err := matcher.Locate(r.snap, matcher.Target{Label: group}, matcher.Sidebar(r.plan.SidebarMaxX))
	if err != nil || res.Relaxed {
		slog.Debug("sidebar group not found", "group", group)
		return nil
	}
	if err := r.click(ctx, res.Element); err != nil {
		slog.Warn("could not expand sidebar group", "group", group, "err", err)
		return nil
	}
	slog.Info("expanded sidebar group", "group", res.Element.Text)
	return r.refresh(ctx)
}

// candidateControl locates the candidate and the vote control that belongs to it
func (r *runner) candidateControl(ctx context.Context, b Ballot, res *CategoryResult) (matcher.Result, error) {
	cand, err := r.locate(ctx, matcher.Target{Label: b.Candidate}, matcher.WholePage)
	if err != nil {
		if !r.plan.BlindVote {
			return matcher.Result{}, atStage(err, matcher.StageCandidate)
		}
		slog.Warn("candidate not found, using first vote control", "candidate", b.Candidate)
		control, cerr := matcher.LocateControl(r.snap, VoteLabel, 0)
		if cerr != nil {
			return matcher.Result{}, atStage(err, matcher.StageCandidate)
		}
		return control, nil
	}
	res.Matches = append(res.Matches, Match{Stage: matcher.StageCandidate, Result: cand})
	res.Phase = CandidateLocated

	if cand.Element.Clickable && strings.Contains(strings.ToLower(cand.Element.Text), VoteLabel) {
		return cand, nil
	}

	control, err := matcher.Nearest(r.snap, VoteLabel, cand.Element.Position)
	if err != nil {
		return matcher.Result{}, atStage(err, matcher.StageVote)
	}
	return control, nil
}

func (r *runner) submit(ctx context.Context) error {
	sub, err := r.locate(ctx, r.plan.Submit, matcher.WholePage)
	if err != nil {
		r.out.SubmitErr = atStage(err, matcher.StageSubmit)
		slog.Warn("no submit control found; votes may already be counted", "err", r.out.SubmitErr)
		return nil
	}

	if err := r.click(ctx, sub.Element); err != nil {
		r.out.SubmitErr = err
		slog.Warn("submit click failed", "err", err)
		return nil
	}
	r.out.Phase = Submitted
	slog.Info("ballot submitted", "control", sub.Element.Text)

	if err := r.refresh(ctx); err != nil {
		return err
	}
	r.out.Final = matcher.Classify(r.snap)
	slog.Info("page after submit", "state", r.out.Final)
	return nil
}

// locate tries text matching, then the assist resolver if one is configured
func (r *runner) locate(ctx context.Context, target matcher.Target, region matcher.Region) (matcher.Result, error) {
	res, err := matcher.Locate(r.snap, target, region)
	if err == nil || r.opts.Assist == nil {
		return res, err
	}

	el, aerr := r.opts.Assist.Resolve(ctx, r.snap, target)
	if aerr != nil {
		slog.Warn("assist could not resolve target", "target", target.Label, "err", aerr)
		return res, err
	}
	return matcher.Result{Element: el, Confidence: matcher.Assisted}, nil
}

func (r *runner) click(ctx context.Context, el page.Element) error {
	pos, err := r.driver.Click(ctx, el)
	if err != nil {
		return err
	}
	r.capture(ctx, pos)
	return nil
}

func (r *runner) refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap, err := r.driver.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture page: %w", err)
	}
	r.snap = snap
	return nil
}

// capture records a frame with a click marker when recording is enabled
func (r *runner) capture(ctx context.Context, pos page.Position) {
	if !r.opts.Record {
		return
	}
	shooter, ok := r.driver.(Screenshotter)
	if !ok {
		return
	}
	img, err := shooter.Screenshot(ctx)
	if err != nil {
		slog.Debug("frame capture failed", "err", err)
		return
	}
	r.out.Frames = append(r.out.Frames, Frame{
		Image: img,
		Cursor: CursorPosition{
			X:     int(pos.X),
			Y:     int(pos.Y),
			State: CursorPointer,
			Click: true,
		},
	})
}

// atStage tags a not-found error with the stage that was looking
func atStage(err error, stage matcher.Stage) error {
	var nf *matcher.NotFoundError
	if errors.As(err, &nf) && nf.Stage == "" {
		nf.Stage = stage
	}
	return err
}
