package matcher

import (
	"errors"
	"fmt"
)

// Stage names the step of a voting attempt that was looking for an element
type Stage string

const (
	StageCategory  Stage = "category"
	StageCandidate Stage = "candidate"
	StageVote      Stage = "vote"
	StageSubmit    Stage = "submit"
)

// NotFoundError reports that no element matched a target. It is expected
// and recoverable: usually voting is not open yet or the layout changed.
type NotFoundError struct {
	Stage      Stage
	Target     string
	Suggestion string // Closest element text, if any was close
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("not found: %q", e.Target)
	if e.Stage != "" {
		msg = fmt.Sprintf("%s %s", e.Stage, msg)
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (closest: %q)", e.Suggestion)
	}
	return msg
}

// IsNotFound reports whether err is a NotFoundError for the given stage.
// An empty stage matches any stage.
func IsNotFound(err error, stage Stage) bool {
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		return false
	}
	return stage == "" || nf.Stage == stage
}

// StageOf returns the stage recorded in a NotFoundError, or "" for other errors
func StageOf(err error) Stage {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Stage
	}
	return ""
}
